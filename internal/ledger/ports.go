// Package ledger defines the storage ports every backend implements: per-owner
// record storage for each resource kind plus an atomic unit of work.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ports for storage adapters. Every method is scoped to an owner; rows that
// belong to someone else behave exactly like missing rows (core.ErrNotFound).
type (
	// CRUD is the common create/read/update/delete surface of a resource kind.
	// Create and Update fill ID and timestamps on v.
	CRUD[T any, F any] interface {
		Create(ctx context.Context, owner string, v *T) error
		Get(ctx context.Context, owner string, id int64) (T, error)
		List(ctx context.Context, owner string, f F) ([]T, error)
		Update(ctx context.Context, owner string, v *T) error
		Delete(ctx context.Context, owner string, id int64) error
	}

	AccountRepo     = CRUD[core.Account, AccountFilter]
	DebtRepo        = CRUD[core.Debt, DebtFilter]
	BudgetRepo      = CRUD[core.Budget, BudgetFilter]
	TransferRepo    = CRUD[core.MoneyTransfer, TransferFilter]
	EventRepo       = CRUD[core.CalendarEvent, EventFilter]
	CategoryRepo    = CRUD[core.Category, CategoryFilter]
	ExpenseRepo     = CRUD[core.Expense, ExpenseFilter]
	IncomeRepo      = CRUD[core.Income, IncomeFilter]
	TransactionRepo = CRUD[core.Transaction, TransactionFilter]
	GoalRepo        = CRUD[core.Goal, GoalFilter]
	ProjectRepo     = CRUD[core.Project, ProjectFilter]

	// PaymentRepo stores immutable debt payments.
	PaymentRepo interface {
		Create(ctx context.Context, owner string, p *core.DebtPayment) error
		Get(ctx context.Context, owner string, id int64) (core.DebtPayment, error)
		List(ctx context.Context, owner string, f PaymentFilter) ([]core.DebtPayment, error)
		Delete(ctx context.Context, owner string, id int64) error
	}

	// AlertRepo stores budget alerts, at most one per budget and period start.
	AlertRepo interface {
		// Insert stores a unless an alert for the same budget and period
		// start exists. created reports whether a row was written.
		Insert(ctx context.Context, a *core.BudgetAlert) (created bool, err error)
		Get(ctx context.Context, owner string, id int64) (core.BudgetAlert, error)
		List(ctx context.Context, owner string, f AlertFilter) ([]core.BudgetAlert, error)
		MarkRead(ctx context.Context, owner string, id int64) error
		MarkAllRead(ctx context.Context, owner string) (int64, error)
		Delete(ctx context.Context, owner string, id int64) error
	}

	// DocumentRepo stores project document records. Document content lives
	// in a blob store under ProjectDocument.File.
	DocumentRepo interface {
		Create(ctx context.Context, owner string, d *core.ProjectDocument) error
		Get(ctx context.Context, owner string, id int64) (core.ProjectDocument, error)
		List(ctx context.Context, owner string, f DocumentFilter) ([]core.ProjectDocument, error)
		Delete(ctx context.Context, owner string, id int64) error
	}

	// ReminderRepo records sent event reminders, one per event and date.
	ReminderRepo interface {
		Record(ctx context.Context, r *core.EventReminder) (created bool, err error)
		List(ctx context.Context, eventID int64) ([]core.EventReminder, error)
	}

	// Tx is the set of repositories available to one unit of work.
	Tx interface {
		Accounts() AccountRepo
		Debts() DebtRepo
		Payments() PaymentRepo
		Budgets() BudgetRepo
		Alerts() AlertRepo
		Transfers() TransferRepo
		Events() EventRepo
		Reminders() ReminderRepo
		Categories() CategoryRepo
		Expenses() ExpenseRepo
		Incomes() IncomeRepo
		Transactions() TransactionRepo
		Goals() GoalRepo
		Projects() ProjectRepo
		Documents() DocumentRepo
	}

	// Store is a ledger backend. Calls made directly on the Store run in
	// their own implicit transaction; Atomic groups several calls so that
	// either all of their writes persist or none do.
	Store interface {
		Tx
		Atomic(ctx context.Context, fn func(tx Tx) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)

type (
	AccountFilter struct {
		Currency core.Currency
	}

	DebtFilter struct{}

	PaymentFilter struct {
		DebtID int64
	}

	BudgetFilter struct {
		Active     *bool
		Period     core.BudgetPeriod
		CategoryID *int64
		// OverallOnly selects budgets without a category.
		OverallOnly bool
	}

	AlertFilter struct {
		BudgetID   int64
		UnreadOnly bool
	}

	TransferFilter struct {
		Status core.TransferStatus
	}

	EventFilter struct {
		Type core.EventType
	}

	CategoryFilter struct {
		// Type matches categories of that type or of type both.
		Type        core.CategoryType
		Active      *bool
		ParentsOnly bool
	}

	// ExpenseFilter bounds are inclusive; zero dates are open.
	ExpenseFilter struct {
		From, To   core.Date
		CategoryID *int64
	}

	IncomeFilter struct {
		Status   core.IncomeStatus
		From, To core.Date
	}

	TransactionFilter struct {
		Type     core.TransactionType
		From, To core.Date
	}

	GoalFilter struct {
		// DeadlineFrom keeps goals whose deadline is on or after the date.
		DeadlineFrom core.Date
	}

	ProjectFilter struct {
		TopLevelOnly bool
		ParentID     *int64
	}

	// DocumentFilter with a zero ProjectID lists every document of the owner.
	DocumentFilter struct {
		ProjectID int64
	}
)

// Bool returns a pointer to b, for optional filter fields.
func Bool(b bool) *bool { return &b }
