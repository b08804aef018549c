// Package services provides the business operations behind the API: debt
// payments, budget monitoring, transfer execution, income deposits, calendar
// reminders, project documents and the derived summaries.
//
// Services read and write through a ledger.Store. Every operation that
// changes derived state (balances, alerts) runs in one Store.Atomic unit.
package services

import (
	"context"
	"io"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Publisher sends domain events. Publishing is best effort: failures are
// logged and never fail the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventType, owner string, payload any) error
}

// DocumentFiles keeps the bytes of uploaded project documents.
// documents.Store implementations satisfy it.
type DocumentFiles interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Store     ledger.Store
	Publisher Publisher
	Clock     core.Clock
	// Files is nil when document uploads are not configured.
	Files DocumentFiles
}

func (d Deps) publish(ctx context.Context, eventType, owner string, payload any) {
	if d.Publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", eventType)
		return
	}
	if err := d.Publisher.Publish(ctx, eventType, owner, payload); err != nil {
		slog.ErrorContext(ctx, "Failed to publish domain event",
			"type", eventType,
			"owner_id", owner,
			"error", err)
	}
}

// Services groups every service built on one set of dependencies.
type Services struct {
	Debts      *DebtService
	Budgets    *BudgetService
	Expenses   *ExpenseService
	Transfers  *TransferService
	Incomes    *IncomeService
	Calendar   *CalendarService
	Categories *CategoryService
	Planning   *PlanningService
	Documents  *DocumentService
	Dashboard  *DashboardService
}

// New wires every service. rates may be nil, in which case transfers without
// an explicit rate use 1.0.
func New(d Deps, rates RateSource) *Services {
	budgets := NewBudgetService(d)
	return &Services{
		Debts:      NewDebtService(d),
		Budgets:    budgets,
		Expenses:   NewExpenseService(d, budgets),
		Transfers:  NewTransferService(d, rates),
		Incomes:    NewIncomeService(d),
		Calendar:   NewCalendarService(d),
		Categories: NewCategoryService(d),
		Planning:   NewPlanningService(d),
		Documents:  NewDocumentService(d),
		Dashboard:  NewDashboardService(d, budgets),
	}
}
