// Package memory is an in-process ledger backend. It keeps every table in
// maps guarded by one mutex and implements Atomic by running the unit of work
// against a snapshot that is committed only when it succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type dataset struct {
	accounts     *table[core.Account, ledger.AccountFilter]
	debts        *table[core.Debt, ledger.DebtFilter]
	payments     *table[core.DebtPayment, ledger.PaymentFilter]
	budgets      *table[core.Budget, ledger.BudgetFilter]
	alerts       *alertTable
	transfers    *table[core.MoneyTransfer, ledger.TransferFilter]
	events       *table[core.CalendarEvent, ledger.EventFilter]
	reminders    *reminderTable
	categories   *table[core.Category, ledger.CategoryFilter]
	expenses     *table[core.Expense, ledger.ExpenseFilter]
	incomes      *table[core.Income, ledger.IncomeFilter]
	transactions *table[core.Transaction, ledger.TransactionFilter]
	goals        *table[core.Goal, ledger.GoalFilter]
	projects     *table[core.Project, ledger.ProjectFilter]
	documents    *table[core.ProjectDocument, ledger.DocumentFilter]
}

func (d *dataset) Accounts() ledger.AccountRepo         { return d.accounts }
func (d *dataset) Debts() ledger.DebtRepo               { return d.debts }
func (d *dataset) Payments() ledger.PaymentRepo         { return d.payments }
func (d *dataset) Budgets() ledger.BudgetRepo           { return &budgetRepo{d.budgets, d.categories} }
func (d *dataset) Alerts() ledger.AlertRepo             { return &alertRepo{d.alerts, d.budgets} }
func (d *dataset) Transfers() ledger.TransferRepo       { return d.transfers }
func (d *dataset) Events() ledger.EventRepo             { return d.events }
func (d *dataset) Reminders() ledger.ReminderRepo       { return d.reminders }
func (d *dataset) Categories() ledger.CategoryRepo      { return d.categories }
func (d *dataset) Expenses() ledger.ExpenseRepo         { return d.expenses }
func (d *dataset) Incomes() ledger.IncomeRepo           { return d.incomes }
func (d *dataset) Transactions() ledger.TransactionRepo { return d.transactions }
func (d *dataset) Goals() ledger.GoalRepo               { return d.goals }
func (d *dataset) Projects() ledger.ProjectRepo         { return d.projects }
func (d *dataset) Documents() ledger.DocumentRepo       { return d.documents }

// Store is the in-memory ledger.
type Store struct {
	mu sync.Mutex
	*dataset
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty store. now stamps created/updated times; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Store{}
	s.dataset = newDataset(&s.mu, now)
	return s
}

func (s *Store) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(snap); err != nil {
		return err
	}
	s.commit(snap)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) snapshot() *dataset {
	d := s.dataset
	return &dataset{
		accounts:     d.accounts.snapshot(),
		debts:        d.debts.snapshot(),
		payments:     d.payments.snapshot(),
		budgets:      d.budgets.snapshot(),
		alerts:       &alertTable{d.alerts.snapshot()},
		transfers:    d.transfers.snapshot(),
		events:       d.events.snapshot(),
		reminders:    d.reminders.snapshot(),
		categories:   d.categories.snapshot(),
		expenses:     d.expenses.snapshot(),
		incomes:      d.incomes.snapshot(),
		transactions: d.transactions.snapshot(),
		goals:        d.goals.snapshot(),
		projects:     d.projects.snapshot(),
		documents:    d.documents.snapshot(),
	}
}

func (s *Store) commit(snap *dataset) {
	d := s.dataset
	d.accounts.restore(snap.accounts)
	d.debts.restore(snap.debts)
	d.payments.restore(snap.payments)
	d.budgets.restore(snap.budgets)
	d.alerts.restore(snap.alerts.table)
	d.transfers.restore(snap.transfers)
	d.events.restore(snap.events)
	d.reminders.restore(snap.reminders)
	d.categories.restore(snap.categories)
	d.expenses.restore(snap.expenses)
	d.incomes.restore(snap.incomes)
	d.transactions.restore(snap.transactions)
	d.goals.restore(snap.goals)
	d.projects.restore(snap.projects)
	d.documents.restore(snap.documents)
}

func newDataset(mu *sync.Mutex, now func() time.Time) *dataset {
	return &dataset{
		accounts: newTable(mu, now, schema[core.Account, ledger.AccountFilter]{
			kind: "account", id: func(v *core.Account) *int64 { return &v.ID }, owner: func(v *core.Account) *string { return &v.OwnerID },
			created: func(v *core.Account) *time.Time { return &v.CreatedAt }, updated: func(v *core.Account) *time.Time { return &v.UpdatedAt },
			match: func(v core.Account, f ledger.AccountFilter) bool { return f.Currency == "" || v.Currency == f.Currency },
			less:  func(a, b core.Account) bool { return a.Name < b.Name },
		}),
		debts: newTable(mu, now, schema[core.Debt, ledger.DebtFilter]{
			kind: "debt", id: func(v *core.Debt) *int64 { return &v.ID }, owner: func(v *core.Debt) *string { return &v.OwnerID },
			created: func(v *core.Debt) *time.Time { return &v.CreatedAt }, updated: func(v *core.Debt) *time.Time { return &v.UpdatedAt },
			less: func(a, b core.Debt) bool { return a.CurrentBalance.GreaterThan(b.CurrentBalance) },
		}),
		payments: newTable(mu, now, schema[core.DebtPayment, ledger.PaymentFilter]{
			kind: "debt payment", id: func(v *core.DebtPayment) *int64 { return &v.ID }, owner: func(v *core.DebtPayment) *string { return &v.OwnerID },
			created: func(v *core.DebtPayment) *time.Time { return &v.CreatedAt },
			match:   func(v core.DebtPayment, f ledger.PaymentFilter) bool { return f.DebtID == 0 || v.DebtID == f.DebtID },
			less:    func(a, b core.DebtPayment) bool { return a.PaymentDate.After(b.PaymentDate) },
		}),
		budgets: newTable(mu, now, schema[core.Budget, ledger.BudgetFilter]{
			kind: "budget", id: func(v *core.Budget) *int64 { return &v.ID }, owner: func(v *core.Budget) *string { return &v.OwnerID },
			created: func(v *core.Budget) *time.Time { return &v.CreatedAt }, updated: func(v *core.Budget) *time.Time { return &v.UpdatedAt },
			match: matchBudget,
			less:  func(a, b core.Budget) bool { return a.StartDate.After(b.StartDate) },
		}),
		alerts: &alertTable{newTable(mu, now, schema[core.BudgetAlert, ledger.AlertFilter]{
			kind: "budget alert", id: func(v *core.BudgetAlert) *int64 { return &v.ID }, owner: func(v *core.BudgetAlert) *string { return &v.OwnerID },
			created: func(v *core.BudgetAlert) *time.Time { return &v.AlertDate },
			match: func(v core.BudgetAlert, f ledger.AlertFilter) bool {
				return (f.BudgetID == 0 || v.BudgetID == f.BudgetID) && (!f.UnreadOnly || !v.Read)
			},
			less: func(a, b core.BudgetAlert) bool { return a.AlertDate.After(b.AlertDate) },
		})},
		transfers: newTable(mu, now, schema[core.MoneyTransfer, ledger.TransferFilter]{
			kind: "money transfer", id: func(v *core.MoneyTransfer) *int64 { return &v.ID }, owner: func(v *core.MoneyTransfer) *string { return &v.OwnerID },
			created: func(v *core.MoneyTransfer) *time.Time { return &v.CreatedAt }, updated: func(v *core.MoneyTransfer) *time.Time { return &v.UpdatedAt },
			match: func(v core.MoneyTransfer, f ledger.TransferFilter) bool { return f.Status == "" || v.Status == f.Status },
			less:  func(a, b core.MoneyTransfer) bool { return a.ScheduledDate.After(b.ScheduledDate) },
		}),
		events: newTable(mu, now, schema[core.CalendarEvent, ledger.EventFilter]{
			kind: "calendar event", id: func(v *core.CalendarEvent) *int64 { return &v.ID }, owner: func(v *core.CalendarEvent) *string { return &v.OwnerID },
			created: func(v *core.CalendarEvent) *time.Time { return &v.CreatedAt }, updated: func(v *core.CalendarEvent) *time.Time { return &v.UpdatedAt },
			match: func(v core.CalendarEvent, f ledger.EventFilter) bool { return f.Type == "" || v.Type == f.Type },
			less: func(a, b core.CalendarEvent) bool {
				if !a.Date.Equal(b.Date) {
					return a.Date.Before(b.Date)
				}
				return a.Time < b.Time
			},
		}),
		reminders: &reminderTable{lock: mu, now: now, rows: map[reminderKey]core.EventReminder{}},
		categories: newTable(mu, now, schema[core.Category, ledger.CategoryFilter]{
			kind: "category", id: func(v *core.Category) *int64 { return &v.ID }, owner: func(v *core.Category) *string { return &v.OwnerID },
			created: func(v *core.Category) *time.Time { return &v.CreatedAt }, updated: func(v *core.Category) *time.Time { return &v.UpdatedAt },
			match: func(v core.Category, f ledger.CategoryFilter) bool {
				if f.Type != "" && !v.MatchesType(f.Type) {
					return false
				}
				if f.Active != nil && v.Active != *f.Active {
					return false
				}
				return !f.ParentsOnly || v.ParentID == nil
			},
			less: func(a, b core.Category) bool {
				if a.Type != b.Type {
					return a.Type < b.Type
				}
				return a.Name < b.Name
			},
		}),
		expenses: newTable(mu, now, schema[core.Expense, ledger.ExpenseFilter]{
			kind: "expense", id: func(v *core.Expense) *int64 { return &v.ID }, owner: func(v *core.Expense) *string { return &v.OwnerID },
			created: func(v *core.Expense) *time.Time { return &v.CreatedAt }, updated: func(v *core.Expense) *time.Time { return &v.UpdatedAt },
			match: func(v core.Expense, f ledger.ExpenseFilter) bool {
				return within(v.Date, f.From, f.To) && (f.CategoryID == nil || sameID(v.CategoryID, f.CategoryID))
			},
			less: func(a, b core.Expense) bool { return a.Date.After(b.Date) },
		}),
		incomes: newTable(mu, now, schema[core.Income, ledger.IncomeFilter]{
			kind: "income", id: func(v *core.Income) *int64 { return &v.ID }, owner: func(v *core.Income) *string { return &v.OwnerID },
			created: func(v *core.Income) *time.Time { return &v.CreatedAt }, updated: func(v *core.Income) *time.Time { return &v.UpdatedAt },
			match: func(v core.Income, f ledger.IncomeFilter) bool {
				return (f.Status == "" || v.Status == f.Status) && within(v.Date, f.From, f.To)
			},
			less: func(a, b core.Income) bool { return a.Date.After(b.Date) },
		}),
		transactions: newTable(mu, now, schema[core.Transaction, ledger.TransactionFilter]{
			kind: "transaction", id: func(v *core.Transaction) *int64 { return &v.ID }, owner: func(v *core.Transaction) *string { return &v.OwnerID },
			created: func(v *core.Transaction) *time.Time { return &v.CreatedAt }, updated: func(v *core.Transaction) *time.Time { return &v.UpdatedAt },
			match: func(v core.Transaction, f ledger.TransactionFilter) bool {
				return (f.Type == "" || v.Type == f.Type) && within(v.Date, f.From, f.To)
			},
			less: func(a, b core.Transaction) bool { return a.Date.After(b.Date) },
		}),
		goals: newTable(mu, now, schema[core.Goal, ledger.GoalFilter]{
			kind: "goal", id: func(v *core.Goal) *int64 { return &v.ID }, owner: func(v *core.Goal) *string { return &v.OwnerID },
			created: func(v *core.Goal) *time.Time { return &v.CreatedAt }, updated: func(v *core.Goal) *time.Time { return &v.UpdatedAt },
			match: func(v core.Goal, f ledger.GoalFilter) bool { return within(v.Deadline, f.DeadlineFrom, core.Date{}) },
			less:  func(a, b core.Goal) bool { return a.Deadline.Before(b.Deadline) },
		}),
		projects: newTable(mu, now, schema[core.Project, ledger.ProjectFilter]{
			kind: "project", id: func(v *core.Project) *int64 { return &v.ID }, owner: func(v *core.Project) *string { return &v.OwnerID },
			created: func(v *core.Project) *time.Time { return &v.CreatedAt }, updated: func(v *core.Project) *time.Time { return &v.UpdatedAt },
			match: func(v core.Project, f ledger.ProjectFilter) bool {
				if f.TopLevelOnly && v.ParentID != nil {
					return false
				}
				return f.ParentID == nil || sameID(v.ParentID, f.ParentID)
			},
			less: func(a, b core.Project) bool { return a.CreatedAt.After(b.CreatedAt) },
		}),
		documents: newTable(mu, now, schema[core.ProjectDocument, ledger.DocumentFilter]{
			kind: "document", id: func(v *core.ProjectDocument) *int64 { return &v.ID }, owner: func(v *core.ProjectDocument) *string { return &v.OwnerID },
			created: func(v *core.ProjectDocument) *time.Time { return &v.UploadedAt },
			match: func(v core.ProjectDocument, f ledger.DocumentFilter) bool {
				return f.ProjectID == 0 || v.ProjectID == f.ProjectID
			},
			less: func(a, b core.ProjectDocument) bool { return a.UploadedAt.After(b.UploadedAt) },
		}),
	}
}

func matchBudget(v core.Budget, f ledger.BudgetFilter) bool {
	if f.Active != nil && v.Active != *f.Active {
		return false
	}
	if f.Period != "" && v.Period != f.Period {
		return false
	}
	if f.OverallOnly && v.CategoryID != nil {
		return false
	}
	return f.CategoryID == nil || sameID(v.CategoryID, f.CategoryID)
}

// budgetRepo resolves the category name on read, as the SQL backend does with a join.
type budgetRepo struct {
	*table[core.Budget, ledger.BudgetFilter]
	categories *table[core.Category, ledger.CategoryFilter]
}

func (r *budgetRepo) withName(ctx context.Context, b core.Budget) core.Budget {
	b.CategoryName = ""
	if b.CategoryID != nil {
		if c, err := r.categories.Get(ctx, b.OwnerID, *b.CategoryID); err == nil {
			b.CategoryName = c.Name
		}
	}
	return b
}

func (r *budgetRepo) Create(ctx context.Context, owner string, b *core.Budget) error {
	if err := r.table.Create(ctx, owner, b); err != nil {
		return err
	}
	*b = r.withName(ctx, *b)
	return nil
}

func (r *budgetRepo) Update(ctx context.Context, owner string, b *core.Budget) error {
	if err := r.table.Update(ctx, owner, b); err != nil {
		return err
	}
	*b = r.withName(ctx, *b)
	return nil
}

func (r *budgetRepo) Get(ctx context.Context, owner string, id int64) (core.Budget, error) {
	b, err := r.table.Get(ctx, owner, id)
	if err != nil {
		return b, err
	}
	return r.withName(ctx, b), nil
}

func (r *budgetRepo) List(ctx context.Context, owner string, f ledger.BudgetFilter) ([]core.Budget, error) {
	list, err := r.table.List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = r.withName(ctx, list[i])
	}
	return list, nil
}

type alertTable struct {
	*table[core.BudgetAlert, ledger.AlertFilter]
}

type alertRepo struct {
	*alertTable
	budgets *table[core.Budget, ledger.BudgetFilter]
}

func (r *alertRepo) Insert(_ context.Context, a *core.BudgetAlert) (bool, error) {
	defer r.guard()()
	for _, v := range r.rows {
		if v.BudgetID == a.BudgetID && v.PeriodStart.Equal(a.PeriodStart) {
			return false, nil
		}
	}
	r.nextID++
	a.ID = r.nextID
	if a.AlertDate.IsZero() {
		a.AlertDate = r.now()
	}
	r.rows[a.ID] = *a
	return true, nil
}

func (r *alertRepo) withName(ctx context.Context, a core.BudgetAlert) core.BudgetAlert {
	if b, err := r.budgets.Get(ctx, a.OwnerID, a.BudgetID); err == nil {
		a.BudgetName = b.Name
	}
	return a
}

func (r *alertRepo) Get(ctx context.Context, owner string, id int64) (core.BudgetAlert, error) {
	a, err := r.table.Get(ctx, owner, id)
	if err != nil {
		return a, err
	}
	return r.withName(ctx, a), nil
}

func (r *alertRepo) List(ctx context.Context, owner string, f ledger.AlertFilter) ([]core.BudgetAlert, error) {
	list, err := r.table.List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = r.withName(ctx, list[i])
	}
	return list, nil
}

func (r *alertRepo) MarkRead(ctx context.Context, owner string, id int64) error {
	defer r.guard()()
	a, err := r.get(owner, id)
	if err != nil {
		return err
	}
	a.Read = true
	r.rows[id] = a
	return nil
}

func (r *alertRepo) MarkAllRead(_ context.Context, owner string) (int64, error) {
	defer r.guard()()
	var n int64
	for id, a := range r.rows {
		if a.OwnerID == owner && !a.Read {
			a.Read = true
			r.rows[id] = a
			n++
		}
	}
	return n, nil
}

type reminderKey struct {
	event int64
	date  string
}

type reminderTable struct {
	lock   *sync.Mutex
	now    func() time.Time
	rows   map[reminderKey]core.EventReminder
	nextID int64
}

func (t *reminderTable) guard() func() {
	if t.lock == nil {
		return func() {}
	}
	t.lock.Lock()
	return t.lock.Unlock
}

func (t *reminderTable) snapshot() *reminderTable {
	rows := make(map[reminderKey]core.EventReminder, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &reminderTable{now: t.now, rows: rows, nextID: t.nextID}
}

func (t *reminderTable) restore(from *reminderTable) {
	t.rows = from.rows
	t.nextID = from.nextID
}

func (t *reminderTable) Record(_ context.Context, r *core.EventReminder) (bool, error) {
	defer t.guard()()
	key := reminderKey{event: r.EventID, date: r.ReminderDate.String()}
	if _, ok := t.rows[key]; ok {
		return false, nil
	}
	t.nextID++
	r.ID = t.nextID
	r.SentAt = t.now()
	t.rows[key] = *r
	return true, nil
}

func (t *reminderTable) List(_ context.Context, eventID int64) ([]core.EventReminder, error) {
	defer t.guard()()
	out := []core.EventReminder{}
	for k, v := range t.rows {
		if k.event == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderDate.Before(out[j].ReminderDate) })
	return out, nil
}
