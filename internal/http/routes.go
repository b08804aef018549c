package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

const apiPrefix = "/api/v1"

// registerResources mounts the CRUD routes of every resource kind.
func (s *Server) registerResources(mux *http.ServeMux) {
	svc := s.services
	store := s.store

	accountsFor := func(path string, c core.Currency) *resource[core.Account, ledger.AccountFilter] {
		return &resource[core.Account, ledger.AccountFilter]{
			path:    path,
			repo:    store.Accounts,
			id:      func(a *core.Account) *int64 { return &a.ID },
			blank:   func() core.Account { return core.Account{Currency: c} },
			filter:  func(url.Values) (ledger.AccountFilter, error) { return ledger.AccountFilter{Currency: c}, nil },
			scope:   func(a *core.Account) { a.Currency = c },
			visible: func(a core.Account) bool { return a.Currency == c },
		}
	}
	accountsFor("us-accounts", core.USD).register(mux)
	accountsFor("kenya-accounts", core.KES).register(mux)

	(&resource[core.Debt, ledger.DebtFilter]{
		path:   "debts",
		repo:   store.Debts,
		id:     func(d *core.Debt) *int64 { return &d.ID },
		blank:  func() core.Debt { return core.Debt{Type: core.DebtLoan} },
		create: svc.Debts.Create,
		update: svc.Debts.Update,
		remove: svc.Debts.Delete,
	}).register(mux)

	(&resource[core.Expense, ledger.ExpenseFilter]{
		path:   "expenses",
		repo:   store.Expenses,
		id:     func(e *core.Expense) *int64 { return &e.ID },
		filter: expenseFilter,
		create: func(ctx context.Context, owner string, e *core.Expense) error {
			_, err := svc.Expenses.Create(ctx, owner, e)
			return err
		},
		update: svc.Expenses.Update,
	}).register(mux)

	(&resource[core.Income, ledger.IncomeFilter]{
		path: "incomes",
		repo: store.Incomes,
		id:   func(i *core.Income) *int64 { return &i.ID },
		blank: func() core.Income {
			return core.Income{Currency: core.USD, Frequency: "once", Status: core.IncomePending}
		},
		filter: incomeFilter,
		create: svc.Incomes.Create,
		update: svc.Incomes.Update,
	}).register(mux)

	(&resource[core.Transaction, ledger.TransactionFilter]{
		path:   "transactions",
		repo:   store.Transactions,
		id:     func(t *core.Transaction) *int64 { return &t.ID },
		blank:  func() core.Transaction { return core.Transaction{Currency: core.USD} },
		filter: transactionFilter,
	}).register(mux)

	(&resource[core.Goal, ledger.GoalFilter]{
		path:  "goals",
		repo:  store.Goals,
		id:    func(g *core.Goal) *int64 { return &g.ID },
		blank: func() core.Goal { return core.Goal{Type: core.GoalSavings} },
		view: func(_ context.Context, _ string, g core.Goal) (any, error) {
			return services.NewGoalView(g), nil
		},
	}).register(mux)

	(&resource[core.Project, ledger.ProjectFilter]{
		path:   "projects",
		repo:   store.Projects,
		id:     func(p *core.Project) *int64 { return &p.ID },
		create: svc.Planning.CreateProject,
		update: svc.Planning.UpdateProject,
		remove: svc.Documents.DeleteProject,
		view: func(ctx context.Context, owner string, p core.Project) (any, error) {
			return svc.Planning.Project(ctx, owner, p.ID)
		},
		list: func(ctx context.Context, owner string, _ ledger.ProjectFilter, _ url.Values) (any, error) {
			return svc.Planning.Projects(ctx, owner)
		},
	}).register(mux)

	(&resource[core.CalendarEvent, ledger.EventFilter]{
		path: "calendar-events",
		repo: store.Events,
		id:   func(e *core.CalendarEvent) *int64 { return &e.ID },
		blank: func() core.CalendarEvent {
			return core.CalendarEvent{Type: core.EventGeneral, Reminder: true, ReminderDaysBefore: 1}
		},
		filter: func(q url.Values) (ledger.EventFilter, error) {
			return ledger.EventFilter{Type: core.EventType(strings.TrimSpace(q.Get("event_type")))}, nil
		},
		create: svc.Calendar.Create,
		update: svc.Calendar.Update,
		list: func(ctx context.Context, owner string, f ledger.EventFilter, q url.Values) (any, error) {
			from, err := queryDate(q, "start_date")
			if err != nil {
				return nil, err
			}
			to, err := queryDate(q, "end_date")
			if err != nil {
				return nil, err
			}
			if from.IsZero() || to.IsZero() {
				return store.Events().List(ctx, owner, f)
			}
			return svc.Calendar.Window(ctx, owner, f, from, to)
		},
	}).register(mux)

	(&resource[core.Category, ledger.CategoryFilter]{
		path: "categories",
		repo: store.Categories,
		id:   func(c *core.Category) *int64 { return &c.ID },
		blank: func() core.Category {
			return core.Category{Type: core.CategoryExpense, Active: true}
		},
		filter: categoryFilter,
		create: svc.Categories.Create,
		update: svc.Categories.Update,
		view: func(ctx context.Context, owner string, c core.Category) (any, error) {
			return svc.Categories.Node(ctx, owner, c.ID)
		},
		list: func(ctx context.Context, owner string, f ledger.CategoryFilter, _ url.Values) (any, error) {
			return svc.Categories.List(ctx, owner, f)
		},
	}).register(mux)

	(&resource[core.Budget, ledger.BudgetFilter]{
		path: "budgets",
		repo: store.Budgets,
		id:   func(b *core.Budget) *int64 { return &b.ID },
		blank: func() core.Budget {
			return core.Budget{Period: core.PeriodMonthly, Active: true, AlertThreshold: core.DefaultAlertThreshold}
		},
		filter: budgetFilter,
		create: func(ctx context.Context, owner string, b *core.Budget) error {
			_, err := svc.Budgets.Create(ctx, owner, b)
			return err
		},
		update: svc.Budgets.Update,
		view: func(ctx context.Context, owner string, b core.Budget) (any, error) {
			return svc.Budgets.View(ctx, owner, b.ID)
		},
		list: func(ctx context.Context, owner string, f ledger.BudgetFilter, _ url.Values) (any, error) {
			return svc.Budgets.List(ctx, owner, f)
		},
	}).register(mux)

	(&resource[core.MoneyTransfer, ledger.TransferFilter]{
		path: "money-transfers",
		repo: store.Transfers,
		id:   func(t *core.MoneyTransfer) *int64 { return &t.ID },
		blank: func() core.MoneyTransfer {
			return core.MoneyTransfer{Type: core.TransferInternal}
		},
		filter: func(q url.Values) (ledger.TransferFilter, error) {
			return ledger.TransferFilter{Status: core.TransferStatus(strings.TrimSpace(q.Get("status")))}, nil
		},
		create: svc.Transfers.Create,
		update: svc.Transfers.Update,
		remove: svc.Transfers.Delete,
	}).register(mux)
}

// registerActions mounts the routes that are not plain CRUD.
func (s *Server) registerActions(mux *http.ServeMux) {
	h := func(pattern string, fn func(w http.ResponseWriter, r *http.Request, owner string)) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+apiPrefix+path, ownerHandler(fn))
	}

	h("GET /debts/{id}/amortization_schedule", s.handleAmortizationSchedule)

	h("GET /debt-payments", s.handleListPayments)
	h("POST /debt-payments", s.handleCreatePayment)
	h("GET /debt-payments/{id}", s.handleGetPayment)
	h("DELETE /debt-payments/{id}", s.handleDeletePayment)

	h("GET /budgets/summary", s.handleBudgetSummary)
	h("POST /budgets/check_alerts", s.handleCheckAlerts)
	h("GET /budgets/{id}/expenses", s.handleBudgetExpenses)

	h("GET /budget-alerts", s.handleListAlerts)
	h("GET /budget-alerts/{id}", s.handleGetAlert)
	h("DELETE /budget-alerts/{id}", s.handleDeleteAlert)
	h("POST /budget-alerts/{id}/mark_read", s.handleMarkAlertRead)
	h("POST /budget-alerts/mark_all_read", s.handleMarkAllAlertsRead)

	h("POST /money-transfers/{id}/complete", s.handleCompleteTransfer)
	h("POST /money-transfers/{id}/cancel", s.handleCancelTransfer)
	h("GET /money-transfers/exchange_rate", s.handleExchangeRate)

	h("GET /calendar-events/upcoming", s.handleUpcomingEvents)
	h("GET /calendar-events/monthly_summary", s.handleMonthlySummary)
	h("POST /calendar-events/send_reminders", s.handleSendReminders)

	h("POST /incomes/{id}/mark_deposited", s.handleMarkDeposited)
	h("GET /incomes/upcoming", s.handleUpcomingIncome)

	h("GET /transactions/summary", s.handleTransactionSummary)

	h("POST /goals/{id}/update_progress", s.handleUpdateProgress)

	h("GET /projects/{id}/documents", s.handleListDocuments)
	h("POST /projects/{id}/upload_document", s.handleUploadDocument)
	h("DELETE /projects/{id}/delete_document", s.handleDeleteDocument)
	h("GET /projects/{id}/documents/{document_id}/file", s.handleDownloadDocument)

	h("GET /categories/tree", s.handleCategoryTree)
	h("GET /categories/expense_categories", s.handleCategoriesOfType(core.CategoryExpense))
	h("GET /categories/income_categories", s.handleCategoriesOfType(core.CategoryIncome))
	h("POST /categories/create_defaults", s.handleCreateDefaultCategories)

	h("GET /dashboard", s.handleDashboard)
}

func expenseFilter(q url.Values) (ledger.ExpenseFilter, error) {
	var f ledger.ExpenseFilter
	var err error
	if f.From, err = queryDate(q, "start_date"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "end_date"); err != nil {
		return f, err
	}
	f.CategoryID, err = queryID(q, "category")
	return f, err
}

func incomeFilter(q url.Values) (ledger.IncomeFilter, error) {
	f := ledger.IncomeFilter{Status: core.IncomeStatus(strings.TrimSpace(q.Get("status")))}
	var err error
	if f.From, err = queryDate(q, "start_date"); err != nil {
		return f, err
	}
	f.To, err = queryDate(q, "end_date")
	return f, err
}

func transactionFilter(q url.Values) (ledger.TransactionFilter, error) {
	f := ledger.TransactionFilter{Type: core.TransactionType(strings.TrimSpace(q.Get("transaction_type")))}
	var err error
	if f.From, err = queryDate(q, "start_date"); err != nil {
		return f, err
	}
	f.To, err = queryDate(q, "end_date")
	return f, err
}

func categoryFilter(q url.Values) (ledger.CategoryFilter, error) {
	return ledger.CategoryFilter{
		Type:        core.CategoryType(strings.TrimSpace(q.Get("type"))),
		Active:      queryBool(q, "is_active"),
		ParentsOnly: strings.EqualFold(q.Get("parents_only"), "true"),
	}, nil
}

// budgetFilter accepts category=overall for budgets without a category.
func budgetFilter(q url.Values) (ledger.BudgetFilter, error) {
	f := ledger.BudgetFilter{
		Active: queryBool(q, "is_active"),
		Period: core.BudgetPeriod(strings.TrimSpace(q.Get("period"))),
	}
	if strings.EqualFold(q.Get("category"), "overall") {
		f.OverallOnly = true
		return f, nil
	}
	var err error
	f.CategoryID, err = queryID(q, "category")
	return f, err
}

// parseAmount reads the "amount" field of an action body.
func parseAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return decimal.Zero, err
	}
	if !p.Has("amount") {
		return decimal.Zero, nil
	}
	return p.Decimal("amount")
}
