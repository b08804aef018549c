package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

var accountsTable = &table[core.Account, ledger.AccountFilter]{
	kind:         "account",
	name:         "accounts",
	columns:      []string{"currency", "account_name", "account_number", "balance"},
	selectSQL:    "t.id, t.owner_id, t.currency, t.account_name, t.account_number, t.balance, t.created_at, t.updated_at",
	from:         "accounts t",
	order:        "t.account_name, t.id",
	hasUpdatedAt: true,
	id:           func(v *core.Account) *int64 { return &v.ID },
	values: func(v *core.Account) []any {
		return []any{v.Currency, v.Name, v.Number, v.Balance}
	},
	scan: func(s rowScanner) (core.Account, error) {
		var v core.Account
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Currency, &v.Name, &v.Number, &v.Balance, &created, &updated)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.AccountFilter) ([]string, []any) {
		if f.Currency == "" {
			return nil, nil
		}
		return []string{"t.currency = ?"}, []any{f.Currency}
	},
}

var debtsTable = &table[core.Debt, ledger.DebtFilter]{
	kind: "debt",
	name: "debts",
	columns: []string{"name", "debt_type", "principal", "interest_rate", "term_months",
		"start_date", "current_balance", "opening_balance", "monthly_payment"},
	selectSQL: "t.id, t.owner_id, t.name, t.debt_type, t.principal, t.interest_rate, t.term_months, " +
		"t.start_date, t.current_balance, t.opening_balance, t.monthly_payment, t.created_at, t.updated_at",
	from:         "debts t",
	order:        "CAST(t.current_balance AS REAL) DESC, t.id",
	hasUpdatedAt: true,
	id:           func(v *core.Debt) *int64 { return &v.ID },
	values: func(v *core.Debt) []any {
		return []any{v.Name, v.Type, v.Principal, v.InterestRate, v.TermMonths,
			v.StartDate, v.CurrentBalance, v.OpeningBalance, v.MonthlyPayment}
	},
	scan: func(s rowScanner) (core.Debt, error) {
		var v core.Debt
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Type, &v.Principal, &v.InterestRate, &v.TermMonths,
			&v.StartDate, &v.CurrentBalance, &v.OpeningBalance, &v.MonthlyPayment, &created, &updated)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
}

var paymentsTable = &table[core.DebtPayment, ledger.PaymentFilter]{
	kind: "debt payment",
	name: "debt_payments",
	columns: []string{"debt_id", "payment_date", "amount", "principal_payment", "interest_payment",
		"remaining_balance", "notes"},
	selectSQL: "t.id, t.owner_id, t.debt_id, t.payment_date, t.amount, t.principal_payment, " +
		"t.interest_payment, t.remaining_balance, t.notes, t.created_at",
	from:  "debt_payments t",
	order: "t.payment_date DESC, t.id DESC",
	id:    func(v *core.DebtPayment) *int64 { return &v.ID },
	values: func(v *core.DebtPayment) []any {
		return []any{v.DebtID, v.PaymentDate, v.Amount, v.PrincipalPayment, v.InterestPayment,
			v.RemainingBalance, v.Notes}
	},
	scan: func(s rowScanner) (core.DebtPayment, error) {
		var v core.DebtPayment
		var created string
		err := s.Scan(&v.ID, &v.OwnerID, &v.DebtID, &v.PaymentDate, &v.Amount, &v.PrincipalPayment,
			&v.InterestPayment, &v.RemainingBalance, &v.Notes, &created)
		v.CreatedAt = parseTime(created)
		return v, err
	},
	filter: func(f ledger.PaymentFilter) ([]string, []any) {
		if f.DebtID == 0 {
			return nil, nil
		}
		return []string{"t.debt_id = ?"}, []any{f.DebtID}
	},
}

var budgetsTable = &table[core.Budget, ledger.BudgetFilter]{
	kind: "budget",
	name: "budgets",
	columns: []string{"name", "category_id", "amount", "period", "start_date", "end_date",
		"is_active", "alert_threshold", "notes"},
	selectSQL: "t.id, t.owner_id, t.name, t.category_id, COALESCE(c.name, ''), t.amount, t.period, " +
		"t.start_date, t.end_date, t.is_active, t.alert_threshold, t.notes, t.created_at, t.updated_at",
	from:         "budgets t LEFT JOIN categories c ON c.id = t.category_id",
	order:        "t.start_date DESC, t.id",
	hasUpdatedAt: true,
	id:           func(v *core.Budget) *int64 { return &v.ID },
	values: func(v *core.Budget) []any {
		return []any{v.Name, nullableID(v.CategoryID), v.Amount, v.Period, v.StartDate,
			nullableDate(v.EndDate), v.Active, v.AlertThreshold, v.Notes}
	},
	scan: func(s rowScanner) (core.Budget, error) {
		var v core.Budget
		var category sql.NullInt64
		var end core.Date
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Name, &category, &v.CategoryName, &v.Amount, &v.Period,
			&v.StartDate, &end, &v.Active, &v.AlertThreshold, &v.Notes, &created, &updated)
		v.CategoryID, v.EndDate = idPtr(category), datePtr(end)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.BudgetFilter) ([]string, []any) {
		var clauses []string
		var args []any
		if f.Active != nil {
			clauses = append(clauses, "t.is_active = ?")
			args = append(args, *f.Active)
		}
		if f.Period != "" {
			clauses = append(clauses, "t.period = ?")
			args = append(args, f.Period)
		}
		if f.OverallOnly {
			clauses = append(clauses, "t.category_id IS NULL")
		}
		if f.CategoryID != nil {
			clauses = append(clauses, "t.category_id = ?")
			args = append(args, *f.CategoryID)
		}
		return clauses, args
	},
}

var transfersTable = &table[core.MoneyTransfer, ledger.TransferFilter]{
	kind: "money transfer",
	name: "money_transfers",
	columns: []string{"transfer_type", "from_us_account_id", "from_kenya_account_id", "to_us_account_id",
		"to_kenya_account_id", "amount", "exchange_rate", "fee", "status", "scheduled_date", "completed_at",
		"notes", "failure_reason"},
	selectSQL: "t.id, t.owner_id, t.transfer_type, t.from_us_account_id, t.from_kenya_account_id, " +
		"t.to_us_account_id, t.to_kenya_account_id, t.amount, t.exchange_rate, t.fee, t.status, " +
		"t.scheduled_date, t.completed_at, t.notes, t.failure_reason, t.created_at, t.updated_at",
	from:         "money_transfers t",
	order:        "t.scheduled_date DESC, t.id DESC",
	hasUpdatedAt: true,
	id:           func(v *core.MoneyTransfer) *int64 { return &v.ID },
	values: func(v *core.MoneyTransfer) []any {
		return []any{v.Type, nullableID(v.FromUSAccountID), nullableID(v.FromKenyaAccountID),
			nullableID(v.ToUSAccountID), nullableID(v.ToKenyaAccountID), v.Amount, v.ExchangeRate, v.Fee,
			v.Status, v.ScheduledDate, nullableTime(v.CompletedAt), v.Notes, v.FailureReason}
	},
	scan: func(s rowScanner) (core.MoneyTransfer, error) {
		var v core.MoneyTransfer
		var fromUS, fromKE, toUS, toKE sql.NullInt64
		var completed sql.NullString
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Type, &fromUS, &fromKE, &toUS, &toKE, &v.Amount, &v.ExchangeRate,
			&v.Fee, &v.Status, &v.ScheduledDate, &completed, &v.Notes, &v.FailureReason, &created, &updated)
		v.FromUSAccountID, v.FromKenyaAccountID = idPtr(fromUS), idPtr(fromKE)
		v.ToUSAccountID, v.ToKenyaAccountID = idPtr(toUS), idPtr(toKE)
		v.CompletedAt = timePtr(completed)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.TransferFilter) ([]string, []any) {
		if f.Status == "" {
			return nil, nil
		}
		return []string{"t.status = ?"}, []any{f.Status}
	},
}

var eventsTable = &table[core.CalendarEvent, ledger.EventFilter]{
	kind: "calendar event",
	name: "calendar_events",
	columns: []string{"title", "event_type", "date", "time", "amount", "description", "is_recurring",
		"recurrence_pattern", "recurrence_end_date", "reminder", "reminder_days_before"},
	selectSQL: "t.id, t.owner_id, t.title, t.event_type, t.date, t.time, t.amount, t.description, " +
		"t.is_recurring, t.recurrence_pattern, t.recurrence_end_date, t.reminder, t.reminder_days_before, " +
		"t.created_at, t.updated_at",
	from:         "calendar_events t",
	order:        "t.date, t.time, t.id",
	hasUpdatedAt: true,
	id:           func(v *core.CalendarEvent) *int64 { return &v.ID },
	values: func(v *core.CalendarEvent) []any {
		var amount any
		if v.Amount != nil {
			amount = *v.Amount
		}
		return []any{v.Title, v.Type, v.Date, v.Time, amount, v.Description, v.Recurring,
			v.RecurrencePattern, nullableDate(v.RecurrenceEndDate), v.Reminder, v.ReminderDaysBefore}
	},
	scan: func(s rowScanner) (core.CalendarEvent, error) {
		var v core.CalendarEvent
		var amount decimal.NullDecimal
		var end core.Date
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Type, &v.Date, &v.Time, &amount, &v.Description,
			&v.Recurring, &v.RecurrencePattern, &end, &v.Reminder, &v.ReminderDaysBefore, &created, &updated)
		if amount.Valid {
			a := amount.Decimal
			v.Amount = &a
		}
		v.RecurrenceEndDate = datePtr(end)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.EventFilter) ([]string, []any) {
		if f.Type == "" {
			return nil, nil
		}
		return []string{"t.event_type = ?"}, []any{f.Type}
	},
}

var categoriesTable = &table[core.Category, ledger.CategoryFilter]{
	kind:    "category",
	name:    "categories",
	columns: []string{"name", "category_type", "icon", "color", "description", "is_active", "parent_id"},
	selectSQL: "t.id, t.owner_id, t.name, t.category_type, t.icon, t.color, t.description, t.is_active, " +
		"t.parent_id, t.created_at, t.updated_at",
	from:         "categories t",
	order:        "t.category_type, t.name",
	hasUpdatedAt: true,
	id:           func(v *core.Category) *int64 { return &v.ID },
	values: func(v *core.Category) []any {
		return []any{v.Name, v.Type, v.Icon, v.Color, v.Description, v.Active, nullableID(v.ParentID)}
	},
	scan: func(s rowScanner) (core.Category, error) {
		var v core.Category
		var parent sql.NullInt64
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Type, &v.Icon, &v.Color, &v.Description, &v.Active,
			&parent, &created, &updated)
		v.ParentID = idPtr(parent)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.CategoryFilter) ([]string, []any) {
		var clauses []string
		var args []any
		if f.Type != "" {
			clauses = append(clauses, "t.category_type IN (?, 'both')")
			args = append(args, f.Type)
		}
		if f.Active != nil {
			clauses = append(clauses, "t.is_active = ?")
			args = append(args, *f.Active)
		}
		if f.ParentsOnly {
			clauses = append(clauses, "t.parent_id IS NULL")
		}
		return clauses, args
	},
}

var expensesTable = &table[core.Expense, ledger.ExpenseFilter]{
	kind:         "expense",
	name:         "expenses",
	columns:      []string{"description", "amount", "category_label", "category_id", "date"},
	selectSQL:    "t.id, t.owner_id, t.description, t.amount, t.category_label, t.category_id, t.date, t.created_at, t.updated_at",
	from:         "expenses t",
	order:        "t.date DESC, t.created_at DESC, t.id DESC",
	hasUpdatedAt: true,
	id:           func(v *core.Expense) *int64 { return &v.ID },
	values: func(v *core.Expense) []any {
		return []any{v.Description, v.Amount, v.CategoryLabel, nullableID(v.CategoryID), v.Date}
	},
	scan: func(s rowScanner) (core.Expense, error) {
		var v core.Expense
		var category sql.NullInt64
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Description, &v.Amount, &v.CategoryLabel, &category, &v.Date,
			&created, &updated)
		v.CategoryID = idPtr(category)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.ExpenseFilter) ([]string, []any) {
		clauses, args := dateRange("t.date", f.From, f.To)
		if f.CategoryID != nil {
			clauses = append(clauses, "t.category_id = ?")
			args = append(args, *f.CategoryID)
		}
		return clauses, args
	},
}

var incomesTable = &table[core.Income, ledger.IncomeFilter]{
	kind: "income",
	name: "incomes",
	columns: []string{"source", "amount", "currency", "date", "deposit_time", "frequency", "status",
		"us_account_id", "kenya_account_id"},
	selectSQL: "t.id, t.owner_id, t.source, t.amount, t.currency, t.date, t.deposit_time, t.frequency, " +
		"t.status, t.us_account_id, t.kenya_account_id, t.created_at, t.updated_at",
	from:         "incomes t",
	order:        "t.date DESC, t.created_at DESC, t.id DESC",
	hasUpdatedAt: true,
	id:           func(v *core.Income) *int64 { return &v.ID },
	values: func(v *core.Income) []any {
		return []any{v.Source, v.Amount, v.Currency, v.Date, v.DepositTime, v.Frequency, v.Status,
			nullableID(v.USAccountID), nullableID(v.KenyaAccountID)}
	},
	scan: func(s rowScanner) (core.Income, error) {
		var v core.Income
		var us, ke sql.NullInt64
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Source, &v.Amount, &v.Currency, &v.Date, &v.DepositTime,
			&v.Frequency, &v.Status, &us, &ke, &created, &updated)
		v.USAccountID, v.KenyaAccountID = idPtr(us), idPtr(ke)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.IncomeFilter) ([]string, []any) {
		clauses, args := dateRange("t.date", f.From, f.To)
		if f.Status != "" {
			clauses = append(clauses, "t.status = ?")
			args = append(args, f.Status)
		}
		return clauses, args
	},
}

var transactionsTable = &table[core.Transaction, ledger.TransactionFilter]{
	kind: "transaction",
	name: "transactions",
	columns: []string{"transaction_type", "amount", "currency", "date", "description", "budget_percentage",
		"us_account_id", "kenya_account_id"},
	selectSQL: "t.id, t.owner_id, t.transaction_type, t.amount, t.currency, t.date, t.description, " +
		"t.budget_percentage, t.us_account_id, t.kenya_account_id, t.created_at, t.updated_at",
	from:         "transactions t",
	order:        "t.date DESC, t.id DESC",
	hasUpdatedAt: true,
	id:           func(v *core.Transaction) *int64 { return &v.ID },
	values: func(v *core.Transaction) []any {
		var pct any
		if v.BudgetPercentage != nil {
			pct = *v.BudgetPercentage
		}
		return []any{v.Type, v.Amount, v.Currency, v.Date, v.Description, pct,
			nullableID(v.USAccountID), nullableID(v.KenyaAccountID)}
	},
	scan: func(s rowScanner) (core.Transaction, error) {
		var v core.Transaction
		var pct decimal.NullDecimal
		var us, ke sql.NullInt64
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Type, &v.Amount, &v.Currency, &v.Date, &v.Description, &pct,
			&us, &ke, &created, &updated)
		if pct.Valid {
			p := pct.Decimal
			v.BudgetPercentage = &p
		}
		v.USAccountID, v.KenyaAccountID = idPtr(us), idPtr(ke)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.TransactionFilter) ([]string, []any) {
		clauses, args := dateRange("t.date", f.From, f.To)
		if f.Type != "" {
			clauses = append(clauses, "t.transaction_type = ?")
			args = append(args, f.Type)
		}
		return clauses, args
	},
}

var goalsTable = &table[core.Goal, ledger.GoalFilter]{
	kind:    "goal",
	name:    "goals",
	columns: []string{"name", "goal_type", "target_amount", "current_amount", "deadline", "description"},
	selectSQL: "t.id, t.owner_id, t.name, t.goal_type, t.target_amount, t.current_amount, t.deadline, " +
		"t.description, t.created_at, t.updated_at",
	from:         "goals t",
	order:        "t.deadline, t.created_at DESC",
	hasUpdatedAt: true,
	id:           func(v *core.Goal) *int64 { return &v.ID },
	values: func(v *core.Goal) []any {
		return []any{v.Name, v.Type, v.TargetAmount, v.CurrentAmount, v.Deadline, v.Description}
	},
	scan: func(s rowScanner) (core.Goal, error) {
		var v core.Goal
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Type, &v.TargetAmount, &v.CurrentAmount, &v.Deadline,
			&v.Description, &created, &updated)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.GoalFilter) ([]string, []any) {
		return dateRange("t.deadline", f.DeadlineFrom, core.Date{})
	},
}

var projectsTable = &table[core.Project, ledger.ProjectFilter]{
	kind:    "project",
	name:    "projects",
	columns: []string{"name", "description", "budget", "budget_used", "start_date", "end_date", "parent_id"},
	selectSQL: "t.id, t.owner_id, t.name, t.description, t.budget, t.budget_used, t.start_date, t.end_date, " +
		"t.parent_id, t.created_at, t.updated_at",
	from:         "projects t",
	order:        "t.created_at DESC, t.id DESC",
	hasUpdatedAt: true,
	id:           func(v *core.Project) *int64 { return &v.ID },
	values: func(v *core.Project) []any {
		return []any{v.Name, v.Description, v.Budget, v.BudgetUsed, v.StartDate, nullableDate(v.EndDate),
			nullableID(v.ParentID)}
	},
	scan: func(s rowScanner) (core.Project, error) {
		var v core.Project
		var end core.Date
		var parent sql.NullInt64
		var created, updated string
		err := s.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Budget, &v.BudgetUsed, &v.StartDate,
			&end, &parent, &created, &updated)
		v.EndDate, v.ParentID = datePtr(end), idPtr(parent)
		v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
		return v, err
	},
	filter: func(f ledger.ProjectFilter) ([]string, []any) {
		var clauses []string
		var args []any
		if f.TopLevelOnly {
			clauses = append(clauses, "t.parent_id IS NULL")
		}
		if f.ParentID != nil {
			clauses = append(clauses, "t.parent_id = ?")
			args = append(args, *f.ParentID)
		}
		return clauses, args
	},
}

var documentsTable = &table[core.ProjectDocument, ledger.DocumentFilter]{
	kind:      "document",
	name:      "project_documents",
	columns:   []string{"project_id", "name", "file", "file_size", "uploaded_by"},
	selectSQL: "t.id, t.owner_id, t.project_id, t.name, t.file, t.file_size, t.uploaded_by, t.created_at",
	from:      "project_documents t",
	order:     "t.created_at DESC, t.id DESC",
	id:        func(v *core.ProjectDocument) *int64 { return &v.ID },
	values: func(v *core.ProjectDocument) []any {
		return []any{v.ProjectID, v.Name, v.File, v.FileSize, v.UploadedBy}
	},
	scan: func(s rowScanner) (core.ProjectDocument, error) {
		var v core.ProjectDocument
		var created string
		err := s.Scan(&v.ID, &v.OwnerID, &v.ProjectID, &v.Name, &v.File, &v.FileSize, &v.UploadedBy, &created)
		v.UploadedAt = parseTime(created)
		return v, err
	},
	filter: func(f ledger.DocumentFilter) ([]string, []any) {
		if f.ProjectID == 0 {
			return nil, nil
		}
		return []string{"t.project_id = ?"}, []any{f.ProjectID}
	},
}
