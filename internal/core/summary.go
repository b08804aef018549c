package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// TransactionSummary totals transactions by type.
type TransactionSummary struct {
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	TotalTransfers decimal.Decimal `json:"total_transfers"`
	NetAmount      decimal.Decimal `json:"net_amount"`
}

// SummarizeTransactions folds transactions into per-type totals. Net is
// income minus expenses; transfers move money without changing it.
func SummarizeTransactions(txs []Transaction) TransactionSummary {
	var s TransactionSummary
	for _, t := range txs {
		switch t.Type {
		case TxIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case TxExpense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		case TxTransfer:
			s.TotalTransfers = s.TotalTransfers.Add(t.Amount)
		}
	}
	s.NetAmount = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// BudgetView is a budget together with its current-period status.
type BudgetView struct {
	Budget
	BudgetStatus
}

// BudgetSummary aggregates the active budgets of one owner.
type BudgetSummary struct {
	TotalBudget       decimal.Decimal `json:"total_budget"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalRemaining    decimal.Decimal `json:"total_remaining"`
	OverallPercentage decimal.Decimal `json:"overall_percentage"`
	BudgetsCount      int             `json:"budgets_count"`
	OverBudgetCount   int             `json:"over_budget_count"`
	NearLimitCount    int             `json:"near_limit_count"`
	OverBudget        []BudgetView    `json:"over_budget"`
	NearLimit         []BudgetView    `json:"near_limit"`
}

// SummarizeBudgets totals evaluated budgets. Near-limit lists only budgets
// that have reached their threshold without going over.
func SummarizeBudgets(views []BudgetView) BudgetSummary {
	s := BudgetSummary{
		BudgetsCount: len(views),
		OverBudget:   []BudgetView{},
		NearLimit:    []BudgetView{},
	}
	for _, v := range views {
		s.TotalBudget = s.TotalBudget.Add(v.Amount)
		s.TotalSpent = s.TotalSpent.Add(v.Spent)
		switch {
		case v.OverBudget:
			s.OverBudget = append(s.OverBudget, v)
		case v.NearLimit:
			s.NearLimit = append(s.NearLimit, v)
		}
	}
	s.TotalRemaining = s.TotalBudget.Sub(s.TotalSpent)
	s.OverallPercentage = Percentage(s.TotalSpent, s.TotalBudget)
	s.OverBudgetCount = len(s.OverBudget)
	s.NearLimitCount = len(s.NearLimit)
	return s
}

// EventMonthSummary totals the expanded calendar occurrences of one month.
type EventMonthSummary struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	TotalEvents int             `json:"total_events"`
	BillTotal   decimal.Decimal `json:"bill_total"`
	IncomeTotal decimal.Decimal `json:"income_total"`
	NetExpected decimal.Decimal `json:"net_expected"`
}
