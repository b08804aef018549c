package services

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const recentEntries = 5

type (
	// Dashboard is the owner's financial overview.
	Dashboard struct {
		Overview           Overview           `json:"overview"`
		RecentTransactions RecentTransactions `json:"recent_transactions"`
		Summary            DashboardSummary   `json:"summary"`
	}

	Overview struct {
		TotalIncome     decimal.Decimal `json:"total_income"`
		TotalExpenses   decimal.Decimal `json:"total_expenses"`
		NetBalance      decimal.Decimal `json:"net_balance"`
		MonthlyIncome   decimal.Decimal `json:"monthly_income"`
		MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
		MonthlyBalance  decimal.Decimal `json:"monthly_balance"`
	}

	RecentTransactions struct {
		Expenses []RecentExpense `json:"expenses"`
		Income   []RecentIncome  `json:"income"`
	}

	RecentExpense struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        core.Date       `json:"date"`
		Category    string          `json:"category"`
	}

	RecentIncome struct {
		ID     int64           `json:"id"`
		Source string          `json:"source"`
		Amount decimal.Decimal `json:"amount"`
		Date   core.Date       `json:"date"`
	}

	DashboardSummary struct {
		ActiveGoals  int          `json:"active_goals"`
		UnreadAlerts int          `json:"unread_alerts"`
		Budgets      BudgetCounts `json:"budgets"`
	}

	BudgetCounts struct {
		Total      int `json:"total"`
		OverBudget int `json:"over_budget"`
		NearLimit  int `json:"near_limit"`
	}
)

// DashboardService assembles the overview from every other resource.
type DashboardService struct {
	Deps
	budgets *BudgetService
}

func NewDashboardService(d Deps, budgets *BudgetService) *DashboardService {
	return &DashboardService{Deps: d, budgets: budgets}
}

// Overview builds the dashboard. Monthly figures cover the calendar month
// containing today.
func (s *DashboardService) Overview(ctx context.Context, owner string) (Dashboard, error) {
	today := s.Clock.Today()
	monthStart, monthEnd := core.PeriodWindow(core.PeriodMonthly, today)

	expenses, err := s.Store.Expenses().List(ctx, owner, ledger.ExpenseFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	incomes, err := s.Store.Incomes().List(ctx, owner, ledger.IncomeFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	categories, err := s.Store.Categories().List(ctx, owner, ledger.CategoryFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	var d Dashboard
	d.RecentTransactions = RecentTransactions{Expenses: []RecentExpense{}, Income: []RecentIncome{}}

	for _, e := range expenses {
		d.Overview.TotalExpenses = d.Overview.TotalExpenses.Add(e.Amount)
		if e.Date.Within(monthStart, monthEnd) {
			d.Overview.MonthlyExpenses = d.Overview.MonthlyExpenses.Add(e.Amount)
		}
		if len(d.RecentTransactions.Expenses) < recentEntries {
			category := e.CategoryLabel
			if e.CategoryID != nil {
				if name, ok := names[*e.CategoryID]; ok {
					category = name
				}
			}
			d.RecentTransactions.Expenses = append(d.RecentTransactions.Expenses, RecentExpense{
				ID: e.ID, Description: e.Description, Amount: e.Amount, Date: e.Date, Category: category,
			})
		}
	}
	for _, in := range incomes {
		d.Overview.TotalIncome = d.Overview.TotalIncome.Add(in.Amount)
		if in.Date.Within(monthStart, monthEnd) {
			d.Overview.MonthlyIncome = d.Overview.MonthlyIncome.Add(in.Amount)
		}
		if len(d.RecentTransactions.Income) < recentEntries {
			d.RecentTransactions.Income = append(d.RecentTransactions.Income, RecentIncome{
				ID: in.ID, Source: in.Source, Amount: in.Amount, Date: in.Date,
			})
		}
	}
	d.Overview.NetBalance = d.Overview.TotalIncome.Sub(d.Overview.TotalExpenses)
	d.Overview.MonthlyBalance = d.Overview.MonthlyIncome.Sub(d.Overview.MonthlyExpenses)

	goals, err := s.Store.Goals().List(ctx, owner, ledger.GoalFilter{DeadlineFrom: today})
	if err != nil {
		return Dashboard{}, err
	}
	d.Summary.ActiveGoals = len(goals)

	unread, err := s.Store.Alerts().List(ctx, owner, ledger.AlertFilter{UnreadOnly: true})
	if err != nil {
		return Dashboard{}, err
	}
	d.Summary.UnreadAlerts = len(unread)

	summary, err := s.budgets.Summary(ctx, owner)
	if err != nil {
		return Dashboard{}, err
	}
	d.Summary.Budgets = BudgetCounts{
		Total:      summary.BudgetsCount,
		OverBudget: summary.OverBudgetCount,
		NearLimit:  summary.NearLimitCount,
	}
	return d, nil
}
