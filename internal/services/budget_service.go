package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// BudgetService evaluates budgets against spending and raises alerts.
type BudgetService struct {
	Deps
}

func NewBudgetService(d Deps) *BudgetService {
	return &BudgetService{Deps: d}
}

// BudgetExpenses lists the expenses counted against a budget this period.
type BudgetExpenses struct {
	PeriodStart core.Date       `json:"period_start"`
	PeriodEnd   core.Date       `json:"period_end"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
	Expenses    []core.Expense  `json:"expenses"`
}

// AlertCheck is the outcome of an explicit alert sweep.
type AlertCheck struct {
	AlertsCreated int                `json:"alerts_created"`
	Alerts        []core.BudgetAlert `json:"alerts"`
}

// Create stores a budget and raises an alert straight away when existing
// spending already crosses its threshold.
func (s *BudgetService) Create(ctx context.Context, owner string, b *core.Budget) (*core.BudgetAlert, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var created *core.BudgetAlert
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkCategory(ctx, tx, owner, b.CategoryID); err != nil {
			return err
		}
		if err := tx.Budgets().Create(ctx, owner, b); err != nil {
			return err
		}
		alert, ok, err := s.alertIfNearLimit(ctx, tx, *b, "")
		if err != nil {
			return err
		}
		if ok {
			created = &alert
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created != nil {
		s.publish(ctx, amqp.EventBudgetAlertCreated, owner, created)
	}
	return created, nil
}

// Update validates and stores a budget.
func (s *BudgetService) Update(ctx context.Context, owner string, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkCategory(ctx, tx, owner, b.CategoryID); err != nil {
			return err
		}
		return tx.Budgets().Update(ctx, owner, b)
	})
}

// View returns one budget with its current-period status.
func (s *BudgetService) View(ctx context.Context, owner string, id int64) (core.BudgetView, error) {
	b, err := s.Store.Budgets().Get(ctx, owner, id)
	if err != nil {
		return core.BudgetView{}, err
	}
	status, err := s.evaluate(ctx, s.Store, b)
	if err != nil {
		return core.BudgetView{}, err
	}
	return core.BudgetView{Budget: b, BudgetStatus: status}, nil
}

// List returns the owner's budgets with their current-period status.
func (s *BudgetService) List(ctx context.Context, owner string, f ledger.BudgetFilter) ([]core.BudgetView, error) {
	budgets, err := s.Store.Budgets().List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	views := make([]core.BudgetView, 0, len(budgets))
	for _, b := range budgets {
		status, err := s.evaluate(ctx, s.Store, b)
		if err != nil {
			return nil, err
		}
		views = append(views, core.BudgetView{Budget: b, BudgetStatus: status})
	}
	return views, nil
}

// Summary totals the owner's active budgets.
func (s *BudgetService) Summary(ctx context.Context, owner string) (core.BudgetSummary, error) {
	views, err := s.List(ctx, owner, ledger.BudgetFilter{Active: ledger.Bool(true)})
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return core.SummarizeBudgets(views), nil
}

// Expenses lists the expenses a budget counts in its current period.
func (s *BudgetService) Expenses(ctx context.Context, owner string, id int64) (BudgetExpenses, error) {
	b, err := s.Store.Budgets().Get(ctx, owner, id)
	if err != nil {
		return BudgetExpenses{}, err
	}
	start, end := core.PeriodWindow(b.Period, s.Clock.Today())
	all, err := s.Store.Expenses().List(ctx, owner, ledger.ExpenseFilter{From: start, To: end})
	if err != nil {
		return BudgetExpenses{}, err
	}

	out := BudgetExpenses{PeriodStart: start, PeriodEnd: end, Expenses: []core.Expense{}}
	for _, e := range all {
		if b.Covers(e) {
			out.Expenses = append(out.Expenses, e)
			out.Total = out.Total.Add(e.Amount)
		}
	}
	out.Count = len(out.Expenses)
	return out, nil
}

// CheckAlerts sweeps every active budget and raises the alerts that are due.
// Budgets already alerted in the current period are skipped.
func (s *BudgetService) CheckAlerts(ctx context.Context, owner string) (AlertCheck, error) {
	result := AlertCheck{Alerts: []core.BudgetAlert{}}
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		budgets, err := tx.Budgets().List(ctx, owner, ledger.BudgetFilter{Active: ledger.Bool(true)})
		if err != nil {
			return err
		}
		for _, b := range budgets {
			alert, ok, err := s.alertIfNearLimit(ctx, tx, b, "")
			if err != nil {
				return err
			}
			if ok {
				result.Alerts = append(result.Alerts, alert)
			}
		}
		return nil
	})
	if err != nil {
		return AlertCheck{}, err
	}

	result.AlertsCreated = len(result.Alerts)
	for i := range result.Alerts {
		s.publish(ctx, amqp.EventBudgetAlertCreated, owner, result.Alerts[i])
	}
	slog.InfoContext(ctx, "Budget alert check complete", "owner_id", owner, "alerts_created", result.AlertsCreated)
	return result, nil
}

// checkAfterExpense raises alerts on the active budgets an expense counts
// against. It runs inside the expense's own unit of work.
func (s *BudgetService) checkAfterExpense(ctx context.Context, tx ledger.Tx, e core.Expense) ([]core.BudgetAlert, error) {
	budgets, err := tx.Budgets().List(ctx, e.OwnerID, ledger.BudgetFilter{Active: ledger.Bool(true)})
	if err != nil {
		return nil, err
	}
	var alerts []core.BudgetAlert
	for _, b := range budgets {
		if !b.Covers(e) {
			continue
		}
		alert, ok, err := s.alertIfNearLimit(ctx, tx, b, e.Description)
		if err != nil {
			return nil, err
		}
		if ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// alertIfNearLimit inserts the period's alert when the budget has reached its
// threshold. ok is false when the budget is below it or already alerted.
func (s *BudgetService) alertIfNearLimit(ctx context.Context, tx ledger.Tx, b core.Budget, trigger string) (core.BudgetAlert, bool, error) {
	status, err := s.evaluate(ctx, tx, b)
	if err != nil {
		return core.BudgetAlert{}, false, err
	}
	if !status.NearLimit {
		return core.BudgetAlert{}, false, nil
	}

	alert := core.NewAlert(b, status, trigger, s.Clock.Now())
	created, err := tx.Alerts().Insert(ctx, &alert)
	if err != nil {
		return core.BudgetAlert{}, false, fmt.Errorf("insert alert for budget %d: %w", b.ID, err)
	}
	if created {
		slog.InfoContext(ctx, "Budget alert raised",
			"budget_id", b.ID,
			"period_start", status.PeriodStart.String(),
			"percentage", status.SpentPercentage.String())
	}
	return alert, created, nil
}

func (s *BudgetService) evaluate(ctx context.Context, tx ledger.Tx, b core.Budget) (core.BudgetStatus, error) {
	today := s.Clock.Today()
	start, end := core.PeriodWindow(b.Period, today)
	expenses, err := tx.Expenses().List(ctx, b.OwnerID, ledger.ExpenseFilter{From: start, To: end})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load expenses for budget %d: %w", b.ID, err)
	}
	return b.Evaluate(today, expenses), nil
}

// checkCategory rejects references to categories the owner does not have.
func checkCategory(ctx context.Context, tx ledger.Tx, owner string, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := tx.Categories().Get(ctx, owner, *id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Invalid("category", "category does not exist")
	}
	return err
}
