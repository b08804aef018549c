package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// ExpenseService records expenses and runs the budget checks they trigger.
type ExpenseService struct {
	Deps
	budgets *BudgetService
}

func NewExpenseService(d Deps, budgets *BudgetService) *ExpenseService {
	return &ExpenseService{Deps: d, budgets: budgets}
}

// Create saves an expense and, in the same unit, raises alerts on the
// budgets it pushes past their threshold. The new alerts are returned.
func (s *ExpenseService) Create(ctx context.Context, owner string, e *core.Expense) ([]core.BudgetAlert, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var alerts []core.BudgetAlert
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkCategory(ctx, tx, owner, e.CategoryID); err != nil {
			return err
		}
		if err := tx.Expenses().Create(ctx, owner, e); err != nil {
			return err
		}
		var err error
		alerts, err = s.budgets.checkAfterExpense(ctx, tx, *e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", e.ID,
		"amount", e.Amount.String(),
		"alerts", len(alerts))
	for _, a := range alerts {
		s.publish(ctx, amqp.EventBudgetAlertCreated, owner, a)
	}
	return alerts, nil
}

// Update validates and stores an expense.
func (s *ExpenseService) Update(ctx context.Context, owner string, e *core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkCategory(ctx, tx, owner, e.CategoryID); err != nil {
			return err
		}
		return tx.Expenses().Update(ctx, owner, e)
	})
}

// BackfillCategories sets the structured category of expenses that only
// carry a legacy label, matching the label case-insensitively against the
// owner's expense categories. It returns how many expenses were updated.
func (s *ExpenseService) BackfillCategories(ctx context.Context, owner string) (int, error) {
	updated := 0
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		categories, err := tx.Categories().List(ctx, owner, ledger.CategoryFilter{Type: core.CategoryExpense})
		if err != nil {
			return err
		}
		byName := make(map[string]int64, len(categories))
		for _, c := range categories {
			byName[strings.ToLower(c.Name)] = c.ID
		}

		expenses, err := tx.Expenses().List(ctx, owner, ledger.ExpenseFilter{})
		if err != nil {
			return err
		}
		for _, e := range expenses {
			if e.CategoryID != nil || e.CategoryLabel == "" {
				continue
			}
			id, ok := byName[strings.ToLower(strings.TrimSpace(e.CategoryLabel))]
			if !ok {
				continue
			}
			e.CategoryID = &id
			if err := tx.Expenses().Update(ctx, owner, &e); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Expense categories backfilled", "owner_id", owner, "updated", updated)
	return updated, nil
}
