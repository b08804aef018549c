package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestDashboardOverview(t *testing.T) {
	svc, store, _ := newTestServices(t)
	ctx := context.Background()

	food := core.Category{Name: "Food", Type: core.CategoryExpense, Active: true}
	if err := store.Categories().Create(ctx, owner, &food); err != nil {
		t.Fatal(err)
	}
	newBudget(t, svc, "100", nil)
	addExpense(t, svc, "90", "2024-03-10", &food.ID)
	addExpense(t, svc, "40", "2024-02-10", nil)
	newIncome(t, svc, core.Income{Source: "Acme", Amount: dec("500"), Currency: core.USD, Date: date("2024-03-01")})

	goal := core.Goal{Name: "Trip", Type: core.GoalSavings, TargetAmount: dec("10"), Deadline: date("2024-06-01")}
	if err := store.Goals().Create(ctx, owner, &goal); err != nil {
		t.Fatal(err)
	}
	old := core.Goal{Name: "Old", Type: core.GoalSavings, TargetAmount: dec("10"), Deadline: date("2023-06-01")}
	if err := store.Goals().Create(ctx, owner, &old); err != nil {
		t.Fatal(err)
	}

	d, err := svc.Dashboard.Overview(ctx, owner)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	o := d.Overview
	checks := []struct {
		name      string
		got, want string
	}{
		{"total income", o.TotalIncome.String(), "500"},
		{"total expenses", o.TotalExpenses.String(), "130"},
		{"net balance", o.NetBalance.String(), "370"},
		{"monthly expenses", o.MonthlyExpenses.String(), "90"},
		{"monthly balance", o.MonthlyBalance.String(), "410"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if got := d.RecentTransactions.Expenses; len(got) != 2 || got[0].Category != "Food" {
		t.Errorf("recent expenses = %+v", got)
	}
	if d.Summary.ActiveGoals != 1 || d.Summary.UnreadAlerts != 1 {
		t.Errorf("summary = %+v", d.Summary)
	}
	if b := d.Summary.Budgets; b.Total != 1 || b.NearLimit != 1 || b.OverBudget != 0 {
		t.Errorf("budgets = %+v", b)
	}
}
