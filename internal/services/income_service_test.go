package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func newIncome(t *testing.T, svc *Services, in core.Income) core.Income {
	t.Helper()
	if in.Frequency == "" {
		in.Frequency = "monthly"
	}
	if in.Status == "" {
		in.Status = core.IncomePending
	}
	if err := svc.Incomes.Create(context.Background(), owner, &in); err != nil {
		t.Fatalf("create income: %v", err)
	}
	return in
}

func TestMarkDepositedCreditsMatchingAccount(t *testing.T) {
	svc, store, pub := newTestServices(t)
	ctx := context.Background()
	us := mustCreateAccount(t, store, core.USD, "100")
	ke := mustCreateAccount(t, store, core.KES, "100")
	in := newIncome(t, svc, core.Income{
		Source: "Acme", Amount: dec("2500"), Currency: core.USD, Date: date("2024-03-14"),
		USAccountID: &us.ID, KenyaAccountID: &ke.ID,
	})

	dep, err := svc.Incomes.MarkDeposited(ctx, owner, in.ID)
	if err != nil {
		t.Fatalf("MarkDeposited: %v", err)
	}
	if dep.Income.Status != core.IncomeDeposited {
		t.Errorf("status = %s, want deposited", dep.Income.Status)
	}
	if dep.Transaction.Description != "Income from Acme" || !dep.Transaction.Date.Equal(date("2024-03-15")) {
		t.Errorf("transaction = %q on %s", dep.Transaction.Description, dep.Transaction.Date)
	}

	gotUS, _ := store.Accounts().Get(ctx, owner, us.ID)
	gotKE, _ := store.Accounts().Get(ctx, owner, ke.ID)
	if !gotUS.Balance.Equal(dec("2600")) || !gotKE.Balance.Equal(dec("100")) {
		t.Errorf("balances = %s USD, %s KES", gotUS.Balance, gotKE.Balance)
	}

	txs, _ := store.Transactions().List(ctx, owner, ledger.TransactionFilter{Type: core.TxIncome})
	if len(txs) != 1 {
		t.Errorf("income transactions = %d, want 1", len(txs))
	}
	if n := pub.count(amqp.EventIncomeDeposited); n != 1 {
		t.Errorf("deposit events = %d, want 1", n)
	}
}

func TestMarkDepositedRejectsRepeatAndCancelled(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()
	deposited := newIncome(t, svc, core.Income{Source: "A", Amount: dec("1"), Currency: core.KES, Date: date("2024-03-01")})
	if _, err := svc.Incomes.MarkDeposited(ctx, owner, deposited.ID); err != nil {
		t.Fatal(err)
	}
	cancelled := newIncome(t, svc, core.Income{
		Source: "B", Amount: dec("1"), Currency: core.KES, Date: date("2024-03-01"), Status: core.IncomeCancelled,
	})

	tests := []struct {
		name string
		id   int64
		want error
	}{
		{"already deposited", deposited.ID, core.ErrValidation},
		{"cancelled", cancelled.ID, core.ErrInvalidState},
		{"missing", 999, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Incomes.MarkDeposited(ctx, owner, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpcomingIncome(t *testing.T) {
	svc, _, _ := newTestServices(t)
	newIncome(t, svc, core.Income{Source: "soon", Amount: dec("1"), Currency: core.USD, Date: date("2024-03-20")})
	newIncome(t, svc, core.Income{Source: "late", Amount: dec("1"), Currency: core.USD, Date: date("2024-04-20")})
	newIncome(t, svc, core.Income{Source: "past", Amount: dec("1"), Currency: core.USD, Date: date("2024-03-01")})

	got, err := svc.Incomes.Upcoming(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Source != "soon" {
		t.Errorf("upcoming = %+v, want only soon", got)
	}
}
