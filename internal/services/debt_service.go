package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// DebtService manages debts and the payments recorded against them.
type DebtService struct {
	Deps
}

func NewDebtService(d Deps) *DebtService {
	return &DebtService{Deps: d}
}

// Create fills the monthly payment and opening balance before storing the debt.
func (s *DebtService) Create(ctx context.Context, owner string, d *core.Debt) error {
	if err := d.PrepareForCreate(); err != nil {
		return err
	}
	if err := s.Store.Debts().Create(ctx, owner, d); err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	slog.InfoContext(ctx, "Debt created",
		"debt_id", d.ID,
		"principal", d.Principal.String(),
		"monthly_payment", d.MonthlyPayment.String())
	return nil
}

// Update stores editable fields. The monthly payment is fixed at creation.
// Editing the current balance moves the opening balance with it, so that
// recomputing from payment history keeps the edit.
func (s *DebtService) Update(ctx context.Context, owner string, d *core.Debt) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		existing, err := tx.Debts().Get(ctx, owner, d.ID)
		if err != nil {
			return err
		}
		d.MonthlyPayment = existing.MonthlyPayment
		d.OpeningBalance = existing.OpeningBalance
		if !d.CurrentBalance.Equal(existing.CurrentBalance) {
			payments, err := tx.Payments().List(ctx, owner, ledger.PaymentFilter{DebtID: d.ID})
			if err != nil {
				return err
			}
			d.RebaseOpening(payments)
		}
		return tx.Debts().Update(ctx, owner, d)
	})
}

// Delete removes a debt together with its payments.
func (s *DebtService) Delete(ctx context.Context, owner string, id int64) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		payments, err := tx.Payments().List(ctx, owner, ledger.PaymentFilter{DebtID: id})
		if err != nil {
			return err
		}
		for _, p := range payments {
			if err := tx.Payments().Delete(ctx, owner, p.ID); err != nil {
				return err
			}
		}
		return tx.Debts().Delete(ctx, owner, id)
	})
}

// Schedule returns the amortization schedule of one of the owner's debts.
func (s *DebtService) Schedule(ctx context.Context, owner string, id int64) ([]core.ScheduleEntry, error) {
	d, err := s.Store.Debts().Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return core.AmortizationSchedule(d)
}

// PaymentInput is a payment as submitted. Principal and Interest are optional
// explicit portions.
type PaymentInput struct {
	DebtID    int64
	Date      core.Date
	Amount    decimal.Decimal
	Principal *decimal.Decimal
	Interest  *decimal.Decimal
	Notes     string
}

// RecordPayment splits the payment, stores it and moves the debt's balance
// to the remaining amount in one unit.
func (s *DebtService) RecordPayment(ctx context.Context, owner string, in PaymentInput) (core.DebtPayment, error) {
	p := core.DebtPayment{DebtID: in.DebtID, PaymentDate: in.Date, Amount: in.Amount, Notes: in.Notes}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = s.Clock.Today()
	}
	if err := p.Validate(); err != nil {
		return p, err
	}

	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		debt, err := tx.Debts().Get(ctx, owner, in.DebtID)
		if err != nil {
			return err
		}

		split := debt.SplitPayment(in.Amount, in.Principal, in.Interest)
		p.PrincipalPayment = split.Principal
		p.InterestPayment = split.Interest
		p.RemainingBalance = split.Remaining
		if err := tx.Payments().Create(ctx, owner, &p); err != nil {
			return err
		}

		debt.CurrentBalance = split.Remaining
		return tx.Debts().Update(ctx, owner, &debt)
	})
	if err != nil {
		return p, err
	}

	slog.InfoContext(ctx, "Debt payment recorded",
		"debt_id", p.DebtID,
		"payment_id", p.ID,
		"amount", p.Amount.String(),
		"remaining_balance", p.RemainingBalance.String())
	return p, nil
}

// DeletePayment removes a payment and recomputes the debt's balance from the
// payments that remain.
func (s *DebtService) DeletePayment(ctx context.Context, owner string, id int64) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		p, err := tx.Payments().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		if err := tx.Payments().Delete(ctx, owner, id); err != nil {
			return err
		}

		debt, err := tx.Debts().Get(ctx, owner, p.DebtID)
		if err != nil {
			return err
		}
		remaining, err := tx.Payments().List(ctx, owner, ledger.PaymentFilter{DebtID: p.DebtID})
		if err != nil {
			return err
		}
		debt.CurrentBalance = core.BalanceFromHistory(debt.Opening(), remaining)
		return tx.Debts().Update(ctx, owner, &debt)
	})
}
