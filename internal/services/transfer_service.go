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

// RateSource quotes exchange rates. Rate returns units of to per unit of from.
type RateSource interface {
	Rate(ctx context.Context, from, to core.Currency) decimal.Decimal
}

// ErrTransferFailed marks an execution failure that left the transfer in the
// failed state.
var ErrTransferFailed = errors.New("transfer failed")

// TransferService creates, executes and cancels money transfers.
type TransferService struct {
	Deps
	rates RateSource
}

func NewTransferService(d Deps, rates RateSource) *TransferService {
	return &TransferService{Deps: d, rates: rates}
}

// Rate quotes a pair, falling back to 1.0 when no rate source is configured.
func (s *TransferService) Rate(ctx context.Context, from, to core.Currency) decimal.Decimal {
	if s.rates == nil || from == to {
		return decimal.NewFromInt(1)
	}
	return s.rates.Rate(ctx, from, to)
}

// Create stores a new pending transfer. A cross-currency transfer without a
// rate gets the current USD to KES quote; transfer rates are always KES per USD.
func (s *TransferService) Create(ctx context.Context, owner string, t *core.MoneyTransfer) error {
	t.Status = core.TransferPending
	t.CompletedAt = nil
	t.FailureReason = ""
	if t.ScheduledDate.IsZero() {
		t.ScheduledDate = s.Clock.Today()
	}
	if t.ExchangeRate.IsZero() {
		t.ExchangeRate = decimal.NewFromInt(1)
		if t.CrossCurrency() {
			t.ExchangeRate = s.Rate(ctx, core.USD, core.KES)
		}
	}
	if err := t.Validate(); err != nil {
		return err
	}

	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkTransferAccounts(ctx, tx, owner, *t); err != nil {
			return err
		}
		return tx.Transfers().Create(ctx, owner, t)
	})
}

// Update edits a pending transfer. Status and completion are not editable.
func (s *TransferService) Update(ctx context.Context, owner string, t *core.MoneyTransfer) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		existing, err := tx.Transfers().Get(ctx, owner, t.ID)
		if err != nil {
			return err
		}
		if !existing.CanModify() {
			return &core.StateError{Message: "Only pending transfers can be modified"}
		}
		t.Status = existing.Status
		t.CompletedAt = existing.CompletedAt
		t.FailureReason = existing.FailureReason
		if err := t.Validate(); err != nil {
			return err
		}
		if err := checkTransferAccounts(ctx, tx, owner, *t); err != nil {
			return err
		}
		return tx.Transfers().Update(ctx, owner, t)
	})
}

// Delete removes a pending transfer.
func (s *TransferService) Delete(ctx context.Context, owner string, id int64) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		existing, err := tx.Transfers().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		if !existing.CanModify() {
			return &core.StateError{Message: "Only pending transfers can be deleted"}
		}
		return tx.Transfers().Delete(ctx, owner, id)
	})
}

// Cancel moves a pending transfer to cancelled.
func (s *TransferService) Cancel(ctx context.Context, owner string, id int64) (core.MoneyTransfer, error) {
	var t core.MoneyTransfer
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		var err error
		t, err = tx.Transfers().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		if t.Status != core.TransferPending {
			return &core.StateError{Message: "Only pending transfers can be cancelled"}
		}
		t.Status = core.TransferCancelled
		return tx.Transfers().Update(ctx, owner, &t)
	})
	return t, err
}

// Complete executes a pending transfer: the source is debited by the amount,
// the destination credited with the converted net of fee, and the transfer
// marked completed, all in one unit. When execution fails after the transfer
// was found pending, nothing is applied and the transfer is marked failed
// with the reason; the returned error then wraps ErrTransferFailed as well as
// the cause.
func (s *TransferService) Complete(ctx context.Context, owner string, id int64) (core.MoneyTransfer, error) {
	t, err := s.Store.Transfers().Get(ctx, owner, id)
	if err != nil {
		return t, err
	}
	if t.Status != core.TransferPending {
		return t, &core.StateError{Message: "Only pending transfers can be completed"}
	}

	var settlement core.Settlement
	err = s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		var err error
		t, err = tx.Transfers().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		settlement, err = s.settle(ctx, tx, owner, &t)
		return err
	})
	if errors.Is(err, core.ErrInvalidState) || errors.Is(err, core.ErrNotFound) {
		return t, err
	}
	if err != nil {
		failed, markErr := s.markFailed(ctx, owner, id, err)
		if markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark transfer failed", "transfer_id", id, "error", markErr)
		} else {
			t = failed
			s.publish(ctx, amqp.EventTransferFailed, owner, failed)
		}
		slog.ErrorContext(ctx, "Transfer execution failed", "transfer_id", id, "error", err)
		return t, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	slog.InfoContext(ctx, "Transfer completed",
		"transfer_id", t.ID,
		"amount", t.Amount.String(),
		"net", settlement.Net.String(),
		"converted", settlement.Converted.String())
	s.publish(ctx, amqp.EventTransferCompleted, owner, t)
	return t, nil
}

func (s *TransferService) settle(ctx context.Context, tx ledger.Tx, owner string, t *core.MoneyTransfer) (core.Settlement, error) {
	src, ok := t.Source()
	if !ok {
		return core.Settlement{}, core.Invalid("", "Exactly one source account must be specified")
	}
	source, err := loadAccount(ctx, tx, owner, src)
	if err != nil {
		return core.Settlement{}, err
	}
	var destination *core.Account
	if ref := t.Destination(); ref != nil {
		d, err := loadAccount(ctx, tx, owner, *ref)
		if err != nil {
			return core.Settlement{}, err
		}
		destination = &d
	}

	settlement, err := t.Settle(source, destination)
	if err != nil {
		return core.Settlement{}, err
	}
	if err := tx.Accounts().Update(ctx, owner, &settlement.Source); err != nil {
		return core.Settlement{}, fmt.Errorf("debit source account: %w", err)
	}
	if settlement.Destination != nil {
		if err := tx.Accounts().Update(ctx, owner, settlement.Destination); err != nil {
			return core.Settlement{}, fmt.Errorf("credit destination account: %w", err)
		}
	}

	now := s.Clock.Now()
	t.Status = core.TransferCompleted
	t.CompletedAt = &now
	return settlement, tx.Transfers().Update(ctx, owner, t)
}

func (s *TransferService) markFailed(ctx context.Context, owner string, id int64, cause error) (core.MoneyTransfer, error) {
	var t core.MoneyTransfer
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		var err error
		t, err = tx.Transfers().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		if t.Status != core.TransferPending {
			return nil
		}
		t.Status = core.TransferFailed
		t.FailureReason = cause.Error()
		return tx.Transfers().Update(ctx, owner, &t)
	})
	return t, err
}

func checkTransferAccounts(ctx context.Context, tx ledger.Tx, owner string, t core.MoneyTransfer) error {
	if src, ok := t.Source(); ok {
		if _, err := loadAccount(ctx, tx, owner, src); err != nil {
			return err
		}
	}
	if dst := t.Destination(); dst != nil {
		if _, err := loadAccount(ctx, tx, owner, *dst); err != nil {
			return err
		}
	}
	return nil
}

// loadAccount resolves an account reference, rejecting accounts the owner
// does not have or that hold a different currency than the reference implies.
func loadAccount(ctx context.Context, tx ledger.Tx, owner string, ref core.AccountRef) (core.Account, error) {
	a, err := tx.Accounts().Get(ctx, owner, ref.ID)
	if errors.Is(err, core.ErrNotFound) {
		return a, core.Invalid("", fmt.Sprintf("%s account %d does not exist", ref.Currency, ref.ID))
	}
	if err != nil {
		return a, err
	}
	if a.Currency != ref.Currency {
		return a, core.Invalid("", fmt.Sprintf("account %d is not a %s account", ref.ID, ref.Currency))
	}
	return a, nil
}
