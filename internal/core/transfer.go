package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransferInternal TransferType = "internal"
	TransferExternal TransferType = "external"
)

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
	TransferCancelled TransferStatus = "cancelled"
)

type (
	TransferType   string
	TransferStatus string

	MoneyTransfer struct {
		ID                 int64           `json:"id"`
		OwnerID            string          `json:"-"`
		Type               TransferType    `json:"transfer_type"`
		FromUSAccountID    *int64          `json:"from_us_account"`
		FromKenyaAccountID *int64          `json:"from_kenya_account"`
		ToUSAccountID      *int64          `json:"to_us_account"`
		ToKenyaAccountID   *int64          `json:"to_kenya_account"`
		Amount             decimal.Decimal `json:"amount"`
		ExchangeRate       decimal.Decimal `json:"exchange_rate"`
		Fee                decimal.Decimal `json:"fee"`
		Status             TransferStatus  `json:"status"`
		ScheduledDate      Date            `json:"scheduled_date"`
		CompletedAt        *time.Time      `json:"completed_at"`
		Notes              string          `json:"notes"`
		FailureReason      string          `json:"failure_reason,omitempty"`
		CreatedAt          time.Time       `json:"created_at"`
		UpdatedAt          time.Time       `json:"updated_at"`
	}

	// AccountRef identifies one account by currency and ID.
	AccountRef struct {
		Currency Currency
		ID       int64
	}

	// Settlement is the outcome of executing a transfer against its accounts.
	Settlement struct {
		Source      Account
		Destination *Account
		Net         decimal.Decimal
		Converted   decimal.Decimal
	}
)

// Source returns the single source account reference, if exactly one is set.
func (t MoneyTransfer) Source() (AccountRef, bool) {
	switch {
	case t.FromUSAccountID != nil && t.FromKenyaAccountID == nil:
		return AccountRef{Currency: USD, ID: *t.FromUSAccountID}, true
	case t.FromKenyaAccountID != nil && t.FromUSAccountID == nil:
		return AccountRef{Currency: KES, ID: *t.FromKenyaAccountID}, true
	}
	return AccountRef{}, false
}

// Destination returns the destination account reference, or nil for an
// external transfer.
func (t MoneyTransfer) Destination() *AccountRef {
	switch {
	case t.ToUSAccountID != nil:
		return &AccountRef{Currency: USD, ID: *t.ToUSAccountID}
	case t.ToKenyaAccountID != nil:
		return &AccountRef{Currency: KES, ID: *t.ToKenyaAccountID}
	}
	return nil
}

// CrossCurrency reports whether source and destination hold different currencies.
func (t MoneyTransfer) CrossCurrency() bool {
	src, ok := t.Source()
	dst := t.Destination()
	return ok && dst != nil && src.Currency != dst.Currency
}

func (t MoneyTransfer) Validate() error {
	if t.Type != TransferInternal && t.Type != TransferExternal {
		return Invalid("transfer_type", "must be internal or external")
	}
	src, ok := t.Source()
	if !ok {
		return Invalid("", "Exactly one source account must be specified")
	}
	if t.ToUSAccountID != nil && t.ToKenyaAccountID != nil {
		return Invalid("", "At most one destination account can be specified")
	}
	dst := t.Destination()
	if t.Type == TransferInternal && dst == nil {
		return Invalid("", "Destination account is required for internal transfers")
	}
	if dst != nil && *dst == src {
		return Invalid("", "Cannot transfer to the same account")
	}
	if err := requirePositive("amount", t.Amount); err != nil {
		return err
	}
	if err := requireNonNegative("fee", t.Fee); err != nil {
		return err
	}
	if !t.ExchangeRate.IsPositive() {
		return Invalid("exchange_rate", "must be greater than zero")
	}
	if t.ScheduledDate.IsZero() {
		return Invalid("scheduled_date", "this field is required")
	}
	return nil
}

// Convert applies the exchange rate to a net amount moving from one currency
// to another: USD to KES multiplies, KES to USD divides, same currency passes
// through.
func Convert(net, rate decimal.Decimal, from, to Currency) decimal.Decimal {
	switch {
	case from == to:
		return net
	case from == USD && to == KES:
		return Round2(net.Mul(rate))
	default:
		return Round2(net.Div(rate))
	}
}

// Settle computes the balances after executing a pending transfer. It does not
// mutate its arguments; callers persist the returned accounts atomically.
func (t MoneyTransfer) Settle(source Account, destination *Account) (Settlement, error) {
	if t.Status != TransferPending {
		return Settlement{}, &StateError{Message: "Only pending transfers can be completed"}
	}
	if !t.ExchangeRate.IsPositive() {
		return Settlement{}, Invalid("exchange_rate", "must be greater than zero")
	}

	s := Settlement{Source: source}
	s.Source.Balance = source.Balance.Sub(t.Amount)
	s.Net = t.Amount.Sub(t.Fee)
	s.Converted = s.Net

	if destination != nil {
		dst := *destination
		s.Converted = Convert(s.Net, t.ExchangeRate, source.Currency, dst.Currency)
		dst.Balance = dst.Balance.Add(s.Converted)
		s.Destination = &dst
	}
	return s, nil
}

// CanModify reports whether the transfer may still be edited or deleted.
func (t MoneyTransfer) CanModify() bool {
	return t.Status == TransferPending
}
