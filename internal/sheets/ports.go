// Package sheets exports ledger activity to a spreadsheet. The worker turns
// domain events into Rows and appends them through a LedgerWriter.
package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Row is one line of the exported ledger.
type Row struct {
	Date        core.Date
	Kind        string
	Description string
	Amount      decimal.Decimal
	Currency    core.Currency
	OwnerID     string
	// Reference identifies the source event, so re-deliveries can be spotted.
	Reference string
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		Append(ctx context.Context, row Row) (rowRef string, err error)
	}

	// LedgerLister returns the rows exported so far.
	LedgerLister interface {
		Rows(ctx context.Context) ([]Row, error)
	}
)

// Values renders the row in column order: date, kind, description, amount,
// currency, owner, reference.
func (r Row) Values() []any {
	return []any{
		r.Date.String(),
		r.Kind,
		r.Description,
		r.Amount.StringFixed(2),
		string(r.Currency),
		r.OwnerID,
		r.Reference,
	}
}
