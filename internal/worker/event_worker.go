// Package worker consumes domain events: it logs user-facing notifications
// and exports money movements to the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// EventWorker handles one domain event at a time.
type EventWorker struct {
	ledger sheets.LedgerWriter
}

// NewEventWorker returns a worker exporting to ledger. A nil ledger only
// logs.
func NewEventWorker(ledger sheets.LedgerWriter) *EventWorker {
	return &EventWorker{ledger: ledger}
}

// HandleEvent dispatches on the event type. Unknown types are acknowledged
// and ignored. Errors are returned only when retrying can help, which is a
// failed spreadsheet append.
func (w *EventWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	ctx = withEventAttrs(ctx, msg)

	switch msg.Type {
	case amqp.EventBudgetAlertCreated:
		var alert core.BudgetAlert
		if err := msg.Decode(&alert); err != nil {
			return w.drop(ctx, msg, err)
		}
		slog.WarnContext(ctx, "Budget alert",
			"budget_id", alert.BudgetID,
			"percentage", alert.PercentageReached.String(),
			"message", alert.Message)
		return nil

	case amqp.EventCalendarReminder:
		var notice services.ReminderNotice
		if err := msg.Decode(&notice); err != nil {
			return w.drop(ctx, msg, err)
		}
		slog.InfoContext(ctx, "Calendar reminder",
			"event_id", notice.Event.ID,
			"title", notice.Event.Title,
			"occurs", notice.OccurrenceDate.String())
		return nil

	case amqp.EventTransferFailed:
		var t core.MoneyTransfer
		if err := msg.Decode(&t); err != nil {
			return w.drop(ctx, msg, err)
		}
		slog.ErrorContext(ctx, "Transfer failed",
			"transfer_id", t.ID,
			"reason", t.FailureReason)
		return nil

	case amqp.EventTransferCompleted:
		var t core.MoneyTransfer
		if err := msg.Decode(&t); err != nil {
			return w.drop(ctx, msg, err)
		}
		return w.export(ctx, TransferRow(msg, t))

	case amqp.EventIncomeDeposited:
		var dep services.Deposit
		if err := msg.Decode(&dep); err != nil {
			return w.drop(ctx, msg, err)
		}
		return w.export(ctx, DepositRow(msg, dep))
	}

	slog.DebugContext(ctx, "Ignoring unknown event type")
	return nil
}

func withEventAttrs(ctx context.Context, msg *amqp.EventMessage) context.Context {
	return log.WithAttrs(ctx,
		slog.String(log.FieldOwnerID, msg.OwnerID),
		slog.String(log.FieldEventType, msg.Type),
		slog.String(log.FieldMessageID, msg.ID),
	)
}

// drop logs a payload that cannot be decoded. Redelivery would fail the same
// way, so the message is acknowledged.
func (w *EventWorker) drop(ctx context.Context, msg *amqp.EventMessage, err error) error {
	slog.ErrorContext(ctx, "Dropping undecodable event", "error", err, "payload_size", len(msg.Payload))
	return nil
}

func (w *EventWorker) export(ctx context.Context, row sheets.Row) error {
	if w.ledger == nil {
		slog.DebugContext(ctx, "No ledger export configured, skipping row", "kind", row.Kind)
		return nil
	}
	ref, err := w.ledger.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("export %s row: %w", row.Kind, err)
	}
	slog.InfoContext(ctx, "Exported ledger row",
		"kind", row.Kind,
		"amount", row.Amount.StringFixed(2),
		"row_ref", ref)
	return nil
}

// TransferRow records the debit of a completed transfer in the source
// account's currency.
func TransferRow(msg *amqp.EventMessage, t core.MoneyTransfer) sheets.Row {
	date := t.ScheduledDate
	if t.CompletedAt != nil {
		date = core.DateOf(*t.CompletedAt)
	}
	currency := core.KES
	if t.FromUSAccountID != nil {
		currency = core.USD
	}
	desc := "Transfer #" + strconv.FormatInt(t.ID, 10)
	if t.Notes != "" {
		desc += ": " + t.Notes
	}
	return sheets.Row{
		Date:        date,
		Kind:        "transfer",
		Description: desc,
		Amount:      t.Amount,
		Currency:    currency,
		OwnerID:     msg.OwnerID,
		Reference:   msg.ID,
	}
}

// DepositRow records a deposited income.
func DepositRow(msg *amqp.EventMessage, dep services.Deposit) sheets.Row {
	return sheets.Row{
		Date:        dep.Transaction.Date,
		Kind:        "income",
		Description: dep.Transaction.Description,
		Amount:      dep.Income.Amount,
		Currency:    dep.Income.Currency,
		OwnerID:     msg.OwnerID,
		Reference:   msg.ID,
	}
}
