package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// upcomingEventDays is the window of the upcoming events view.
const upcomingEventDays = 30

// CalendarService expands recurring events and sends their reminders.
type CalendarService struct {
	Deps
}

func NewCalendarService(d Deps) *CalendarService {
	return &CalendarService{Deps: d}
}

// EventOccurrences is an event with its occurrence dates inside a window.
type EventOccurrences struct {
	core.CalendarEvent
	Occurrences []core.Date `json:"occurrences"`
}

// ReminderNotice is the body of a calendar reminder event.
type ReminderNotice struct {
	Event          core.CalendarEvent `json:"event"`
	OccurrenceDate core.Date          `json:"occurrence_date"`
	ReminderDate   core.Date          `json:"reminder_date"`
}

// ReminderRun reports the reminders sent by one run.
type ReminderRun struct {
	Sent      int              `json:"reminders_sent"`
	Reminders []ReminderNotice `json:"reminders"`
}

func (s *CalendarService) Create(ctx context.Context, owner string, e *core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.Store.Events().Create(ctx, owner, e)
}

func (s *CalendarService) Update(ctx context.Context, owner string, e *core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.Store.Events().Update(ctx, owner, e)
}

// Window returns the events that occur at least once in [from, to], each
// with its occurrence dates.
func (s *CalendarService) Window(ctx context.Context, owner string, f ledger.EventFilter, from, to core.Date) ([]EventOccurrences, error) {
	events, err := s.Store.Events().List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	out := []EventOccurrences{}
	for _, e := range events {
		if dates := Occurrences(e, from, to); len(dates) > 0 {
			out = append(out, EventOccurrences{CalendarEvent: e, Occurrences: dates})
		}
	}
	return out, nil
}

// Upcoming returns the events occurring in the next thirty days.
func (s *CalendarService) Upcoming(ctx context.Context, owner string) ([]EventOccurrences, error) {
	today := s.Clock.Today()
	return s.Window(ctx, owner, ledger.EventFilter{}, today, today.AddDays(upcomingEventDays))
}

// MonthlySummary totals the occurrences of one month. Bills count as
// expected outflow and paydays as expected income, once per occurrence.
func (s *CalendarService) MonthlySummary(ctx context.Context, owner string, year, month int) (core.EventMonthSummary, error) {
	if month < 1 || month > 12 {
		return core.EventMonthSummary{}, core.Invalid("month", "must be between 1 and 12")
	}
	start := core.NewDate(year, month, 1)
	end := start.AddMonthsClamped(1).AddDays(-1)

	events, err := s.Window(ctx, owner, ledger.EventFilter{}, start, end)
	if err != nil {
		return core.EventMonthSummary{}, err
	}

	sum := core.EventMonthSummary{Month: month, Year: year}
	for _, e := range events {
		n := len(e.Occurrences)
		sum.TotalEvents += n
		total := e.AmountOrZero().Mul(decimal.NewFromInt(int64(n)))
		switch e.Type {
		case core.EventBill:
			sum.BillTotal = sum.BillTotal.Add(total)
		case core.EventPayday:
			sum.IncomeTotal = sum.IncomeTotal.Add(total)
		}
	}
	sum.NetExpected = sum.IncomeTotal.Sub(sum.BillTotal)
	return sum, nil
}

// SendReminders records and publishes a reminder for every occurrence whose
// reminder falls today. A reminder already sent for an event today is not
// sent again.
func (s *CalendarService) SendReminders(ctx context.Context, owner string) (ReminderRun, error) {
	today := s.Clock.Today()
	run := ReminderRun{Reminders: []ReminderNotice{}}

	events, err := s.Store.Events().List(ctx, owner, ledger.EventFilter{})
	if err != nil {
		return run, err
	}

	for _, e := range events {
		if !e.Reminder {
			continue
		}
		target := today.AddDays(e.ReminderDaysBefore)
		if len(Occurrences(e, target, target)) == 0 {
			continue
		}

		rem := core.EventReminder{EventID: e.ID, ReminderDate: today}
		created, err := s.Store.Reminders().Record(ctx, &rem)
		if err != nil {
			return run, err
		}
		if !created {
			continue
		}

		notice := ReminderNotice{Event: e, OccurrenceDate: target, ReminderDate: today}
		run.Reminders = append(run.Reminders, notice)
		s.publish(ctx, amqp.EventCalendarReminder, owner, notice)
	}
	run.Sent = len(run.Reminders)

	slog.InfoContext(ctx, "Event reminders processed", "owner_id", owner, "sent", run.Sent)
	return run, nil
}
