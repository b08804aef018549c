package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecurDaily     RecurrencePattern = "daily"
	RecurWeekly    RecurrencePattern = "weekly"
	RecurBiweekly  RecurrencePattern = "biweekly"
	RecurMonthly   RecurrencePattern = "monthly"
	RecurQuarterly RecurrencePattern = "quarterly"
	RecurYearly    RecurrencePattern = "yearly"
)

const (
	EventGeneral      EventType = "general"
	EventBill         EventType = "bill"
	EventPayday       EventType = "payday"
	EventInvestment   EventType = "investment"
	EventTransfer     EventType = "transfer"
	EventCelebration  EventType = "celebration"
	EventTypeReminder EventType = "reminder"
)

type (
	RecurrencePattern string
	EventType         string

	CalendarEvent struct {
		ID                 int64             `json:"id"`
		OwnerID            string            `json:"-"`
		Title              string            `json:"title"`
		Type               EventType         `json:"event_type"`
		Date               Date              `json:"date"`
		Time               string            `json:"time,omitempty"`
		Amount             *decimal.Decimal  `json:"amount"`
		Description        string            `json:"description"`
		Recurring          bool              `json:"is_recurring"`
		RecurrencePattern  RecurrencePattern `json:"recurrence_pattern,omitempty"`
		RecurrenceEndDate  *Date             `json:"recurrence_end_date"`
		Reminder           bool              `json:"reminder"`
		ReminderDaysBefore int               `json:"reminder_days_before"`
		CreatedAt          time.Time         `json:"created_at"`
		UpdatedAt          time.Time         `json:"updated_at"`
	}

	// EventReminder records that a reminder for one occurrence was sent.
	EventReminder struct {
		ID           int64     `json:"id"`
		EventID      int64     `json:"event"`
		ReminderDate Date      `json:"reminder_date"`
		SentAt       time.Time `json:"sent_at"`
	}
)

var validEventTypes = []EventType{
	EventGeneral, EventBill, EventPayday, EventInvestment, EventTransfer, EventCelebration, EventTypeReminder,
}

func (e CalendarEvent) Validate() error {
	if err := requireText("title", e.Title, 200); err != nil {
		return err
	}
	if !oneOf(e.Type, validEventTypes) {
		return Invalid("event_type", "invalid event type")
	}
	if e.Date.IsZero() {
		return Invalid("date", "this field is required")
	}
	if e.Time != "" {
		if _, err := time.Parse("15:04", e.Time); err != nil {
			if _, err := time.Parse("15:04:05", e.Time); err != nil {
				return Invalid("time", "time must be HH:MM or HH:MM:SS")
			}
		}
	}
	if e.Recurring && e.RecurrencePattern == "" {
		return Invalid("recurrence_pattern", "required for recurring events")
	}
	if e.RecurrenceEndDate != nil && e.RecurrenceEndDate.Before(e.Date) {
		return Invalid("recurrence_end_date", "must not be before the event date")
	}
	if e.ReminderDaysBefore < 0 {
		return Invalid("reminder_days_before", "must not be negative")
	}
	return nil
}

// AmountOrZero returns the event amount, treating a missing amount as zero.
func (e CalendarEvent) AmountOrZero() decimal.Decimal {
	if e.Amount == nil {
		return decimal.Zero
	}
	return *e.Amount
}
