// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for calendar recurrence expansion.
// Each recurrence pattern (daily, weekly, biweekly, monthly, quarterly, yearly)
// has its own stepper that produces the n-th occurrence after an anchor date.

package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Stepper is the strategy interface for recurrence patterns.
type Stepper interface {
	// Step returns the n-th occurrence after anchor (n = 0 is the anchor
	// itself). ok is false when the candidate does not exist, e.g. the 31st
	// of a 30-day month; the returned date is then a lower bound that callers
	// use to decide when to stop.
	Step(anchor core.Date, n int) (d core.Date, ok bool)
}

// DayStepper advances a fixed number of days per occurrence.
type DayStepper struct {
	Days int
}

func (s DayStepper) Step(anchor core.Date, n int) (core.Date, bool) {
	return anchor.AddDays(n * s.Days), true
}

// MonthStepper advances a fixed number of months, keeping the anchor's day.
// Months without that day are skipped rather than clamped.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Step(anchor core.Date, n int) (core.Date, bool) {
	y, m, day := anchor.Date()
	first := time.Date(y, m+time.Month(n*s.Months), 1, 0, 0, 0, 0, time.UTC)
	if day > core.DaysIn(first.Year(), first.Month()) {
		return core.DateOf(first), false
	}
	return core.NewDate(first.Year(), int(first.Month()), day), true
}

// recurrenceStrategies maps recurrence patterns to their steppers.
var recurrenceStrategies = map[core.RecurrencePattern]Stepper{
	core.RecurDaily:     DayStepper{Days: 1},
	core.RecurWeekly:    DayStepper{Days: 7},
	core.RecurBiweekly:  DayStepper{Days: 14},
	core.RecurMonthly:   MonthStepper{Months: 1},
	core.RecurQuarterly: MonthStepper{Months: 3},
	core.RecurYearly:    MonthStepper{Months: 12},
}

// GetStepper returns the stepper for a pattern.
func GetStepper(pattern core.RecurrencePattern) (Stepper, error) {
	s, ok := recurrenceStrategies[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence pattern: %s", pattern)
	}
	return s, nil
}

// RegisterStepper adds or replaces the stepper for a recurrence pattern.
func RegisterStepper(pattern core.RecurrencePattern, s Stepper) {
	recurrenceStrategies[pattern] = s
}

// Occurrences expands an event into its dates inside [from, to]. A
// non-recurring event yields its own date when inside the window. Recurring
// events generate from the event date up to the earlier of the recurrence end
// and the window end; unknown patterns recur monthly.
func Occurrences(e core.CalendarEvent, from, to core.Date) []core.Date {
	if to.Before(from) {
		return nil
	}
	if !e.Recurring {
		if e.Date.Within(from, to) {
			return []core.Date{e.Date}
		}
		return nil
	}

	stepper, err := GetStepper(e.RecurrencePattern)
	if err != nil {
		stepper = MonthStepper{Months: 1}
	}

	until := to
	if e.RecurrenceEndDate != nil && e.RecurrenceEndDate.Before(until) {
		until = *e.RecurrenceEndDate
	}

	var out []core.Date
	for n := 0; ; n++ {
		d, ok := stepper.Step(e.Date, n)
		if d.After(until) {
			break
		}
		if ok && !d.Before(from) {
			out = append(out, d)
		}
	}
	return out
}

// NextOccurrence returns the first occurrence on or after from, searching up
// to horizon days ahead.
func NextOccurrence(e core.CalendarEvent, from core.Date, horizon int) (core.Date, bool) {
	dates := Occurrences(e, from, from.AddDays(horizon))
	if len(dates) == 0 {
		return core.Date{}, false
	}
	return dates[0], true
}
