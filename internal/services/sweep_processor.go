package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SweepProcessorConfig holds configuration for the sweep processor.
type SweepProcessorConfig struct {
	// Interval is how often every owner is swept (default: 1h)
	Interval time.Duration

	// Owners are the owner IDs swept on each cycle.
	Owners []string
}

// DefaultSweepProcessorConfig returns sensible defaults
func DefaultSweepProcessorConfig() SweepProcessorConfig {
	return SweepProcessorConfig{
		Interval: time.Hour,
	}
}

// SweepResult totals one sweep cycle.
type SweepResult struct {
	AlertsCreated int
	RemindersSent int
	Failures      int
}

// SweepProcessor periodically runs the budget alert check and the calendar
// reminder run for a fixed set of owners.
type SweepProcessor struct {
	budgets  *BudgetService
	calendar *CalendarService
	config   SweepProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweepProcessor(budgets *BudgetService, calendar *CalendarService, config SweepProcessorConfig) *SweepProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepProcessorConfig().Interval
	}
	return &SweepProcessor{
		budgets:  budgets,
		calendar: calendar,
		config:   config,
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *SweepProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sweep processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Sweep processor started",
		"interval", p.config.Interval,
		"owners", len(p.config.Owners))
	return nil
}

// Stop signals the loop and waits for the current cycle to finish. Only the
// first of concurrent callers closes the stop channel; the others return nil
// at once.
func (p *SweepProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stop, done := p.stopCh, p.doneCh
	p.running = false
	p.stopCh, p.doneCh = nil, nil
	p.mu.Unlock()

	close(stop)

	select {
	case <-done:
		slog.InfoContext(ctx, "Sweep processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sweep processor stop timed out")
		return ctx.Err()
	}
}

func (p *SweepProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SweepProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.Sweep(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle over every configured owner. A failing owner is
// logged and does not stop the others.
func (p *SweepProcessor) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	for _, owner := range p.config.Owners {
		if ctx.Err() != nil {
			break
		}

		check, err := p.budgets.CheckAlerts(ctx, owner)
		if err != nil {
			res.Failures++
			slog.ErrorContext(ctx, "Budget alert sweep failed", "owner_id", owner, "error", err)
		} else {
			res.AlertsCreated += check.AlertsCreated
		}

		run, err := p.calendar.SendReminders(ctx, owner)
		if err != nil {
			res.Failures++
			slog.ErrorContext(ctx, "Reminder sweep failed", "owner_id", owner, "error", err)
		} else {
			res.RemindersSent += run.Sent
		}
	}

	slog.InfoContext(ctx, "Sweep complete",
		"owners", len(p.config.Owners),
		"alerts_created", res.AlertsCreated,
		"reminders_sent", res.RemindersSent,
		"failures", res.Failures)
	return res
}
