package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodDaily     BudgetPeriod = "daily"
	PeriodWeekly    BudgetPeriod = "weekly"
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"
)

// DefaultAlertThreshold is the spent percentage at which a budget is near its limit.
var DefaultAlertThreshold = decimal.NewFromInt(80)

type (
	BudgetPeriod string

	Budget struct {
		ID             int64           `json:"id"`
		OwnerID        string          `json:"-"`
		Name           string          `json:"name"`
		CategoryID     *int64          `json:"category"`
		CategoryName   string          `json:"category_name,omitempty"`
		Amount         decimal.Decimal `json:"amount"`
		Period         BudgetPeriod    `json:"period"`
		StartDate      Date            `json:"start_date"`
		EndDate        *Date           `json:"end_date"`
		Active         bool            `json:"is_active"`
		AlertThreshold decimal.Decimal `json:"alert_threshold"`
		Notes          string          `json:"notes"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	BudgetAlert struct {
		ID                int64           `json:"id"`
		OwnerID           string          `json:"-"`
		BudgetID          int64           `json:"budget"`
		BudgetName        string          `json:"budget_name,omitempty"`
		AlertDate         time.Time       `json:"alert_date"`
		PeriodStart       Date            `json:"period_start"`
		PercentageReached decimal.Decimal `json:"percentage_reached"`
		AmountSpent       decimal.Decimal `json:"amount_spent"`
		Message           string          `json:"message"`
		Read              bool            `json:"is_read"`
	}

	// BudgetStatus is a budget evaluated against its current period.
	BudgetStatus struct {
		PeriodStart     Date            `json:"period_start"`
		PeriodEnd       Date            `json:"period_end"`
		Spent           decimal.Decimal `json:"spent_amount"`
		Remaining       decimal.Decimal `json:"remaining_amount"`
		SpentPercentage decimal.Decimal `json:"spent_percentage"`
		OverBudget      bool            `json:"is_over_budget"`
		NearLimit       bool            `json:"is_near_limit"`
	}
)

var validPeriods = []BudgetPeriod{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly}

func (p BudgetPeriod) Valid() bool { return oneOf(p, validPeriods) }

func (b Budget) Validate() error {
	if err := requireText("name", b.Name, 200); err != nil {
		return err
	}
	if err := requireNonNegative("amount", b.Amount); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return Invalid("period", "must be daily, weekly, monthly, quarterly or yearly")
	}
	if b.StartDate.IsZero() {
		return Invalid("start_date", "this field is required")
	}
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return Invalid("end_date", "end date must be after start date")
	}
	if b.AlertThreshold.IsNegative() || b.AlertThreshold.GreaterThan(hundred) {
		return Invalid("alert_threshold", "must be between 0 and 100")
	}
	return nil
}

// PeriodWindow returns the inclusive window of the period containing today.
// Weeks run Monday to Sunday; quarters start in January, April, July and October.
func PeriodWindow(p BudgetPeriod, today Date) (start, end Date) {
	y, m, _ := today.Date()
	switch p {
	case PeriodDaily:
		return today, today
	case PeriodWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		start = today.AddDays(-offset)
		return start, start.AddDays(6)
	case PeriodQuarterly:
		qm := ((int(m)-1)/3)*3 + 1
		start = NewDate(y, qm, 1)
		end = NewDate(y, qm+2, DaysIn(y, time.Month(qm+2)))
		return start, end
	case PeriodYearly:
		return NewDate(y, 1, 1), NewDate(y, 12, 31)
	default:
		return NewDate(y, int(m), 1), NewDate(y, int(m), DaysIn(y, m))
	}
}

// Covers reports whether an expense counts against the budget. Overall
// budgets count everything. Otherwise the structured category reference is
// preferred and the legacy label is compared against the category name.
func (b Budget) Covers(e Expense) bool {
	if b.CategoryID == nil {
		return true
	}
	if e.CategoryID != nil {
		return *e.CategoryID == *b.CategoryID
	}
	return e.CategoryLabel != "" && strings.EqualFold(strings.TrimSpace(e.CategoryLabel), b.CategoryName)
}

// Evaluate sums the covered expenses inside the budget's current period.
// Expenses outside the window are ignored.
func (b Budget) Evaluate(today Date, expenses []Expense) BudgetStatus {
	start, end := PeriodWindow(b.Period, today)
	spent := decimal.Zero
	for _, e := range expenses {
		if e.Date.Within(start, end) && b.Covers(e) {
			spent = spent.Add(e.Amount)
		}
	}
	return b.StatusFor(start, end, spent)
}

// StatusFor derives the budget flags from an already summed spent amount.
func (b Budget) StatusFor(start, end Date, spent decimal.Decimal) BudgetStatus {
	pct := Percentage(spent, b.Amount)
	return BudgetStatus{
		PeriodStart:     start,
		PeriodEnd:       end,
		Spent:           spent,
		Remaining:       b.Amount.Sub(spent),
		SpentPercentage: pct,
		OverBudget:      spent.GreaterThan(b.Amount),
		NearLimit:       pct.GreaterThanOrEqual(b.AlertThreshold),
	}
}

// AlertMessage formats the alert text; trigger, when set, names the expense
// that pushed the budget over its threshold.
func AlertMessage(b Budget, s BudgetStatus, trigger string) string {
	msg := fmt.Sprintf("Budget '%s' has reached %s%% of the limit", b.Name, s.SpentPercentage.StringFixed(2))
	if trigger != "" {
		return msg + " after expense: " + trigger
	}
	return msg + "!"
}

// NewAlert builds the alert for a near-limit budget in the given period.
func NewAlert(b Budget, s BudgetStatus, trigger string, now time.Time) BudgetAlert {
	return BudgetAlert{
		OwnerID:           b.OwnerID,
		BudgetID:          b.ID,
		BudgetName:        b.Name,
		AlertDate:         now,
		PeriodStart:       s.PeriodStart,
		PercentageReached: s.SpentPercentage,
		AmountSpent:       s.Spent,
		Message:           AlertMessage(b, s, trigger),
	}
}
