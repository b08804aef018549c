package core

import (
	"strings"
	"testing"
	"time"
)

func TestPeriodWindow(t *testing.T) {
	wednesday := NewDate(2024, 5, 15)
	tests := []struct {
		period    BudgetPeriod
		today     Date
		wantStart Date
		wantEnd   Date
	}{
		{PeriodDaily, wednesday, wednesday, wednesday},
		{PeriodWeekly, wednesday, NewDate(2024, 5, 13), NewDate(2024, 5, 19)},
		{PeriodWeekly, NewDate(2024, 5, 19), NewDate(2024, 5, 13), NewDate(2024, 5, 19)},
		{PeriodWeekly, NewDate(2024, 5, 13), NewDate(2024, 5, 13), NewDate(2024, 5, 19)},
		{PeriodMonthly, wednesday, NewDate(2024, 5, 1), NewDate(2024, 5, 31)},
		{PeriodMonthly, NewDate(2024, 2, 10), NewDate(2024, 2, 1), NewDate(2024, 2, 29)},
		{PeriodQuarterly, wednesday, NewDate(2024, 4, 1), NewDate(2024, 6, 30)},
		{PeriodQuarterly, NewDate(2024, 12, 31), NewDate(2024, 10, 1), NewDate(2024, 12, 31)},
		{PeriodYearly, wednesday, NewDate(2024, 1, 1), NewDate(2024, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period)+" "+tt.today.String(), func(t *testing.T) {
			start, end := PeriodWindow(tt.period, tt.today)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("PeriodWindow() = %s..%s, want %s..%s", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestBudgetEvaluate(t *testing.T) {
	food := int64(7)
	rent := int64(8)
	today := NewDate(2024, 5, 15)
	expenses := []Expense{
		{Amount: dec("40"), Date: NewDate(2024, 5, 2), CategoryID: &food},
		{Amount: dec("45"), Date: NewDate(2024, 5, 14), CategoryLabel: "food"},
		{Amount: dec("500"), Date: NewDate(2024, 5, 1), CategoryID: &rent},
		{Amount: dec("99"), Date: NewDate(2024, 4, 30), CategoryID: &food},
		{Amount: dec("10"), Date: NewDate(2024, 5, 3), CategoryID: &rent, CategoryLabel: "Food"},
	}

	tests := []struct {
		name       string
		budget     Budget
		wantSpent  string
		wantPct    string
		wantOver   bool
		wantNear   bool
		wantRemain string
	}{
		{
			name:       "category budget near limit",
			budget:     Budget{CategoryID: &food, CategoryName: "Food", Amount: dec("100"), Period: PeriodMonthly, AlertThreshold: DefaultAlertThreshold},
			wantSpent:  "85",
			wantPct:    "85",
			wantNear:   true,
			wantRemain: "15",
		},
		{
			name:       "overall budget over limit",
			budget:     Budget{Amount: dec("500"), Period: PeriodMonthly, AlertThreshold: DefaultAlertThreshold},
			wantSpent:  "595",
			wantPct:    "119",
			wantOver:   true,
			wantNear:   true,
			wantRemain: "-95",
		},
		{
			name:       "zero amount budget",
			budget:     Budget{CategoryID: &food, CategoryName: "Food", Amount: dec("0"), Period: PeriodMonthly, AlertThreshold: DefaultAlertThreshold},
			wantSpent:  "85",
			wantPct:    "0",
			wantOver:   true,
			wantRemain: "-85",
		},
		{
			name:       "weekly window",
			budget:     Budget{CategoryID: &food, CategoryName: "Food", Amount: dec("200"), Period: PeriodWeekly, AlertThreshold: dec("20")},
			wantSpent:  "45",
			wantPct:    "22.5",
			wantNear:   true,
			wantRemain: "155",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.budget.Evaluate(today, expenses)
			if !s.Spent.Equal(dec(tt.wantSpent)) {
				t.Errorf("spent = %s, want %s", s.Spent, tt.wantSpent)
			}
			if !s.SpentPercentage.Equal(dec(tt.wantPct)) {
				t.Errorf("percentage = %s, want %s", s.SpentPercentage, tt.wantPct)
			}
			if !s.Remaining.Equal(dec(tt.wantRemain)) {
				t.Errorf("remaining = %s, want %s", s.Remaining, tt.wantRemain)
			}
			if s.OverBudget != tt.wantOver || s.NearLimit != tt.wantNear {
				t.Errorf("flags over=%v near=%v, want over=%v near=%v", s.OverBudget, s.NearLimit, tt.wantOver, tt.wantNear)
			}
		})
	}
}

func TestAlertMessage(t *testing.T) {
	b := Budget{Name: "Groceries", Amount: dec("100"), AlertThreshold: DefaultAlertThreshold}
	s := b.StatusFor(NewDate(2024, 5, 1), NewDate(2024, 5, 31), dec("85"))
	if got := AlertMessage(b, s, ""); got != "Budget 'Groceries' has reached 85.00% of the limit!" {
		t.Errorf("unexpected message %q", got)
	}
	if got := AlertMessage(b, s, "Dinner"); !strings.HasSuffix(got, " after expense: Dinner") {
		t.Errorf("unexpected message %q", got)
	}

	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	a := NewAlert(b, s, "", now)
	if !a.PeriodStart.Equal(NewDate(2024, 5, 1)) || !a.AmountSpent.Equal(dec("85")) || a.Read {
		t.Errorf("unexpected alert %+v", a)
	}
}

func TestSummarizeBudgets(t *testing.T) {
	mk := func(amount, spent string) BudgetView {
		b := Budget{Amount: dec(amount), AlertThreshold: DefaultAlertThreshold}
		return BudgetView{Budget: b, BudgetStatus: b.StatusFor(Date{}, Date{}, dec(spent))}
	}
	s := SummarizeBudgets([]BudgetView{mk("100", "50"), mk("100", "90"), mk("100", "120")})
	if s.BudgetsCount != 3 || s.OverBudgetCount != 1 || s.NearLimitCount != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if !s.TotalBudget.Equal(dec("300")) || !s.TotalSpent.Equal(dec("260")) || !s.TotalRemaining.Equal(dec("40")) {
		t.Fatalf("unexpected totals %+v", s)
	}
	if !s.OverallPercentage.Equal(dec("86.67")) {
		t.Fatalf("overall percentage = %s", s.OverallPercentage)
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Name: "Food", Amount: dec("0"), Period: PeriodMonthly, StartDate: NewDate(2024, 1, 1), AlertThreshold: DefaultAlertThreshold}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := []Budget{
		{Name: "", Amount: dec("1"), Period: PeriodMonthly, StartDate: NewDate(2024, 1, 1)},
		{Name: "x", Amount: dec("-1"), Period: PeriodMonthly, StartDate: NewDate(2024, 1, 1)},
		{Name: "x", Amount: dec("1"), Period: "hourly", StartDate: NewDate(2024, 1, 1)},
		{Name: "x", Amount: dec("1"), Period: PeriodMonthly, StartDate: NewDate(2024, 1, 1), AlertThreshold: dec("101")},
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}
