package core

import (
	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// ScheduleEntry is one row of an amortization schedule.
type ScheduleEntry struct {
	PaymentNumber    int             `json:"payment_number"`
	Date             Date            `json:"date"`
	PaymentAmount    decimal.Decimal `json:"payment_amount"`
	PrincipalPayment decimal.Decimal `json:"principal_payment"`
	InterestPayment  decimal.Decimal `json:"interest_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
func MonthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.Div(hundred).Div(twelve)
}

// MonthlyPayment returns the fixed payment that retires principal over
// term months at the given annual percentage rate:
//
//	P * r * (1+r)^n / ((1+r)^n - 1), r = rate/100/12
//
// A zero rate degrades to principal/term.
func MonthlyPayment(principal, annualPercent decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, Invalid("principal_amount", "must be greater than zero")
	}
	if annualPercent.IsNegative() {
		return decimal.Zero, Invalid("interest_rate", "must not be negative")
	}
	if termMonths <= 0 {
		return decimal.Zero, Invalid("term_months", "must be a positive number of months")
	}

	n := decimal.NewFromInt(int64(termMonths))
	if annualPercent.IsZero() {
		return Round2(principal.Div(n)), nil
	}

	r := MonthlyRate(annualPercent)
	growth := powRound(r.Add(decimal.NewFromInt(1)), termMonths)
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return Round2(payment), nil
}

// AmortizationSchedule lays out the payments of a debt month by month from
// its start date. Interest accrues on the running balance; the principal
// portion is clamped to what is left, and the final scheduled payment clears
// any residual rounding drift so the schedule always ends at zero.
func AmortizationSchedule(d Debt) ([]ScheduleEntry, error) {
	payment := d.MonthlyPayment
	if payment.IsZero() {
		var err error
		payment, err = MonthlyPayment(d.Principal, d.InterestRate, d.TermMonths)
		if err != nil {
			return nil, err
		}
	}
	if d.StartDate.IsZero() {
		return nil, Invalid("start_date", "this field is required")
	}

	r := MonthlyRate(d.InterestRate)
	balance := d.Principal
	schedule := make([]ScheduleEntry, 0, d.TermMonths)

	for i := 1; i <= d.TermMonths; i++ {
		interest := decimal.Zero
		if r.IsPositive() {
			interest = Round2(balance.Mul(r))
		}

		principal := payment.Sub(interest)
		if principal.GreaterThan(balance) || i == d.TermMonths {
			principal = balance
		}
		balance = balance.Sub(principal)

		remaining := balance
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, ScheduleEntry{
			PaymentNumber:    i,
			Date:             d.StartDate.AddMonthsClamped(i - 1),
			PaymentAmount:    principal.Add(interest),
			PrincipalPayment: principal,
			InterestPayment:  interest,
			RemainingBalance: remaining,
		})

		if !balance.IsPositive() {
			break
		}
	}

	return schedule, nil
}
