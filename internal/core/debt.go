package core

import "github.com/shopspring/decimal"

// PaymentSplit is the principal/interest breakdown of a debt payment and the
// balance it leaves behind.
type PaymentSplit struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Remaining decimal.Decimal
}

// PrepareForCreate fills the derived fields of a new debt: the monthly
// payment when unset and the current balance, which starts at the principal
// unless given. The opening balance records where the balance started.
func (d *Debt) PrepareForCreate() error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.MonthlyPayment.IsZero() {
		p, err := MonthlyPayment(d.Principal, d.InterestRate, d.TermMonths)
		if err != nil {
			return err
		}
		d.MonthlyPayment = p
	}
	if d.CurrentBalance.IsZero() {
		d.CurrentBalance = d.Principal
	}
	d.OpeningBalance = d.CurrentBalance
	return nil
}

// Opening returns the balance payments are counted against. Debts stored
// without one started at the principal.
func (d Debt) Opening() decimal.Decimal {
	if d.OpeningBalance.IsZero() {
		return d.Principal
	}
	return d.OpeningBalance
}

// RebaseOpening moves the opening balance so that replaying payments from it
// lands on the debt's current balance.
func (d *Debt) RebaseOpening(payments []DebtPayment) {
	opening := d.CurrentBalance
	for _, p := range payments {
		opening = opening.Add(p.PrincipalPayment)
	}
	d.OpeningBalance = opening
}

// SplitPayment divides amount into interest and principal against the debt's
// current balance. Explicit portions are used only when both are given;
// otherwise interest is one month accrued on the current balance and the rest
// of the amount is principal.
//
// A payment below the accrued interest yields a negative principal portion and
// a remaining balance above the current one.
func (d Debt) SplitPayment(amount decimal.Decimal, principal, interest *decimal.Decimal) PaymentSplit {
	var split PaymentSplit
	if principal != nil && interest != nil {
		split.Principal, split.Interest = *principal, *interest
	} else {
		split.Interest = Round2(d.CurrentBalance.Mul(MonthlyRate(d.InterestRate)))
		split.Principal = amount.Sub(split.Interest)
	}
	split.Remaining = d.CurrentBalance.Sub(split.Principal)
	return split
}

// BalanceFromHistory recomputes a debt's balance as its opening balance minus
// the principal portions of every recorded payment.
func BalanceFromHistory(opening decimal.Decimal, payments []DebtPayment) decimal.Decimal {
	balance := opening
	for _, p := range payments {
		balance = balance.Sub(p.PrincipalPayment)
	}
	return balance
}
