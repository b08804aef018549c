package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// upcomingIncomeDays is how far ahead Upcoming looks for pending income.
const upcomingIncomeDays = 10

// IncomeService manages expected income and its deposit.
type IncomeService struct {
	Deps
}

func NewIncomeService(d Deps) *IncomeService {
	return &IncomeService{Deps: d}
}

// Deposit is the result of marking income as deposited.
type Deposit struct {
	Income      core.Income      `json:"income"`
	Transaction core.Transaction `json:"transaction"`
	// Account is the linked account that was credited, if any.
	Account *core.Account `json:"account,omitempty"`
}

func (s *IncomeService) Create(ctx context.Context, owner string, in *core.Income) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkLinkedAccounts(ctx, tx, owner, in.USAccountID, in.KenyaAccountID); err != nil {
			return err
		}
		return tx.Incomes().Create(ctx, owner, in)
	})
}

func (s *IncomeService) Update(ctx context.Context, owner string, in *core.Income) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkLinkedAccounts(ctx, tx, owner, in.USAccountID, in.KenyaAccountID); err != nil {
			return err
		}
		return tx.Incomes().Update(ctx, owner, in)
	})
}

// MarkDeposited records pending income as received: the income becomes
// deposited, an income transaction dated today is created, and the linked
// account holding the income's currency is credited.
func (s *IncomeService) MarkDeposited(ctx context.Context, owner string, id int64) (Deposit, error) {
	var dep Deposit
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		in, err := tx.Incomes().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		switch in.Status {
		case core.IncomeDeposited:
			return core.Invalid("", "Income already deposited")
		case core.IncomeCancelled:
			return &core.StateError{Message: "Cancelled income cannot be deposited"}
		}

		in.Status = core.IncomeDeposited
		if err := tx.Incomes().Update(ctx, owner, &in); err != nil {
			return err
		}

		t := core.Transaction{
			Type:           core.TxIncome,
			Amount:         in.Amount,
			Currency:       in.Currency,
			Date:           s.Clock.Today(),
			Description:    "Income from " + in.Source,
			USAccountID:    in.USAccountID,
			KenyaAccountID: in.KenyaAccountID,
		}
		if err := tx.Transactions().Create(ctx, owner, &t); err != nil {
			return err
		}

		dep = Deposit{Income: in, Transaction: t}
		accountID := in.USAccountID
		if in.Currency == core.KES {
			accountID = in.KenyaAccountID
		}
		if accountID == nil {
			return nil
		}
		acc, err := tx.Accounts().Get(ctx, owner, *accountID)
		if err != nil {
			return err
		}
		acc.Balance = acc.Balance.Add(in.Amount)
		if err := tx.Accounts().Update(ctx, owner, &acc); err != nil {
			return err
		}
		dep.Account = &acc
		return nil
	})
	if err != nil {
		return Deposit{}, err
	}

	slog.InfoContext(ctx, "Income deposited",
		"income_id", dep.Income.ID,
		"transaction_id", dep.Transaction.ID,
		"amount", dep.Income.Amount.String(),
		"currency", dep.Income.Currency)
	s.publish(ctx, amqp.EventIncomeDeposited, owner, dep)
	return dep, nil
}

// Upcoming lists pending income dated within the next ten days.
func (s *IncomeService) Upcoming(ctx context.Context, owner string) ([]core.Income, error) {
	today := s.Clock.Today()
	return s.Store.Incomes().List(ctx, owner, ledger.IncomeFilter{
		Status: core.IncomePending,
		From:   today,
		To:     today.AddDays(upcomingIncomeDays),
	})
}

// checkLinkedAccounts verifies optional US and Kenya account references.
func checkLinkedAccounts(ctx context.Context, tx ledger.Tx, owner string, us, kenya *int64) error {
	if us != nil {
		if _, err := loadAccount(ctx, tx, owner, core.AccountRef{Currency: core.USD, ID: *us}); err != nil {
			return err
		}
	}
	if kenya != nil {
		if _, err := loadAccount(ctx, tx, owner, core.AccountRef{Currency: core.KES, ID: *kenya}); err != nil {
			return err
		}
	}
	return nil
}
