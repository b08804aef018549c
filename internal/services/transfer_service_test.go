package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// failingStore makes account updates fail for one account ID inside Atomic.
type failingStore struct {
	ledger.Store
	failID int64
}

func (s failingStore) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		return fn(failingTx{Tx: tx, failID: s.failID})
	})
}

type failingTx struct {
	ledger.Tx
	failID int64
}

func (tx failingTx) Accounts() ledger.AccountRepo {
	return failingAccounts{AccountRepo: tx.Tx.Accounts(), failID: tx.failID}
}

type failingAccounts struct {
	ledger.AccountRepo
	failID int64
}

func (r failingAccounts) Update(ctx context.Context, owner string, a *core.Account) error {
	if a.ID == r.failID {
		return errors.New("disk full")
	}
	return r.AccountRepo.Update(ctx, owner, a)
}

func newTransfer(t *testing.T, svc *Services, from, to core.Account, amount, fee, rate string) core.MoneyTransfer {
	t.Helper()
	tr := core.MoneyTransfer{Type: core.TransferInternal, Amount: dec(amount), Fee: dec(fee)}
	if rate != "" {
		tr.ExchangeRate = dec(rate)
	}
	if from.Currency == core.USD {
		tr.FromUSAccountID = &from.ID
	} else {
		tr.FromKenyaAccountID = &from.ID
	}
	if to.Currency == core.USD {
		tr.ToUSAccountID = &to.ID
	} else {
		tr.ToKenyaAccountID = &to.ID
	}
	if err := svc.Transfers.Create(context.Background(), owner, &tr); err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	return tr
}

func TestCompleteTransferConvertsNetOfFee(t *testing.T) {
	svc, store, pub := newTestServices(t)
	ctx := context.Background()
	us := mustCreateAccount(t, store, core.USD, "500")
	ke := mustCreateAccount(t, store, core.KES, "1000")
	tr := newTransfer(t, svc, us, ke, "100", "5", "130")

	done, err := svc.Transfers.Complete(ctx, owner, tr.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != core.TransferCompleted || done.CompletedAt == nil {
		t.Errorf("transfer = %s completed at %v", done.Status, done.CompletedAt)
	}

	tests := []struct {
		name string
		id   int64
		want string
	}{
		{"source debited by gross amount", us.ID, "400"},
		{"destination credited with converted net", ke.ID, "13350"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := store.Accounts().Get(ctx, owner, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if !a.Balance.Equal(dec(tt.want)) {
				t.Errorf("balance = %s, want %s", a.Balance, tt.want)
			}
		})
	}
	if n := pub.count(amqp.EventTransferCompleted); n != 1 {
		t.Errorf("completed events = %d, want 1", n)
	}
}

func TestCompleteKESToUSDDivides(t *testing.T) {
	svc, store, _ := newTestServices(t)
	ctx := context.Background()
	ke := mustCreateAccount(t, store, core.KES, "20000")
	us := mustCreateAccount(t, store, core.USD, "0")
	tr := newTransfer(t, svc, ke, us, "13000", "0", "130")

	if _, err := svc.Transfers.Complete(ctx, owner, tr.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := store.Accounts().Get(ctx, owner, us.ID)
	if !got.Balance.Equal(dec("100")) {
		t.Errorf("USD balance = %s, want 100", got.Balance)
	}
}

func TestCreateFillsMissingRate(t *testing.T) {
	svc, store, _ := newTestServices(t)
	us := mustCreateAccount(t, store, core.USD, "500")
	ke := mustCreateAccount(t, store, core.KES, "0")
	tr := newTransfer(t, svc, us, ke, "10", "0", "")

	if !tr.ExchangeRate.Equal(dec("130")) {
		t.Errorf("rate = %s, want 130", tr.ExchangeRate)
	}
	if tr.Status != core.TransferPending || !tr.ScheduledDate.Equal(date("2024-03-15")) {
		t.Errorf("transfer = %s on %s", tr.Status, tr.ScheduledDate)
	}
}

func TestCompleteNonPendingLeavesBalances(t *testing.T) {
	svc, store, _ := newTestServices(t)
	ctx := context.Background()
	us := mustCreateAccount(t, store, core.USD, "500")
	ke := mustCreateAccount(t, store, core.KES, "0")
	tr := newTransfer(t, svc, us, ke, "100", "0", "130")

	if _, err := svc.Transfers.Cancel(ctx, owner, tr.ID); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Transfers.Complete(ctx, owner, tr.ID)
	if !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
	if errors.Is(err, ErrTransferFailed) {
		t.Error("a state error must not be reported as an execution failure")
	}

	got, _ := store.Accounts().Get(ctx, owner, us.ID)
	if !got.Balance.Equal(dec("500")) {
		t.Errorf("balance = %s, want 500", got.Balance)
	}
	stored, _ := store.Transfers().Get(ctx, owner, tr.ID)
	if stored.Status != core.TransferCancelled {
		t.Errorf("status = %s, want cancelled", stored.Status)
	}
}

func TestFailedTransferRollsBackAndMarksFailed(t *testing.T) {
	_, base, _ := newTestServices(t)
	ctx := context.Background()
	us := mustCreateAccount(t, base, core.USD, "500")
	ke := mustCreateAccount(t, base, core.KES, "1000")

	pub := &recordingPublisher{}
	store := failingStore{Store: base, failID: ke.ID}
	svc := New(Deps{Store: store, Publisher: pub, Clock: func() time.Time { return fixedNow }}, fixedRates(dec("130")))
	tr := newTransfer(t, svc, us, ke, "100", "5", "130")

	got, err := svc.Transfers.Complete(ctx, owner, tr.ID)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	if got.Status != core.TransferFailed || got.FailureReason == "" {
		t.Errorf("transfer = %s (%q), want failed with reason", got.Status, got.FailureReason)
	}

	for _, a := range []core.Account{us, ke} {
		stored, err := base.Accounts().Get(ctx, owner, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !stored.Balance.Equal(a.Balance) {
			t.Errorf("account %d balance = %s, want unchanged %s", a.ID, stored.Balance, a.Balance)
		}
	}
	if n := pub.count(amqp.EventTransferFailed); n != 1 {
		t.Errorf("failed events = %d, want 1", n)
	}
}

func TestOnlyPendingTransfersCanChange(t *testing.T) {
	svc, store, _ := newTestServices(t)
	ctx := context.Background()
	us := mustCreateAccount(t, store, core.USD, "500")
	ke := mustCreateAccount(t, store, core.KES, "0")
	tr := newTransfer(t, svc, us, ke, "100", "0", "130")
	if _, err := svc.Transfers.Complete(ctx, owner, tr.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		op   func() error
	}{
		{"update", func() error {
			edit := tr
			edit.Notes = "late edit"
			return svc.Transfers.Update(ctx, owner, &edit)
		}},
		{"delete", func() error { return svc.Transfers.Delete(ctx, owner, tr.ID) }},
		{"cancel", func() error { _, err := svc.Transfers.Cancel(ctx, owner, tr.ID); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, core.ErrInvalidState) {
				t.Errorf("err = %v, want invalid state", err)
			}
		})
	}
}

func TestCreateRejectsForeignAccount(t *testing.T) {
	svc, store, _ := newTestServices(t)
	us := mustCreateAccount(t, store, core.USD, "500")
	foreign := core.Account{Currency: core.KES, Name: "Other", Number: "9", Balance: dec("0")}
	if err := store.Accounts().Create(context.Background(), "someone-else", &foreign); err != nil {
		t.Fatal(err)
	}

	tr := core.MoneyTransfer{
		Type: core.TransferInternal, Amount: dec("10"),
		FromUSAccountID: &us.ID, ToKenyaAccountID: &foreign.ID,
	}
	if err := svc.Transfers.Create(context.Background(), owner, &tr); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
