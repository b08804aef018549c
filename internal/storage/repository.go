// Package storage is the SQLite ledger backend. Money, dates and timestamps
// are stored as TEXT so decimals survive the round trip exactly.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// Store implements ledger.Store on a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
	repos
}

var _ ledger.Store = (*Store)(nil)

// Open creates the database directory if needed, opens the database with
// foreign keys and WAL enabled, and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	s.repos = repos{db: db, now: s.clock}
	return s, nil
}

func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_txlock=immediate",
	}
	return "file:" + dbPath + "?" + strings.Join(pragmas, "&")
}

// SetClock overrides the timestamp source; tests use it to pin created_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) clock() time.Time { return s.now() }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Atomic runs fn inside one database transaction, committing when fn returns
// nil and rolling back otherwise.
func (s *Store) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(repos{db: tx, now: s.clock}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// repos binds every table to one connection or transaction.
type repos struct {
	db  DBTX
	now func() time.Time
}

func bind[T, F any](r repos, t *table[T, F]) resource[T, F] {
	return resource[T, F]{db: r.db, now: r.now, t: t}
}

func (r repos) Accounts() ledger.AccountRepo         { return bind(r, accountsTable) }
func (r repos) Debts() ledger.DebtRepo               { return bind(r, debtsTable) }
func (r repos) Payments() ledger.PaymentRepo         { return bind(r, paymentsTable) }
func (r repos) Budgets() ledger.BudgetRepo           { return bind(r, budgetsTable) }
func (r repos) Alerts() ledger.AlertRepo             { return alertRepo{r} }
func (r repos) Transfers() ledger.TransferRepo       { return bind(r, transfersTable) }
func (r repos) Events() ledger.EventRepo             { return bind(r, eventsTable) }
func (r repos) Reminders() ledger.ReminderRepo       { return reminderRepo{r} }
func (r repos) Categories() ledger.CategoryRepo      { return bind(r, categoriesTable) }
func (r repos) Expenses() ledger.ExpenseRepo         { return bind(r, expensesTable) }
func (r repos) Incomes() ledger.IncomeRepo           { return bind(r, incomesTable) }
func (r repos) Transactions() ledger.TransactionRepo { return bind(r, transactionsTable) }
func (r repos) Goals() ledger.GoalRepo               { return bind(r, goalsTable) }
func (r repos) Projects() ledger.ProjectRepo         { return bind(r, projectsTable) }
func (r repos) Documents() ledger.DocumentRepo       { return bind(r, documentsTable) }

const alertColumns = "t.id, t.owner_id, t.budget_id, COALESCE(b.name, ''), t.alert_date, t.period_start, " +
	"t.percentage_reached, t.amount_spent, t.message, t.is_read"

type alertRepo struct{ repos }

func scanAlert(s rowScanner) (core.BudgetAlert, error) {
	var a core.BudgetAlert
	var date string
	err := s.Scan(&a.ID, &a.OwnerID, &a.BudgetID, &a.BudgetName, &date, &a.PeriodStart,
		&a.PercentageReached, &a.AmountSpent, &a.Message, &a.Read)
	a.AlertDate = parseTime(date)
	return a, err
}

func (r alertRepo) Insert(ctx context.Context, a *core.BudgetAlert) (bool, error) {
	if a.AlertDate.IsZero() {
		a.AlertDate = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_alerts (owner_id, budget_id, alert_date, period_start, percentage_reached,
			amount_spent, message, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (budget_id, period_start) DO NOTHING`,
		a.OwnerID, a.BudgetID, formatTime(a.AlertDate), a.PeriodStart, a.PercentageReached,
		a.AmountSpent, a.Message, a.Read)
	if err != nil {
		return false, fmt.Errorf("insert budget alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert budget alert: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("insert budget alert: last insert id: %w", err)
	}
	a.ID = id
	return true, nil
}

func (r alertRepo) Get(ctx context.Context, owner string, id int64) (core.BudgetAlert, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+alertColumns+
		" FROM budget_alerts t LEFT JOIN budgets b ON b.id = t.budget_id WHERE t.id = ? AND t.owner_id = ?", id, owner)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, core.NotFound("budget alert", id)
	}
	if err != nil {
		return a, fmt.Errorf("get budget alert %d: %w", id, err)
	}
	return a, nil
}

func (r alertRepo) List(ctx context.Context, owner string, f ledger.AlertFilter) ([]core.BudgetAlert, error) {
	where := []string{"t.owner_id = ?"}
	args := []any{owner}
	if f.BudgetID != 0 {
		where = append(where, "t.budget_id = ?")
		args = append(args, f.BudgetID)
	}
	if f.UnreadOnly {
		where = append(where, "t.is_read = 0")
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+alertColumns+
		" FROM budget_alerts t LEFT JOIN budgets b ON b.id = t.budget_id WHERE "+
		strings.Join(where, " AND ")+" ORDER BY t.alert_date DESC, t.id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list budget alerts: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r alertRepo) MarkRead(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE budget_alerts SET is_read = 1 WHERE id = ? AND owner_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("mark budget alert %d read: %w", id, err)
	}
	return expectRow(res, "budget alert", id)
}

func (r alertRepo) MarkAllRead(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE budget_alerts SET is_read = 1 WHERE owner_id = ? AND is_read = 0", owner)
	if err != nil {
		return 0, fmt.Errorf("mark budget alerts read: %w", err)
	}
	return res.RowsAffected()
}

func (r alertRepo) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budget_alerts WHERE id = ? AND owner_id = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete budget alert %d: %w", id, err)
	}
	return expectRow(res, "budget alert", id)
}

type reminderRepo struct{ repos }

func (r reminderRepo) Record(ctx context.Context, rem *core.EventReminder) (bool, error) {
	rem.SentAt = r.now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO event_reminders (event_id, reminder_date, sent_at) VALUES (?, ?, ?)
		ON CONFLICT (event_id, reminder_date) DO NOTHING`,
		rem.EventID, rem.ReminderDate, formatTime(rem.SentAt))
	if err != nil {
		return false, fmt.Errorf("record event reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	if rem.ID, err = res.LastInsertId(); err != nil {
		return false, fmt.Errorf("record event reminder: last insert id: %w", err)
	}
	return true, nil
}

func (r reminderRepo) List(ctx context.Context, eventID int64) ([]core.EventReminder, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, event_id, reminder_date, sent_at FROM event_reminders WHERE event_id = ? ORDER BY reminder_date",
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list event reminders: %w", err)
	}
	defer rows.Close()

	out := []core.EventReminder{}
	for rows.Next() {
		var rem core.EventReminder
		var sent string
		if err := rows.Scan(&rem.ID, &rem.EventID, &rem.ReminderDate, &sent); err != nil {
			return nil, fmt.Errorf("scan event reminder: %w", err)
		}
		rem.SentAt = parseTime(sent)
		out = append(out, rem)
	}
	return out, rows.Err()
}
