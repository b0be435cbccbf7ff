package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/core"
	"nestegg/internal/ports"

	_ "modernc.org/sqlite"
)

// TimeLayout is fixed width so TEXT columns sort chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY inside transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListConnections(ctx context.Context, userID string) ([]core.Connection, error) {
	rows, err := r.queries.ListConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]core.Connection, 0, len(rows))
	for _, row := range rows {
		c, err := toConnection(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateConnection(ctx context.Context, c core.Connection) (core.Connection, error) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	row, err := r.queries.CreateConnection(ctx, CreateConnectionParams{
		ID:          c.ID,
		UserID:      c.UserID,
		Provider:    c.Provider,
		ExternalID:  nullString(c.ExternalID),
		Institution: nullString(c.Institution),
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	})
	if err != nil {
		return core.Connection{}, fmt.Errorf("create connection: %w", err)
	}
	slog.InfoContext(ctx, "Connection saved", "id", row.ID, "provider", row.Provider)
	return toConnection(row)
}

func (r *SQLiteRepository) GetConnection(ctx context.Context, userID, id string) (core.Connection, error) {
	row, err := r.queries.GetConnection(ctx, GetConnectionParams{UserID: userID, ID: id})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Connection{}, fmt.Errorf("connection %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return toConnection(row)
}

// ListAccounts returns the user's accounts, newest first, without balances.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return toAccounts(rows)
}

func (r *SQLiteRepository) ListAccountsByConnection(ctx context.Context, userID, connectionID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccountsByConnection(ctx, ListAccountsByConnectionParams{
		UserID:       userID,
		ConnectionID: connectionID,
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts by connection: %w", err)
	}
	return toAccounts(rows)
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, GetAccountParams{UserID: userID, ID: id})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toAccount(row)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	row, err := r.queries.CreateAccount(ctx, CreateAccountParams{
		ID:           a.ID,
		UserID:       a.UserID,
		ConnectionID: a.ConnectionID,
		Name:         a.Name,
		Type:         a.Type.String(),
		Subtype:      nullString(a.Subtype),
		Mask:         nullString(a.Mask),
		Currency:     nullString(a.Currency),
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved", "id", row.ID, "type", row.Type)
	return toAccount(row)
}

// DeleteAccount removes the account together with its balances and
// transactions in one transaction.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	n, err := q.DeleteAccount(ctx, DeleteAccountParams{UserID: userID, ID: id})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err := q.DeleteBalancesByAccount(ctx, id); err != nil {
		return fmt.Errorf("delete balances: %w", err)
	}
	if err := q.DeleteTransactionsByAccount(ctx, id); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

// ListBalances returns points with AsOf >= since, oldest first.
func (r *SQLiteRepository) ListBalances(ctx context.Context, accountID string, since time.Time) ([]core.BalancePoint, error) {
	rows, err := r.queries.ListBalancesSince(ctx, ListBalancesSinceParams{
		AccountID: accountID,
		Since:     formatTime(since),
	})
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return toBalances(rows)
}

// LatestBalance returns nil when the account has no history.
func (r *SQLiteRepository) LatestBalance(ctx context.Context, accountID string) (*core.BalancePoint, error) {
	row, err := r.queries.GetLatestBalance(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest balance: %w", err)
	}
	b, err := toBalance(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBalance inserts a point or overwrites the one recorded at the same
// instant for the account.
func (r *SQLiteRepository) UpsertBalance(ctx context.Context, b core.BalancePoint) (core.BalancePoint, error) {
	now := formatTime(time.Now().UTC())
	row, err := r.queries.UpsertBalance(ctx, UpsertBalanceParams{
		ID:              b.ID,
		AccountID:       b.AccountID,
		Current:         b.Current.String(),
		Available:       nullDecimal(b.Available),
		Limit:           nullDecimal(b.Limit),
		IsoCurrencyCode: nullString(b.Currency),
		AsOf:            formatTime(b.AsOf),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return core.BalancePoint{}, fmt.Errorf("upsert balance: %w", err)
	}
	slog.DebugContext(ctx, "Balance recorded", "account_id", row.AccountID, "as_of", row.AsOf)
	return toBalance(row)
}

// ListTransactions returns the account's transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListUserTransactions(ctx context.Context, userID string, since time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListUserTransactionsSince(ctx, ListUserTransactionsSinceParams{
		UserID: userID,
		Since:  formatTime(since),
	})
	if err != nil {
		return nil, fmt.Errorf("list user transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	var post sql.NullString
	if t.PostDate != nil {
		post = sql.NullString{String: formatTime(*t.PostDate), Valid: true}
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Date:        formatTime(t.Date),
		PostDate:    post,
		Description: t.Description,
		Category:    nullString(t.Category),
		Amount:      t.Amount.String(),
		Type:        t.Type,
		CreatedAt:   formatTime(t.CreatedAt),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return toTransaction(row)
}

// Overview loads every account of the user with its balance history since
// the given instant, oldest point first.
func (r *SQLiteRepository) Overview(ctx context.Context, userID string, since time.Time) ([]core.Account, error) {
	accounts, err := r.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListUserBalancesSince(ctx, ListUserBalancesSinceParams{
		UserID: userID,
		Since:  formatTime(since),
	})
	if err != nil {
		return nil, fmt.Errorf("list user balances: %w", err)
	}
	byAccount := make(map[string][]core.BalancePoint, len(accounts))
	for _, row := range rows {
		b, err := toBalance(row)
		if err != nil {
			return nil, err
		}
		byAccount[b.AccountID] = append(byAccount[b.AccountID], b)
	}
	for i := range accounts {
		accounts[i].Balances = byAccount[accounts[i].ID]
	}
	return accounts, nil
}

// PendingExports lists users whose balances changed since their last export.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]string, error) {
	users, err := r.queries.ListUsersPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	return users, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, userID string, at time.Time) error {
	if err := r.queries.MarkExported(ctx, MarkExportedParams{UserID: userID, ExportedAt: formatTime(at)}); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		// Rows written by hand may use plain RFC 3339.
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse decimal %q: %w", s.String, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func toConnection(row FinancialConnection) (core.Connection, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Connection{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Connection{}, err
	}
	return core.Connection{
		ID:          row.ID,
		UserID:      row.UserID,
		Provider:    row.Provider,
		ExternalID:  row.ExternalID.String,
		Institution: row.Institution.String,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func toAccount(row FinancialAccount) (core.Account, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Account{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Account{}, err
	}
	t, err := core.ParseAccountType(row.Type)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s: %w", row.ID, err)
	}
	return core.Account{
		ID:           row.ID,
		UserID:       row.UserID,
		ConnectionID: row.ConnectionID,
		Name:         row.Name,
		Type:         t,
		Subtype:      row.Subtype.String,
		Mask:         row.Mask.String,
		Currency:     row.Currency.String,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func toAccounts(rows []FinancialAccount) ([]core.Account, error) {
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := toAccount(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func toBalance(row AccountBalance) (core.BalancePoint, error) {
	asOf, err := parseTime(row.AsOf)
	if err != nil {
		return core.BalancePoint{}, err
	}
	current, err := decimal.NewFromString(row.Current)
	if err != nil {
		return core.BalancePoint{}, fmt.Errorf("parse current %q: %w", row.Current, err)
	}
	available, err := parseNullDecimal(row.Available)
	if err != nil {
		return core.BalancePoint{}, err
	}
	limit, err := parseNullDecimal(row.Limit)
	if err != nil {
		return core.BalancePoint{}, err
	}
	return core.BalancePoint{
		ID:        row.ID,
		AccountID: row.AccountID,
		AsOf:      asOf,
		Current:   current,
		Available: available,
		Limit:     limit,
		Currency:  row.IsoCurrencyCode.String,
	}, nil
}

func toBalances(rows []AccountBalance) ([]core.BalancePoint, error) {
	out := make([]core.BalancePoint, 0, len(rows))
	for _, row := range rows {
		b, err := toBalance(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func toTransaction(row Transaction) (core.Transaction, error) {
	date, err := parseTime(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	t := core.Transaction{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Date:        date,
		Description: row.Description,
		Category:    row.Category.String,
		Amount:      amount,
		Type:        row.Type,
		CreatedAt:   created,
	}
	if row.PostDate.Valid {
		pd, err := parseTime(row.PostDate.String)
		if err != nil {
			return core.Transaction{}, err
		}
		t.PostDate = &pd
	}
	return t, nil
}

func toTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
