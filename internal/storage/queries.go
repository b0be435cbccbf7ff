package storage

import (
	"context"
	"database/sql"
)

const createConnection = `
INSERT INTO financial_connections (id, user_id, provider, external_id, institution, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, user_id, provider, external_id, institution, created_at, updated_at`

type CreateConnectionParams struct {
	ID          string
	UserID      string
	Provider    string
	ExternalID  sql.NullString
	Institution sql.NullString
	CreatedAt   string
	UpdatedAt   string
}

func (q *Queries) CreateConnection(ctx context.Context, arg CreateConnectionParams) (FinancialConnection, error) {
	row := q.db.QueryRowContext(ctx, createConnection,
		arg.ID, arg.UserID, arg.Provider, arg.ExternalID, arg.Institution, arg.CreatedAt, arg.UpdatedAt)
	var i FinancialConnection
	err := row.Scan(&i.ID, &i.UserID, &i.Provider, &i.ExternalID, &i.Institution, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listConnectionsByUser = `
SELECT id, user_id, provider, external_id, institution, created_at, updated_at
FROM financial_connections
WHERE user_id = ?
ORDER BY created_at DESC, id`

func (q *Queries) ListConnectionsByUser(ctx context.Context, userID string) ([]FinancialConnection, error) {
	rows, err := q.db.QueryContext(ctx, listConnectionsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinancialConnection
	for rows.Next() {
		var i FinancialConnection
		if err := rows.Scan(&i.ID, &i.UserID, &i.Provider, &i.ExternalID, &i.Institution, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getConnection = `
SELECT id, user_id, provider, external_id, institution, created_at, updated_at
FROM financial_connections
WHERE user_id = ? AND id = ?`

type GetConnectionParams struct {
	UserID string
	ID     string
}

func (q *Queries) GetConnection(ctx context.Context, arg GetConnectionParams) (FinancialConnection, error) {
	row := q.db.QueryRowContext(ctx, getConnection, arg.UserID, arg.ID)
	var i FinancialConnection
	err := row.Scan(&i.ID, &i.UserID, &i.Provider, &i.ExternalID, &i.Institution, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const accountColumns = `id, user_id, connection_id, name, type, subtype, mask, currency, created_at, updated_at`

func scanAccount(s interface{ Scan(...any) error }) (FinancialAccount, error) {
	var i FinancialAccount
	err := s.Scan(&i.ID, &i.UserID, &i.ConnectionID, &i.Name, &i.Type, &i.Subtype, &i.Mask, &i.Currency, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createAccount = `
INSERT INTO financial_accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID           string
	UserID       string
	ConnectionID string
	Name         string
	Type         string
	Subtype      sql.NullString
	Mask         sql.NullString
	Currency     sql.NullString
	CreatedAt    string
	UpdatedAt    string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (FinancialAccount, error) {
	row := q.db.QueryRowContext(ctx, createAccount,
		arg.ID, arg.UserID, arg.ConnectionID, arg.Name, arg.Type,
		arg.Subtype, arg.Mask, arg.Currency, arg.CreatedAt, arg.UpdatedAt)
	return scanAccount(row)
}

const getAccount = `SELECT ` + accountColumns + ` FROM financial_accounts WHERE user_id = ? AND id = ?`

type GetAccountParams struct {
	UserID string
	ID     string
}

func (q *Queries) GetAccount(ctx context.Context, arg GetAccountParams) (FinancialAccount, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, arg.UserID, arg.ID))
}

const listAccountsByUser = `
SELECT ` + accountColumns + `
FROM financial_accounts
WHERE user_id = ?
ORDER BY created_at DESC, id`

func (q *Queries) ListAccountsByUser(ctx context.Context, userID string) ([]FinancialAccount, error) {
	return q.listAccounts(ctx, listAccountsByUser, userID)
}

const listAccountsByConnection = `
SELECT ` + accountColumns + `
FROM financial_accounts
WHERE user_id = ? AND connection_id = ?
ORDER BY created_at DESC, id`

type ListAccountsByConnectionParams struct {
	UserID       string
	ConnectionID string
}

func (q *Queries) ListAccountsByConnection(ctx context.Context, arg ListAccountsByConnectionParams) ([]FinancialAccount, error) {
	return q.listAccounts(ctx, listAccountsByConnection, arg.UserID, arg.ConnectionID)
}

func (q *Queries) listAccounts(ctx context.Context, query string, args ...any) ([]FinancialAccount, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinancialAccount
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteAccount = `DELETE FROM financial_accounts WHERE user_id = ? AND id = ?`

type DeleteAccountParams struct {
	UserID string
	ID     string
}

func (q *Queries) DeleteAccount(ctx context.Context, arg DeleteAccountParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, arg.UserID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBalancesByAccount = `DELETE FROM account_balances WHERE account_id = ?`

func (q *Queries) DeleteBalancesByAccount(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteBalancesByAccount, accountID)
	return err
}

const deleteTransactionsByAccount = `DELETE FROM transactions WHERE account_id = ?`

func (q *Queries) DeleteTransactionsByAccount(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteTransactionsByAccount, accountID)
	return err
}

const balanceColumns = `id, account_id, current, available, "limit", iso_currency_code, as_of, created_at, updated_at`

func scanBalance(s interface{ Scan(...any) error }) (AccountBalance, error) {
	var i AccountBalance
	err := s.Scan(&i.ID, &i.AccountID, &i.Current, &i.Available, &i.Limit, &i.IsoCurrencyCode, &i.AsOf, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const upsertBalance = `
INSERT INTO account_balances (` + balanceColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, as_of) DO UPDATE SET
    current = excluded.current,
    available = excluded.available,
    "limit" = excluded."limit",
    iso_currency_code = excluded.iso_currency_code,
    updated_at = excluded.updated_at
RETURNING ` + balanceColumns

type UpsertBalanceParams struct {
	ID              string
	AccountID       string
	Current         string
	Available       sql.NullString
	Limit           sql.NullString
	IsoCurrencyCode sql.NullString
	AsOf            string
	CreatedAt       string
	UpdatedAt       string
}

func (q *Queries) UpsertBalance(ctx context.Context, arg UpsertBalanceParams) (AccountBalance, error) {
	row := q.db.QueryRowContext(ctx, upsertBalance,
		arg.ID, arg.AccountID, arg.Current, arg.Available, arg.Limit,
		arg.IsoCurrencyCode, arg.AsOf, arg.CreatedAt, arg.UpdatedAt)
	return scanBalance(row)
}

const listBalancesSince = `
SELECT ` + balanceColumns + `
FROM account_balances
WHERE account_id = ? AND as_of >= ?
ORDER BY as_of ASC`

type ListBalancesSinceParams struct {
	AccountID string
	Since     string
}

func (q *Queries) ListBalancesSince(ctx context.Context, arg ListBalancesSinceParams) ([]AccountBalance, error) {
	return q.listBalances(ctx, listBalancesSince, arg.AccountID, arg.Since)
}

const listUserBalancesSince = `
SELECT b.id, b.account_id, b.current, b.available, b."limit", b.iso_currency_code, b.as_of, b.created_at, b.updated_at
FROM account_balances b
JOIN financial_accounts a ON a.id = b.account_id
WHERE a.user_id = ? AND b.as_of >= ?
ORDER BY b.account_id, b.as_of ASC`

type ListUserBalancesSinceParams struct {
	UserID string
	Since  string
}

func (q *Queries) ListUserBalancesSince(ctx context.Context, arg ListUserBalancesSinceParams) ([]AccountBalance, error) {
	return q.listBalances(ctx, listUserBalancesSince, arg.UserID, arg.Since)
}

func (q *Queries) listBalances(ctx context.Context, query string, args ...any) ([]AccountBalance, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountBalance
	for rows.Next() {
		i, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getLatestBalance = `
SELECT ` + balanceColumns + `
FROM account_balances
WHERE account_id = ?
ORDER BY as_of DESC, updated_at DESC
LIMIT 1`

func (q *Queries) GetLatestBalance(ctx context.Context, accountID string) (AccountBalance, error) {
	return scanBalance(q.db.QueryRowContext(ctx, getLatestBalance, accountID))
}

const transactionColumns = `id, account_id, date, post_date, description, category, amount, type, created_at`

func scanTransaction(s interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := s.Scan(&i.ID, &i.AccountID, &i.Date, &i.PostDate, &i.Description, &i.Category, &i.Amount, &i.Type, &i.CreatedAt)
	return i, err
}

const createTransaction = `
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID          string
	AccountID   string
	Date        string
	PostDate    sql.NullString
	Description string
	Category    sql.NullString
	Amount      string
	Type        string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID, arg.AccountID, arg.Date, arg.PostDate, arg.Description,
		arg.Category, arg.Amount, arg.Type, arg.CreatedAt)
	return scanTransaction(row)
}

const listTransactionsByAccount = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = ?
ORDER BY date DESC, id`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByAccount, accountID)
}

const listUserTransactionsSince = `
SELECT t.id, t.account_id, t.date, t.post_date, t.description, t.category, t.amount, t.type, t.created_at
FROM transactions t
JOIN financial_accounts a ON a.id = t.account_id
WHERE a.user_id = ? AND t.date >= ?
ORDER BY t.date DESC, t.id`

type ListUserTransactionsSinceParams struct {
	UserID string
	Since  string
}

func (q *Queries) ListUserTransactionsSince(ctx context.Context, arg ListUserTransactionsSinceParams) ([]Transaction, error) {
	return q.listTransactions(ctx, listUserTransactionsSince, arg.UserID, arg.Since)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listUsersPendingExport = `
SELECT DISTINCT a.user_id
FROM account_balances b
JOIN financial_accounts a ON a.id = b.account_id
LEFT JOIN net_worth_exports e ON e.user_id = a.user_id
WHERE e.exported_at IS NULL OR b.updated_at > e.exported_at
ORDER BY a.user_id
LIMIT ?`

func (q *Queries) ListUsersPendingExport(ctx context.Context, limit int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsersPendingExport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		items = append(items, userID)
	}
	return items, rows.Err()
}

const markExported = `
INSERT INTO net_worth_exports (user_id, exported_at) VALUES (?, ?)
ON CONFLICT (user_id) DO UPDATE SET exported_at = excluded.exported_at`

type MarkExportedParams struct {
	UserID     string
	ExportedAt string
}

func (q *Queries) MarkExported(ctx context.Context, arg MarkExportedParams) error {
	_, err := q.db.ExecContext(ctx, markExported, arg.UserID, arg.ExportedAt)
	return err
}
