package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type FinancialConnection struct {
	ID          string
	UserID      string
	Provider    string
	ExternalID  sql.NullString
	Institution sql.NullString
	CreatedAt   string
	UpdatedAt   string
}

type FinancialAccount struct {
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

type AccountBalance struct {
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

type Transaction struct {
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
