// Package ports declares the storage contracts shared by the SQLite
// repository and the in-memory store.
package ports

import (
	"context"
	"time"

	"nestegg/internal/core"
)

type (
	ConnectionStore interface {
		ListConnections(ctx context.Context, userID string) ([]core.Connection, error)
		GetConnection(ctx context.Context, userID, id string) (core.Connection, error)
		CreateConnection(ctx context.Context, c core.Connection) (core.Connection, error)
	}

	// AccountStore reads and writes accounts. Lists are newest first and carry
	// no balance history.
	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		ListAccountsByConnection(ctx context.Context, userID, connectionID string) ([]core.Account, error)
		GetAccount(ctx context.Context, userID, id string) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// DeleteAccount also removes the account's balances and transactions.
		DeleteAccount(ctx context.Context, userID, id string) error
	}

	BalanceStore interface {
		// ListBalances returns points with AsOf >= since, oldest first.
		ListBalances(ctx context.Context, accountID string, since time.Time) ([]core.BalancePoint, error)
		// LatestBalance returns nil when the account has no history.
		LatestBalance(ctx context.Context, accountID string) (*core.BalancePoint, error)
		UpsertBalance(ctx context.Context, b core.BalancePoint) (core.BalancePoint, error)
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
		ListUserTransactions(ctx context.Context, userID string, since time.Time) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// OverviewReader loads all of a user's accounts with balance history
	// since the given instant.
	OverviewReader interface {
		Overview(ctx context.Context, userID string, since time.Time) ([]core.Account, error)
	}

	// ExportTracker remembers which users need their net worth re-exported.
	ExportTracker interface {
		PendingExports(ctx context.Context, limit int) ([]string, error)
		MarkExported(ctx context.Context, userID string, at time.Time) error
	}

	Store interface {
		ConnectionStore
		AccountStore
		BalanceStore
		TransactionStore
		OverviewReader
		ExportTracker
	}
)
