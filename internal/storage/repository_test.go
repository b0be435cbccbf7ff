package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "nestegg.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository, id, user string, typ core.AccountType, created time.Time) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{
		ID:           id,
		UserID:       user,
		ConnectionID: "conn-1",
		Name:         "Account " + id,
		Type:         typ,
		Mask:         "1234",
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
	return a
}

func TestConnectionsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateConnection(ctx, core.Connection{ID: "conn-1", UserID: "u1", Provider: "mock", Institution: "Chase"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateConnection(ctx, core.Connection{ID: "conn-2", UserID: "u2", Provider: "mock"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	conns, err := repo.ListConnections(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conns) != 1 || conns[0].Institution != "Chase" || conns[0].ExternalID != "" {
		t.Fatalf("unexpected connections: %+v", conns)
	}

	if _, err := repo.GetConnection(ctx, "u2", "conn-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across users, got %v", err)
	}
}

func TestAccountsNewestFirstAndUserScoped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedAccount(t, repo, "old", "u1", core.Checking, base)
	seedAccount(t, repo, "new", "u1", core.Mortgage, base.Add(time.Hour))
	seedAccount(t, repo, "other", "u2", core.Savings, base)

	accs, err := repo.ListAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accs) != 2 || accs[0].ID != "new" || accs[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", accs)
	}
	if accs[0].Type != core.Mortgage || accs[0].Mask != "1234" {
		t.Fatalf("fields not round-tripped: %+v", accs[0])
	}

	byConn, err := repo.ListAccountsByConnection(ctx, "u1", "conn-1")
	if err != nil || len(byConn) != 2 {
		t.Fatalf("by connection: %v %v", byConn, err)
	}

	if _, err := repo.GetAccount(ctx, "u1", "other"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertBalanceOverwritesSameInstant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc", "u1", core.CreditCard, time.Now())
	asOf := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	first, err := repo.UpsertBalance(ctx, core.BalancePoint{
		ID: "b1", AccountID: "acc", AsOf: asOf,
		Current: decimal.RequireFromString("-1200.50"),
		Limit:   decimal.NewNullDecimal(decimal.NewFromInt(5000)),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := repo.UpsertBalance(ctx, core.BalancePoint{
		ID: "b2", AccountID: "acc", AsOf: asOf,
		Current:  decimal.RequireFromString("-900"),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert should keep row id %s, got %s", first.ID, second.ID)
	}
	if !second.Current.Equal(decimal.NewFromInt(-900)) || second.Limit.Valid || second.Currency != "USD" {
		t.Fatalf("upsert did not overwrite: %+v", second)
	}

	all, err := repo.ListBalances(ctx, "acc", time.Time{})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected a single point, got %v %v", all, err)
	}
}

func TestListBalancesAscendingSince(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc", "u1", core.Savings, time.Now())

	for i, m := range []time.Month{3, 1, 2} {
		_, err := repo.UpsertBalance(ctx, core.BalancePoint{
			ID:        string(rune('a' + i)),
			AccountID: "acc",
			AsOf:      time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC),
			Current:   decimal.NewFromInt(int64(m) * 100),
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	pts, err := repo.ListBalances(ctx, "acc", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pts) != 2 || pts[0].AsOf.Month() != 2 || pts[1].AsOf.Month() != 3 {
		t.Fatalf("unexpected points: %+v", pts)
	}

	latest, err := repo.LatestBalance(ctx, "acc")
	if err != nil || latest == nil || !latest.Current.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("latest = %+v, %v", latest, err)
	}

	none, err := repo.LatestBalance(ctx, "missing")
	if err != nil || none != nil {
		t.Fatalf("expected nil latest for unknown account, got %+v %v", none, err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc", "u1", core.Checking, time.Now())
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	if _, err := repo.UpsertBalance(ctx, core.BalancePoint{ID: "b", AccountID: "acc", AsOf: day, Current: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		ID: "t", AccountID: "acc", Date: day, Description: "Coffee",
		Amount: decimal.RequireFromString("-4.50"), Type: core.TransactionDebit,
	}); err != nil {
		t.Fatalf("create tx: %v", err)
	}

	if err := repo.DeleteAccount(ctx, "u2", "acc"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign user delete should be not found, got %v", err)
	}
	if err := repo.DeleteAccount(ctx, "u1", "acc"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if pts, _ := repo.ListBalances(ctx, "acc", time.Time{}); len(pts) != 0 {
		t.Fatalf("balances survived delete: %+v", pts)
	}
	if txs, _ := repo.ListTransactions(ctx, "acc"); len(txs) != 0 {
		t.Fatalf("transactions survived delete: %+v", txs)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc", "u1", core.Checking, time.Now())

	post := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	for _, tx := range []core.Transaction{
		{ID: "t1", AccountID: "acc", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Description: "Rent", Amount: decimal.NewFromInt(-1500), Type: core.TransactionDebit, Category: "housing"},
		{ID: "t2", AccountID: "acc", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Description: "Salary", Amount: decimal.NewFromInt(4000), Type: core.TransactionCredit, PostDate: &post},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create %s: %v", tx.ID, err)
		}
	}

	txs, err := repo.ListTransactions(ctx, "acc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 || txs[0].ID != "t2" || txs[0].PostDate == nil || !txs[0].PostDate.Equal(post) {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	if txs[1].Category != "housing" || !txs[1].Amount.Equal(decimal.NewFromInt(-1500)) {
		t.Fatalf("fields lost: %+v", txs[1])
	}

	userTxs, err := repo.ListUserTransactions(ctx, "u1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil || len(userTxs) != 1 || userTxs[0].ID != "t2" {
		t.Fatalf("user transactions since: %+v %v", userTxs, err)
	}
}

func TestOverviewAttachesHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "chk", "u1", core.Checking, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	seedAccount(t, repo, "empty", "u1", core.Savings, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	for i, d := range []int{10, 5, 20} {
		if _, err := repo.UpsertBalance(ctx, core.BalancePoint{
			ID:        string(rune('a' + i)),
			AccountID: "chk",
			AsOf:      time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
			Current:   decimal.NewFromInt(int64(d)),
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	accs, err := repo.Overview(ctx, "u1", time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(accs) != 2 || accs[1].ID != "chk" {
		t.Fatalf("unexpected accounts: %+v", accs)
	}
	if len(accs[0].Balances) != 0 {
		t.Fatalf("empty account should have no history")
	}
	h := accs[1].Balances
	if len(h) != 2 || h[0].AsOf.Day() != 10 || h[1].AsOf.Day() != 20 {
		t.Fatalf("history not ascending or not filtered: %+v", h)
	}
}

func TestPendingExports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc", "u1", core.Checking, time.Now())

	users, err := repo.PendingExports(ctx, 10)
	if err != nil || len(users) != 0 {
		t.Fatalf("no balances should mean nothing pending: %v %v", users, err)
	}

	if _, err := repo.UpsertBalance(ctx, core.BalancePoint{ID: "b", AccountID: "acc", AsOf: time.Now(), Current: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	users, err = repo.PendingExports(ctx, 10)
	if err != nil || len(users) != 1 || users[0] != "u1" {
		t.Fatalf("expected u1 pending, got %v %v", users, err)
	}

	if err := repo.MarkExported(ctx, "u1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("mark: %v", err)
	}
	users, _ = repo.PendingExports(ctx, 10)
	if len(users) != 0 {
		t.Fatalf("expected nothing pending after export, got %v", users)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo.Close()

	v, dirty, err := SchemaVersion(path)
	if err != nil || dirty || v != 2 {
		t.Fatalf("version = %d dirty=%v err=%v", v, dirty, err)
	}
	if err := ResetSchema(path); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
