package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/core"
	"nestegg/internal/memory"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePublisher) PublishBalanceRecorded(_ context.Context, userID, accountID, _ string, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, userID+"/"+accountID)
	return p.err
}

type fakeInvalidator struct{ users []string }

func (f *fakeInvalidator) Invalidate(userID string) { f.users = append(f.users, userID) }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newAccountFixture(t *testing.T) (*AccountService, *fakePublisher, *fakeInvalidator, core.Connection) {
	t.Helper()
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := NewAccountService(memory.New(), pub, inv)
	conn, err := svc.CreateConnection(context.Background(), "u1", core.Connection{Provider: "mock", Institution: "Chase"})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	return svc, pub, inv, conn
}

func TestAccountService_CreateAccount(t *testing.T) {
	svc, pub, inv, conn := newAccountFixture(t)
	ctx := context.Background()

	a, err := svc.CreateAccount(ctx, "u1", core.Account{
		ConnectionID: conn.ID,
		Name:         "  Everyday Checking ",
		Type:         core.Checking,
		Balances: []core.BalancePoint{
			{AsOf: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Current: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if a.ID == "" || a.UserID != "u1" || a.Name != "Everyday Checking" {
		t.Fatalf("unexpected account: %+v", a)
	}
	if len(a.Balances) != 1 || a.Balances[0].AccountID != a.ID {
		t.Fatalf("initial balance not recorded: %+v", a.Balances)
	}
	if len(pub.calls) != 1 || pub.calls[0] != "u1/"+a.ID {
		t.Fatalf("expected one publish, got %v", pub.calls)
	}
	if len(inv.users) == 0 || inv.users[0] != "u1" {
		t.Fatalf("cache not invalidated: %v", inv.users)
	}
}

func TestAccountService_CreateAccountValidation(t *testing.T) {
	svc, _, _, conn := newAccountFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		account core.Account
		target  error
	}{
		{"empty name", core.Account{ConnectionID: conn.ID, Name: " ", Type: core.Checking}, core.ErrEmptyName},
		{"unknown type", core.Account{ConnectionID: conn.ID, Name: "x", Type: "piggy_bank"}, core.ErrUnknownAccountType},
		{"long mask", core.Account{ConnectionID: conn.ID, Name: "x", Type: core.Checking, Mask: "123456"}, core.ErrInvalidMask},
		{"unknown connection", core.Account{ConnectionID: "nope", Name: "x", Type: core.Checking}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, "u1", tt.account)
			if !errors.Is(err, tt.target) {
				t.Fatalf("error = %v, want %v", err, tt.target)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("validation error should wrap ErrInvalidInput: %v", err)
			}
		})
	}
}

// flakyBalances fails every balance write after the first ok ones.
type flakyBalances struct {
	*memory.Store
	ok int
}

func (f *flakyBalances) UpsertBalance(ctx context.Context, b core.BalancePoint) (core.BalancePoint, error) {
	if f.ok == 0 {
		return core.BalancePoint{}, errors.New("disk full")
	}
	f.ok--
	return f.Store.UpsertBalance(ctx, b)
}

func TestAccountService_CreateAccountRemovesPartialWrite(t *testing.T) {
	store := &flakyBalances{Store: memory.New(), ok: 1}
	svc := NewAccountService(store, nil, nil)
	ctx := context.Background()
	conn, err := svc.CreateConnection(ctx, "u1", core.Connection{Provider: "mock", Institution: "Chase"})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	_, err = svc.CreateAccount(ctx, "u1", core.Account{
		ConnectionID: conn.ID,
		Name:         "Checking",
		Type:         core.Checking,
		Balances: []core.BalancePoint{
			{AsOf: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Current: decimal.NewFromInt(100)},
			{AsOf: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Current: decimal.NewFromInt(200)},
		},
	})
	if err == nil || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected a storage error, got %v", err)
	}

	accounts, err := svc.ListAccounts(ctx, "u1", "")
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("partly created account left behind: %+v", accounts)
	}
	history, _ := store.Overview(ctx, "u1", time.Time{})
	if len(history) != 0 {
		t.Fatalf("balances left behind: %+v", history)
	}
}

func TestAccountService_RecordBalancePublishFailureIsNotFatal(t *testing.T) {
	svc, pub, _, conn := newAccountFixture(t)
	ctx := context.Background()
	a, _ := svc.CreateAccount(ctx, "u1", core.Account{ConnectionID: conn.ID, Name: "Card", Type: core.CreditCard})

	pub.err = errors.New("connection refused")
	p, err := svc.RecordBalance(ctx, "u1", a.ID, core.BalancePoint{
		AsOf:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Current: decimal.RequireFromString("-250.10"),
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}

	latest, err := svc.LatestBalance(ctx, "u1", a.ID)
	if err != nil || latest == nil || latest.ID != p.ID {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
}

func TestAccountService_UserScoping(t *testing.T) {
	svc, _, _, conn := newAccountFixture(t)
	ctx := context.Background()
	a, _ := svc.CreateAccount(ctx, "u1", core.Account{ConnectionID: conn.ID, Name: "Savings", Type: core.Savings})

	if _, err := svc.RecordBalance(ctx, "u2", a.ID, core.BalancePoint{AsOf: time.Now(), Current: decimal.NewFromInt(1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign balance write should be not found, got %v", err)
	}
	if _, err := svc.ListTransactions(ctx, "u2", a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign transaction read should be not found, got %v", err)
	}
	if err := svc.DeleteAccount(ctx, "u2", a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "u2", core.Account{ConnectionID: conn.ID, Name: "x", Type: core.Checking}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("foreign connection should be invalid input, got %v", err)
	}
}

func TestAccountService_Transactions(t *testing.T) {
	svc, _, inv, conn := newAccountFixture(t)
	ctx := context.Background()
	a, _ := svc.CreateAccount(ctx, "u1", core.Account{ConnectionID: conn.ID, Name: "Checking", Type: core.Checking})
	before := len(inv.users)

	_, err := svc.CreateTransaction(ctx, "u1", a.ID, core.Transaction{
		Date: time.Now(), Description: "Coffee", Amount: decimal.RequireFromString("-3.20"), Type: core.TransactionDebit,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if len(inv.users) != before+1 {
		t.Fatalf("transaction write should invalidate the overview")
	}

	_, err = svc.CreateTransaction(ctx, "u1", a.ID, core.Transaction{Date: time.Now(), Description: "x", Amount: decimal.NewFromInt(1), Type: "transfer"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad type should be invalid input, got %v", err)
	}

	txs, _ := svc.ListTransactions(ctx, "u1", a.ID)
	if len(txs) != 1 || txs[0].AccountID != a.ID {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestAccountService_ListAccountsByConnection(t *testing.T) {
	svc, _, _, conn := newAccountFixture(t)
	ctx := context.Background()
	other, _ := svc.CreateConnection(ctx, "u1", core.Connection{Provider: "mock"})
	svc.CreateAccount(ctx, "u1", core.Account{ConnectionID: conn.ID, Name: "A", Type: core.Checking})
	svc.CreateAccount(ctx, "u1", core.Account{ConnectionID: other.ID, Name: "B", Type: core.Mortgage})

	all, _ := svc.ListAccounts(ctx, "u1", "")
	only, _ := svc.ListAccounts(ctx, "u1", other.ID)
	if len(all) != 2 || len(only) != 1 || only[0].Name != "B" {
		t.Fatalf("all=%d only=%+v", len(all), only)
	}
}

func TestAccountService_CreateConnectionValidation(t *testing.T) {
	svc := NewAccountService(memory.New(), nil, nil)
	if _, err := svc.CreateConnection(context.Background(), "u1", core.Connection{Provider: "  "}); !errors.Is(err, core.ErrEmptyProvider) {
		t.Fatalf("expected ErrEmptyProvider, got %v", err)
	}
}

func TestAccountService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := NewAccountService(memory.New(), nil, nil)
		if err := svc.Close(); err != nil {
			t.Fatalf("Close should not return error with no closers: %v", err)
		}
	})

	t.Run("collects errors", func(t *testing.T) {
		svc := NewAccountService(memory.New(), nil, nil)
		var closed int
		boom := errors.New("boom")
		svc.OnClose(closerFunc(func() error { closed++; return boom }))
		svc.OnClose(closerFunc(func() error { closed++; return nil }))
		svc.OnClose(nil)

		err := svc.Close()
		if !errors.Is(err, boom) || closed != 2 {
			t.Fatalf("err=%v closed=%d", err, closed)
		}
	})
}
