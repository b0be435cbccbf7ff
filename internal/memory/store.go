// Package memory is an in-process implementation of the storage ports for
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nestegg/internal/core"
	"nestegg/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu          sync.RWMutex
	connections map[string]core.Connection
	accounts    map[string]core.Account
	balances    map[string][]core.BalancePoint // by account, ascending AsOf
	txs         map[string][]core.Transaction  // by account
	changed     map[string]time.Time           // last balance write per user
	exported    map[string]time.Time
	now         func() time.Time
}

func New() *Store {
	return &Store{
		connections: make(map[string]core.Connection),
		accounts:    make(map[string]core.Account),
		balances:    make(map[string][]core.BalancePoint),
		txs:         make(map[string][]core.Transaction),
		changed:     make(map[string]time.Time),
		exported:    make(map[string]time.Time),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) ListConnections(_ context.Context, userID string) ([]core.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Connection
	for _, c := range s.connections {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetConnection(_ context.Context, userID, id string) (core.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	if !ok || c.UserID != userID {
		return core.Connection{}, fmt.Errorf("connection %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateConnection(_ context.Context, c core.Connection) (core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[c.ID]; ok {
		return core.Connection{}, fmt.Errorf("connection %s already exists", c.ID)
	}
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.connections[c.ID] = c
	return c, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	return s.filterAccounts(func(a core.Account) bool { return a.UserID == userID }), nil
}

func (s *Store) ListAccountsByConnection(_ context.Context, userID, connectionID string) ([]core.Account, error) {
	return s.filterAccounts(func(a core.Account) bool {
		return a.UserID == userID && a.ConnectionID == connectionID
	}), nil
}

func (s *Store) filterAccounts(keep func(core.Account) bool) []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0)
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(accs []core.Account) {
	sort.Slice(accs, func(i, j int) bool {
		if !accs[i].CreatedAt.Equal(accs[j].CreatedAt) {
			return accs[i].CreatedAt.After(accs[j].CreatedAt)
		}
		return accs[i].ID < accs[j].ID
	})
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// CreateAccount stores a without its Balances; history goes through
// UpsertBalance.
func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return core.Account{}, fmt.Errorf("account %s already exists", a.ID)
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.Balances = nil
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	delete(s.accounts, id)
	delete(s.balances, id)
	delete(s.txs, id)
	return nil
}

func (s *Store) ListBalances(_ context.Context, accountID string, since time.Time) ([]core.BalancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSince(s.balances[accountID], since), nil
}

func filterSince(points []core.BalancePoint, since time.Time) []core.BalancePoint {
	out := make([]core.BalancePoint, 0, len(points))
	for _, b := range points {
		if !b.AsOf.Before(since) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) LatestBalance(_ context.Context, accountID string) (*core.BalancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.balances[accountID]
	if len(pts) == 0 {
		return nil, nil
	}
	b := pts[len(pts)-1]
	return &b, nil
}

// UpsertBalance replaces the point at the same AsOf, keeping its ID.
func (s *Store) UpsertBalance(_ context.Context, b core.BalancePoint) (core.BalancePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.AsOf = b.AsOf.UTC()
	pts := s.balances[b.AccountID]
	i := sort.Search(len(pts), func(i int) bool { return !pts[i].AsOf.Before(b.AsOf) })
	if i < len(pts) && pts[i].AsOf.Equal(b.AsOf) {
		b.ID = pts[i].ID
		pts[i] = b
	} else {
		pts = append(pts, core.BalancePoint{})
		copy(pts[i+1:], pts[i:])
		pts[i] = b
	}
	s.balances[b.AccountID] = pts
	if a, ok := s.accounts[b.AccountID]; ok {
		s.changed[a.UserID] = s.now()
	}
	return b, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]core.Transaction(nil), s.txs[accountID]...)
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListUserTransactions(_ context.Context, userID string, since time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for id, a := range s.accounts {
		if a.UserID != userID {
			continue
		}
		for _, t := range s.txs[id] {
			if !t.Date.Before(since) {
				out = append(out, t)
			}
		}
	}
	sortTransactions(out)
	return out, nil
}

func sortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.txs[t.AccountID] = append(s.txs[t.AccountID], t)
	return t, nil
}

func (s *Store) Overview(ctx context.Context, userID string, since time.Time) ([]core.Account, error) {
	accs, _ := s.ListAccounts(ctx, userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range accs {
		accs[i].Balances = filterSince(s.balances[accs[i].ID], since)
	}
	return accs, nil
}

func (s *Store) PendingExports(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for user, at := range s.changed {
		if last, ok := s.exported[user]; !ok || at.After(last) {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported[userID] = at
	return nil
}
