package mockdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nestegg/internal/aggregate"
	"nestegg/internal/core"
	"nestegg/internal/memory"
	"nestegg/internal/ports"
	"nestegg/internal/storage"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestGenerateIsDeterministic(t *testing.T) {
	_, a := Generate("u1", now, 3)
	_, b := Generate("u1", now, 3)
	if len(a) != 6 {
		t.Fatalf("expected 6 accounts, got %d", len(a))
	}
	for i := range a {
		if len(a[i].Balances) != len(b[i].Balances) {
			t.Fatalf("history length differs for %s", a[i].ID)
		}
		for j := range a[i].Balances {
			if !a[i].Balances[j].Current.Equal(b[i].Balances[j].Current) {
				t.Fatalf("%s point %d differs", a[i].ID, j)
			}
		}
	}
}

func TestGenerateShape(t *testing.T) {
	conns, accs := Generate("u1", now, 3)
	if len(conns) != 2 || conns[0].ID != "mock-connection-1-u1" {
		t.Fatalf("unexpected connections: %+v", conns)
	}
	for _, a := range accs {
		if err := a.Validate(); err != nil {
			t.Fatalf("%s invalid: %v", a.Name, err)
		}
		// Three years of monthly points, both ends included.
		if len(a.Balances) != 37 {
			t.Fatalf("%s has %d points", a.Name, len(a.Balances))
		}
		for i := 1; i < len(a.Balances); i++ {
			if !a.Balances[i].AsOf.After(a.Balances[i-1].AsOf) {
				t.Fatalf("%s history not ascending", a.Name)
			}
		}
		if aggregate.LatestBalance(a).IsNegative() {
			t.Fatalf("%s has a negative balance", a.Name)
		}
	}

	card := accs[2]
	if card.Type != core.CreditCard || !card.Balances[0].Limit.Valid {
		t.Fatalf("credit card should carry a limit: %+v", card.Balances[0])
	}
	loan := accs[4]
	first, last := loan.Balances[0].Current, aggregate.LatestBalance(loan)
	if !first.GreaterThan(last) {
		t.Fatalf("loan should amortize: %s -> %s", first, last)
	}
}

func TestGenerateAnchorsToMonth(t *testing.T) {
	_, a := Generate("u1", now, 1)
	_, b := Generate("u1", now.Add(36*time.Hour), 1)
	for i := range a {
		pa, pb := a[i].Balances, b[i].Balances
		if len(pa) != len(pb) {
			t.Fatalf("%s: %d points vs %d", a[i].ID, len(pa), len(pb))
		}
		for j := range pa {
			if pa[j].ID != pb[j].ID || !pa[j].AsOf.Equal(pb[j].AsOf) || !pa[j].Current.Equal(pb[j].Current) {
				t.Fatalf("%s point %d moved within the month: %+v vs %+v", a[i].ID, j, pa[j], pb[j])
			}
		}
		last := pa[len(pa)-1].AsOf
		if !last.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("latest point at %s, want first of the month", last)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	later := now.Add(3 * time.Hour)
	nextMonth := now.AddDate(0, 1, 0)

	stores := map[string]func(t *testing.T) ports.Store{
		"memory": func(*testing.T) ports.Store { return memory.New() },
		"sqlite": func(t *testing.T) ports.Store {
			repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "seed.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			if err := Seed(ctx, s, "u1", now, 1); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if err := Seed(ctx, s, "u1", later, 1); err != nil {
				t.Fatalf("reseed later the same month: %v", err)
			}

			accs, err := s.Overview(ctx, "u1", time.Time{})
			if err != nil {
				t.Fatalf("overview: %v", err)
			}
			if len(accs) != 6 {
				t.Fatalf("expected 6 accounts, got %d", len(accs))
			}
			if len(accs[0].Balances) != 13 {
				t.Fatalf("expected 13 monthly points, got %d", len(accs[0].Balances))
			}
			conns, _ := s.ListConnections(ctx, "u1")
			if len(conns) != 2 {
				t.Fatalf("expected 2 connections, got %d", len(conns))
			}
			txs, _ := s.ListUserTransactions(ctx, "u1", time.Time{})
			if len(txs) < 30 {
				t.Fatalf("expected at least 30 transactions, got %d", len(txs))
			}

			// A month later the new month is appended and nothing else changes.
			if err := Seed(ctx, s, "u1", nextMonth, 1); err != nil {
				t.Fatalf("reseed next month: %v", err)
			}
			accs, err = s.Overview(ctx, "u1", time.Time{})
			if err != nil {
				t.Fatalf("overview: %v", err)
			}
			if len(accs) != 6 || len(accs[0].Balances) != 14 {
				t.Fatalf("after next month: %d accounts, %d points", len(accs), len(accs[0].Balances))
			}
			again, _ := s.ListUserTransactions(ctx, "u1", time.Time{})
			if len(again) != len(txs) {
				t.Fatalf("transactions reseeded: %d -> %d", len(txs), len(again))
			}
		})
	}
}
