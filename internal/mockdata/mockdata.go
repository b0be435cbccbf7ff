// Package mockdata generates a demo portfolio: two connections, six accounts
// and monthly balance history reaching back a number of years.
package mockdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/core"
	"nestegg/internal/ports"
)

type accountSpec struct {
	n       int
	conn    int
	name    string
	typ     core.AccountType
	subtype string
	mask    string
	history func(r *rand.Rand, id string, months []time.Time) []core.BalancePoint
}

var specs = []accountSpec{
	{1, 1, "Chase Total Checking", core.Checking, "checking", "1234", growth(5000, 8000, 0.05)},
	{2, 1, "High Yield Savings", core.Savings, "savings", "5678", growth(25000, 35000, 0.05)},
	{3, 1, "Chase Sapphire Reserve", core.CreditCard, "credit card", "9012", credit(2000, 5000)},
	{4, 2, "Fidelity Investment Account", core.Brokerage, "brokerage", "3456", growth(15000, 25000, 0.15)},
	{5, 2, "Auto Loan", core.AutoLoan, "auto", "7890", loan(18000, 5000)},
	{6, 1, "401(k) Retirement", core.Investment401k, "401k", "2468", growth(120000, 180000, 0.15)},
}

// Generate returns the demo connections and accounts for userID, with a
// balance point on the first of every month (UTC) from years before the
// month of now up to it. Output is a pure function of its arguments, and
// the history only changes when now enters a new month.
func Generate(userID string, now time.Time, years int) ([]core.Connection, []core.Account) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(-years, 0, 0)
	months := monthlyDates(start, end)

	conns := []core.Connection{
		{ID: "mock-connection-1-" + userID, UserID: userID, Provider: "mock", Institution: "Chase", CreatedAt: start, UpdatedAt: now},
		{ID: "mock-connection-2-" + userID, UserID: userID, Provider: "mock", Institution: "Fidelity", CreatedAt: start, UpdatedAt: now},
	}

	accounts := make([]core.Account, 0, len(specs))
	for _, s := range specs {
		id := fmt.Sprintf("mock-account-%d-%s", s.n, userID)
		r := rand.New(rand.NewPCG(seedOf(id), uint64(end.Year())))
		accounts = append(accounts, core.Account{
			ID:           id,
			UserID:       userID,
			ConnectionID: fmt.Sprintf("mock-connection-%d-%s", s.conn, userID),
			Name:         s.name,
			Type:         s.typ,
			Subtype:      s.subtype,
			Mask:         s.mask,
			Currency:     "USD",
			// Staggered so newest-first listings are stable.
			CreatedAt: start.Add(time.Duration(s.n) * time.Minute),
			UpdatedAt: now,
			Balances:  s.history(r, id, months),
		})
	}
	return conns, accounts
}

// Transactions returns a month of everyday activity on the checking account.
func Transactions(userID string, now time.Time) []core.Transaction {
	now = now.UTC().Truncate(24 * time.Hour)
	accountID := "mock-account-1-" + userID
	r := rand.New(rand.NewPCG(seedOf(accountID), 7))
	merchants := []string{"Grocery Store", "Coffee Shop", "Gas Station", "Restaurant", "Pharmacy"}

	var out []core.Transaction
	for d := 29; d >= 0; d-- {
		date := now.AddDate(0, 0, -d)
		amount := decimal.NewFromFloat(5 + r.Float64()*95).Round(2).Neg()
		out = append(out, core.Transaction{
			ID:          fmt.Sprintf("mock-tx-%s-%d", userID, d),
			AccountID:   accountID,
			Date:        date,
			Description: merchants[r.IntN(len(merchants))],
			Category:    "spending",
			Amount:      amount,
			Type:        core.TransactionDebit,
			CreatedAt:   date,
		})
		if date.Day() == 1 || date.Day() == 15 {
			out = append(out, core.Transaction{
				ID:          fmt.Sprintf("mock-pay-%s-%d", userID, d),
				AccountID:   accountID,
				Date:        date,
				Description: "Payroll Deposit",
				Category:    "income",
				Amount:      decimal.NewFromInt(3200),
				Type:        core.TransactionCredit,
				CreatedAt:   date,
			})
		}
	}
	return out
}

// Seed writes the demo portfolio through store. Connections, accounts and
// transactions are written once. Balance points upsert on (account, as of),
// so seeding again adds only the months that are new since the last run.
func Seed(ctx context.Context, store ports.Store, userID string, now time.Time, years int) error {
	conns, accounts := Generate(userID, now, years)

	existing, err := store.ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.ID] = true
	}

	if len(existing) == 0 {
		for _, c := range conns {
			if _, err := store.CreateConnection(ctx, c); err != nil {
				return fmt.Errorf("seed connection %s: %w", c.ID, err)
			}
		}
	}

	for _, a := range accounts {
		if !have[a.ID] {
			if _, err := store.CreateAccount(ctx, a); err != nil {
				return fmt.Errorf("seed account %s: %w", a.ID, err)
			}
		}
		for _, b := range a.Balances {
			if _, err := store.UpsertBalance(ctx, b); err != nil {
				return fmt.Errorf("seed balance for %s: %w", a.ID, err)
			}
		}
	}

	if len(existing) == 0 {
		for _, t := range Transactions(userID, now) {
			if _, err := store.CreateTransaction(ctx, t); err != nil {
				return fmt.Errorf("seed transaction %s: %w", t.ID, err)
			}
		}
	}
	return nil
}

func monthlyDates(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 1, 0) {
		out = append(out, d)
	}
	return out
}

func seedOf(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func step(from, to float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	return (to - from) / float64(n-1)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// point ids are keyed by day so a point keeps its id when the window moves.
func point(id string, asOf time.Time, current float64) core.BalancePoint {
	return core.BalancePoint{
		ID:        fmt.Sprintf("%s-balance-%s", id, asOf.Format("20060102")),
		AccountID: id,
		AsOf:      asOf,
		Current:   money(current),
		Currency:  "USD",
	}
}

// growth drifts linearly from start to end with symmetric noise scaled by
// volatility.
func growth(start, end, volatility float64) func(*rand.Rand, string, []time.Time) []core.BalancePoint {
	return func(r *rand.Rand, id string, months []time.Time) []core.BalancePoint {
		out := make([]core.BalancePoint, 0, len(months))
		delta := step(start, end, len(months))
		balance := start
		for _, m := range months {
			v := max(0, balance+balance*volatility*(r.Float64()-0.5)*2)
			p := point(id, m, v)
			p.Available = decimal.NewNullDecimal(p.Current)
			out = append(out, p)
			balance += delta
		}
		return out
	}
}

// credit pays a card down toward 500 while staying under limit.
func credit(start, limit float64) func(*rand.Rand, string, []time.Time) []core.BalancePoint {
	return func(r *rand.Rand, id string, months []time.Time) []core.BalancePoint {
		out := make([]core.BalancePoint, 0, len(months))
		delta := step(start, 500, len(months))
		balance := start
		for _, m := range months {
			v := max(0, min(limit, balance+balance*0.1*(r.Float64()-0.5)*2))
			p := point(id, m, v)
			p.Available = decimal.NewNullDecimal(money(limit - v))
			p.Limit = decimal.NewNullDecimal(money(limit))
			out = append(out, p)
			balance = max(0, balance+delta)
		}
		return out
	}
}

// loan amortizes linearly from start down to floor.
func loan(start, floor float64) func(*rand.Rand, string, []time.Time) []core.BalancePoint {
	return func(_ *rand.Rand, id string, months []time.Time) []core.BalancePoint {
		out := make([]core.BalancePoint, 0, len(months))
		delta := step(start, floor, len(months))
		balance := start
		for _, m := range months {
			out = append(out, point(id, m, balance))
			balance = max(floor, balance+delta)
		}
		return out
	}
}
