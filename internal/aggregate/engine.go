// Package aggregate turns accounts with balance history into category
// groupings, totals, percentages and a merged chart series.
//
// Every function here is pure: inputs are never modified and each call
// returns freshly allocated values. None of them fail; empty input yields
// empty or zero output.
package aggregate

import (
	"github.com/shopspring/decimal"

	"nestegg/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Totals is the super-group summary shown above the category bars.
type Totals struct {
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	NetWorth         decimal.Decimal `json:"netWorth"`
}

// CategoryShare is one progress bar: a category's total and its share of
// the owning group's total.
type CategoryShare struct {
	Category   core.Category   `json:"category"`
	Title      string          `json:"title"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Percentage int             `json:"percentage"`
	Accounts   int             `json:"accounts"`
}

// SplitByAssetLiability partitions accounts by super-group, keeping input
// order. Accounts of an unknown type belong to neither side.
func SplitByAssetLiability(accounts []core.Account) (assets, liabilities []core.Account) {
	assets = make([]core.Account, 0, len(accounts))
	liabilities = make([]core.Account, 0)
	for _, a := range accounts {
		if core.IsAsset(a.Type) {
			assets = append(assets, a)
		} else if core.IsLiability(a.Type) {
			liabilities = append(liabilities, a)
		}
	}
	return assets, liabilities
}

// GroupByCategory buckets accounts by category. All seven categories are
// present as keys and no others; order within a bucket follows input order.
// Accounts of an unknown type are left out, as in SplitByAssetLiability.
func GroupByCategory(accounts []core.Account) map[core.Category][]core.Account {
	grouped := make(map[core.Category][]core.Account, len(core.AllCategories()))
	for _, c := range core.AllCategories() {
		grouped[c] = []core.Account{}
	}
	for _, a := range accounts {
		c := core.CategoryOf(a.Type)
		if !c.Valid() {
			continue
		}
		grouped[c] = append(grouped[c], a)
	}
	return grouped
}

// LatestPoint returns the balance point with the greatest AsOf. Equal AsOf
// values resolve to the one appearing last.
func LatestPoint(a core.Account) (core.BalancePoint, bool) {
	if len(a.Balances) == 0 {
		return core.BalancePoint{}, false
	}
	latest := a.Balances[0]
	for _, b := range a.Balances[1:] {
		if !b.AsOf.Before(latest.AsOf) {
			latest = b
		}
	}
	return latest, true
}

// LatestBalance is the Current value of LatestPoint, or zero with no history.
func LatestBalance(a core.Account) decimal.Decimal {
	p, ok := LatestPoint(a)
	if !ok {
		return decimal.Zero
	}
	return p.Current
}

// CategoryTotal sums the magnitudes of each account's latest balance.
func CategoryTotal(accounts []core.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(LatestBalance(a).Abs())
	}
	return total
}

// PercentageOfTotal returns categoryTotal as a whole percentage of
// grandTotal, rounded half away from zero, or 0 when grandTotal is not positive.
func PercentageOfTotal(categoryTotal, grandTotal decimal.Decimal) int {
	if !grandTotal.IsPositive() {
		return 0
	}
	return int(categoryTotal.Div(grandTotal).Mul(hundred).Round(0).IntPart())
}

// ComputeTotals returns the assets and liabilities magnitudes and their difference.
func ComputeTotals(accounts []core.Account) Totals {
	assets, liabilities := SplitByAssetLiability(accounts)
	t := Totals{
		TotalAssets:      CategoryTotal(assets),
		TotalLiabilities: CategoryTotal(liabilities),
	}
	t.NetWorth = t.TotalAssets.Sub(t.TotalLiabilities)
	return t
}

// Breakdown returns one CategoryShare per category of group g, in display
// order, with percentages relative to the group's total.
func Breakdown(accounts []core.Account, g core.Group) []CategoryShare {
	var members []core.Account
	for _, a := range accounts {
		if core.CategoryOf(a.Type).Group() == g {
			members = append(members, a)
		}
	}
	grouped := GroupByCategory(members)
	groupTotal := CategoryTotal(members)

	order := core.CategoriesOf(g)
	shares := make([]CategoryShare, 0, len(order))
	for _, c := range order {
		total := CategoryTotal(grouped[c])
		shares = append(shares, CategoryShare{
			Category:   c,
			Title:      core.CategoryTitle(c),
			Color:      core.CategoryColor(c),
			Total:      total,
			Percentage: PercentageOfTotal(total, groupTotal),
			Accounts:   len(grouped[c]),
		})
	}
	return shares
}

// Percentages maps every category to its share of its own group's total.
func Percentages(accounts []core.Account) map[core.Category]int {
	out := make(map[core.Category]int, len(core.AllCategories()))
	for _, g := range []core.Group{core.GroupAssets, core.GroupLiabilities} {
		for _, s := range Breakdown(accounts, g) {
			out[s.Category] = s.Percentage
		}
	}
	return out
}
