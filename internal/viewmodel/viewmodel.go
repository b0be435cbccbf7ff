// Package viewmodel projects accounts into the flat shape the dashboard renders.
package viewmodel

import (
	"github.com/shopspring/decimal"

	"nestegg/internal/aggregate"
	"nestegg/internal/core"
)

// Account is the presentation projection of a core.Account. It is derived on
// demand and never persisted.
type Account struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          core.AccountType `json:"type"`
	TypeTitle     string           `json:"typeTitle"`
	Category      core.Category    `json:"category"`
	CategoryTitle string           `json:"title"`
	Balance       decimal.Decimal  `json:"balance"`
	Color         string           `json:"color"`
	Mask          string           `json:"mask,omitempty"`
}

// ToViewModel decorates a with its latest balance and its category color.
func ToViewModel(a core.Account) Account {
	c := core.CategoryOf(a.Type)
	return Account{
		ID:            a.ID,
		Name:          a.Name,
		Type:          a.Type,
		TypeTitle:     a.Type.ShortTitle(),
		Category:      c,
		CategoryTitle: core.CategoryTitle(c),
		Balance:       aggregate.LatestBalance(a),
		Color:         core.CategoryColor(c),
		Mask:          a.Mask,
	}
}

// ToViewModels maps each account, keeping order.
func ToViewModels(accounts []core.Account) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToViewModel(a))
	}
	return out
}

// Section is one category heading with its accounts, as rendered under
// "Assets" or "Liabilities".
type Section struct {
	Category core.Category   `json:"category"`
	Title    string          `json:"title"`
	Color    string          `json:"color"`
	Total    decimal.Decimal `json:"total"`
	Accounts []Account       `json:"accounts"`
}

// Sections groups accounts of group g into display-ordered sections. Empty
// categories are kept so callers can decide whether to render them.
func Sections(accounts []core.Account, g core.Group) []Section {
	grouped := aggregate.GroupByCategory(accounts)
	order := core.CategoriesOf(g)
	out := make([]Section, 0, len(order))
	for _, c := range order {
		members := grouped[c]
		out = append(out, Section{
			Category: c,
			Title:    core.CategoryTitle(c),
			Color:    core.CategoryColor(c),
			Total:    aggregate.CategoryTotal(members),
			Accounts: ToViewModels(members),
		})
	}
	return out
}
