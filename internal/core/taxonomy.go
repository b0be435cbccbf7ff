package core

import (
	"fmt"
	"strings"
)

// AccountType is the closed set of holdings a user can link.
type AccountType string

// Category is the coarse display bucket an AccountType belongs to.
type Category string

// Group is the super-group a Category belongs to.
type Group string

const (
	// Cash
	Checking    AccountType = "checking"
	Savings     AccountType = "savings"
	MoneyMarket AccountType = "money_market"
	CD          AccountType = "cd"
	CashAccount AccountType = "cash"
	Prepaid     AccountType = "prepaid"

	// Investments
	Investment401k  AccountType = "investment_401k"
	RothIRA         AccountType = "roth_ira"
	TraditionalIRA  AccountType = "traditional_ira"
	Brokerage       AccountType = "brokerage"
	Crypto          AccountType = "crypto"
	HSA             AccountType = "hsa"
	OtherInvestment AccountType = "other_investment"

	// Property
	PropertyAccount AccountType = "property"
	RealEstate      AccountType = "real_estate"

	// Credit cards
	CreditCard AccountType = "credit_card"

	// Loans
	AutoLoan     AccountType = "auto_loan"
	StudentLoan  AccountType = "student_loan"
	Mortgage     AccountType = "mortgage"
	PersonalLoan AccountType = "personal_loan"
	HELOC        AccountType = "heloc"
	OtherLoan    AccountType = "other_loan"

	Other AccountType = "other"
)

const (
	CategoryCash             Category = "cash"
	CategoryInvestments      Category = "investments"
	CategoryProperty         Category = "property"
	CategoryOtherAssets      Category = "other_assets"
	CategoryCreditCards      Category = "credit_cards"
	CategoryLoans            Category = "loans"
	CategoryOtherLiabilities Category = "other_liabilities"
)

const (
	GroupAssets      Group = "assets"
	GroupLiabilities Group = "liabilities"
)

type typeMeta struct {
	title      string
	shortTitle string
	color      string
	category   Category
}

type categoryMeta struct {
	title string
	color string
	group Group
}

// accountTypes lists every AccountType in display order. A type added to the
// const block above must be added here and to typeTable; TestTaxonomyIsTotal
// fails otherwise.
var accountTypes = []AccountType{
	Checking, Savings, MoneyMarket, CD, CashAccount, Prepaid,
	Investment401k, RothIRA, TraditionalIRA, Brokerage, Crypto, HSA, OtherInvestment,
	PropertyAccount, RealEstate,
	CreditCard,
	AutoLoan, StudentLoan, Mortgage, PersonalLoan, HELOC, OtherLoan,
	Other,
}

var typeTable = map[AccountType]typeMeta{
	Checking:    {title: "Checking", color: "bg-blue-500", category: CategoryCash},
	Savings:     {title: "Savings", color: "bg-green-500", category: CategoryCash},
	MoneyMarket: {title: "Money Market", color: "bg-cyan-500", category: CategoryCash},
	CD:          {title: "Certificate of Deposit", shortTitle: "CD", color: "bg-teal-500", category: CategoryCash},
	CashAccount: {title: "Cash", color: "bg-emerald-500", category: CategoryCash},
	Prepaid:     {title: "Prepaid", color: "bg-lime-500", category: CategoryCash},

	Investment401k:  {title: "401(k)", shortTitle: "401k", color: "bg-purple-500", category: CategoryInvestments},
	RothIRA:         {title: "Roth IRA", shortTitle: "Roth IRA", color: "bg-violet-500", category: CategoryInvestments},
	TraditionalIRA:  {title: "Traditional IRA", shortTitle: "IRA", color: "bg-indigo-500", category: CategoryInvestments},
	Brokerage:       {title: "Brokerage", shortTitle: "Individual", color: "bg-purple-600", category: CategoryInvestments},
	Crypto:          {title: "Cryptocurrency", shortTitle: "Crypto", color: "bg-orange-500", category: CategoryInvestments},
	HSA:             {title: "Health Savings Account", shortTitle: "HSA", color: "bg-pink-500", category: CategoryInvestments},
	OtherInvestment: {title: "Other Investment", color: "bg-fuchsia-500", category: CategoryInvestments},

	PropertyAccount: {title: "Property", color: "bg-amber-500", category: CategoryProperty},
	RealEstate:      {title: "Real Estate", color: "bg-yellow-500", category: CategoryProperty},

	CreditCard: {title: "Credit Card", color: "bg-red-500", category: CategoryCreditCards},

	AutoLoan:     {title: "Auto Loan", color: "bg-yellow-600", category: CategoryLoans},
	StudentLoan:  {title: "Student Loan", color: "bg-yellow-700", category: CategoryLoans},
	Mortgage:     {title: "Mortgage", color: "bg-amber-600", category: CategoryLoans},
	PersonalLoan: {title: "Personal Loan", color: "bg-yellow-500", category: CategoryLoans},
	HELOC:        {title: "Home Equity Line of Credit", shortTitle: "HELOC", color: "bg-orange-600", category: CategoryLoans},
	OtherLoan:    {title: "Other Loan", color: "bg-yellow-800", category: CategoryLoans},

	Other: {title: "Other", color: "bg-gray-500", category: CategoryOtherAssets},
}

var categoryTable = map[Category]categoryMeta{
	CategoryCash:             {title: "Cash", color: "#3b82f6", group: GroupAssets},
	CategoryInvestments:      {title: "Investments", color: "#a855f7", group: GroupAssets},
	CategoryProperty:         {title: "Property", color: "#f59e0b", group: GroupAssets},
	CategoryOtherAssets:      {title: "Other Assets", color: "#6b7280", group: GroupAssets},
	CategoryCreditCards:      {title: "Credit Cards", color: "#ef4444", group: GroupLiabilities},
	CategoryLoans:            {title: "Loans", color: "#eab308", group: GroupLiabilities},
	CategoryOtherLiabilities: {title: "Other Liabilities", color: "#4b5563", group: GroupLiabilities},
}

var (
	assetCategoryOrder     = []Category{CategoryCash, CategoryInvestments, CategoryProperty, CategoryOtherAssets}
	liabilityCategoryOrder = []Category{CategoryCreditCards, CategoryLoans, CategoryOtherLiabilities}
)

// AllAccountTypes returns every account type in display order.
func AllAccountTypes() []AccountType {
	return append([]AccountType(nil), accountTypes...)
}

// AllCategories returns the seven categories, assets first, each group in display order.
func AllCategories() []Category {
	out := make([]Category, 0, len(assetCategoryOrder)+len(liabilityCategoryOrder))
	out = append(out, assetCategoryOrder...)
	return append(out, liabilityCategoryOrder...)
}

// AssetCategoryOrder returns the display order of the Assets group.
func AssetCategoryOrder() []Category {
	return append([]Category(nil), assetCategoryOrder...)
}

// LiabilityCategoryOrder returns the display order of the Liabilities group.
func LiabilityCategoryOrder() []Category {
	return append([]Category(nil), liabilityCategoryOrder...)
}

// ParseAccountType converts a storage or transport tag into an AccountType.
// It is the only place an unknown tag can enter the system.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAccountType, s)
	}
	return t, nil
}

// ParseCategory converts a tag into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (t AccountType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

func (t AccountType) String() string { return string(t) }

// Category returns the category t belongs to.
func (t AccountType) Category() Category { return CategoryOf(t) }

// Title returns the long display title, e.g. "Certificate of Deposit".
func (t AccountType) Title() string { return typeTable[t].title }

// ShortTitle returns the abbreviated title, falling back to Title.
func (t AccountType) ShortTitle() string {
	m := typeTable[t]
	if m.shortTitle != "" {
		return m.shortTitle
	}
	return m.title
}

// Color returns the per-type presentation class.
func (t AccountType) Color() string { return typeTable[t].color }

func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

func (c Category) String() string { return string(c) }

// Title returns the display title of the category.
func (c Category) Title() string { return categoryTable[c].title }

// Color returns the category's hex color.
func (c Category) Color() string { return categoryTable[c].color }

// Group returns the super-group the category belongs to.
func (c Category) Group() Group { return categoryTable[c].group }

// CategoryOf maps an account type to its category.
func CategoryOf(t AccountType) Category {
	return typeTable[t].category
}

// CategoryTitle returns the display title of c.
func CategoryTitle(c Category) string { return c.Title() }

// CategoryColor returns the display color of c.
func CategoryColor(c Category) string { return c.Color() }

func TypeTitle(t AccountType) string      { return t.Title() }
func TypeShortTitle(t AccountType) string { return t.ShortTitle() }
func TypeColor(t AccountType) string      { return t.Color() }

// IsAsset reports whether t belongs to the Assets group.
func IsAsset(t AccountType) bool {
	return CategoryOf(t).Group() == GroupAssets
}

// IsLiability reports whether t belongs to the Liabilities group.
func IsLiability(t AccountType) bool {
	return CategoryOf(t).Group() == GroupLiabilities
}

// CategoriesOf returns the display order of categories in group g.
func CategoriesOf(g Group) []Category {
	switch g {
	case GroupAssets:
		return AssetCategoryOrder()
	case GroupLiabilities:
		return LiabilityCategoryOrder()
	default:
		return nil
	}
}
