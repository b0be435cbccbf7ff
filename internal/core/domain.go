package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Connection is a link to an external institution that owns accounts.
	Connection struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Provider    string    `json:"provider"`
		ExternalID  string    `json:"externalId,omitempty"`
		Institution string    `json:"institution,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// Account is a user-linked financial holding. Balances is ascending by AsOf
	// when loaded from storage.
	Account struct {
		ID           string         `json:"id"`
		UserID       string         `json:"userId,omitempty"`
		ConnectionID string         `json:"connectionId,omitempty"`
		Name         string         `json:"name"`
		Type         AccountType    `json:"type"`
		Subtype      string         `json:"subtype,omitempty"`
		Mask         string         `json:"mask,omitempty"`
		Currency     string         `json:"currency,omitempty"`
		CreatedAt    time.Time      `json:"createdAt,omitempty"`
		UpdatedAt    time.Time      `json:"updatedAt,omitempty"`
		Balances     []BalancePoint `json:"balances"`
	}

	// BalancePoint is a snapshot of an account's value at AsOf.
	BalancePoint struct {
		ID        string              `json:"id,omitempty"`
		AccountID string              `json:"accountId,omitempty"`
		AsOf      time.Time           `json:"asOf"`
		Current   decimal.Decimal     `json:"current"`
		Available decimal.NullDecimal `json:"available,omitempty"`
		Limit     decimal.NullDecimal `json:"limit,omitempty"`
		Currency  string              `json:"isoCurrencyCode,omitempty"`
	}

	// Transaction is a single posted or pending movement on an account.
	Transaction struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"accountId"`
		Date        time.Time       `json:"date"`
		PostDate    *time.Time      `json:"postDate,omitempty"`
		Description string          `json:"description"`
		Category    string          `json:"category,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Type        string          `json:"type"`
		CreatedAt   time.Time       `json:"createdAt,omitempty"`
	}
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 500
	maxMaskLength        = 4
)

var (
	ErrUnknownAccountType = errors.New("unknown account type")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyUser          = errors.New("empty user id")
	ErrEmptyProvider      = errors.New("empty provider")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyAccount       = errors.New("empty account id")
	ErrInvalidMask        = errors.New("invalid mask")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrNotFound           = errors.New("not found")
)

func (c Connection) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(c.Provider) == "" {
		return ErrEmptyProvider
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrEmptyUser
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name too long (max %d characters)", maxNameLength)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAccountType, a.Type)
	}
	if a.Mask != "" && len(a.Mask) > maxMaskLength {
		return fmt.Errorf("%w: at most %d characters", ErrInvalidMask, maxMaskLength)
	}
	for i, b := range a.Balances {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("balance %d: %w", i, err)
		}
	}
	return nil
}

// Category is a convenience for CategoryOf(a.Type).
func (a Account) Category() Category {
	return CategoryOf(a.Type)
}

func (b BalancePoint) Validate() error {
	if b.AsOf.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLength {
		return fmt.Errorf("description too long (max %d characters)", maxDescriptionLength)
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	switch t.Type {
	case TransactionDebit, TransactionCredit:
	default:
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	return nil
}

const (
	TransactionDebit  = "debit"
	TransactionCredit = "credit"
)
