// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating JSON request
// bodies and query parameters into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nestegg/internal/core"
	"nestegg/internal/services"
)

const maxBodyBytes = 1 << 20

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// DecodeJSON reads exactly one JSON object from the body into v. Numbers are
// kept as json.Number so amounts do not pass through float64. Unknown fields
// are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return invalidInput("request body is empty")
		case errors.As(err, &maxErr):
			return invalidInput("request body exceeds %d bytes", maxErr.Limit)
		default:
			return invalidInput("malformed JSON body: %v", err)
		}
	}
	if dec.More() {
		return invalidInput("request body must contain a single JSON object")
	}
	return nil
}

// ParseTime accepts a calendar day (2006-01-02) or an RFC 3339 instant and
// returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// ParseSince reads the since query parameter, falling back to def.
func ParseSince(query url.Values, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get("since"))
	if v == "" {
		return def, nil
	}
	t, err := ParseTime(v)
	if err != nil {
		return time.Time{}, invalidInput("since: %v", err)
	}
	return t, nil
}

// ParseFlag reports whether a boolean query parameter is set. Invalid values are false.
func ParseFlag(query url.Values, key string) bool {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false
	}
	if strings.EqualFold(v, "yes") || strings.EqualFold(v, "on") {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type connectionRequest struct {
	Provider    string `json:"provider"`
	ExternalID  string `json:"externalId"`
	Institution string `json:"institution"`
}

func (c connectionRequest) toCore() core.Connection {
	return core.Connection{
		Provider:    sanitizeInput(c.Provider),
		ExternalID:  sanitizeInput(c.ExternalID),
		Institution: sanitizeInput(c.Institution),
	}
}

// balanceRequest amounts may be JSON numbers or strings such as "1,234.50".
type balanceRequest struct {
	AsOf      string `json:"asOf"`
	Current   any    `json:"current"`
	Available any    `json:"available"`
	Limit     any    `json:"limit"`
	Currency  string `json:"isoCurrencyCode"`
}

// toCore converts the request; a missing asOf means now.
func (b balanceRequest) toCore(now time.Time) (core.BalancePoint, error) {
	p := core.BalancePoint{AsOf: now.UTC(), Currency: strings.ToUpper(sanitizeInput(b.Currency))}
	if strings.TrimSpace(b.AsOf) != "" {
		t, err := ParseTime(b.AsOf)
		if err != nil {
			return core.BalancePoint{}, invalidInput("asOf: %v", err)
		}
		p.AsOf = t
	}

	if b.Current == nil {
		return core.BalancePoint{}, invalidInput("current balance is required")
	}
	var err error
	if p.Current, err = core.ParseAmount(b.Current); err != nil {
		return core.BalancePoint{}, invalidInput("current: %v", err)
	}
	if p.Available, err = core.ParseOptionalAmount(b.Available); err != nil {
		return core.BalancePoint{}, invalidInput("available: %v", err)
	}
	if p.Limit, err = core.ParseOptionalAmount(b.Limit); err != nil {
		return core.BalancePoint{}, invalidInput("limit: %v", err)
	}
	return p, nil
}

type accountRequest struct {
	ConnectionID string           `json:"connectionId"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Subtype      string           `json:"subtype"`
	Mask         string           `json:"mask"`
	Currency     string           `json:"currency"`
	Balances     []balanceRequest `json:"balances"`
}

func (a accountRequest) toCore(now time.Time) (core.Account, error) {
	t, err := core.ParseAccountType(sanitizeInput(a.Type))
	if err != nil {
		return core.Account{}, invalidInput("type: %v", err)
	}
	if strings.TrimSpace(a.ConnectionID) == "" {
		return core.Account{}, invalidInput("connectionId is required")
	}
	acc := core.Account{
		ConnectionID: strings.TrimSpace(a.ConnectionID),
		Name:         sanitizeInput(a.Name),
		Type:         t,
		Subtype:      sanitizeInput(a.Subtype),
		Mask:         sanitizeInput(a.Mask),
		Currency:     strings.ToUpper(sanitizeInput(a.Currency)),
	}
	for i, br := range a.Balances {
		p, err := br.toCore(now)
		if err != nil {
			return core.Account{}, fmt.Errorf("balances[%d]: %w", i, err)
		}
		acc.Balances = append(acc.Balances, p)
	}
	return acc, nil
}

type transactionRequest struct {
	Date        string `json:"date"`
	PostDate    string `json:"postDate"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      any    `json:"amount"`
	Type        string `json:"type"`
}

func (t transactionRequest) toCore() (core.Transaction, error) {
	date, err := ParseTime(t.Date)
	if err != nil {
		return core.Transaction{}, invalidInput("date: %v", err)
	}
	tx := core.Transaction{
		Date:        date,
		Description: sanitizeInput(t.Description),
		Category:    sanitizeInput(t.Category),
		Type:        strings.ToLower(sanitizeInput(t.Type)),
	}
	if strings.TrimSpace(t.PostDate) != "" {
		pd, err := ParseTime(t.PostDate)
		if err != nil {
			return core.Transaction{}, invalidInput("postDate: %v", err)
		}
		tx.PostDate = &pd
	}
	if tx.Amount, err = core.ParseAmount(t.Amount); err != nil {
		return core.Transaction{}, invalidInput("amount: %v", err)
	}
	return tx, nil
}
