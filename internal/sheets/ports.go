package sheets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/aggregate"
)

// Header is the first row of a net worth sheet.
var Header = []any{"Date", "User", "Total assets", "Total liabilities", "Net worth"}

var ErrEmptyUser = errors.New("net worth row without user id")

// NetWorthRow is one line of a user's exported net worth history.
type NetWorthRow struct {
	Date             time.Time
	UserID           string
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	NetWorth         decimal.Decimal
}

// NewNetWorthRow snapshots totals for userID on the UTC day of at.
func NewNetWorthRow(userID string, at time.Time, t aggregate.Totals) NetWorthRow {
	return NetWorthRow{
		Date:             at.UTC(),
		UserID:           userID,
		TotalAssets:      t.TotalAssets,
		TotalLiabilities: t.TotalLiabilities,
		NetWorth:         t.NetWorth,
	}
}

func (r NetWorthRow) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrEmptyUser
	}
	return nil
}

// Values renders the row in Header order. Amounts keep two decimals so the
// sheet can parse them as numbers.
func (r NetWorthRow) Values() []any {
	return []any{
		aggregate.DayKey(r.Date),
		r.UserID,
		r.TotalAssets.StringFixed(2),
		r.TotalLiabilities.StringFixed(2),
		r.NetWorth.StringFixed(2),
	}
}

// Ports for outbound adapters.
type (
	// NetWorthExporter appends net worth snapshots to an external sheet.
	NetWorthExporter interface {
		AppendNetWorth(ctx context.Context, row NetWorthRow) (rowRef string, err error)
	}
)
