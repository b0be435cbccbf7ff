package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes a decimal that may arrive as a string ("1234.50",
// "1,234.50", "€ 12,30", "1e3") or a JSON number into a decimal.Decimal.
// Letters and other stray characters are an ErrInvalidAmount.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case string:
		return parseAmountString(x)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// ParseOptionalAmount is ParseAmount for nullable columns; empty input is null.
func ParseOptionalAmount(v any) (decimal.NullDecimal, error) {
	if v == nil {
		return decimal.NullDecimal{}, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseAmount(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseAmountString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}

	// Currency symbols, spaces and apostrophe grouping are dropped. Any
	// other rune outside digits, signs and separators is rejected.
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+':
			b.WriteRune(r)
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), r == '\'', r == '’':
		default:
			return decimal.Zero, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidAmount, r, s)
		}
	}
	s = b.String()

	// "1.234,56" uses comma decimals; "1,234.56" uses comma grouping.
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot && lastDot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma > lastDot:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// FormatAmount renders d with two decimal places, the scale balances are stored at.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
