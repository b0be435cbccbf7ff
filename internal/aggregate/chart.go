package aggregate

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/core"
)

// DateLayout is the day key used by chart rows and the calendar.
const DateLayout = "2006-01-02"

// ChartRow is one x-axis point of the merged balance chart.
type ChartRow struct {
	Date   string
	Total  decimal.Decimal
	Values map[string]decimal.Decimal
}

// ChartOptions tunes BuildChartSeriesWithOptions.
type ChartOptions struct {
	// CarryForward fills a day with no point for an account using that
	// account's most recent earlier value instead of zero.
	CarryForward bool
}

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// BuildChartSeries merges every account's history into one row per distinct
// day, ascending. An account with no point on a day contributes zero.
func BuildChartSeries(accounts []core.Account) []ChartRow {
	return BuildChartSeriesWithOptions(accounts, ChartOptions{})
}

// BuildChartSeriesWithOptions is BuildChartSeries with explicit options.
func BuildChartSeriesWithOptions(accounts []core.Account, opts ChartOptions) []ChartRow {
	// byDay[i][day] is the first point of account i on that day.
	byDay := make([]map[string]decimal.Decimal, len(accounts))
	seen := make(map[string]struct{})
	for i, a := range accounts {
		byDay[i] = make(map[string]decimal.Decimal, len(a.Balances))
		for _, b := range a.Balances {
			day := DayKey(b.AsOf)
			if _, dup := byDay[i][day]; !dup {
				byDay[i][day] = b.Current
			}
			seen[day] = struct{}{}
		}
	}

	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)

	last := make([]decimal.Decimal, len(accounts))
	rows := make([]ChartRow, 0, len(days))
	for _, day := range days {
		row := ChartRow{
			Date:   day,
			Total:  decimal.Zero,
			Values: make(map[string]decimal.Decimal, len(accounts)),
		}
		for i, a := range accounts {
			v, ok := byDay[i][day]
			switch {
			case ok:
				last[i] = v
			case opts.CarryForward:
				v = last[i]
			default:
				v = decimal.Zero
			}
			row.Values[a.ID] = v
			row.Total = row.Total.Add(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// MarshalJSON flattens the row to {"date": ..., "total": ..., "<accountId>": ...}.
// Account ids come after date and total, sorted.
func (r ChartRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField := func(k string, v any) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if err := writeField("date", r.Date); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeField("total", r.Total); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(r.Values))
	for id := range r.Values {
		if id == "date" || id == "total" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		buf.WriteByte(',')
		if err := writeField(id, r.Values[id]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DailyNet sums transaction amounts per UTC day for the calendar heat-map.
func DailyNet(txs []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		day := DayKey(tx.Date)
		out[day] = out[day].Add(tx.Amount)
	}
	return out
}
