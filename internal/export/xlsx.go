// Package export renders a user's accounts and balance history as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"nestegg/internal/aggregate"
	"nestegg/internal/core"
)

const (
	AccountsSheet = "Accounts"
	HistorySheet  = "History"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var accountHeaders = []string{"Name", "Type", "Category", "Group", "Mask", "Latest balance", "As of"}

// WriteWorkbook writes two sheets: one row per account with its latest
// balance, and the merged daily chart series with one column per account.
func WriteWorkbook(w io.Writer, accounts []core.Account, rows []aggregate.ChartRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AccountsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeAccounts(f, accounts); err != nil {
		return err
	}

	if _, err := f.NewSheet(HistorySheet); err != nil {
		return fmt.Errorf("create history sheet: %w", err)
	}
	if err := writeHistory(f, accounts, rows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeAccounts(f *excelize.File, accounts []core.Account) error {
	if err := f.SetSheetRow(AccountsSheet, "A1", &accountHeaders); err != nil {
		return fmt.Errorf("write account headers: %w", err)
	}

	for i, a := range accounts {
		asOf := ""
		if p, ok := aggregate.LatestPoint(a); ok {
			asOf = aggregate.DayKey(p.AsOf)
		}
		c := a.Category()
		balance, _ := aggregate.LatestBalance(a).Float64()
		row := []any{a.Name, a.Type.Title(), c.Title(), string(c.Group()), a.Mask, balance, asOf}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(AccountsSheet, cell, &row); err != nil {
			return fmt.Errorf("write account %s: %w", a.ID, err)
		}
	}

	_ = f.SetColWidth(AccountsSheet, "A", "A", 30)
	_ = f.SetColWidth(AccountsSheet, "B", "D", 18)
	_ = f.SetColWidth(AccountsSheet, "F", "G", 14)
	return nil
}

func writeHistory(f *excelize.File, accounts []core.Account, rows []aggregate.ChartRow) error {
	names := make(map[string]string, len(accounts))
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
		ids = append(ids, a.ID)
	}
	sort.SliceStable(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })

	header := []any{"Date", "Total"}
	for _, id := range ids {
		header = append(header, names[id])
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &header); err != nil {
		return fmt.Errorf("write history headers: %w", err)
	}

	for i, r := range rows {
		total, _ := r.Total.Float64()
		line := []any{r.Date, total}
		for _, id := range ids {
			v, _ := r.Values[id].Float64()
			line = append(line, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(HistorySheet, cell, &line); err != nil {
			return fmt.Errorf("write history row %s: %w", r.Date, err)
		}
	}
	return nil
}
