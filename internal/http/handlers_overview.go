package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"nestegg/internal/aggregate"
	"nestegg/internal/export"
	applog "nestegg/internal/log"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.overview.Overview(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(o).Write(w)
}

// handleChart returns the merged chart rows. carry_forward=1 fills gaps with
// each account's previous value instead of zero.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	opts := aggregate.ChartOptions{CarryForward: ParseFlag(r.URL.Query(), "carry_forward")}
	rows, err := s.overview.Chart(r.Context(), userID(r), opts)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(nonNil(rows)).Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	accounts, err := s.overview.History(r.Context(), user)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	rows := aggregate.BuildChartSeriesWithOptions(accounts, aggregate.ChartOptions{
		CarryForward: ParseFlag(r.URL.Query(), "carry_forward"),
	})

	// Buffer so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, accounts, rows); err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Balances exported",
		applog.FieldOperation, applog.OpExport,
		"accounts", len(accounts),
		"rows", len(rows),
		"bytes", buf.Len())

	filename := fmt.Sprintf("nestegg-balances-%s.xlsx", aggregate.DayKey(s.now()))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
