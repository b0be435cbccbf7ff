package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"nestegg/internal/sheets"
)

// fakeSheets records the Values calls the client makes.
type fakeSheets struct {
	mu       sync.Mutex
	header   bool
	updates  [][]any
	appends  [][]any
	paths    []string
	failNext bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	if f.failNext {
		f.failNext = false
		http.Error(w, `{"error":{"code":400,"message":"bad range"}}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		resp := gsheet.ValueRange{}
		if f.header {
			resp.Values = [][]any{sheets.Header}
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr.Values...)
		f.header = true
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRows: 1})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appends = append(f.appends, vr.Values...)
		_ = json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "'Net Worth'!A2:E2"},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c, err := New(svc, "spreadsheet-1", "Net Worth")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func testRow() sheets.NetWorthRow {
	return sheets.NetWorthRow{
		Date:             time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC),
		UserID:           "user-1",
		TotalAssets:      decimal.RequireFromString("1500.5"),
		TotalLiabilities: decimal.RequireFromString("300"),
		NetWorth:         decimal.RequireFromString("1200.5"),
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(nil, " ", "Net Worth"); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if _, err := NewFromEnv(context.Background(), "", ""); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), "spreadsheet-1", "Net Worth")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got: %v", err)
	}
}

func TestAppendNetWorth_WritesHeaderOnce(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.AppendNetWorth(ctx, testRow())
	if err != nil {
		t.Fatalf("AppendNetWorth: %v", err)
	}
	if ref != "'Net Worth'!A2:E2" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.AppendNetWorth(ctx, testRow()); err != nil {
		t.Fatalf("second AppendNetWorth: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.updates) != 1 || fake.updates[0][0] != "Date" {
		t.Fatalf("header writes = %v", fake.updates)
	}
	if len(fake.appends) != 2 {
		t.Fatalf("appends = %d, want 2", len(fake.appends))
	}
	want := []any{"2024-06-30", "user-1", "1500.50", "300.00", "1200.50"}
	for i, v := range want {
		if fake.appends[0][i] != v {
			t.Errorf("column %d = %v, want %v", i, fake.appends[0][i], v)
		}
	}
	gets := 0
	for _, p := range fake.paths {
		if strings.HasPrefix(p, http.MethodGet) {
			gets++
		}
	}
	if gets != 1 {
		t.Errorf("header read %d times, want 1", gets)
	}
}

func TestAppendNetWorth_ExistingHeader(t *testing.T) {
	fake := &fakeSheets{header: true}
	c := newTestClient(t, fake)

	if _, err := c.AppendNetWorth(context.Background(), testRow()); err != nil {
		t.Fatalf("AppendNetWorth: %v", err)
	}
	if len(fake.updates) != 0 {
		t.Errorf("header rewritten: %v", fake.updates)
	}
}

func TestAppendNetWorth_Errors(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Net Worth"}
	row := testRow()
	row.UserID = ""
	if _, err := c.AppendNetWorth(context.Background(), row); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := c.AppendNetWorth(context.Background(), testRow()); err == nil {
		t.Fatal("expected error without a service")
	}

	fake := &fakeSheets{header: true, failNext: true}
	live := newTestClient(t, fake)
	if _, err := live.AppendNetWorth(context.Background(), testRow()); err == nil {
		t.Fatal("expected error from a failing API")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"NetWorth":   "NetWorth",
		"Net Worth":  "'Net Worth'",
		"Bob's 2024": "'Bob''s 2024'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
