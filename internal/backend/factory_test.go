package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"nestegg/internal/config"
	applog "nestegg/internal/log"
	sheetsmem "nestegg/internal/sheets/memory"
)

func newTestFactory() *DefaultFactory {
	f := NewFactory(applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)}))
	f.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return f
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:          "sqlite",
		SQLiteDBPath:         "/tmp/x.db",
		SeedMockData:         true,
		SeedUserID:           "demo",
		BalanceLookbackYears: 2,
		GoogleSpreadsheetID:  "sheet",
		GoogleSheetName:      "Net Worth",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.SeedUserID != "demo" || got.LookbackYears != 2 || got.GoogleSheetName != "Net Worth" {
		t.Fatalf("config = %+v", got)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "postgres"}, true},
		{"seed without user", Config{Type: MemoryBackend, SeedMockData: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_MemorySeeded(t *testing.T) {
	ctx := context.Background()
	res, err := newTestFactory().CreateBackend(ctx, Config{
		Type:          MemoryBackend,
		SeedMockData:  true,
		SeedUserID:    "demo",
		LookbackYears: 1,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}
	if err := res.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	accounts, err := res.Store.ListAccounts(ctx, "demo")
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 6 {
		t.Fatalf("seeded %d accounts, want 6", len(accounts))
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nestegg.db")
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: path, SeedMockData: true, SeedUserID: "demo", LookbackYears: 1}

	f := newTestFactory()
	res, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if err := res.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	// Seeding again against the same file keeps a single portfolio.
	res, err = f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend again: %v", err)
	}
	defer res.Cleanup()
	accounts, err := res.Store.ListAccounts(ctx, "demo")
	if err != nil || len(accounts) != 6 {
		t.Fatalf("accounts = %d, %v", len(accounts), err)
	}
}

func TestCreateExporter_DefaultsToMemory(t *testing.T) {
	exp, err := newTestFactory().CreateExporter(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateExporter: %v", err)
	}
	if _, ok := exp.(*sheetsmem.Exporter); !ok {
		t.Fatalf("exporter = %T, want *memory.Exporter", exp)
	}
}

func TestCreateExporter_SheetsNeedsCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newTestFactory().CreateExporter(context.Background(), Config{
		Type:                MemoryBackend,
		GoogleSpreadsheetID: "sheet",
		GoogleSheetName:     "Net Worth",
	})
	if err == nil {
		t.Fatal("expected credentials error")
	}
}
