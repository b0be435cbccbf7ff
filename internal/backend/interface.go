package backend

import (
	"context"

	"nestegg/internal/ports"
	"nestegg/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, a readiness probe and an optional
// cleanup function.
type BackendResult struct {
	Store   ports.Store
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates stores and exporters based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateExporter(ctx context.Context, config Config) (sheets.NetWorthExporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Demo data, written through the store after it opens
	SeedMockData  bool
	SeedUserID    string
	LookbackYears int

	// Google Sheets net worth export; empty ID keeps rows in memory
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
