package backend

import (
	"context"
	"fmt"
	"time"

	applog "nestegg/internal/log"
	"nestegg/internal/memory"
	"nestegg/internal/mockdata"
	"nestegg/internal/ports"
	"nestegg/internal/sheets"
	gsheet "nestegg/internal/sheets/google"
	sheetsmem "nestegg/internal/sheets/memory"
	"nestegg/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		result = &BackendResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		result = &BackendResult{
			Store: memory.New(),
			Ping:  func(context.Context) error { return nil },
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.SeedMockData {
		if err := f.seed(ctx, result.Store, config); err != nil {
			if result.Cleanup != nil {
				_ = result.Cleanup()
			}
			return nil, err
		}
	}
	return result, nil
}

func (f *DefaultFactory) seed(ctx context.Context, store ports.Store, config Config) error {
	years := config.LookbackYears
	if years < 1 {
		years = 3
	}
	if err := mockdata.Seed(ctx, store, config.SeedUserID, f.now(), years); err != nil {
		return fmt.Errorf("seed mock data: %w", err)
	}
	f.logger.Info("Seeded mock data", applog.FieldUserID, config.SeedUserID, "years", years)
	return nil
}

// CreateExporter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-memory one otherwise.
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.NetWorthExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Warn("No spreadsheet configured, net worth rows stay in memory")
		return sheetsmem.New(), nil
	}
	cli, err := gsheet.NewFromEnv(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	return cli, nil
}
