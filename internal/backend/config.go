package backend

import (
	"fmt"

	"nestegg/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		SeedMockData:        appConfig.SeedMockData,
		SeedUserID:          appConfig.SeedUserID,
		LookbackYears:       appConfig.BalanceLookbackYears,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.SeedMockData && c.SeedUserID == "" {
		return fmt.Errorf("seed user id is required to seed mock data")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
