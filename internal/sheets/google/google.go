package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"nestegg/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const valueInputOption = "USER_ENTERED"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu            sync.Mutex
	headerChecked bool
}

// Ensure interface conformance
var _ sheets.NetWorthExporter = (*Client)(nil)

// New wraps an existing Sheets service. Tests point svc at a fake endpoint.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Net Worth"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// NewFromEnv creates a Sheets client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName)
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// AppendNetWorth appends row below the last filled row of the sheet and
// returns the updated range, e.g. "'Net Worth'!A7:E7".
func (c *Client) AppendNetWorth(ctx context.Context, row sheets.NetWorthRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureHeader(ctx); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A:E", quoteSheet(c.sheetName))
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// ensureHeader writes the header row once when A1 is empty.
func (c *Client) ensureHeader(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headerChecked {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:E1", quoteSheet(c.sheetName))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{sheets.Header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInputOption).Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header to %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Wrote net worth header", "sheet", c.sheetName)
	}
	c.headerChecked = true
	return nil
}

// quoteSheet quotes names with spaces or punctuation for A1 notation.
func quoteSheet(name string) string {
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_')
	}) < 0 {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
