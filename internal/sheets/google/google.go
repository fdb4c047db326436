package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
	"fintrack/internal/storage"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and tabs used by the client.
type Config struct {
	SpreadsheetID      string
	EntriesSheet       string
	BudgetSheet        string
	ReportSheet        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// valuesAPI is the subset of the Sheets values API the client needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]interface{}, error)
	Update(ctx context.Context, rng string, values [][]interface{}) error
	Clear(ctx context.Context, rng string) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	entriesSheet  string
	budgetSheet   string
	reportSheet   string
}

// Ensure interface conformance
var (
	_ storage.Store      = (*Client)(nil)
	_ ports.ReportWriter = (*Client)(nil)
)

var (
	entriesHeader = []interface{}{"ID", "Type", "Category", "Amount", "Date"}
	budgetHeader  = []interface{}{"Income Budget", "Expense Budget"}
	reportHeader  = []interface{}{"Category", "Income", "Expenses", "Combined"}
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	return &Client{
		values:        values,
		spreadsheetID: cfg.SpreadsheetID,
		entriesSheet:  orDefault(cfg.EntriesSheet, "Entries"),
		budgetSheet:   orDefault(cfg.BudgetSheet, "Budget"),
		reportSheet:   orDefault(cfg.ReportSheet, "Report"),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither inline JSON nor a file is configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling returns an HTTP client tuned for the Sheets API:
// bounded per-host connections, keep-alive and explicit timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Load reads the Entries and Budget tabs. Hand-edited cells that don't parse
// are logged and replaced (amount 0) or the row skipped, rather than failing
// the whole load.
func (c *Client) Load(ctx context.Context) (storage.Snapshot, error) {
	rng := fmt.Sprintf("%s!A2:E", c.entriesSheet)
	rows, err := c.values.Get(ctx, rng)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("read %s: %w", rng, err)
	}

	var snap storage.Snapshot
	for i, row := range rows {
		e, ok := parseEntryRow(ctx, i+2, toStrings(row))
		if ok {
			snap.Entries = append(snap.Entries, e)
		}
	}

	brng := fmt.Sprintf("%s!A2:B2", c.budgetSheet)
	brows, err := c.values.Get(ctx, brng)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("read %s: %w", brng, err)
	}
	snap.Thresholds = parseBudgetRow(ctx, brows)

	return snap, nil
}

// Save rewrites both tabs from the snapshot.
func (c *Client) Save(ctx context.Context, snap storage.Snapshot) error {
	rng := fmt.Sprintf("%s!A:E", c.entriesSheet)
	if err := c.values.Clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	values := make([][]interface{}, 0, len(snap.Entries)+1)
	values = append(values, entriesHeader)
	for _, e := range snap.Entries {
		values = append(values, []interface{}{e.ID, string(e.Type), e.Category, e.Amount.String(), e.Date.String()})
	}
	wrng := fmt.Sprintf("%s!A1:E%d", c.entriesSheet, len(values))
	if err := c.values.Update(ctx, wrng, values); err != nil {
		return fmt.Errorf("update %s: %w", wrng, err)
	}

	brng := fmt.Sprintf("%s!A1:B2", c.budgetSheet)
	budget := [][]interface{}{
		budgetHeader,
		{snap.Thresholds.IncomeBudget.String(), snap.Thresholds.ExpenseBudget.String()},
	}
	if err := c.values.Update(ctx, brng, budget); err != nil {
		return fmt.Errorf("update %s: %w", brng, err)
	}

	slog.InfoContext(ctx, "Ledger saved to Google Sheets", "entries", len(snap.Entries), "sheet", c.entriesSheet)
	return nil
}

// WriteReport replaces the Report tab with per-category rows and a totals footer.
func (c *Client) WriteReport(ctx context.Context, r core.AggregateReport, generatedAt time.Time) error {
	rng := fmt.Sprintf("%s!A:D", c.reportSheet)
	if err := c.values.Clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	values := [][]interface{}{reportHeader}
	for _, row := range r.PerCategory {
		values = append(values, []interface{}{
			row.Category,
			core.FormatAmount(row.IncomeTotal),
			core.FormatAmount(row.ExpenseTotal),
			core.FormatAmount(row.Combined()),
		})
	}
	values = append(values,
		[]interface{}{},
		[]interface{}{"Total", core.FormatAmount(r.TotalIncome), core.FormatAmount(r.TotalExpense), ""},
		[]interface{}{"Savings", core.FormatMoney(r.Savings), "", ""},
		[]interface{}{"Status", r.Status.Message(), "", ""},
		[]interface{}{"Generated", generatedAt.UTC().Format(time.RFC3339), "", ""},
	)

	wrng := fmt.Sprintf("%s!A1:D%d", c.reportSheet, len(values))
	if err := c.values.Update(ctx, wrng, values); err != nil {
		return fmt.Errorf("update %s: %w", wrng, err)
	}
	return nil
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, values [][]interface{}) error {
	// RAW keeps amounts as text so they round-trip exactly
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
