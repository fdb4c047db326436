package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// seams for tests
	newSheets func(ctx context.Context, cfg gsheet.Config) (*gsheet.Client, error)
	newAMQP   func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:    logger,
		newSheets: gsheet.New,
		newAMQP:   amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the store selected by config.Type, plus the optional
// report writer and change publisher.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res      = &BackendResult{}
		cleanups []CleanupFunc
		sheets   *gsheet.Client
		err      error
	)

	if config.HasSpreadsheet() {
		sheets, err = f.newSheets(ctx, sheetsConfig(config))
		if err != nil {
			if config.Type == SheetsBackend {
				return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
			}
			f.logger.Warn("Google Sheets unavailable, report export disabled", "error", err)
		} else {
			res.Reports = sheets
		}
	}

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		res.Store = store
		cleanups = append(cleanups, store.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case SheetsBackend:
		res.Store = sheets
		f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	case MemoryBackend:
		res.Store = memory.New()
		f.logger.Info("Initialized memory backend")
	}

	if config.AMQPURL != "" {
		client, err := f.newAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			res.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

// CreateReportWriter opens only the spreadsheet, for the report worker.
func (f *DefaultFactory) CreateReportWriter(ctx context.Context, config Config) (*gsheet.Client, error) {
	if !config.HasSpreadsheet() {
		return nil, errors.New("GOOGLE_SPREADSHEET_ID is required to write reports")
	}
	return f.newSheets(ctx, sheetsConfig(config))
}

func sheetsConfig(c Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:      c.GoogleSpreadsheetID,
		EntriesSheet:       c.GoogleEntriesSheet,
		BudgetSheet:        c.GoogleBudgetSheet,
		ReportSheet:        c.GoogleReportSheet,
		ServiceAccountJSON: c.GoogleServiceAccountJSON,
		ServiceAccountFile: c.GoogleServiceAccountFile,
	}
}
