// Package google mirrors ledger rows into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gastos/internal/core"
	"gastos/internal/sheets"
)

type Config struct {
	SpreadsheetID    string
	ExpensesSheet    string
	SettlementsSheet string
}

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	expensesSheet    string
	settlementsSheet string
}

var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.ExpensesSheet == "" {
		cfg.ExpensesSheet = "Gastos"
	}
	if cfg.SettlementsSheet == "" {
		cfg.SettlementsSheet = "Pagos"
	}

	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"expenses_sheet", cfg.ExpensesSheet,
		"settlements_sheet", cfg.SettlementsSheet)

	return &Client{
		svc:              svc,
		spreadsheetID:    cfg.SpreadsheetID,
		expensesSheet:    cfg.ExpensesSheet,
		settlementsSheet: cfg.SettlementsSheet,
	}, nil
}

func credentialsFromEnv() ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	return c.append(ctx, c.expensesSheet, sheets.ExpenseHeader, sheets.ExpenseRow(e))
}

func (c *Client) AppendSettlement(ctx context.Context, d core.Debt, settledAt time.Time) (string, error) {
	return c.append(ctx, c.settlementsSheet, sheets.SettlementHeader, sheets.SettlementRow(d, settledAt))
}

// append writes row after the last used row, adding the header first when
// the sheet is empty.
func (c *Client) append(ctx context.Context, sheet string, header, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1:A1", sheet)
	head, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}

	values := [][]any{row}
	if len(head.Values) == 0 {
		values = [][]any{header, row}
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:A", sheet),
		&gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	slog.DebugContext(ctx, "Row appended to Google Sheets", "range", ref)
	return ref, nil
}
