// Package google mirrors ledger entries to a Google Sheets archive. One
// sheet holds both entry kinds; each row starts with the entry ID so
// deletions can locate and clear the matching row.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cassa/internal/core"
	ports "cassa/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
}

var (
	_ ports.ArchiveWriter  = (*Client)(nil)
	_ ports.ArchiveRemover = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_LEDGER_SHEET_NAME
// (default "Ledger").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	ledgerSheet := strings.TrimSpace(os.Getenv("GOOGLE_LEDGER_SHEET_NAME"))
	if ledgerSheet == "" {
		ledgerSheet = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerSheet:   ledgerSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inlineJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		credentialsJSON = []byte(inlineJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendGrocery appends one purchase row to the ledger sheet.
func (c *Client) AppendGrocery(ctx context.Context, g core.GroceryItem) error {
	row := []interface{}{g.ID, "grocery", g.Date.ISO(), g.Description, centsToDecimal(g.Amount.Cents), g.PurchaserID}
	return c.appendRow(ctx, row)
}

// AppendDeposit appends one deposit row to the ledger sheet.
func (c *Client) AppendDeposit(ctx context.Context, d core.Deposit) error {
	row := []interface{}{d.ID, "deposit", d.Date.ISO(), "", centsToDecimal(d.Amount.Cents), d.MemberID}
	return c.appendRow(ctx, row)
}

func (c *Client) appendRow(ctx context.Context, row []interface{}) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.ledgerSheet+"!A:F", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	slog.InfoContext(ctx, "Appended archive row",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.ledgerSheet,
		"entry_id", row[0])
	return nil
}

// RemoveEntry clears the row whose first cell matches id. Missing rows are
// not an error: the entry may never have reached the archive.
func (c *Client) RemoveEntry(ctx context.Context, id string) error {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.ledgerSheet+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read archive IDs: %w", err)
	}

	rowIndex := -1
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprintf("%v", row[0]) == id {
			rowIndex = i
			break
		}
	}
	if rowIndex < 0 {
		slog.WarnContext(ctx, "Archive row not found for deleted entry", "entry_id", id)
		return nil
	}

	// Sheets ranges are 1-based.
	rng := fmt.Sprintf("%s!A%d:F%d", c.ledgerSheet, rowIndex+1, rowIndex+1)
	_, err = c.svc.Spreadsheets.Values.
		Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear archive row: %w", err)
	}

	slog.InfoContext(ctx, "Cleared archive row", "entry_id", id, "range", rng)
	return nil
}

func centsToDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}
