// Package sheets opens the listing mirror in Google Sheets.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/listingdesk/listingdesk/config"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Client authenticates with a service account and opens the first worksheet
// of the document named in config.
type Client struct {
	credentialsFile string
	document        string
}

// NewClient validates cfg. No network call is made until Open.
func NewClient(cfg config.SheetsConfig) (*Client, error) {
	if strings.TrimSpace(cfg.CredentialsFile) == "" {
		return nil, errors.New("sheets credentials file is required")
	}
	if strings.TrimSpace(cfg.Document) == "" {
		return nil, errors.New("sheets document name is required")
	}
	return &Client{
		credentialsFile: cfg.CredentialsFile,
		document:        cfg.Document,
	}, nil
}

// Open authenticates, resolves the document by exact name and returns its
// first worksheet.
func (c *Client) Open(ctx context.Context) (mirror.Sheet, error) {
	creds := option.WithCredentialsFile(c.credentialsFile)

	driveService, err := drive.NewService(ctx, creds, option.WithScopes(drive.DriveReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	sheetsService, err := sheets.NewService(ctx, creds, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	files, err := driveService.Files.List().
		Q(documentQuery(c.document)).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("find document %q: %w", c.document, err)
	}
	if len(files.Files) == 0 {
		return nil, fmt.Errorf("%w: %q", mirror.ErrDocumentNotFound, c.document)
	}
	spreadsheetID := files.Files[0].Id

	spreadsheet, err := sheetsService.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("open document %q: %w", c.document, err)
	}
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("%w: %q has no worksheets", mirror.ErrDocumentNotFound, c.document)
	}
	props := spreadsheet.Sheets[0].Properties

	return &Worksheet{
		service:       sheetsService,
		spreadsheetID: spreadsheetID,
		sheetID:       props.SheetId,
		title:         props.Title,
	}, nil
}

func documentQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escaped, spreadsheetMimeType)
}
