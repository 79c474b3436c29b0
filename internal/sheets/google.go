package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	valueInputRaw         = "RAW"
)

// GoogleClient implements Client on the Sheets v4 API.
type GoogleClient struct {
	svc     *gsheets.Service
	timeout time.Duration
	logger  *zap.Logger
}

// NewGoogleClient authenticates with the service account from cfg.
func NewGoogleClient(ctx context.Context, cfg configtypes.SheetsConfig, logger *zap.Logger) (*GoogleClient, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return NewGoogleClientWithOptions(ctx, cfg.Timeout.ToDuration(), logger,
		option.WithCredentialsJSON(creds),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
}

// NewGoogleClientWithOptions builds a client from raw API options.
func NewGoogleClientWithOptions(ctx context.Context, timeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleClient{svc: svc, timeout: timeout, logger: logger}, nil
}

func loadCredentials(cfg configtypes.SheetsConfig) ([]byte, error) {
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		return []byte(cfg.CredentialsJSON), nil
	}
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("service account credentials are not configured")
}

func (c *GoogleClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *GoogleClient) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if s, ok := cell.(string); ok {
				row[i] = s
			} else if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *GoogleClient) InsertRowBelowHeader(ctx context.Context, spreadsheetID, tab string, row []string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sheetID, found, err := c.sheetID(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("insert into %q: %w", tab, ErrTabNotFound)
	}

	insert := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			InsertDimension: &gsheets.InsertDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: 1,
					EndIndex:   2,
					// sheet id 0 is valid and would otherwise be dropped
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, insert).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert row into %q: %w", tab, err)
	}

	_, err = c.svc.Spreadsheets.Values.
		Update(spreadsheetID, A1(tab, "A2"), &gsheets.ValueRange{Values: [][]interface{}{toCells(row)}}).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Warn("Inserted row left blank after write failure",
			zap.String("spreadsheet_id", spreadsheetID),
			zap.String("tab", tab),
			zap.Error(err))
		return fmt.Errorf("write row into %q: %w", tab, err)
	}
	return nil
}

func (c *GoogleClient) AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rng := A1(tab, "A:"+ColumnName(len(row)))
	_, err := c.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{toCells(row)}}).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %q: %w", tab, err)
	}
	return nil
}

func (c *GoogleClient) EnsureTab(ctx context.Context, spreadsheetID, tab string, header []string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, found, err := c.sheetID(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	add := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, add).Context(ctx).Do(); err != nil {
		if alreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create tab %q: %w", tab, err)
	}

	c.logger.Info("Created sheet tab", zap.String("spreadsheet_id", spreadsheetID), zap.String("tab", tab))

	if len(header) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.
		Update(spreadsheetID, A1(tab, "A1"), &gsheets.ValueRange{Values: [][]interface{}{toCells(header)}}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header of %q: %w", tab, err)
	}
	return nil
}

func (c *GoogleClient) sheetID(ctx context.Context, spreadsheetID, tab string) (int64, bool, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// alreadyExists matches the 400 the API returns when a concurrent caller
// created the tab first.
func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) &&
		apiErr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Message), "already exists")
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
