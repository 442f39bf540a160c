package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"
	ports "financas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID string
	// SheetName is the tab base name; the year is prefixed automatically.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.MonthExporter = (*Client)(nil)

// New creates a Sheets client authenticated with service account
// credentials. Extra options are appended last and override the defaults.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Lançamentos"
	}

	svc, err := newSheetsService(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

func newSheetsService(ctx context.Context, cfg Config, extra []goption.ClientOption) (*gsheet.Service, error) {
	opts := []goption.ClientOption{
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}
	switch {
	case len(extra) > 0:
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "component", "sheets")
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials file", "component", "sheets", "path", cfg.CredentialsFile)
		opts = append(opts, goption.WithCredentialsJSON(raw))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	if len(extra) == 0 {
		opts = append(opts, goption.WithHTTPClient(newHTTPClientWithPooling()))
	}
	opts = append(opts, extra...)

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling tunes keep-alive and timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// ExportMonth rewrites the rows of month in the year's tab, creating the tab
// on first use. Rows of other months are preserved.
func (c *Client) ExportMonth(ctx context.Context, month core.Date, txs []core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := yearPrefixedName(c.sheetBase, month.Year())
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	body := a1(tab, "A2:J")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, body).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", body, err)
	}

	rows := make([][]any, 0, len(resp.Values)+len(txs))
	for _, row := range resp.Values {
		if d, ok := rowDate(row); ok && d.SameMonth(month) {
			continue
		}
		rows = append(rows, row)
	}
	rows = append(rows, ports.MonthRows(txs)...)
	slices.SortStableFunc(rows, func(a, b []any) int {
		return strings.Compare(cell(a, 0), cell(b, 0))
	})

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, body, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", body, err)
	}
	if len(rows) == 0 {
		return nil
	}
	rng := a1(tab, fmt.Sprintf("A2:J%d", len(rows)+1))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Month exported", "component", "sheets", "month", month.Format("2006-01"), "tab", tab, "count", len(txs))
	return nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	header := a1(tab, "A1:J1")
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, header, &gsheet.ValueRange{Values: [][]any{ports.Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", header, err)
	}
	slog.InfoContext(ctx, "Sheet created", "component", "sheets", "tab", tab)
	return nil
}

// a1 builds a quoted A1 range, e.g. 'Sheet name'!A1:J1.
func a1(tab, rng string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + rng
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func rowDate(row []any) (core.Date, bool) {
	d, err := core.ParseDate(cell(row, 0))
	if err != nil {
		return core.Date{}, false
	}
	return d, true
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
