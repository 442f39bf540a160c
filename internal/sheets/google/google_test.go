package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"financas/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets implements the handful of Sheets v4 endpoints the client uses.
type fakeSheets struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func parseRange(rng string) (string, int) {
	tab, cells, _ := strings.Cut(rng, "!")
	tab = strings.ReplaceAll(strings.Trim(tab, "'"), "''", "'")
	cells = strings.TrimLeft(cells, "ABCDEFGHIJ")
	start, _, _ := strings.Cut(cells, ":")
	row, err := strconv.Atoi(start)
	if err != nil {
		row = 1
	}
	return tab, row
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		var sheets []*gsheet.Sheet
		for title := range f.tabs {
			sheets = append(sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		json.NewEncoder(w).Encode(gsheet.Spreadsheet{Sheets: sheets})

	case rest == ":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			if q.AddSheet != nil {
				f.tabs[q.AddSheet.Properties.Title] = nil
			}
		}
		json.NewEncoder(w).Encode(gsheet.BatchUpdateSpreadsheetResponse{})

	case strings.HasPrefix(rest, "/values/"):
		rng := strings.TrimPrefix(rest, "/values/")
		if clear, found := strings.CutSuffix(rng, ":clear"); found {
			tab, row := parseRange(clear)
			if rows := f.tabs[tab]; len(rows) > row-1 {
				f.tabs[tab] = rows[:row-1]
			}
			json.NewEncoder(w).Encode(gsheet.ClearValuesResponse{})
			return
		}
		tab, row := parseRange(rng)
		switch r.Method {
		case http.MethodGet:
			var values [][]any
			if rows := f.tabs[tab]; len(rows) > row-1 {
				values = rows[row-1:]
			}
			json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: values})
		case http.MethodPut:
			var vr gsheet.ValueRange
			json.NewDecoder(r.Body).Decode(&vr)
			rows := f.tabs[tab]
			for len(rows) < row-1+len(vr.Values) {
				rows = append(rows, nil)
			}
			copy(rows[row-1:], vr.Values)
			f.tabs[tab] = rows
			json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{})
		}

	default:
		http.Error(w, "unexpected request "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClient_ExportMonthReplacesOnlyThatMonth(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{
		"2025 Lançamentos": {
			{"Data", "Descrição"},
			{"2025-02-10", "Mercado", "expense", "Supermercado", "variable", 300.0, "", "sim", "", "feb"},
			{"2025-03-01", "Antigo", "expense", "Luz", "fixed", 99.0, "", "não", "", "stale"},
		},
	}}
	c := newTestClient(t, fake)

	txs := []core.Transaction{
		{ID: "m2", Description: "Luz", Type: core.Expense, Category: "Luz", ExpenseType: core.ExpenseFixed, Amount: core.Money{Cents: 20000}, Date: core.NewDate(2025, 3, 15)},
		{ID: "m1", Description: "Salário", Type: core.Income, Category: "Salário Fixo", IncomeType: core.IncomeFixed, Amount: core.Money{Cents: 500000}, Date: core.NewDate(2025, 3, 5), Paid: true},
	}
	if err := c.ExportMonth(context.Background(), core.NewDate(2025, 3, 1), txs); err != nil {
		t.Fatalf("ExportMonth() error = %v", err)
	}

	rows := fake.tabs["2025 Lançamentos"]
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d: %v", len(rows), rows)
	}
	var ids []string
	for _, row := range rows[1:] {
		ids = append(ids, cell(row, 9))
	}
	if got := strings.Join(ids, ","); got != "feb,m1,m2" {
		t.Errorf("row ids = %s, want feb,m1,m2", got)
	}
	if cell(rows[2], 7) != "sim" {
		t.Errorf("paid column = %q", cell(rows[2], 7))
	}
}

func TestClient_ExportMonthCreatesYearTab(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{}}
	c := newTestClient(t, fake)

	txs := []core.Transaction{
		{ID: "x", Description: "Aluguel", Type: core.Expense, Category: "Aluguel", Amount: core.Money{Cents: 150000}, Date: core.NewDate(2026, 1, 10)},
	}
	if err := c.ExportMonth(context.Background(), core.NewDate(2026, 1, 1), txs); err != nil {
		t.Fatalf("ExportMonth() error = %v", err)
	}
	rows, ok := fake.tabs["2026 Lançamentos"]
	if !ok {
		t.Fatal("year tab was not created")
	}
	if len(rows) != 2 || cell(rows[0], 0) != "Data" || cell(rows[1], 9) != "x" {
		t.Errorf("unexpected tab contents %v", rows)
	}
}

func TestClient_ExportEmptyMonthClears(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{
		"2025 Lançamentos": {
			{"Data"},
			{"2025-03-01", "Antigo"},
		},
	}}
	c := newTestClient(t, fake)
	if err := c.ExportMonth(context.Background(), core.NewDate(2025, 3, 1), nil); err != nil {
		t.Fatal(err)
	}
	if got := len(fake.tabs["2025 Lançamentos"]); got != 1 {
		t.Errorf("expected only the header to remain, got %d rows", got)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing spreadsheet", Config{}, "missing spreadsheet id"},
		{"missing credentials", Config{SpreadsheetID: "id"}, "missing service account credentials"},
		{"unreadable file", Config{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"}, "read service account file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("New() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Lançamentos", "2025 Lançamentos"},
		{"  Lançamentos ", "2025 Lançamentos"},
		{"2024 Lançamentos", "2024 Lançamentos"},
		{"", ""},
		{"12345", "2025 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2025); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestA1Quoting(t *testing.T) {
	if got := a1("2025 Contas d'água", "A1:J1"); got != "'2025 Contas d''água'!A1:J1" {
		t.Errorf("a1() = %q", got)
	}
}
