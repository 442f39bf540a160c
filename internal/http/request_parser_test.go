package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"financas/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	today := core.NewDate(2025, 3, 10)
	tests := []struct {
		name    string
		query   url.Values
		want    core.Date
		wantErr bool
	}{
		{"defaults to today", url.Values{}, core.NewDate(2025, 3, 1), false},
		{"both values", url.Values{"year": {"2024"}, "month": {"12"}}, core.NewDate(2024, 12, 1), false},
		{"only month", url.Values{"month": {"7"}}, core.NewDate(2025, 7, 1), false},
		{"month out of range", url.Values{"month": {"13"}}, core.Date{}, true},
		{"non numeric year", url.Values{"year": {"abc"}}, core.Date{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, today)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonthParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Errorf("expected ErrBadRequest, got %v", err)
				}
				return
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseMonthParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOptionalBool(t *testing.T) {
	if v, err := ParseOptionalBool(""); v != nil || err != nil {
		t.Errorf("empty = %v, %v", v, err)
	}
	if v, err := ParseOptionalBool("false"); err != nil || v == nil || *v {
		t.Errorf("false = %v, %v", v, err)
	}
	if _, err := ParseOptionalBool("maybe"); !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		target error
	}{
		{"empty body", "", ErrBadRequest},
		{"syntax error", "{", ErrBadRequest},
		{"bad amount", `{"amount":"abc"}`, core.ErrInvalidAmount},
		{"bad date", `{"date":"31/12/2025"}`, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p transactionPayload
			if err := DecodeJSON(httptest.NewRecorder(), r, &p); !errors.Is(err, tt.target) {
				t.Errorf("DecodeJSON() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestReadTransaction_JSON(t *testing.T) {
	body := `{"description":"  Luz\u0007 ","amount":"120,50","type":"expense","category":"Luz","date":"2025-03-05","recurring":true}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	p, upload, cleanup, err := readTransaction(httptest.NewRecorder(), r)
	defer cleanup()
	if err != nil {
		t.Fatalf("readTransaction() error = %v", err)
	}
	if upload != nil {
		t.Error("JSON body cannot carry an attachment")
	}
	if p.Description != "Luz" || p.Amount.Cents != 12050 || !p.Recurring {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestReadTransaction_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("payload", `{"description":"Mercado","amount":80,"type":"expense","category":"Supermercado","date":"2025-03-05"}`)
	fw, _ := mw.CreateFormFile("attachment", "nota.PDF")
	_, _ = fw.Write([]byte("%PDF-1.4"))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	p, upload, cleanup, err := readTransaction(httptest.NewRecorder(), r)
	defer cleanup()
	if err != nil {
		t.Fatalf("readTransaction() error = %v", err)
	}
	if p.Description != "Mercado" || p.Amount.Cents != 8000 {
		t.Errorf("unexpected payload %+v", p)
	}
	if upload == nil || upload.Filename != "nota.PDF" {
		t.Fatalf("attachment not read: %+v", upload)
	}
}

func TestMethods(t *testing.T) {
	h := methods{http.MethodGet: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("GET status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET" {
		t.Errorf("DELETE status = %d, Allow = %q", w.Code, w.Header().Get("Allow"))
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput(" a\x00b\tc "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
