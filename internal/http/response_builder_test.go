package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"financas/internal/attachments"
	"financas/internal/core"
	"financas/internal/services"
	"financas/internal/storage"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["count"] != 2 {
		t.Errorf("body = %q, err = %v", w.Body.String(), err)
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON("ignored").NoContent().Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d with body %q", w.Code, w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(func() {}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError(http.MethodGet, http.MethodPost).Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestErrorFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get transaction: %w", storage.ErrNotFound), http.StatusNotFound},
		{"bad scope", storage.ErrInvalidScope, http.StatusBadRequest},
		{"bad request", fmt.Errorf("%w: month", ErrBadRequest), http.StatusBadRequest},
		{"invalid attachment name", attachments.ErrInvalidName, http.StatusBadRequest},
		{"validation", core.ErrEmptyDescription, http.StatusUnprocessableEntity},
		{"settings", fmt.Errorf("%w: theme", core.ErrInvalidSettings), http.StatusUnprocessableEntity},
		{"nothing to clone", services.ErrNothingToClone, http.StatusUnprocessableEntity},
		{"too large", attachments.ErrTooLarge, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFrom(tt.err).Write(w)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("missing error envelope: %q", w.Body.String())
			}
		})
	}
}

func TestErrorFrom_HidesInternals(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFrom(errors.New("pq: password authentication failed")).Write(w)
	var body errorBody
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error != "internal error" {
		t.Errorf("internal error leaked: %q", body.Error)
	}
}
