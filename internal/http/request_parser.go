// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// month selection, scope and boolean query values, JSON bodies and multipart
// transaction submissions.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"financas/internal/attachments"
	"financas/internal/core"
	"financas/internal/services"
)

const maxJSONBody = 1 << 20

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

// ParseMonthParams extracts year and month from query parameters and returns
// the first day of that month. Missing values default to today's.
func ParseMonthParams(query url.Values, today core.Date) (core.Date, error) {
	year := today.Year()
	month := int(today.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return core.Date{}, fmt.Errorf("%w: year %q", ErrBadRequest, v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Date{}, fmt.Errorf("%w: month %q", ErrBadRequest, v)
		}
		month = m
	}
	return core.NewDate(year, month, 1), nil
}

// HasMonthParams reports whether the query selects a month explicitly.
func HasMonthParams(query url.Values) bool {
	return query.Has("year") || query.Has("month")
}

// ParseOptionalBool returns nil for an empty value.
func ParseOptionalBool(v string) (*bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: boolean %q", ErrBadRequest, v)
	}
	return &b, nil
}

// DecodeJSON reads a size-capped JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		if isValidation(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func isValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidDate)
}

// transactionPayload is the body of a create or update request.
type transactionPayload struct {
	core.Transaction
	Recurring        bool `json:"recurring"`
	RemoveAttachment bool `json:"removeAttachment"`
}

// readTransaction accepts either a JSON body or a multipart form with a JSON
// "payload" field and an optional "attachment" file. The returned cleanup
// releases the multipart temp files.
func readTransaction(w http.ResponseWriter, r *http.Request) (transactionPayload, *services.Upload, func(), error) {
	var p transactionPayload
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := DecodeJSON(w, r, &p); err != nil {
			return p, nil, noop, err
		}
		p.sanitize()
		return p, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return p, nil, noop, attachments.ErrTooLarge
		}
		return p, nil, noop, fmt.Errorf("%w: multipart form: %v", ErrBadRequest, err)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	if err := json.Unmarshal([]byte(r.FormValue("payload")), &p); err != nil {
		cleanup()
		if isValidation(err) {
			return p, nil, noop, err
		}
		return p, nil, noop, fmt.Errorf("%w: payload: %v", ErrBadRequest, err)
	}
	p.sanitize()

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return p, nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return p, nil, noop, fmt.Errorf("%w: attachment: %v", ErrBadRequest, err)
	}
	return p, &services.Upload{Filename: header.Filename, Content: file}, func() {
		file.Close()
		cleanup()
	}, nil
}

func (p *transactionPayload) sanitize() {
	p.Description = sanitizeInput(p.Description)
	p.Category = sanitizeInput(p.Category)
}

// sanitizeInput strips control characters and surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// methods dispatches on the request method and answers 405 otherwise.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	if r.Method == http.MethodHead {
		if h, ok := m[http.MethodGet]; ok {
			h(w, r)
			return
		}
	}
	allowed := make([]string, 0, len(m))
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if _, ok := m[method]; ok {
			allowed = append(allowed, method)
		}
	}
	MethodNotAllowedError(allowed...).Write(w)
}
