// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses. Every handler
// answers through a ResponseBuilder so status codes, headers and the
// {"error": "..."} envelope stay consistent.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"financas/internal/attachments"
	"financas/internal/core"
	"financas/internal/projection"
	"financas/internal/services"
	"financas/internal/storage"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	hasBody    bool
}

type errorBody struct {
	Error string `json:"error"`
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Created is shorthand for a 201 with a body.
func (b *ResponseBuilder) Created(v any) *ResponseBuilder {
	return b.Status(http.StatusCreated).JSON(v)
}

// NoContent is shorthand for an empty 204.
func (b *ResponseBuilder) NoContent() *ResponseBuilder {
	b.body = nil
	b.hasBody = false
	return b.Status(http.StatusNoContent)
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "component", "http", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowed ...string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", strings.Join(allowed, ", "))
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrEmptyCategory,
	core.ErrInvalidType,
	core.ErrInvalidSubtype,
	core.ErrDueDateOnIncome,
	core.ErrEmptyName,
	core.ErrInvalidRate,
	core.ErrInvalidSettings,
	core.ErrInvalidTimeframe,
	projection.ErrInvalidInput,
	services.ErrNothingToClone,
	services.ErrInvalidImport,
	attachments.ErrTooLarge,
}

// ErrorFrom maps a service error to its response. Unknown errors become a
// generic 500 so internals never leak.
func ErrorFrom(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, storage.ErrInvalidScope),
		errors.Is(err, attachments.ErrInvalidName):
		return BadRequestError(err.Error())
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return UnprocessableEntityError(err.Error())
		}
	}
	return InternalServerError("internal error")
}
