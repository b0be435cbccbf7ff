// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"nestegg/internal/auth"
	"nestegg/internal/core"
	applog "nestegg/internal/log"
	"nestegg/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	hasData    bool
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body. A nil value is written as null.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	b.hasData = true
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasData {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.data)
	if err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates the standard {"error": "..."} envelope.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 response with a bearer challenge.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).
		Header("WWW-Authenticate", `Bearer realm="nestegg"`)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// ServiceError maps an error returned by the services to a response.
// Internal details never reach the client.
func ServiceError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, services.ErrInvalidInput):
		return BadRequestError(err.Error())
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedError(err.Error())
	default:
		return InternalServerError()
	}
}
