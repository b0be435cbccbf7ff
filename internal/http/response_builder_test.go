package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nestegg/internal/auth"
	"nestegg/internal/core"
	"nestegg/internal/services"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/1").
		Data(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/accounts/1" {
		t.Errorf("Location = %q", got)
	}
	if w.Body.String() != `{"id":"1"}`+"\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Error("no Content-Type expected without a body")
	}
}

func TestJSONResponseBuilder_NilData(t *testing.T) {
	w := httptest.NewRecorder()
	var p *core.BalancePoint
	NewJSONResponse().Data(p).Write(w)

	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Errorf("Body = %q, want null", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error"`) {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantBody string
	}{
		{"bad request", BadRequestError("name is required"), http.StatusBadRequest, `{"error":"name is required"}`},
		{"unauthorized", UnauthorizedError("missing token"), http.StatusUnauthorized, `{"error":"missing token"}`},
		{"not found", NotFoundError("not found"), http.StatusNotFound, `{"error":"not found"}`},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests, `{"error":"rate limit exceeded"}`},
		{"internal", InternalServerError(), http.StatusInternalServerError, `{"error":"internal error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestUnauthorizedError_Challenge(t *testing.T) {
	w := httptest.NewRecorder()
	UnauthorizedError("expired").Write(w)
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		leaks    string
	}{
		{"not found", fmt.Errorf("account a1: %w", core.ErrNotFound), http.StatusNotFound, "a1"},
		{"invalid input", fmt.Errorf("%w: %w", services.ErrInvalidInput, core.ErrEmptyName), http.StatusBadRequest, ""},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized, ""},
		{"invalid token", fmt.Errorf("%w: signature", auth.ErrInvalidToken), http.StatusUnauthorized, ""},
		{"unexpected", errors.New("sqlite: database is locked"), http.StatusInternalServerError, "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ServiceError(tt.err).Write(w)

			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.leaks != "" && strings.Contains(w.Body.String(), tt.leaks) {
				t.Errorf("Body leaks internal detail %q: %s", tt.leaks, w.Body.String())
			}
		})
	}
}
