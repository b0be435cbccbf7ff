package http

import (
	"net/http"

	"nestegg/internal/auth"
	applog "nestegg/internal/log"
)

// userID is set by the session middleware on every /api route.
func userID(r *http.Request) string {
	id, _ := auth.UserFromContext(r.Context())
	return id
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ServiceError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err.Error())
	}
	resp.Write(w)
}
