// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"classportal/internal/engine"
	"classportal/internal/publish"
	"classportal/internal/safety"
	"classportal/internal/store"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request body")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps workflow errors to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fieldErrors(verrs),
		})
	case errors.Is(err, publish.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": publish.ErrNotFound.Error()})
	case errors.Is(err, publish.ErrNothingToPublish):
		writeJSON(w, http.StatusConflict, map[string]string{"error": publish.ErrNothingToPublish.Error()})
	case errors.Is(err, store.ErrVersionMismatch):
		writeJSON(w, http.StatusConflict, map[string]string{"error": store.ErrVersionMismatch.Error()})
	case errors.Is(err, safety.ErrUnsafeContent):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": safety.ErrUnsafeContent.Error()})
	case errors.Is(err, engine.ErrTemplateSyntax):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, publish.ErrInvalidMockData):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": map[string]string{"mock_data": publish.ErrInvalidMockData.Error()},
		})
	case errors.Is(err, publish.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": publish.ErrInvalidKey.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("admin request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
	}
}

// decodeJSON reads a size-capped JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body decodes to the zero request.
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return validate.Struct(dst)
}
