package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
)

// userHeader names the header the edge proxy sets after authenticating the
// caller. This service trusts it; authentication itself lives upstream.
const userHeader = "X-User-ID"

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrInvalidContent):
		statusCode = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		statusCode = http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidTransition):
		statusCode = http.StatusConflict
	case errors.Is(err, errs.ErrConflictingUpdate):
		statusCode = http.StatusConflict
	case errors.Is(err, errs.ErrDependencyUnavailable):
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

// actingUser resolves the authenticated caller from the request headers.
func actingUser(ctx context.Context, r *http.Request, users *repository.UserRepository) (*models.User, error) {
	raw := r.Header.Get(userHeader)
	if raw == "" {
		return nil, errs.ErrForbidden
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errs.ErrForbidden
	}
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, errs.ErrForbidden
	}
	return user, nil
}

// pathID parses the {id} path segment as an unsigned integer.
func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.ErrNotFound
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
