package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// QueryInt32 reads a required integer query parameter that must be at least minimum.
// On failure a 400 response has already been written.
func QueryInt32(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string, minimum int32) (int32, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	return parseInt32(w, logger, key, raw, minimum, 0)
}

// Page reads the optional offset and limit query parameters of a list endpoint.
// The limit defaults to DefaultPageLimit and is capped at MaxPageLimit.
func Page(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (offset, limit int32, ok bool) {
	query := r.URL.Query()
	limit = DefaultPageLimit
	if raw := query.Get("limit"); raw != "" {
		if limit, ok = parseInt32(w, logger, "limit", raw, 1, MaxPageLimit); !ok {
			return 0, 0, false
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, ok = parseInt32(w, logger, "offset", raw, 0, 0); !ok {
			return 0, 0, false
		}
	}
	return offset, limit, true
}

// parseInt32 parses raw and checks it against minimum and, when positive, maximum.
func parseInt32(w http.ResponseWriter, logger *slog.Logger, key, raw string, minimum, maximum int32) (int32, bool) {
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || int32(value) < minimum || (maximum > 0 && int32(value) > maximum) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return int32(value), true
}
