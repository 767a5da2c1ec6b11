package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/inkpress/apiserver/internal/errs"
	"github.com/rs/zerolog"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxJSONBody  = 1 << 20

	// signinPath is where unauthenticated clients are sent.
	signinPath = "/auth/signin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps err's kind to a status. Internal details stay in the
// log; clients get the error's safe message or the status text.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	kind := errs.KindOf(err)
	status := kind.StatusCode()

	resp := ErrorResponse{Error: strings.ToLower(http.StatusText(status))}
	var e *errs.Error
	if errors.As(err, &e) && status < http.StatusInternalServerError && e.Message != "" {
		resp.Error = e.Message
		resp.Field = e.Field
	}

	if kind == errs.Unauthenticated {
		w.Header().Set("Location", signinPath)
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("kind", kind.String()).Msg("request rejected")
	}
	writeJSON(w, status, resp)
}

// bindRequest fills dst from a JSON body, or calls fromForm for form posts.
func bindRequest(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst); err != nil {
			return errs.Wrap(errs.Validation, "invalid request body", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errs.Wrap(errs.Validation, "invalid form body", err)
	}
	fromForm(r.PostFormValue)
	return nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errs.Invalid("page", "invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errs.Invalid("limit", "invalid limit")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return 0, 0, 0, errs.Invalid("page", "page out of range")
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}
