package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Options holds the presentation settings shared by all handlers.
type Options struct {
	DefaultPageSize int
	ImageBaseURL    string
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders err in the error envelope. Details of internal errors
// stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.From(err)

	w.Header().Set("Content-Type", "application/json")

	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Kind == errors.KindInternal {
		errResponse.Details = ""
	}

	w.WriteHeader(appErr.HTTPStatus())
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// WriteError is exported for middleware living outside this package.
func WriteError(w http.ResponseWriter, err error) {
	writeError(w, err)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

// parsePage reads page and page_size, falling back to page 1 and the
// configured default size when absent.
func parsePage(q url.Values, defaultSize int) (domain.Page, error) {
	page := domain.Page{Number: 1, Size: defaultSize}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, errors.ErrInvalidPagination.WithDetails("page must be an integer")
		}
		page.Number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, errors.ErrInvalidPagination.WithDetails("page_size must be an integer")
		}
		page.Size = n
	}
	return page, nil
}

func parseOptionalInt64(q url.Values, key string) (*int64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, errors.ErrInvalidInput.WithDetails(key + " must be an integer")
	}
	return &n, nil
}

func parseOptionalCents(q url.Values, key string) (*domain.Cents, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	c, err := domain.ParseCents(v)
	if err != nil {
		return nil, errors.ErrInvalidPrice.WithDetails(key + " is not a valid amount")
	}
	return &c, nil
}

// parseOptionalDate accepts RFC 3339 timestamps or plain dates. A plain end
// date covers the whole day.
func parseOptionalDate(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, errors.ErrInvalidInput.WithDetails(key + " must be YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func imageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
