package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// responder carries the JSON helpers shared by every handler.
type responder struct {
	logger *slog.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (h responder) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{"error": message})
}

// respondFailure maps the error taxonomy onto HTTP statuses. Invalid
// parameters answer 404 like a missing record does.
func (h responder) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, store.ErrTitleNotFound),
		errors.Is(err, store.ErrSeasonNotFound):
		h.logger.InfoContext(ctx, "Request resolved to not found", slog.String("path", r.URL.Path), slog.String("reason", err.Error()))
		h.respondError(w, r, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrUpstreamMalformed), errors.Is(err, domain.ErrUpstreamUnavailable):
		h.logger.ErrorContext(ctx, "Catalog failure", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadGateway, "Catalog returned an unusable response")
	default:
		h.logger.ErrorContext(ctx, "Request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// pageParams reads a page number and a page size with defaults and an
// upper bound on the size.
func pageParams(r *http.Request, sizeKey string, defaultSize int) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(q.Get(sizeKey))
	if size <= 0 {
		size = defaultSize
	} else if size > 100 {
		size = 100
	}
	return page, size
}

// decodeValid decodes the JSON body into dst and validates it. On failure
// it has already answered 400 and returns false.
func (h responder) decodeValid(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	ctx := r.Context()
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := v.StructCtx(ctx, dst); err != nil {
		h.logger.ErrorContext(ctx, "Request validation failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// pathUUID reads a UUID route variable. Anything else answers 404, the
// same as an unknown record.
func (h responder) pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := mux.Vars(r)[name]
	if _, err := uuid.Parse(id); err != nil {
		h.respondError(w, r, http.StatusNotFound, "Not found.")
		return "", false
	}
	return id, true
}

func (h responder) respondForbidden(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusForbidden, "You do not have permission to perform this action.")
}
