// Package handler exposes the admin read API over the audit log.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"homehelp/internal/audit"
	"homehelp/internal/platform/middleware"
	dErrors "homehelp/pkg/domain-errors"
	"homehelp/pkg/platform/httputil"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler serves audit entry queries for troubleshooting verification issues.
type Handler struct {
	store  audit.Store
	logger *slog.Logger
}

func New(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts audit routes on the given router. The caller is expected
// to wrap them in admin authorization.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.HandleList)
}

// ListResponse is a page of audit entries.
type ListResponse struct {
	Entries []audit.Entry `json:"entries"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// HandleList returns audit entries, newest first, filtered by query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.store.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit entries",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}

	total, err := h.store.Count(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count audit entries",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()

	filter := audit.Filter{
		SubjectID: q.Get("subject_id"),
		Limit:     defaultLimit,
	}

	if kind := q.Get("kind"); kind != "" {
		switch audit.Kind(kind) {
		case audit.KindToken, audit.KindOTPRequest, audit.KindOTPVerify:
			filter.Kind = audit.Kind(kind)
		default:
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "kind must be one of [token otp_request otp_verify]")
		}
	}

	if raw := q.Get("succeeded"); raw != "" {
		succeeded, err := strconv.ParseBool(raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "succeeded must be a boolean")
		}
		filter.Succeeded = &succeeded
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		filter.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}
