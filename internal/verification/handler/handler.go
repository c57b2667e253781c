// Package handler exposes the verification workflow over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"homehelp/internal/ekyc"
	"homehelp/internal/platform/middleware"
	"homehelp/internal/platform/middleware/auth"
	"homehelp/internal/verification/models"
	"homehelp/internal/verification/service"
	dErrors "homehelp/pkg/domain-errors"
	"homehelp/pkg/platform/httputil"
)

// Handler serves the verification endpoints. All routes assume RequireAuth
// has populated the acting user in the request context.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewHandler creates a verification HTTP handler.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the verification routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/otp", h.requestOTP)
	r.Post("/verification/otp/verify", h.verifyOTP)
	r.Get("/verification/status", h.status)
	r.Delete("/verification", h.abandon)
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RequestOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, message, err := h.service.RequestOTP(ctx, auth.GetUserID(ctx), models.Flow(req.Flow), req.GovernmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.RequestOTPResponse{
		State:       sess.State,
		ReferenceID: sess.ReferenceID,
		Message:     message,
	})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	profile, err := h.service.VerifyOTP(ctx, auth.GetUserID(ctx), models.Flow(req.Flow), req.OTP)
	if err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.VerifyOTPResponse{
		State:     models.StateVerified,
		ProfileID: profile.ID.String(),
		Name:      profile.Name,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Status(ctx, auth.GetUserID(ctx), models.Flow(r.URL.Query().Get("flow")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) abandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Abandon(ctx, auth.GetUserID(ctx), models.Flow(r.URL.Query().Get("flow"))); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// errorResponse is the verification error body. Provider rejections carry
// the classified kind so clients can distinguish a mistyped code from a
// dead reference.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ProviderKind     string `json:"provider_kind,omitempty"`
	RetryRecommended bool   `json:"retry_recommended,omitempty"`
	OTPRequired      bool   `json:"new_otp_required,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		httputil.WriteError(w, err)
		return
	}

	resp := errorResponse{
		Error:            string(domainErr.Code),
		ErrorDescription: domainErr.Message,
	}

	var pe *ekyc.ProviderError
	if errors.As(err, &pe) {
		resp.ProviderKind = string(pe.Kind)
		resp.RetryRecommended = pe.RetryRecommended
		resp.OTPRequired = pe.RequiresNewOTP()
	}

	httputil.WriteJSON(w, httputil.DomainCodeToHTTPStatus(domainErr.Code), resp)
}
