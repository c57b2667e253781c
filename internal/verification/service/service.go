// Package service orchestrates the OTP verification workflow: session state
// transitions, provider calls through the gateway, and profile
// materialization on success.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"homehelp/internal/ekyc"
	"homehelp/internal/platform/metrics"
	"homehelp/internal/platform/middleware"
	"homehelp/internal/platform/privacy"
	profilemodels "homehelp/internal/profile/models"
	profilestore "homehelp/internal/profile/store"
	"homehelp/internal/verification/models"
	"homehelp/internal/verification/store/session"
	id "homehelp/pkg/domain"
	dErrors "homehelp/pkg/domain-errors"
	s "homehelp/pkg/string"
)

// Gateway is the provider surface the service needs; implemented by
// *ekyc.Gateway.
type Gateway interface {
	RequestOTP(ctx context.Context, sub ekyc.Subject) (ekyc.OTPReceipt, error)
	VerifyOTP(ctx context.Context, sub ekyc.Subject, referenceID, otp string) (ekyc.VerifyResult, error)
}

// Service runs the verification workflow.
type Service struct {
	gateway  Gateway
	sessions session.Store
	profiles profilestore.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	ttl      time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL overrides the OTP window (default 10 minutes).
func WithSessionTTL(ttl time.Duration) Option {
	return func(svc *Service) { svc.ttl = ttl }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// New creates a verification service.
func New(gateway Gateway, sessions session.Store, profiles profilestore.Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		gateway:  gateway,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
		ttl:      10 * time.Minute,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RequestOTP validates the government id locally, asks the provider to send
// an OTP, and opens (or wholesale replaces) the session for (actor, flow).
// Malformed input is rejected before any provider call.
func (svc *Service) RequestOTP(ctx context.Context, actorID id.UserID, flow models.Flow, governmentID string) (*models.Session, string, error) {
	if !flow.Valid() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification flow")
	}
	if len(governmentID) != 12 || !s.AllDigits(governmentID) {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "government id must be exactly 12 digits")
	}

	// Registration refuses ids already claimed by another owner before
	// spending an OTP on them.
	if flow.IsRegistration() {
		existing, err := svc.profiles.GetByGovernmentID(ctx, flow.ProfileClass(), governmentID)
		if err != nil && !errors.Is(err, profilestore.ErrNotFound) {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "profile lookup failed")
		}
		if existing != nil && existing.OwnerUserID != actorID {
			return nil, "", dErrors.New(dErrors.CodeDuplicateIdentity, "this id is already registered to another account")
		}
	}

	receipt, err := svc.gateway.RequestOTP(ctx, ekyc.Subject{
		GovernmentID:  governmentID,
		ActorID:       actorID.String(),
		CorrelationID: middleware.GetRequestID(ctx),
	})
	if err != nil {
		return nil, "", svc.translateProviderError(ctx, err)
	}

	sess := &models.Session{
		ActorID:      actorID,
		Flow:         flow,
		GovernmentID: governmentID,
		ReferenceID:  receipt.ReferenceID,
		State:        models.StateOTPPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := svc.sessions.Put(ctx, sess, svc.ttl); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification session")
	}

	if svc.metrics != nil {
		svc.metrics.IncrementOTPRequested(string(flow))
	}
	svc.logger.InfoContext(ctx, "otp requested",
		"flow", string(flow),
		"actor_id", actorID.String(),
		"subject_id", privacy.MaskGovernmentID(governmentID),
		"reference_id", receipt.ReferenceID,
	)
	return sess, receipt.Message, nil
}

// VerifyOTP submits the OTP for the pending session. On success the profile
// is materialized and the session deleted. Failures that invalidate the OTP
// reference clear the session back to unstarted; recoverable ones keep it.
func (svc *Service) VerifyOTP(ctx context.Context, actorID id.UserID, flow models.Flow, otp string) (*profilemodels.Profile, error) {
	if !flow.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown verification flow")
	}
	if len(otp) != 6 || !s.AllDigits(otp) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "otp must be exactly 6 digits")
	}

	sess, err := svc.sessions.Get(ctx, actorID, flow)
	if errors.Is(err, session.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no otp pending for this flow; request one first")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification session")
	}

	result, err := svc.gateway.VerifyOTP(ctx, ekyc.Subject{
		GovernmentID:  sess.GovernmentID,
		ActorID:       actorID.String(),
		CorrelationID: middleware.GetRequestID(ctx),
	}, sess.ReferenceID, otp)
	if err != nil {
		svc.handleVerifyFailure(ctx, actorID, flow, err)
		return nil, svc.translateProviderError(ctx, err)
	}

	profile, err := svc.materialize(ctx, actorID, flow, sess.GovernmentID, result.Identity)
	if err != nil {
		// The provider verified the identity but we could not keep it. The
		// session is cleared either way: the OTP reference is consumed.
		_ = svc.sessions.Delete(ctx, actorID, flow)
		if svc.metrics != nil {
			svc.metrics.IncrementOTPVerified("materialize_failed")
		}
		return nil, err
	}

	if err := svc.sessions.Delete(ctx, actorID, flow); err != nil {
		svc.logger.WarnContext(ctx, "failed to clear verified session",
			"error", err,
			"actor_id", actorID.String(),
		)
	}

	if svc.metrics != nil {
		svc.metrics.IncrementOTPVerified("verified")
	}
	svc.logger.InfoContext(ctx, "identity verified",
		"flow", string(flow),
		"actor_id", actorID.String(),
		"profile_id", profile.ID.String(),
	)
	return profile, nil
}

// Status reports the tagged state for (actor, flow); absence is unstarted.
func (svc *Service) Status(ctx context.Context, actorID id.UserID, flow models.Flow) (models.StatusResponse, error) {
	if !flow.Valid() {
		return models.StatusResponse{}, dErrors.New(dErrors.CodeInvalidInput, "unknown verification flow")
	}

	sess, err := svc.sessions.Get(ctx, actorID, flow)
	if errors.Is(err, session.ErrNotFound) {
		return models.StatusResponse{Flow: flow, State: models.StateUnstarted}, nil
	}
	if err != nil {
		return models.StatusResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification session")
	}

	return models.StatusResponse{
		Flow:      flow,
		State:     sess.State,
		ExpiresAt: &sess.ExpiresAt,
	}, nil
}

// Abandon clears the session for (actor, flow) unconditionally.
func (svc *Service) Abandon(ctx context.Context, actorID id.UserID, flow models.Flow) error {
	if !flow.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown verification flow")
	}
	if err := svc.sessions.Delete(ctx, actorID, flow); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear verification session")
	}
	return nil
}

// handleVerifyFailure applies the state transition a failed verification
// demands: kinds that consumed the reference clear the session, recoverable
// ones leave it pending so the user can re-enter the code.
func (svc *Service) handleVerifyFailure(ctx context.Context, actorID id.UserID, flow models.Flow, err error) {
	var pe *ekyc.ProviderError
	if errors.As(err, &pe) {
		if svc.metrics != nil {
			svc.metrics.IncrementOTPVerified(string(pe.Kind))
		}
		if pe.RequiresNewOTP() {
			if delErr := svc.sessions.Delete(ctx, actorID, flow); delErr != nil {
				svc.logger.WarnContext(ctx, "failed to clear dead session",
					"error", delErr,
					"actor_id", actorID.String(),
				)
			}
		}
		return
	}
	if svc.metrics != nil {
		svc.metrics.IncrementOTPVerified("error")
	}
}

// translateProviderError maps gateway errors onto the domain taxonomy while
// keeping the original error in the chain for handlers to inspect.
func (svc *Service) translateProviderError(ctx context.Context, err error) error {
	var pe *ekyc.ProviderError
	if errors.As(err, &pe) {
		return dErrors.Wrap(err, dErrors.CodeProviderRejected, pe.Message)
	}

	var transport *ekyc.TransportError
	if errors.As(err, &transport) {
		svc.logger.WarnContext(ctx, "provider unreachable", "error", err)
		return dErrors.Wrap(err, dErrors.CodeTransport, "identity provider unreachable, try again")
	}

	// Auth failures and other domain errors pass through with their code.
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "provider call failed")
}
