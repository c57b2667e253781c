package ekyc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"homehelp/internal/audit"
	"homehelp/internal/platform/metrics"
	"homehelp/internal/platform/middleware"
	"homehelp/internal/platform/privacy"
	dErrors "homehelp/pkg/domain-errors"
)

// Subject identifies whose verification a provider call belongs to, for
// audit attribution. GovernmentID is raw here; the gateway masks it before
// anything is recorded or logged.
type Subject struct {
	GovernmentID  string
	ActorID       string
	CorrelationID string
}

// Gateway wraps the provider client with a process-wide access token cache
// and per-call auditing. All provider traffic in the service goes through it.
type Gateway struct {
	client   Client
	recorder audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	sf singleflight.Group
	mu sync.RWMutex
	// token is the cached provider access token. Empty means no valid token
	// is known and the next call must refresh.
	token string
}

// NewGateway creates a gateway. metrics may be nil in tests.
func NewGateway(client Client, recorder audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:   client,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

// RequestOTP asks the provider to send an OTP for the subject's government id.
// Exactly one audit entry is recorded per provider attempt.
func (g *Gateway) RequestOTP(ctx context.Context, sub Subject) (OTPReceipt, error) {
	var receipt OTPReceipt
	err := g.withToken(ctx, func(token string) error {
		var err error
		start := time.Now()
		receipt, err = g.client.RequestOTP(ctx, token, sub.GovernmentID)
		g.observeLatency("otp_request", start)
		g.auditOTPRequest(ctx, sub, receipt, err)
		return err
	})
	if err != nil {
		g.countProviderError(err)
		return OTPReceipt{}, err
	}
	return receipt, nil
}

// VerifyOTP submits the OTP for a pending reference.
func (g *Gateway) VerifyOTP(ctx context.Context, sub Subject, referenceID, otp string) (VerifyResult, error) {
	var result VerifyResult
	err := g.withToken(ctx, func(token string) error {
		var err error
		start := time.Now()
		result, err = g.client.VerifyOTP(ctx, token, referenceID, otp)
		g.observeLatency("otp_verify", start)
		g.auditOTPVerify(ctx, sub, referenceID, result, err)
		return err
	})
	if err != nil {
		g.countProviderError(err)
		return VerifyResult{}, err
	}
	return result, nil
}

// withToken runs fn with a valid access token. If the provider rejects the
// token, the cache is invalidated and fn is retried exactly once with a
// freshly acquired token. A second rejection becomes an auth failure.
func (g *Gateway) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := g.currentToken(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !errors.Is(err, ErrTokenRejected) {
		return err
	}

	g.invalidate(token)
	token, err = g.currentToken(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if errors.Is(err, ErrTokenRejected) {
		return dErrors.New(dErrors.CodeAuthFailure, "provider rejected a freshly issued token")
	}
	return err
}

// currentToken returns the cached token, refreshing it if absent. Concurrent
// refreshes collapse into a single provider call.
func (g *Gateway) currentToken(ctx context.Context) (string, error) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	result, err, _ := g.sf.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited on the flight.
		g.mu.RLock()
		cached := g.token
		g.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		start := time.Now()
		fresh, err := g.client.Authenticate(ctx)
		g.observeLatency("authenticate", start)
		g.auditToken(ctx, err)
		if err != nil {
			var transport *TransportError
			if errors.As(err, &transport) {
				return "", dErrors.Wrap(err, dErrors.CodeTransport, "provider authentication unreachable")
			}
			return "", dErrors.Wrap(err, dErrors.CodeAuthFailure, "provider authentication failed")
		}

		if g.metrics != nil {
			g.metrics.IncrementTokenRefreshes()
		}
		g.mu.Lock()
		g.token = fresh
		g.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// invalidate clears the cache only if it still holds the rejected token,
// so a concurrent refresh is not thrown away.
func (g *Gateway) invalidate(rejected string) {
	g.mu.Lock()
	if g.token == rejected {
		g.token = ""
	}
	g.mu.Unlock()
}

func (g *Gateway) auditToken(ctx context.Context, err error) {
	entry := audit.NewEntry(audit.KindToken)
	entry.CorrelationID = middleware.GetRequestID(ctx)
	entry.RequestPayload = mustJSON(map[string]string{"endpoint": authenticatePath})
	if err != nil {
		entry.ErrorText = err.Error()
	} else {
		entry.Succeeded = true
		// The token itself is a credential and is never recorded.
		entry.ResponsePayload = mustJSON(map[string]string{"access_token": "[redacted]"})
	}
	g.recorder.Record(ctx, entry)
}

func (g *Gateway) auditOTPRequest(ctx context.Context, sub Subject, receipt OTPReceipt, err error) {
	masked := privacy.MaskGovernmentID(sub.GovernmentID)

	entry := audit.NewEntry(audit.KindOTPRequest)
	entry.SubjectID = masked
	entry.ActorID = sub.ActorID
	entry.CorrelationID = sub.CorrelationID
	entry.RequestPayload = mustJSON(map[string]string{
		"aadhaar_number": masked,
		"consent":        "Y",
		"reason":         "kyc",
	})

	switch {
	case err == nil:
		entry.Succeeded = true
		entry.ReferenceID = receipt.ReferenceID
		entry.ResponsePayload = mustJSON(map[string]string{
			"reference_id": receipt.ReferenceID,
			"message":      receipt.Message,
		})
	default:
		entry.ErrorText = err.Error()
	}
	g.recorder.Record(ctx, entry)
}

func (g *Gateway) auditOTPVerify(ctx context.Context, sub Subject, referenceID string, result VerifyResult, err error) {
	entry := audit.NewEntry(audit.KindOTPVerify)
	entry.SubjectID = privacy.MaskGovernmentID(sub.GovernmentID)
	entry.ActorID = sub.ActorID
	entry.CorrelationID = sub.CorrelationID
	entry.ReferenceID = referenceID
	entry.RequestPayload = mustJSON(map[string]string{
		"reference_id": referenceID,
		"otp":          "[redacted]",
	})

	switch {
	case err == nil:
		entry.Succeeded = true
		entry.ResponsePayload = mustJSON(map[string]string{
			"status":  "VALID",
			"message": result.Message,
			"name":    result.Identity.Name,
		})
	default:
		entry.ErrorText = err.Error()
	}
	g.recorder.Record(ctx, entry)
}

// observeLatency records how long a provider call took, per endpoint.
func (g *Gateway) observeLatency(endpoint string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveProviderLatency(endpoint, time.Since(start).Seconds())
}

func (g *Gateway) countProviderError(err error) {
	if g.metrics == nil {
		return
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		g.metrics.IncrementProviderErrors(string(pe.Kind))
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

