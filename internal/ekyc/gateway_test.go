package ekyc_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homehelp/internal/audit"
	"homehelp/internal/ekyc"
	"homehelp/internal/platform/logger"
	"homehelp/internal/platform/metrics"
	dErrors "homehelp/pkg/domain-errors"
)

// stubClient scripts provider behavior per call.
type stubClient struct {
	mu           sync.Mutex
	authCalls    atomic.Int32
	otpCalls     atomic.Int32
	verifyCalls  atomic.Int32
	authErr      error
	tokens       []string
	rejectTokens map[string]bool
	otpErr       error
	verifyErr    error
	receipt      ekyc.OTPReceipt
	verifyResult ekyc.VerifyResult
}

func newStubClient() *stubClient {
	return &stubClient{
		tokens:       []string{"tok-1", "tok-2", "tok-3"},
		rejectTokens: map[string]bool{},
		receipt:      ekyc.OTPReceipt{ReferenceID: "ref-1", Message: "OTP sent"},
		verifyResult: ekyc.VerifyResult{Message: "verified", Identity: ekyc.IdentityPayload{Name: "Asha"}},
	}
}

func (s *stubClient) Authenticate(context.Context) (string, error) {
	n := s.authCalls.Add(1)
	if s.authErr != nil {
		return "", s.authErr
	}
	idx := int(n) - 1
	if idx >= len(s.tokens) {
		idx = len(s.tokens) - 1
	}
	return s.tokens[idx], nil
}

func (s *stubClient) RequestOTP(_ context.Context, token, _ string) (ekyc.OTPReceipt, error) {
	s.otpCalls.Add(1)
	s.mu.Lock()
	rejected := s.rejectTokens[token]
	s.mu.Unlock()
	if rejected {
		return ekyc.OTPReceipt{}, ekyc.ErrTokenRejected
	}
	if s.otpErr != nil {
		return ekyc.OTPReceipt{}, s.otpErr
	}
	return s.receipt, nil
}

func (s *stubClient) VerifyOTP(_ context.Context, token, _, _ string) (ekyc.VerifyResult, error) {
	s.verifyCalls.Add(1)
	s.mu.Lock()
	rejected := s.rejectTokens[token]
	s.mu.Unlock()
	if rejected {
		return ekyc.VerifyResult{}, ekyc.ErrTokenRejected
	}
	if s.verifyErr != nil {
		return ekyc.VerifyResult{}, s.verifyErr
	}
	return s.verifyResult, nil
}

// syncRecorder records entries inline so tests see them immediately.
type syncRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *syncRecorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *syncRecorder) byKind(kind audit.Kind) []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func testSubject() ekyc.Subject {
	return ekyc.Subject{GovernmentID: "123456789012", ActorID: "actor-1", CorrelationID: "req-1"}
}

func TestGatewayCachesToken(t *testing.T) {
	client := newStubClient()
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	require.NoError(t, err)
	_, err = gw.RequestOTP(context.Background(), testSubject())
	require.NoError(t, err)
	_, err = gw.VerifyOTP(context.Background(), testSubject(), "ref-1", "123456")
	require.NoError(t, err)

	assert.Equal(t, int32(1), client.authCalls.Load())
	assert.Len(t, recorder.byKind(audit.KindToken), 1)
}

func TestGatewayRefreshesRejectedTokenOnce(t *testing.T) {
	client := newStubClient()
	client.rejectTokens["tok-1"] = true
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	receipt, err := gw.RequestOTP(context.Background(), testSubject())
	require.NoError(t, err)
	assert.Equal(t, "ref-1", receipt.ReferenceID)

	// First token rejected, second acquired and used.
	assert.Equal(t, int32(2), client.authCalls.Load())
	assert.Equal(t, int32(2), client.otpCalls.Load())
}

func TestGatewayPersistentRejectionIsAuthFailure(t *testing.T) {
	client := newStubClient()
	client.rejectTokens["tok-1"] = true
	client.rejectTokens["tok-2"] = true
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthFailure))

	// Exactly one retry: two provider attempts, no more.
	assert.Equal(t, int32(2), client.otpCalls.Load())
}

func TestGatewayAuthenticateFailure(t *testing.T) {
	client := newStubClient()
	client.authErr = errors.New("invalid api key")
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthFailure))

	// No OTP call without a token, but the failed acquisition is audited.
	assert.Equal(t, int32(0), client.otpCalls.Load())
	tokenEntries := recorder.byKind(audit.KindToken)
	require.Len(t, tokenEntries, 1)
	assert.False(t, tokenEntries[0].Succeeded)
	assert.Contains(t, tokenEntries[0].ErrorText, "invalid api key")
}

func TestGatewayConcurrentRefreshCollapses(t *testing.T) {
	client := newStubClient()
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.RequestOTP(context.Background(), testSubject())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), client.authCalls.Load())
	assert.Len(t, recorder.byKind(audit.KindToken), 1)
	assert.Len(t, recorder.byKind(audit.KindOTPRequest), 16)
}

func TestGatewayAuditsMaskedSubject(t *testing.T) {
	client := newStubClient()
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	require.NoError(t, err)

	entries := recorder.byKind(audit.KindOTPRequest)
	require.Len(t, entries, 1)
	assert.Equal(t, "XXXXXXXX9012", entries[0].SubjectID)
	assert.Equal(t, "actor-1", entries[0].ActorID)
	assert.Equal(t, "ref-1", entries[0].ReferenceID)
	assert.True(t, entries[0].Succeeded)
	assert.NotContains(t, string(entries[0].RequestPayload), "123456789012")
}

func TestGatewayAuditsVerifyWithRedactedOTP(t *testing.T) {
	client := newStubClient()
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.VerifyOTP(context.Background(), testSubject(), "ref-1", "123456")
	require.NoError(t, err)

	entries := recorder.byKind(audit.KindOTPVerify)
	require.Len(t, entries, 1)
	assert.NotContains(t, string(entries[0].RequestPayload), "123456")
	assert.Contains(t, string(entries[0].RequestPayload), "[redacted]")
}

func TestGatewayObservesProviderLatency(t *testing.T) {
	client := newStubClient()
	recorder := &syncRecorder{}
	m := metrics.New()
	gw := ekyc.NewGateway(client, recorder, m, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	require.NoError(t, err)
	_, err = gw.VerifyOTP(context.Background(), testSubject(), "ref-1", "123456")
	require.NoError(t, err)

	// One latency series each for authenticate, otp_request, and otp_verify.
	assert.Equal(t, 3, testutil.CollectAndCount(m.ProviderLatency))
}

func TestGatewayPropagatesProviderError(t *testing.T) {
	client := newStubClient()
	client.otpErr = ekyc.ClassifyOTPRequest("Too many requests. Please try after some time")
	recorder := &syncRecorder{}
	gw := ekyc.NewGateway(client, recorder, nil, logger.New())

	_, err := gw.RequestOTP(context.Background(), testSubject())
	var pe *ekyc.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ekyc.KindRateLimited, pe.Kind)

	entries := recorder.byKind(audit.KindOTPRequest)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Succeeded)
}

