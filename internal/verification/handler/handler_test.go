package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homehelp/internal/ekyc"
	"homehelp/internal/platform/logger"
	"homehelp/internal/platform/middleware/auth"
	profilestore "homehelp/internal/profile/store"
	"homehelp/internal/verification/handler"
	"homehelp/internal/verification/service"
	"homehelp/internal/verification/store/session"
	id "homehelp/pkg/domain"
)

const signingKey = "test-signing-key"

type scriptedGateway struct {
	requestErr error
	verifyErr  error
}

func (g *scriptedGateway) RequestOTP(context.Context, ekyc.Subject) (ekyc.OTPReceipt, error) {
	if g.requestErr != nil {
		return ekyc.OTPReceipt{}, g.requestErr
	}
	return ekyc.OTPReceipt{ReferenceID: "ref-1", Message: "OTP sent"}, nil
}

func (g *scriptedGateway) VerifyOTP(context.Context, ekyc.Subject, string, string) (ekyc.VerifyResult, error) {
	if g.verifyErr != nil {
		return ekyc.VerifyResult{}, g.verifyErr
	}
	return ekyc.VerifyResult{
		Message:  "Aadhaar Card Exists",
		Identity: ekyc.IdentityPayload{Name: "Asha Kumari"},
	}, nil
}

func newServer(t *testing.T, gateway *scriptedGateway) *httptest.Server {
	t.Helper()
	log := logger.New()
	svc := service.New(gateway, session.NewInMemoryStore(), profilestore.NewInMemoryStore(), log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(auth.NewValidator(signingKey), log))
		handler.NewHandler(svc, log).Register(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, userID id.UserID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestRequestOTPEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "otp_pending", body["state"])
	assert.Equal(t, "ref-1", body["reference_id"])
	assert.Equal(t, "OTP sent", body["message"])
}

func TestRequestOTPEndpointValidation(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing government id", map[string]string{"flow": "owner_registration"}},
		{"short government id", map[string]string{"government_id": "1234", "flow": "owner_registration"}},
		{"unknown flow", map[string]string{"government_id": "123456789012", "flow": "visa_application"}},
		{"missing flow", map[string]string{"government_id": "123456789012"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_input", body["error"])
		})
	}
}

func TestRequestOTPEndpointRequiresAuth(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/verification/otp", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyOTPEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	_, _ = doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp/verify", token, map[string]string{
		"flow": "owner_registration",
		"otp":  "654321",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "verified", body["state"])
	assert.Equal(t, "Asha Kumari", body["name"])
	assert.NotEmpty(t, body["profile_id"])
}

func TestVerifyOTPEndpointWithoutPendingSession(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp/verify", token, map[string]string{
		"flow": "owner_registration",
		"otp":  "654321",
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_state", body["error"])
}

func TestVerifyOTPEndpointProviderRejection(t *testing.T) {
	gateway := &scriptedGateway{
		verifyErr: &ekyc.ProviderError{
			Op:               "verify_otp",
			Kind:             ekyc.KindInvalidOTP,
			Message:          "Invalid OTP",
			RetryRecommended: true,
		},
	}
	srv := newServer(t, gateway)
	token := signToken(t, id.NewUserID())

	_, _ = doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp/verify", token, map[string]string{
		"flow": "owner_registration",
		"otp":  "000000",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "provider_rejected", body["error"])
	assert.Equal(t, "invalid_otp", body["provider_kind"])
	assert.Equal(t, true, body["retry_recommended"])
	_, hasNewOTP := body["new_otp_required"]
	assert.False(t, hasNewOTP, "invalid otp does not force a new request")
}

func TestVerifyOTPEndpointExpiredReference(t *testing.T) {
	gateway := &scriptedGateway{
		verifyErr: &ekyc.ProviderError{
			Op:      "verify_otp",
			Kind:    ekyc.KindExpired,
			Message: "OTP expired",
		},
	}
	srv := newServer(t, gateway)
	token := signToken(t, id.NewUserID())

	_, _ = doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	resp, body := doJSON(t, srv, http.MethodPost, "/verification/otp/verify", token, map[string]string{
		"flow": "owner_registration",
		"otp":  "654321",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "expired", body["provider_kind"])
	assert.Equal(t, true, body["new_otp_required"])
}

func TestStatusEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	resp, body := doJSON(t, srv, http.MethodGet, "/verification/status?flow=owner_registration", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unstarted", body["state"])

	_, _ = doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	resp, body = doJSON(t, srv, http.MethodGet, "/verification/status?flow=owner_registration", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "otp_pending", body["state"])
	assert.NotEmpty(t, body["expires_at"])

	t.Run("unknown flow rejected", func(t *testing.T) {
		resp, body := doJSON(t, srv, http.MethodGet, "/verification/status?flow=bogus", token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_input", body["error"])
	})
}

func TestAbandonEndpoint(t *testing.T) {
	srv := newServer(t, &scriptedGateway{})
	token := signToken(t, id.NewUserID())

	_, _ = doJSON(t, srv, http.MethodPost, "/verification/otp", token, map[string]string{
		"government_id": "123456789012",
		"flow":          "owner_registration",
	})

	resp, _ := doJSON(t, srv, http.MethodDelete, "/verification?flow=owner_registration", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/verification/status?flow=owner_registration", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unstarted", body["state"])
}
