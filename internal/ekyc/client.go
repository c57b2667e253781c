package ekyc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"homehelp/internal/platform/config"
)

const (
	otpRequestEntity = "in.co.sandbox.kyc.aadhaar.okyc.otp.request"
	otpVerifyEntity  = "in.co.sandbox.kyc.aadhaar.okyc.request"

	authenticatePath = "/authenticate"
	otpRequestPath   = "/kyc/aadhaar/okyc/otp"
	otpVerifyPath    = "/kyc/aadhaar/okyc/otp/verify"
)

// Client is the low-level provider API surface the gateway builds on.
type Client interface {
	Authenticate(ctx context.Context) (string, error)
	RequestOTP(ctx context.Context, token, governmentID string) (OTPReceipt, error)
	VerifyOTP(ctx context.Context, token, referenceID, otp string) (VerifyResult, error)
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	apiVersion string
	httpClient *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// NewHTTPClient creates a provider client from configuration.
func NewHTTPClient(cfg config.Provider, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authenticateResponse struct {
	AccessToken string `json:"access_token"`
}

// Authenticate exchanges the API credentials for an access token.
func (c *HTTPClient) Authenticate(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authenticatePath, nil)
	if err != nil {
		return "", &TransportError{Op: "authenticate", Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-secret", c.apiSecret)
	req.Header.Set("x-api-version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // response fully read below

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "authenticate", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider authentication failed (status %d): %s", resp.StatusCode, providerMessage(body))
	}

	var parsed authenticateResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return "", &TransportError{Op: "authenticate", Err: fmt.Errorf("unparseable authentication response")}
	}
	return parsed.AccessToken, nil
}

type otpRequestBody struct {
	Entity        string `json:"@entity"`
	AadhaarNumber string `json:"aadhaar_number"`
	Consent       string `json:"consent"`
	Reason        string `json:"reason"`
}

type otpRequestResponse struct {
	Data struct {
		ReferenceID json.Number `json:"reference_id"`
		Message     string      `json:"message"`
	} `json:"data"`
	Message string `json:"message"`
}

// RequestOTP asks the provider to send an OTP to the identity's linked phone.
func (c *HTTPClient) RequestOTP(ctx context.Context, token, governmentID string) (OTPReceipt, error) {
	body := otpRequestBody{
		Entity:        otpRequestEntity,
		AadhaarNumber: governmentID,
		Consent:       "Y",
		Reason:        "kyc",
	}

	respBody, err := c.post(ctx, "otp_request", otpRequestPath, token, body)
	if err != nil {
		return OTPReceipt{}, err
	}

	var parsed otpRequestResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return OTPReceipt{}, &TransportError{Op: "otp_request", Err: fmt.Errorf("unparseable response")}
	}
	if parsed.Data.ReferenceID.String() == "" {
		return OTPReceipt{}, ClassifyOTPRequest(firstNonEmpty(parsed.Data.Message, parsed.Message))
	}

	return OTPReceipt{
		ReferenceID: parsed.Data.ReferenceID.String(),
		Message:     parsed.Data.Message,
	}, nil
}

type otpVerifyBody struct {
	Entity      string `json:"@entity"`
	ReferenceID string `json:"reference_id"`
	OTP         string `json:"otp"`
}

type otpVerifyResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		IdentityPayload
	} `json:"data"`
	Message string `json:"message"`
}

// VerifyOTP submits the OTP for a pending reference and returns the verified
// identity payload on success.
func (c *HTTPClient) VerifyOTP(ctx context.Context, token, referenceID, otp string) (VerifyResult, error) {
	body := otpVerifyBody{
		Entity:      otpVerifyEntity,
		ReferenceID: referenceID,
		OTP:         otp,
	}

	respBody, err := c.post(ctx, "otp_verify", otpVerifyPath, token, body)
	if err != nil {
		return VerifyResult{}, err
	}

	var parsed otpVerifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return VerifyResult{}, &TransportError{Op: "otp_verify", Err: fmt.Errorf("unparseable response")}
	}
	if parsed.Data.Status != "VALID" {
		return VerifyResult{}, ClassifyOTPVerify(firstNonEmpty(parsed.Data.Message, parsed.Message))
	}

	return VerifyResult{
		Message:  parsed.Data.Message,
		Identity: parsed.Data.IdentityPayload,
	}, nil
}

// post issues an authorized POST and normalizes HTTP-level failures.
// Token rejections surface as ErrTokenRejected so the gateway can refresh;
// other non-2xx responses are classified by the operation's table.
func (c *HTTPClient) post(ctx context.Context, op, path, token string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("authorization", token)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-version", c.apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // response fully read below

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrTokenRejected
	case resp.StatusCode >= 500:
		return nil, &TransportError{Op: op, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		if op == "otp_verify" {
			return nil, ClassifyOTPVerify(providerMessage(body))
		}
		return nil, ClassifyOTPRequest(providerMessage(body))
	}
	return body, nil
}

// providerMessage extracts the human-readable message from an error body.
func providerMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	return firstNonEmpty(parsed.Data.Message, parsed.Message)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
