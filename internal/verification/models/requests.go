package models

import (
	"time"

	s "homehelp/pkg/string"
	"homehelp/pkg/validation"
)

// RequestOTPRequest starts (or restarts) a verification flow.
type RequestOTPRequest struct {
	GovernmentID string `json:"government_id" validate:"required,len=12,numeric"`
	Flow         string `json:"flow" validate:"required,oneof=owner_registration owner_reverification helper_verification"`
}

func (r *RequestOTPRequest) Sanitize() {
	s.TrimStrings(&r.GovernmentID, &r.Flow)
}

func (r *RequestOTPRequest) Validate() error {
	return validation.Validate(r)
}

// VerifyOTPRequest submits the OTP for a pending flow.
type VerifyOTPRequest struct {
	Flow string `json:"flow" validate:"required,oneof=owner_registration owner_reverification helper_verification"`
	OTP  string `json:"otp" validate:"required,len=6,numeric"`
}

func (r *VerifyOTPRequest) Sanitize() {
	s.TrimStrings(&r.Flow, &r.OTP)
}

func (r *VerifyOTPRequest) Validate() error {
	return validation.Validate(r)
}

// RequestOTPResponse reports a session now waiting on its OTP.
type RequestOTPResponse struct {
	State       State  `json:"state"`
	ReferenceID string `json:"reference_id"`
	Message     string `json:"message,omitempty"`
}

// VerifyOTPResponse reports a completed verification.
type VerifyOTPResponse struct {
	State     State  `json:"state"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
}

// StatusResponse reports the current state of a flow for the acting user.
type StatusResponse struct {
	Flow      Flow       `json:"flow"`
	State     State      `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
