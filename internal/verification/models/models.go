// Package models defines the verification session state machine and the
// request/response shapes of the verification API.
package models

import (
	"time"

	profile "homehelp/internal/profile/models"
	id "homehelp/pkg/domain"
)

// Flow names a verification journey. Sessions are keyed by (actor, flow), so
// an owner re-verifying does not disturb a helper verification in progress.
type Flow string

const (
	FlowOwnerRegistration   Flow = "owner_registration"
	FlowOwnerReverification Flow = "owner_reverification"
	FlowHelperVerification  Flow = "helper_verification"
)

// Valid reports whether the flow is one of the known journeys.
func (f Flow) Valid() bool {
	switch f {
	case FlowOwnerRegistration, FlowOwnerReverification, FlowHelperVerification:
		return true
	}
	return false
}

// ProfileClass maps a flow to the profile class it materializes.
func (f Flow) ProfileClass() profile.Class {
	if f == FlowHelperVerification {
		return profile.ClassHelper
	}
	return profile.ClassOwner
}

// IsRegistration reports whether the flow creates a brand-new owner profile,
// which is where the duplicate identity guard applies hardest.
func (f Flow) IsRegistration() bool {
	return f == FlowOwnerRegistration
}

// State is the explicit tag of a verification session. Absence of a session
// is StateUnstarted; a session is only ever created in StateOTPPending.
type State string

const (
	StateUnstarted  State = "unstarted"
	StateOTPPending State = "otp_pending"
	StateVerified   State = "verified"
)

// Session is one in-flight verification, keyed by (actor, flow). It lives in
// Redis for the OTP window and is deleted on terminal success, unrecoverable
// failure, or abandon.
type Session struct {
	ActorID      id.UserID `json:"actor_id"`
	Flow         Flow      `json:"flow"`
	GovernmentID string    `json:"government_id"`
	ReferenceID  string    `json:"reference_id"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the OTP window has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
