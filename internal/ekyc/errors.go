package ekyc

import (
	"errors"
	"fmt"
)

// ErrTokenRejected signals that the provider rejected our access token.
// The gateway handles it internally by refreshing the token and retrying
// once; it never escapes to callers.
var ErrTokenRejected = errors.New("provider rejected access token")

// Kind classifies a provider rejection. Callers branch on kinds only, never
// on the provider's free-text message.
type Kind string

// OTP generation rejection kinds.
const (
	KindInvalidFormat      Kind = "invalid_format"      // provider-side format rejection
	KindInvalidSubject     Kind = "invalid_subject"     // id failed the provider's checksum or validity rules
	KindSubjectNotFound    Kind = "subject_not_found"   // no identity registered for this id
	KindRateLimited        Kind = "rate_limited"        // too many OTP requests for this subject
	KindServiceUnavailable Kind = "service_unavailable" // provider temporarily down
)

// OTP verification rejection kinds.
const (
	KindInvalidOTP       Kind = "invalid_otp"       // wrong code, reference still usable
	KindExpired          Kind = "expired"           // OTP window elapsed, reference dead
	KindMaxAttempts      Kind = "max_attempts"      // attempt budget exhausted, reference dead
	KindInvalidReference Kind = "invalid_reference" // reference unknown or already consumed
)

// KindUnknown covers messages the classifier does not recognize.
const KindUnknown Kind = "unknown"

// ProviderError is a provider rejection normalized into a stable kind.
// RetryRecommended tells the caller whether repeating the same operation
// with corrected input can succeed; when false the flow must be restarted.
type ProviderError struct {
	Op               string // "otp_request" or "otp_verify"
	Kind             Kind
	Message          string // provider's original message, for audit and logs
	RetryRecommended bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected %s (%s): %s", e.Op, e.Kind, e.Message)
}

// RequiresNewOTP reports whether the verification failure invalidated the
// OTP reference, forcing the caller to request a fresh OTP.
func (e *ProviderError) RequiresNewOTP() bool {
	switch e.Kind {
	case KindExpired, KindMaxAttempts, KindInvalidReference:
		return true
	default:
		return false
	}
}
