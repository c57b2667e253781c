package ekyc

import "strings"

// The provider reports rejections as free-text messages rather than stable
// codes, so classification is substring matching over known phrasings. The
// tables are exercised exhaustively by unit tests; an unrecognized message
// falls through to KindUnknown rather than guessing.

type classification struct {
	patterns         []string
	kind             Kind
	retryRecommended bool
}

// otpRequestTable classifies OTP generation rejections. Order matters: more
// specific phrasings are listed before broader ones.
var otpRequestTable = []classification{
	{
		patterns: []string{"too many", "rate limit", "limit exceeded", "try after"},
		kind:     KindRateLimited, retryRecommended: true,
	},
	{
		patterns: []string{"unavailable", "maintenance", "try again later", "source down"},
		kind:     KindServiceUnavailable, retryRecommended: true,
	},
	{
		patterns: []string{"does not exist", "not found", "no record", "not registered"},
		kind:     KindSubjectNotFound, retryRecommended: false,
	},
	{
		patterns: []string{"invalid format", "malformed", "must be 12 digit"},
		kind:     KindInvalidFormat, retryRecommended: false,
	},
	{
		patterns: []string{"invalid aadhaar", "invalid id", "checksum", "verhoeff"},
		kind:     KindInvalidSubject, retryRecommended: false,
	},
}

// otpVerifyTable classifies OTP verification rejections. Kinds that kill the
// reference (expired, max attempts, invalid reference) recommend a retry
// because the caller can always start over with a fresh OTP.
var otpVerifyTable = []classification{
	{
		patterns: []string{"expired", "timed out"},
		kind:     KindExpired, retryRecommended: true,
	},
	{
		patterns: []string{"attempts exceeded", "maximum attempts", "too many attempts"},
		kind:     KindMaxAttempts, retryRecommended: true,
	},
	{
		patterns: []string{"invalid reference", "reference id not found", "no otp request", "request not found"},
		kind:     KindInvalidReference, retryRecommended: true,
	},
	{
		patterns: []string{"invalid otp", "incorrect otp", "otp mismatch", "wrong otp"},
		kind:     KindInvalidOTP, retryRecommended: true,
	},
}

// ClassifyOTPRequest normalizes an OTP generation rejection message.
func ClassifyOTPRequest(message string) *ProviderError {
	return classify("otp_request", message, otpRequestTable)
}

// ClassifyOTPVerify normalizes an OTP verification rejection message.
func ClassifyOTPVerify(message string) *ProviderError {
	return classify("otp_verify", message, otpVerifyTable)
}

func classify(op, message string, table []classification) *ProviderError {
	lowered := strings.ToLower(message)
	for _, c := range table {
		for _, p := range c.patterns {
			if strings.Contains(lowered, p) {
				return &ProviderError{
					Op:               op,
					Kind:             c.kind,
					Message:          message,
					RetryRecommended: c.retryRecommended,
				}
			}
		}
	}
	return &ProviderError{Op: op, Kind: KindUnknown, Message: message}
}
