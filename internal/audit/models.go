// Package audit records every interaction with the eKYC provider in an
// append-only log. Recording is best-effort: a failed or dropped audit write
// never fails the operation being audited.
package audit

import (
	"encoding/json"
	"time"

	id "homehelp/pkg/domain"
)

// Kind identifies which provider interaction an entry describes.
type Kind string

const (
	KindToken      Kind = "token"
	KindOTPRequest Kind = "otp_request"
	KindOTPVerify  Kind = "otp_verify"
)

// Entry is one append-only audit record. SubjectID is stored masked and
// payload snapshots have credentials redacted before they reach the publisher.
type Entry struct {
	ID              id.EntryID      `json:"id"`
	Kind            Kind            `json:"kind"`
	SubjectID       string          `json:"subject_id,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	Succeeded       bool            `json:"succeeded"`
	ErrorText       string          `json:"error_text,omitempty"`
	ActorID         string          `json:"actor_id,omitempty"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewEntry creates an entry with a fresh ID and timestamp.
func NewEntry(kind Kind) Entry {
	return Entry{
		ID:        id.NewEntryID(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// Filter narrows audit queries. Zero values match everything.
type Filter struct {
	SubjectID string
	Kind      Kind
	Succeeded *bool
	Limit     int
	Offset    int
}

// Matches reports whether an entry satisfies the filter (used by the memory store).
func (f Filter) Matches(e Entry) bool {
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Succeeded != nil && e.Succeeded != *f.Succeeded {
		return false
	}
	return true
}
