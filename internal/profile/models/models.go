// Package models defines the durable identity profile written by the
// verification workflow.
package models

import (
	"time"

	id "homehelp/pkg/domain"
)

// Class distinguishes owner profiles from helper profiles. Uniqueness of a
// government id is enforced within a class, not across classes.
type Class string

const (
	ClassOwner  Class = "owner"
	ClassHelper Class = "helper"
)

// Status is the verification state of a profile.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// Address is the structured address from the identity provider.
type Address struct {
	House       string `json:"house,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
	Street      string `json:"street,omitempty"`
	Subdistrict string `json:"subdistrict,omitempty"`
	VTC         string `json:"vtc,omitempty"`
	District    string `json:"district,omitempty"`
	State       string `json:"state,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
	PostOffice  string `json:"post_office,omitempty"`
	Country     string `json:"country,omitempty"`
}

// LegacyAddress is the flattened address quadruple older marketplace screens
// still read. It is derived from Address, never entered directly.
type LegacyAddress struct {
	Pincode   string `json:"pincode,omitempty"`
	State     string `json:"state,omitempty"`
	City      string `json:"city,omitempty"`
	Society   string `json:"society,omitempty"`
	Street    string `json:"street,omitempty"`
	Apartment string `json:"apartment,omitempty"`
}

// DeriveLegacyAddress maps the structured address onto the legacy quadruple:
// city prefers district and falls back to the village/town/city field,
// society comes from landmark, apartment from house.
func DeriveLegacyAddress(a Address) LegacyAddress {
	city := a.District
	if city == "" {
		city = a.VTC
	}
	return LegacyAddress{
		Pincode:   a.Pincode,
		State:     a.State,
		City:      city,
		Society:   a.Landmark,
		Street:    a.Street,
		Apartment: a.House,
	}
}

// Profile is a materialized identity for an owner or helper. Created on
// first successful verification and refreshed in place on re-verification.
type Profile struct {
	ID           id.ProfileID `json:"id"`
	Class        Class        `json:"class"`
	OwnerUserID  id.UserID    `json:"owner_user_id"`
	GovernmentID string       `json:"-"` // raw id, unique per class, never serialized
	Status       Status       `json:"status"`
	VerifiedAt   *time.Time   `json:"verified_at,omitempty"`

	Name        string        `json:"name,omitempty"`
	CareOf      string        `json:"care_of,omitempty"`
	DateOfBirth string        `json:"date_of_birth,omitempty"`
	YearOfBirth int           `json:"year_of_birth,omitempty"`
	Gender      string        `json:"gender,omitempty"`
	Photo       string        `json:"-"` // base64 photo, kept out of API responses
	FullAddress string        `json:"full_address,omitempty"`
	Address     Address       `json:"address"`
	Legacy      LegacyAddress `json:"legacy_address"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
