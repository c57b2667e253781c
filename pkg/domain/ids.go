// Package domain holds identifier types shared across bounded contexts.
package domain

import "github.com/google/uuid"

// UserID identifies an acting marketplace user (owner or helper account).
type UserID uuid.UUID

func NewUserID() UserID { return UserID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(id), nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ProfileID identifies a materialized identity profile.
type ProfileID uuid.UUID

func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

func ParseProfileID(s string) (ProfileID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(id), nil
}

func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// EntryID identifies an audit log entry.
type EntryID uuid.UUID

func NewEntryID() EntryID { return EntryID(uuid.New()) }

func ParseEntryID(s string) (EntryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return EntryID{}, err
	}
	return EntryID(id), nil
}

func (id EntryID) String() string { return uuid.UUID(id).String() }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
