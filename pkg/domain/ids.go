// Package domain defines typed identifiers shared across the module.
//
// IDs are distinct types over uuid.UUID so an actor ID can never be passed
// where a session ID is expected. Parse functions enforce the invariant that
// IDs are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "garrison/pkg/domain-errors"
)

type (
	// ActorID identifies the person performing an operation.
	ActorID uuid.UUID
	// SessionID identifies an authenticated session.
	SessionID uuid.UUID
	// StaffID identifies a personnel record.
	StaffID uuid.UUID
	// EventID identifies an audit event.
	EventID uuid.UUID
)

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

// ParseActorID validates and converts a string into an ActorID.
func ParseActorID(raw string) (ActorID, error) {
	parsed, err := parseUUID(raw)
	return ActorID(parsed), err
}

// ParseSessionID validates and converts a string into a SessionID.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	return SessionID(parsed), err
}

// ParseStaffID validates and converts a string into a StaffID.
func ParseStaffID(raw string) (StaffID, error) {
	parsed, err := parseUUID(raw)
	return StaffID(parsed), err
}

// NewEventID generates a fresh event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

func (id ActorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id ActorID) String() string   { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id StaffID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }
