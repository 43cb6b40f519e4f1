package model

import "time"

// Reservation is one committed ledger entry linking a user to a
// session at a point in time.  A reservation exists if and only if a
// successful slot decrement was committed against the referenced
// session, so for every session the entry count equals
// CapacityTotal - SlotsRemaining.  Entries are append-only: they are
// never updated or deleted by this service.
//
// Fields:
//  ID         – primary key identifier (insertion order).
//  Code       – opaque reference returned to the client.
//  UserID     – user who reserved the slot.
//  Username   – email of the user at commit time.
//  SessionID  – session the slot belongs to.
//  ReservedAt – commit timestamp, recorded in UTC.
type Reservation struct {
	ID         uint64    `json:"id"`          // reservations.id
	Code       string    `json:"code"`        // reservations.code
	UserID     uint64    `json:"user_id"`     // reservations.user_id
	Username   string    `json:"username"`    // reservations.username
	SessionID  uint64    `json:"session_id"`  // reservations.session_id
	ReservedAt time.Time `json:"reserved_at"` // reservations.reserved_at
}
