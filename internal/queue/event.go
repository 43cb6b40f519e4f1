// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// ReservationConfirmedEvent is published after a reservation commits:
// the slot was decremented and the ledger entry is durable.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID  uint64 `json:"reservation_id"`
	Code           string `json:"code"`
	UserID         uint64 `json:"user_id"`
	Username       string `json:"username"`
	SessionID      uint64 `json:"session_id"`
	SlotsRemaining uint32 `json:"slots_remaining"`
	ReservedAt     string `json:"reserved_at"`
}

// LedgerReconcileEvent is published on the partial-failure path: a
// slot was consumed but its ledger entry did not become durable.
// Operators replay these to restore the ledger/capacity invariant.
// The embedded record is everything needed to re-append the entry.
type LedgerReconcileEvent struct {
	Code           string `json:"code"`
	UserID         uint64 `json:"user_id"`
	Username       string `json:"username"`
	SessionID      uint64 `json:"session_id"`
	SlotsRemaining uint32 `json:"slots_remaining"`
	ReservedAt     string `json:"reserved_at"`
	Reason         string `json:"reason"`
}
