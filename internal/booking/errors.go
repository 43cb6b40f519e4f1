// Package booking implements the reservation core: the session
// catalog and reservation ledger contracts, and the service that
// orchestrates authenticate → locate → decrement → append.  Sentinel
// errors defined here let handlers map each failure to a stable HTTP
// status with errors.Is.
package booking

import "errors"

// ErrSessionNotFound is returned when the requested session id does
// not exist.  It is distinct from ErrNoCapacity: a nonexistent
// session is never "full".
var ErrSessionNotFound = errors.New("session not found")

// ErrNoCapacity is returned when a session has no slots remaining.
// Exhaustion is not transient; callers should not retry.
var ErrNoCapacity = errors.New("session has no remaining slots")

// ErrLedgerWrite is returned when a slot was decremented but the
// ledger append did not become durable.  Capacity has been consumed
// without its paired record, so this error must be reconciled out of
// band; it is never the caller's to retry.
var ErrLedgerWrite = errors.New("ledger write failed")
