package domain

import "gorm.io/gorm"

// ConnectionState is the explicit lifecycle state of a pair's relationship.
// The persisted row keeps the boolean flags for storage compatibility; this
// enum is derived from them so callers reason about one tagged state instead
// of flag combinations.
type ConnectionState string

const (
	// StateNone means no row exists for the pair.
	StateNone ConnectionState = "none"
	// StateActive means the pair is currently connected.
	StateActive ConnectionState = "active"
	// StateRemoved means the connection was dissolved and no reconnection
	// request is pending.
	StateRemoved ConnectionState = "removed"
	// StateRequested means a reconnection request is pending a decision.
	StateRequested ConnectionState = "requested"
	// StateRejected means the most recent reconnection request was denied.
	// The pair stays removed and no further request can be issued.
	StateRejected ConnectionState = "rejected"
	// StateLimitReached means the pair exhausted its reconnection budget.
	// Terminal with respect to any further reconnection.
	StateLimitReached ConnectionState = "limit_reached"
)

// ReconnectionLimit is the cap on ReconnectionCount. The check is
// strictly-greater-than, so a pair whose count has reached the limit may
// still be reconnected once more before it locks.
const ReconnectionLimit = 5

// State derives the lifecycle state from the row's flags. A nil receiver
// reports StateNone, so callers can pass through "no row found" directly.
func (c *Connection) State() ConnectionState {
	switch {
	case c == nil:
		return StateNone
	case !c.Removed:
		return StateActive
	case c.ReconnectionCount > ReconnectionLimit:
		return StateLimitReached
	case c.ReconnectionRequested && c.ReconnectionRejected:
		return StateRejected
	case c.ReconnectionRequested:
		return StateRequested
	default:
		return StateRemoved
	}
}

// PairKey returns the canonical (low, high) ordering of two user ids. Every
// pair-scoped query, lock, and index uses this ordering so that A→B and B→A
// address the same relationship and locks are always taken in the same order.
func PairKey(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// BeforeSave keeps the canonical pair columns in sync with the two user ids.
func (c *Connection) BeforeSave(*gorm.DB) error {
	c.PairLow, c.PairHigh = PairKey(c.InitiatingUserID, c.ConnectedUserID)
	return nil
}
