package cnst

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	// StatusActive means the session accepts moves and no turn gate applies right now
	StatusActive SessionStatus = "ACTIVE"
	// StatusAwaitingTurn means the session accepts moves from the turn holder only
	StatusAwaitingTurn SessionStatus = "AWAITING_TURN"
	// StatusExpired means the inactivity timeout elapsed; moves are refused
	StatusExpired SessionStatus = "EXPIRED"
	// StatusArchived means the session left the hot path; only reads remain
	StatusArchived SessionStatus = "ARCHIVED"
)

func (s SessionStatus) String() string {
	return string(s)
}

// IsLive reports whether the session can still accept moves.
func (s SessionStatus) IsLive() bool {
	return s == StatusActive || s == StatusAwaitingTurn
}
