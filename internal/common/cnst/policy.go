package cnst

// DuplicateSessionPolicy decides what happens when a session is created
// with a participant set and variant identical to a live session.
type DuplicateSessionPolicy string

const (
	// PolicyAllow skips the duplicate check entirely
	PolicyAllow DuplicateSessionPolicy = "allow"
	// PolicyReject rejects the creation attempt outright
	PolicyReject DuplicateSessionPolicy = "reject"
	// PolicyReturnExisting returns the already-live session instead
	PolicyReturnExisting DuplicateSessionPolicy = "returnExisting"
)
