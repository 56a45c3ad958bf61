package cnst

// Outcome represents the result of a move submission
type Outcome string

const (
	// OutcomeAccepted represents a committed move
	OutcomeAccepted Outcome = "Accepted"
	// OutcomeRejected represents a move refused by validation
	OutcomeRejected Outcome = "Rejected"
)

func (o Outcome) String() string {
	return string(o)
}

// RejectionReason explains why a move was rejected. Reasons are checked
// in declaration order; the first failing check wins.
type RejectionReason string

const (
	// ReasonSessionNotActive means the session is expired, archived or unknown
	ReasonSessionNotActive RejectionReason = "SessionNotActive"
	// ReasonNotParticipant means the submitter is not part of the session
	ReasonNotParticipant RejectionReason = "NotParticipant"
	// ReasonDuplicateIdempotencyKey means the key was consumed by another participant
	ReasonDuplicateIdempotencyKey RejectionReason = "DuplicateIdempotencyKey"
	// ReasonOutOfTurn means it is not the submitter's turn
	ReasonOutOfTurn RejectionReason = "OutOfTurn"
	// ReasonInvalidPayload means the move payload failed variant rules
	ReasonInvalidPayload RejectionReason = "InvalidPayload"
)

func (r RejectionReason) String() string {
	return string(r)
}
