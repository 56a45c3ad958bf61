package cnst

// Tracer names used across the services
const (
	// TraceCoordinator is the tracer name for the move submission pipeline
	TraceCoordinator = "gloam/coordinator"
	// TraceLifecycle is the tracer name for session lifecycle management
	TraceLifecycle = "gloam/lifecycle"
	// TraceWorld is the tracer name for the world telemetry service
	TraceWorld = "gloam/world"
)

// Common span names and prefixes
const (
	// SpanMoveSubmit represents the full move submission pipeline
	SpanMoveSubmit = "engine.move.submit"
	// SpanMoveValidate represents the pure validation phase
	SpanMoveValidate = "engine.move.validate"
	// SpanMoveCommit represents one compare-and-swap commit attempt
	SpanMoveCommit = "engine.move.commit"
	// SpanSessionCreate represents session creation
	SpanSessionCreate = "engine.session.create"
	// SpanSweep represents one lifecycle sweep pass
	SpanSweep = "engine.lifecycle.sweep"
	// SpanWorldDecay represents one death count decay pass
	SpanWorldDecay = "world.deaths.decay"
	// SpanWorldDread represents one dread level recalculation
	SpanWorldDread = "world.dread.recalc"
)

// Common attribute keys
const (
	AttrSessionID     = "session.id"
	AttrSessionStatus = "session.status"
	AttrParticipantID = "participant.id"
	AttrVariantID     = "variant.id"
	AttrMoveOutcome   = "move.outcome"
	AttrRejectReason  = "move.reject_reason"
	AttrCASRetries    = "move.cas_retries"
	AttrStateVersion  = "state.version"
	AttrSweepExpired  = "sweep.expired"
	AttrSweepArchived = "sweep.archived"
	AttrAreaID        = "area.id"
	AttrWorldDecayed  = "world.decayed_areas"
	AttrWorldDropped  = "world.dropped_areas"
	AttrWorldElevated = "world.elevated_areas"
	AttrErrorReason   = "error.reason"
	AttrClientAddr    = "client.remote_addr"
)
