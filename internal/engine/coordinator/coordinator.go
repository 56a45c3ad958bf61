package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/common/errorx"
	"github.com/gloamlab/gloam/internal/engine/notifier"
	"github.com/gloamlab/gloam/internal/engine/retry"
	"github.com/gloamlab/gloam/internal/engine/rules"
	"github.com/gloamlab/gloam/internal/engine/session"
	"github.com/gloamlab/gloam/internal/engine/state"
	"github.com/gloamlab/gloam/internal/engine/storage"
	"github.com/gloamlab/gloam/pkg/metrics"
	"github.com/gloamlab/gloam/pkg/trace"
)

// Submission pipeline phases, surfaced in logs and traces.
const (
	phaseIdle       = "IDLE"
	phaseValidating = "VALIDATING"
	phaseCommitting = "COMMITTING"
)

// Outcome is the result of a move submission, fresh or replayed from the
// ledger. Rejections share this shape; they are protocol results, not
// errors.
type Outcome struct {
	SessionID string
	Accepted  bool
	Reason    cnst.RejectionReason

	// StateVersion and Turn describe the state after the commit for
	// accepted moves, and the observed state for rejections.
	StateVersion int64
	Turn         int
	TurnHolder   string
	Summary      string

	// Replayed is true when the outcome came from the idempotency
	// ledger instead of a new commit.
	Replayed bool
}

// Coordinator runs the move submission pipeline: resolve the session,
// validate against current state, commit by compare-and-swap, record.
// It holds no lock across I/O; the state store's per-key version check
// is the only serialization point.
type Coordinator struct {
	logger   *zap.Logger
	store    storage.Store
	state    state.Store
	notifier notifier.Notifier
	metrics  *metrics.Metrics

	retryBound       int
	attemptTimeout   time.Duration
	enforceTurnOrder bool
	storageRetry     retry.Policy

	clock session.Clock
}

// New creates a coordinator over the given collaborators.
func New(logger *zap.Logger, store storage.Store, st state.Store, n notifier.Notifier, m *metrics.Metrics, cfg *config.EngineConfig) *Coordinator {
	bound := 3
	if cfg.RetryBound != nil {
		bound = *cfg.RetryBound
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = 5 * time.Second
	}
	return &Coordinator{
		logger:           logger.Named("engine.coordinator"),
		store:            store,
		state:            st,
		notifier:         n,
		metrics:          m,
		retryBound:       bound,
		attemptTimeout:   attemptTimeout,
		enforceTurnOrder: cfg.EnforceTurnOrder,
		storageRetry:     retry.FromConfig(cfg.StorageRetry),
		clock:            time.Now,
	}
}

// SubmitMove runs one move through the pipeline and returns its outcome.
// Identical resubmissions by the same participant replay the recorded
// outcome without a second commit.
func (c *Coordinator) SubmitMove(ctx context.Context, move session.Move) (*Outcome, error) {
	span := trace.Tracer(cnst.TraceCoordinator).Start(ctx, cnst.SpanMoveSubmit).WithAttrs(
		attribute.String(cnst.AttrSessionID, move.SessionID),
		attribute.String(cnst.AttrParticipantID, move.ParticipantID),
	)
	defer span.End()
	ctx = span.Ctx

	start := time.Now()
	c.metrics.MoveStart()

	out, casRetries, err := c.submit(ctx, move)

	switch {
	case err != nil:
		span.WithAttrs(attribute.String(cnst.AttrErrorReason, err.Error()))
		c.metrics.MoveDone("Error", errorKind(err), casRetries, start)
	case out.Accepted:
		span.WithAttrs(
			attribute.String(cnst.AttrMoveOutcome, cnst.OutcomeAccepted.String()),
			attribute.Int64(cnst.AttrStateVersion, out.StateVersion),
			attribute.Int(cnst.AttrCASRetries, casRetries),
		)
		c.metrics.MoveDone(cnst.OutcomeAccepted.String(), "", casRetries, start)
	default:
		span.WithAttrs(
			attribute.String(cnst.AttrMoveOutcome, cnst.OutcomeRejected.String()),
			attribute.String(cnst.AttrRejectReason, out.Reason.String()),
		)
		c.metrics.MoveDone(cnst.OutcomeRejected.String(), out.Reason.String(), casRetries, start)
	}
	return out, err
}

func (c *Coordinator) submit(ctx context.Context, move session.Move) (*Outcome, int, error) {
	logger := c.logger.With(
		zap.String("session_id", move.SessionID),
		zap.String("participant_id", move.ParticipantID),
	)
	logger.Debug("move received", zap.String("phase", phaseIdle))

	if move.SessionID == "" {
		return nil, 0, errorx.ValidationError("session_id", move.SessionID, "must not be empty")
	}

	sess, err := c.resolveSession(ctx, move.SessionID)
	if err != nil {
		return nil, 0, err
	}

	// Idempotency short-circuit. A resubmission by the recording
	// participant replays the ledger row without touching state; a key
	// held by someone else flows into validation as a collision.
	prior, err := c.lookupMove(ctx, move.SessionID, move.IdempotencyKey)
	if err != nil {
		return nil, 0, err
	}
	keyConsumedByOther := false
	if prior != nil {
		if prior.ParticipantID == move.ParticipantID {
			logger.Info("replaying recorded outcome",
				zap.String("idempotency_key", move.IdempotencyKey),
				zap.Int64("state_version", prior.StateVersion))
			return c.replayOutcome(sess, prior), 0, nil
		}
		keyConsumedByOther = true
	}

	casRetries := 0
	for attempt := 0; ; attempt++ {
		out, err := c.attemptMove(ctx, sess, move, keyConsumedByOther)
		if err == nil {
			if out.Accepted {
				c.recordCommit(ctx, sess, move, out)
			}
			return out, casRetries, nil
		}

		if errors.Is(err, state.ErrVersionConflict) {
			c.metrics.CASConflict()
			if attempt >= c.retryBound {
				logger.Warn("commit retry budget exhausted",
					zap.Int("retries", casRetries))
				return nil, casRetries, errorx.ContentionError(sess.ID, casRetries)
			}
			casRetries++
			logger.Debug("version conflict, revalidating against fresh state",
				zap.String("phase", phaseCommitting),
				zap.Int("retry", casRetries))
			if serr := c.storageRetry.Sleep(ctx, attempt+1); serr != nil {
				return nil, casRetries, serr
			}
			continue
		}

		return nil, casRetries, err
	}
}

// attemptMove runs one validate-and-commit pass under the per-attempt
// timeout. A version conflict comes back unwrapped for the retry loop;
// every other failure is already classified.
func (c *Coordinator) attemptMove(ctx context.Context, sess *session.Session, move session.Move, keyConsumedByOther bool) (*Outcome, error) {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	vspan := trace.Tracer(cnst.TraceCoordinator).Start(actx, cnst.SpanMoveValidate).WithAttrs(
		attribute.String(cnst.AttrSessionID, sess.ID),
		attribute.String(cnst.AttrVariantID, sess.Variant.ID),
	)

	versioned, err := c.readState(vspan.Ctx, sess.ID)
	if err != nil {
		vspan.End()
		if errors.Is(err, state.ErrSessionNotFound) {
			return nil, errorx.SessionNotFoundError(sess.ID)
		}
		return nil, mapStorageFailure("state store", sess.ID, "read state", err)
	}

	env, err := rules.Decode(versioned.Blob)
	if err != nil {
		vspan.End()
		return nil, fmt.Errorf("failed to decode state for session %s: %w", sess.ID, err)
	}

	c.logger.Debug("validating move",
		zap.String("phase", phaseValidating),
		zap.String("session_id", sess.ID),
		zap.Int64("state_version", versioned.Version))

	result := rules.Validate(rules.Input{
		Session:            sess,
		State:              env,
		Move:               move,
		EnforceTurnOrder:   c.enforceTurnOrder,
		KeyConsumedByOther: keyConsumedByOther,
	})
	if !result.Accepted {
		vspan.WithAttrs(attribute.String(cnst.AttrRejectReason, result.Reason.String())).End()
		return &Outcome{
			SessionID:    sess.ID,
			Reason:       result.Reason,
			StateVersion: versioned.Version,
			Turn:         env.Turn,
			TurnHolder:   c.turnHolder(sess, env.Turn),
		}, nil
	}
	vspan.End()

	next := rules.Apply(env, result.Delta)
	blob, err := next.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode state for session %s: %w", sess.ID, err)
	}

	cspan := trace.Tracer(cnst.TraceCoordinator).Start(actx, cnst.SpanMoveCommit).WithAttrs(
		attribute.String(cnst.AttrSessionID, sess.ID),
		attribute.Int64(cnst.AttrStateVersion, versioned.Version),
	)
	newVersion, err := c.casState(cspan.Ctx, sess.ID, versioned.Version, blob)
	cspan.End()
	if err != nil {
		if errors.Is(err, state.ErrVersionConflict) {
			return nil, err
		}
		if errors.Is(err, state.ErrSessionNotFound) {
			return nil, errorx.SessionNotFoundError(sess.ID)
		}
		return nil, mapStorageFailure("state store", sess.ID, "compare-and-swap", err)
	}

	return &Outcome{
		SessionID:    sess.ID,
		Accepted:     true,
		StateVersion: newVersion,
		Turn:         next.Turn,
		TurnHolder:   c.turnHolder(sess, next.Turn),
		Summary:      result.Delta.Summary,
	}, nil
}

// recordCommit appends the ledger row, refreshes the session record and
// emits move.committed. The commit is already durable at this point, so
// bookkeeping failures are logged and counted, never surfaced to the
// submitter. The work detaches from caller cancellation so a client
// disconnect cannot lose the ledger row behind an accepted move.
func (c *Coordinator) recordCommit(ctx context.Context, sess *session.Session, move session.Move, out *Outcome) {
	bctx := context.WithoutCancel(ctx)
	now := c.clock()
	logger := c.logger.With(
		zap.String("session_id", sess.ID),
		zap.Int64("state_version", out.StateVersion),
	)

	row := &storage.MoveRecord{
		SessionID:      sess.ID,
		ParticipantID:  move.ParticipantID,
		IdempotencyKey: move.IdempotencyKey,
		Payload:        string(move.Payload),
		StateVersion:   out.StateVersion,
		Turn:           out.Turn,
		Summary:        out.Summary,
		SubmittedAt:    now,
	}
	if err := c.store.AppendMove(bctx, row); err != nil {
		c.metrics.StorageError("move_ledger")
		logger.Error("failed to append move ledger row", zap.Error(err))
	}

	sess.Touch(move.ParticipantID, now)
	sess.StateVersion = out.StateVersion
	sess.Moves++
	if rules.TurnOrderEnforced(sess, c.enforceTurnOrder) {
		sess.Status = cnst.StatusAwaitingTurn
	} else {
		sess.Status = cnst.StatusActive
	}
	if err := c.store.UpdateSession(bctx, sess); err != nil {
		c.metrics.StorageError("session_record")
		logger.Error("failed to update session record", zap.Error(err))
	}

	c.emit(bctx, notifier.EventMoveCommitted, sess.ID, out.StateVersion, map[string]any{
		"participant_id": move.ParticipantID,
		"turn":           out.Turn,
		"summary":        out.Summary,
	})

	logger.Info("move committed",
		zap.String("participant_id", move.ParticipantID),
		zap.Int("turn", out.Turn),
		zap.String("summary", out.Summary))
}

// replayOutcome rebuilds the response for a move already in the ledger.
func (c *Coordinator) replayOutcome(sess *session.Session, rec *storage.MoveRecord) *Outcome {
	return &Outcome{
		SessionID:    sess.ID,
		Accepted:     true,
		StateVersion: rec.StateVersion,
		Turn:         rec.Turn,
		TurnHolder:   c.turnHolder(sess, rec.Turn),
		Summary:      rec.Summary,
		Replayed:     true,
	}
}

// GetSession returns the session record and its state envelope. The
// version on the returned session reflects the live state store when the
// session is live; archived sessions fall back to the final-state
// snapshot. A nil envelope means no state document survives.
func (c *Coordinator) GetSession(ctx context.Context, id string) (*session.Session, *rules.Envelope, error) {
	sess, err := c.resolveSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var raw []byte
	if sess.Status.IsLive() {
		versioned, err := c.readState(ctx, id)
		switch {
		case err == nil:
			raw = versioned.Blob
			sess.StateVersion = versioned.Version
		case errors.Is(err, state.ErrSessionNotFound):
			// The record outlived its state entry; serve record data.
		default:
			return nil, nil, mapStorageFailure("state store", id, "read state", err)
		}
	} else if len(sess.FinalState) > 0 {
		raw = sess.FinalState
	}

	if raw == nil {
		return sess, nil, nil
	}
	env, err := rules.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode state for session %s: %w", id, err)
	}
	return sess, env, nil
}

// ListMoves returns the committed move history, newest first. A
// non-positive limit returns the full ledger.
func (c *Coordinator) ListMoves(ctx context.Context, sessionID string, limit int) ([]*storage.MoveRecord, error) {
	if _, err := c.resolveSession(ctx, sessionID); err != nil {
		return nil, err
	}
	moves, err := c.store.ListMoves(ctx, sessionID, limit)
	if err != nil {
		return nil, mapStorageFailure("move_ledger", sessionID, "list moves", err)
	}
	return moves, nil
}

// TurnHolder resolves the turn holder for a session's current state, or
// empty when turn order does not apply.
func (c *Coordinator) TurnHolder(sess *session.Session, turn int) string {
	return c.turnHolder(sess, turn)
}

func (c *Coordinator) turnHolder(sess *session.Session, turn int) string {
	if !sess.IsLive() || !rules.TurnOrderEnforced(sess, c.enforceTurnOrder) {
		return ""
	}
	return sess.TurnHolder(turn)
}

func (c *Coordinator) resolveSession(ctx context.Context, id string) (*session.Session, error) {
	var sess *session.Session
	err := retry.Do(ctx, c.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		sess, rerr = c.store.GetSession(ctx, id)
		return rerr
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errorx.SessionNotFoundError(id)
		}
		return nil, mapStorageFailure("session_record", id, "resolve session", err)
	}
	return sess, nil
}

// lookupMove returns the ledger row holding the idempotency key, or nil
// when the key is unused. Empty keys never reach the ledger; validation
// rejects them.
func (c *Coordinator) lookupMove(ctx context.Context, sessionID, key string) (*storage.MoveRecord, error) {
	if key == "" {
		return nil, nil
	}
	var rec *storage.MoveRecord
	err := retry.Do(ctx, c.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		rec, rerr = c.store.GetMoveByKey(ctx, sessionID, key)
		return rerr
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, mapStorageFailure("move_ledger", sessionID, "lookup idempotency key", err)
	}
	return rec, nil
}

func (c *Coordinator) readState(ctx context.Context, id string) (*state.Versioned, error) {
	var v *state.Versioned
	err := retry.Do(ctx, c.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		v, rerr = c.state.Read(ctx, id)
		return rerr
	})
	return v, err
}

func (c *Coordinator) casState(ctx context.Context, id string, expected int64, blob []byte) (int64, error) {
	var version int64
	err := retry.Do(ctx, c.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		version, rerr = c.state.CompareAndSwap(ctx, id, expected, blob)
		return rerr
	})
	return version, err
}

// emit publishes an event; delivery failures are counted and logged only.
func (c *Coordinator) emit(ctx context.Context, t notifier.EventType, sessionID string, version int64, payload any) {
	if c.notifier == nil || !c.notifier.CanSend() {
		return
	}
	event := notifier.NewEvent(t, sessionID, version)
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = raw
		}
	}
	if err := c.notifier.Notify(ctx, event); err != nil {
		c.metrics.NotifierEvent(string(t), "error")
		c.logger.Warn("failed to deliver event",
			zap.String("type", string(t)),
			zap.Error(err))
		return
	}
	c.metrics.NotifierEvent(string(t), "ok")
}

// transientFailure reports whether a storage failure is worth another
// attempt. Sentinel outcomes are decisions, not failures, and terminal
// context errors cannot improve on retry.
func transientFailure(err error) bool {
	switch {
	case errors.Is(err, state.ErrVersionConflict),
		errors.Is(err, state.ErrSessionNotFound),
		errors.Is(err, state.ErrSessionExists),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrSessionExists),
		errors.Is(err, storage.ErrDuplicateMove),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// mapStorageFailure classifies a persistence failure: deadline expiry is
// a timeout, caller cancellation propagates, anything else surfaces as
// storage unavailability.
func mapStorageFailure(component, sessionID, op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorx.ErrStorageTimeout.Clone().
			WithDetail("session_id", sessionID).
			WithDetail("operation", op)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errorx.StorageError(component, err).
			WithDetail("session_id", sessionID).
			WithDetail("operation", op)
	}
}

func errorKind(err error) string {
	var apiErr *errorx.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Category)
	}
	return string(errorx.CategoryInternal)
}
