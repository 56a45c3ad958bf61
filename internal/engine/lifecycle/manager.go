package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
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
	"github.com/gloamlab/gloam/internal/engine/variant"
	"github.com/gloamlab/gloam/pkg/metrics"
	"github.com/gloamlab/gloam/pkg/trace"
)

// CreateInput carries a session creation request.
type CreateInput struct {
	// SessionID is optional; empty mints a fresh one.
	SessionID    string
	Participants []string
	Metadata     map[string]string
}

// Report summarizes one sweep pass.
type Report struct {
	Expired  int
	Archived int
	Pruned   int64
}

// Manager creates sessions and walks them through expiry, archival and
// ledger pruning. One manager runs per process; the sweep loop is its
// only goroutine.
type Manager struct {
	logger   *zap.Logger
	store    storage.Store
	state    state.Store
	assigner *variant.Assigner
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	factory  *session.Factory

	duplicatePolicy   cnst.DuplicateSessionPolicy
	inactivityTimeout time.Duration
	archiveGrace      time.Duration
	retention         time.Duration
	sweepInterval     time.Duration
	storageRetry      retry.Policy

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	clock session.Clock
}

// New creates a lifecycle manager over the given collaborators.
func New(logger *zap.Logger, store storage.Store, st state.Store, assigner *variant.Assigner, n notifier.Notifier, m *metrics.Metrics, cfg *config.EngineConfig) *Manager {
	mgr := &Manager{
		logger:            logger.Named("engine.lifecycle"),
		store:             store,
		state:             st,
		assigner:          assigner,
		notifier:          n,
		metrics:           m,
		duplicatePolicy:   cfg.DuplicatePolicy,
		inactivityTimeout: cfg.SessionInactivityTimeout,
		archiveGrace:      cfg.ArchiveGracePeriod,
		retention:         cfg.IdempotencyRetention,
		sweepInterval:     cfg.SweepInterval,
		storageRetry:      retry.FromConfig(cfg.StorageRetry),
		clock:             time.Now,
	}
	// The factory reads through the manager's clock so both tick
	// together.
	mgr.factory = session.NewFactory(func() time.Time { return mgr.clock() }, nil)
	return mgr
}

// CreateSession assigns a variant, initializes state at version 0 and
// persists the session record. The record write comes last, so a
// resolvable session always has a durable variant assignment. The
// returned flag is true when an existing live session was returned
// under the returnExisting duplicate policy.
func (m *Manager) CreateSession(ctx context.Context, in CreateInput) (*session.Session, bool, error) {
	span := trace.Tracer(cnst.TraceLifecycle).Start(ctx, cnst.SpanSessionCreate)
	defer span.End()
	ctx = span.Ctx

	participants, err := session.NormalizeParticipants(in.Participants)
	if err != nil {
		return nil, false, errorx.ValidationError("participants", in.Participants, err.Error())
	}

	if m.duplicatePolicy != cnst.PolicyAllow {
		existing, err := m.findLive(ctx, session.Fingerprint(participants))
		switch {
		case err == nil:
			if m.duplicatePolicy == cnst.PolicyReturnExisting {
				m.logger.Info("returning existing session for participant set",
					zap.String("session_id", existing.ID))
				return existing, true, nil
			}
			return nil, false, errorx.ErrDuplicateSession.Clone().
				WithDetail("existing_session_id", existing.ID)
		case errors.Is(err, storage.ErrNotFound):
			// no live duplicate
		default:
			return nil, false, err
		}
	}

	id := in.SessionID
	if id == "" {
		id = m.factory.NewID()
	}
	span.WithAttrs(attribute.String(cnst.AttrSessionID, id))

	snapshot, err := m.assigner.Assign(id, len(participants))
	if err != nil {
		if errors.Is(err, variant.ErrNoEligibleVariant) {
			return nil, false, errorx.ErrNoEligibleVariant.Clone().
				WithDetail("participant_count", len(participants))
		}
		return nil, false, fmt.Errorf("failed to assign variant for session %s: %w", id, err)
	}
	span.WithAttrs(attribute.String(cnst.AttrVariantID, snapshot.ID))

	sess := m.factory.New(id, participants, snapshot)
	sess.Metadata = in.Metadata

	createdState, err := m.initState(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if err := m.createRecord(ctx, sess); err != nil {
		if errors.Is(err, storage.ErrSessionExists) {
			// A concurrent creation won the record write; its state
			// entry must survive.
			return nil, false, errorx.ErrSessionIDTaken.Clone().
				WithDetail("session_id", id)
		}
		if createdState {
			bctx := context.WithoutCancel(ctx)
			if derr := m.state.Delete(bctx, id); derr != nil && !errors.Is(derr, state.ErrSessionNotFound) {
				m.logger.Error("failed to roll back state entry",
					zap.String("session_id", id), zap.Error(derr))
			}
		}
		return nil, false, mapStorageFailure("session_record", "create session", err)
	}

	m.metrics.SessionEvent("created")
	m.emit(ctx, notifier.EventSessionCreated, id, 0, map[string]any{
		"participants": participants,
		"variant_id":   snapshot.ID,
	})
	m.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("variant_id", snapshot.ID),
		zap.Int("participants", len(participants)))
	return sess, false, nil
}

// initState writes the version 0 envelope. An existing entry with no
// session record is debris from a creation that never finished its
// record write; its content is the same empty envelope, so it is reused.
func (m *Manager) initState(ctx context.Context, id string) (bool, error) {
	blob, err := rules.NewEnvelope().Encode()
	if err != nil {
		return false, fmt.Errorf("failed to encode initial state: %w", err)
	}

	err = retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		return m.state.Create(ctx, id, blob)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, state.ErrSessionExists):
		_, gerr := m.store.GetSession(ctx, id)
		if errors.Is(gerr, storage.ErrNotFound) {
			m.logger.Debug("reusing orphaned state entry",
				zap.String("session_id", id))
			return false, nil
		}
		if gerr != nil {
			return false, mapStorageFailure("session_record", "resolve session", gerr)
		}
		return false, errorx.ErrSessionIDTaken.Clone().WithDetail("session_id", id)
	default:
		return false, mapStorageFailure("state store", "initialize state", err)
	}
}

// ExpireInactive runs one sweep pass: expire idle live sessions, archive
// expired ones past the grace period, prune ledger rows past retention.
// Per-session failures are logged and skipped so one bad row cannot
// stall the sweep.
func (m *Manager) ExpireInactive(ctx context.Context) (Report, error) {
	span := trace.Tracer(cnst.TraceLifecycle).Start(ctx, cnst.SpanSweep)
	defer span.End()
	ctx = span.Ctx

	start := time.Now()
	now := m.clock()
	var report Report

	expirable, err := m.listExpirable(ctx, now.Add(-m.inactivityTimeout))
	if err != nil {
		return report, err
	}
	for _, sess := range expirable {
		if m.expire(ctx, sess, now) {
			report.Expired++
		}
	}

	archivable, err := m.listArchivable(ctx, now.Add(-m.archiveGrace))
	if err != nil {
		return report, err
	}
	for _, sess := range archivable {
		if m.archive(ctx, sess, now) {
			report.Archived++
		}
	}

	pruned, err := m.pruneMoves(ctx, now.Add(-m.retention))
	if err != nil {
		m.logger.Error("failed to prune move ledger", zap.Error(err))
	} else {
		report.Pruned = pruned
	}

	span.WithAttrs(
		attribute.Int(cnst.AttrSweepExpired, report.Expired),
		attribute.Int(cnst.AttrSweepArchived, report.Archived),
	)
	m.metrics.SweepDone(report.Expired, start)
	m.logger.Info("sweep pass finished",
		zap.Int("expired", report.Expired),
		zap.Int("archived", report.Archived),
		zap.Int64("pruned", report.Pruned))
	return report, nil
}

func (m *Manager) expire(ctx context.Context, sess *session.Session, now time.Time) bool {
	sess.Status = cnst.StatusExpired
	sess.ExpiredAt = &now
	if err := m.updateRecord(ctx, sess); err != nil {
		m.metrics.StorageError("session_record")
		m.logger.Error("failed to expire session",
			zap.String("session_id", sess.ID), zap.Error(err))
		return false
	}
	m.metrics.SessionEvent("expired")
	m.emit(ctx, notifier.EventSessionExpired, sess.ID, sess.StateVersion, nil)
	m.logger.Info("session expired",
		zap.String("session_id", sess.ID),
		zap.Time("last_move_at", sess.LastMoveAt))
	return true
}

// archive snapshots the final state onto the record before deleting the
// live entry, in that order: a crash in between leaves a harmless
// orphan entry, never an archived session without its final state.
func (m *Manager) archive(ctx context.Context, sess *session.Session, now time.Time) bool {
	versioned, err := m.readState(ctx, sess.ID)
	switch {
	case err == nil:
		sess.FinalState = versioned.Blob
		sess.StateVersion = versioned.Version
	case errors.Is(err, state.ErrSessionNotFound):
		// already gone, archive with what the record has
	default:
		m.logger.Error("failed to snapshot state for archival",
			zap.String("session_id", sess.ID), zap.Error(err))
		return false
	}

	sess.Status = cnst.StatusArchived
	sess.ArchivedAt = &now
	if err := m.updateRecord(ctx, sess); err != nil {
		m.metrics.StorageError("session_record")
		m.logger.Error("failed to archive session",
			zap.String("session_id", sess.ID), zap.Error(err))
		return false
	}

	if err := m.deleteState(ctx, sess.ID); err != nil && !errors.Is(err, state.ErrSessionNotFound) {
		m.metrics.StorageError("state store")
		m.logger.Error("failed to delete state entry after archival",
			zap.String("session_id", sess.ID), zap.Error(err))
	}

	m.metrics.SessionEvent("archived")
	m.emit(ctx, notifier.EventSessionArchived, sess.ID, sess.StateVersion, nil)
	m.logger.Info("session archived",
		zap.String("session_id", sess.ID),
		zap.Int64("state_version", sess.StateVersion))
	return true
}

// Start launches the background sweep loop. A sweep.requested event
// from a receiving notifier triggers an immediate pass between ticks.
func (m *Manager) Start() error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("lifecycle manager is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	var requests <-chan *notifier.Event
	if m.notifier != nil && m.notifier.CanReceive() {
		ch, err := m.notifier.Watch(ctx)
		if err != nil {
			m.logger.Warn("failed to watch for sweep requests", zap.Error(err))
		} else {
			requests = ch
		}
	}

	m.logger.Info("starting lifecycle manager",
		zap.Duration("sweep_interval", m.sweepInterval))
	go m.sweepLoop(ctx, requests)
	return nil
}

// Stop halts the sweep loop and waits for it to exit. Stopping a
// manager that never started is a no-op.
func (m *Manager) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	m.logger.Info("stopping lifecycle manager")
	m.cancel()
	<-m.done
	return nil
}

func (m *Manager) sweepLoop(ctx context.Context, requests <-chan *notifier.Event) {
	defer close(m.done)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("lifecycle sweep loop stopped")
			return
		case <-ticker.C:
			m.runSweep(ctx)
		case event, ok := <-requests:
			if !ok {
				// nil channel blocks forever
				requests = nil
				continue
			}
			if event.Type != notifier.EventSweepRequested {
				continue
			}
			m.logger.Info("sweep requested", zap.String("event_id", event.ID))
			m.runSweep(ctx)
		}
	}
}

func (m *Manager) runSweep(ctx context.Context) {
	if _, err := m.ExpireInactive(ctx); err != nil {
		m.logger.Error("sweep pass failed", zap.Error(err))
	}
}

func (m *Manager) findLive(ctx context.Context, fingerprint string) (*session.Session, error) {
	var sess *session.Session
	err := retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		sess, rerr = m.store.FindLiveByFingerprint(ctx, fingerprint)
		return rerr
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, mapStorageFailure("session_record", "find by fingerprint", err)
	}
	return sess, nil
}

func (m *Manager) createRecord(ctx context.Context, sess *session.Session) error {
	return retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		return m.store.CreateSession(ctx, sess)
	})
}

func (m *Manager) updateRecord(ctx context.Context, sess *session.Session) error {
	return retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		return m.store.UpdateSession(ctx, sess)
	})
}

func (m *Manager) listExpirable(ctx context.Context, before time.Time) ([]*session.Session, error) {
	var sessions []*session.Session
	err := retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		sessions, rerr = m.store.ListExpirable(ctx, before)
		return rerr
	})
	if err != nil {
		return nil, mapStorageFailure("session_record", "list expirable", err)
	}
	return sessions, nil
}

func (m *Manager) listArchivable(ctx context.Context, before time.Time) ([]*session.Session, error) {
	var sessions []*session.Session
	err := retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		sessions, rerr = m.store.ListArchivable(ctx, before)
		return rerr
	})
	if err != nil {
		return nil, mapStorageFailure("session_record", "list archivable", err)
	}
	return sessions, nil
}

func (m *Manager) pruneMoves(ctx context.Context, before time.Time) (int64, error) {
	var pruned int64
	err := retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		pruned, rerr = m.store.PruneMoves(ctx, before)
		return rerr
	})
	return pruned, err
}

func (m *Manager) readState(ctx context.Context, id string) (*state.Versioned, error) {
	var v *state.Versioned
	err := retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		var rerr error
		v, rerr = m.state.Read(ctx, id)
		return rerr
	})
	return v, err
}

func (m *Manager) deleteState(ctx context.Context, id string) error {
	return retry.Do(ctx, m.storageRetry, transientFailure, func(ctx context.Context) error {
		return m.state.Delete(ctx, id)
	})
}

// emit publishes a lifecycle event; delivery failures are logged only.
func (m *Manager) emit(ctx context.Context, t notifier.EventType, sessionID string, version int64, payload any) {
	if m.notifier == nil || !m.notifier.CanSend() {
		return
	}
	event := notifier.NewEvent(t, sessionID, version)
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = raw
		}
	}
	if err := m.notifier.Notify(ctx, event); err != nil {
		m.metrics.NotifierEvent(string(t), "error")
		m.logger.Warn("failed to deliver event",
			zap.String("type", string(t)),
			zap.Error(err))
		return
	}
	m.metrics.NotifierEvent(string(t), "ok")
}

// transientFailure reports whether a storage failure is worth another
// attempt. Sentinel outcomes are decisions, not failures, and terminal
// context errors cannot improve on retry.
func transientFailure(err error) bool {
	switch {
	case errors.Is(err, state.ErrSessionNotFound),
		errors.Is(err, state.ErrSessionExists),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrSessionExists),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func mapStorageFailure(component, op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorx.ErrStorageTimeout.Clone().WithDetail("operation", op)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errorx.StorageError(component, err).WithDetail("operation", op)
	}
}
