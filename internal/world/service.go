package world

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/common/errorx"
	"github.com/gloamlab/gloam/internal/world/content"
	"github.com/gloamlab/gloam/internal/world/database"
	"github.com/gloamlab/gloam/pkg/metrics"
	"github.com/gloamlab/gloam/pkg/trace"
)

// taskTimeout bounds one background task run.
const taskTimeout = 30 * time.Second

const (
	taskDecay = "decay"
	taskDread = "dread_recalc"
)

// Service tracks per-area death counts, the dread levels derived from
// them, and single-word player notes. A background loop decays the
// counts and recalculates dread on their own intervals.
type Service struct {
	logger  *zap.Logger
	db      database.Database
	content *content.Content
	metrics *metrics.Metrics

	minDeaths     int
	decayFactor   float64
	decayInterval time.Duration
	dreadInterval time.Duration

	// pollInterval is the loop tick; each task fires within one tick of
	// its due time.
	pollInterval time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	clock func() time.Time
}

// New creates a world telemetry service
func New(logger *zap.Logger, db database.Database, c *content.Content, m *metrics.Metrics, cfg *config.WorldConfig) *Service {
	return &Service{
		logger:        logger.Named("world"),
		db:            db,
		content:       c,
		metrics:       m,
		minDeaths:     cfg.MinDeathsForDread,
		decayFactor:   cfg.DecayFactor,
		decayInterval: cfg.DecayInterval,
		dreadInterval: cfg.DreadInterval,
		pollInterval:  5 * time.Second,
		clock:         time.Now,
	}
}

// LogDeath records one death in an area and returns the count after the
// increment.
func (s *Service) LogDeath(ctx context.Context, areaID string) (float64, error) {
	if areaID == "" {
		return 0, errorx.ValidationError("area_id", areaID, "must not be empty")
	}

	count, err := s.db.AddDeath(ctx, areaID)
	if err != nil {
		return 0, errorx.StorageError("world_db", err)
	}

	s.metrics.DeathLogged()
	s.logger.Info("death logged",
		zap.String("area_id", areaID),
		zap.Float64("death_count", count))
	return count, nil
}

// DreadLevel returns the current dread level of an area. Areas without
// telemetry report level 0.
func (s *Service) DreadLevel(ctx context.Context, areaID string) (int, error) {
	if areaID == "" {
		return 0, errorx.ValidationError("area_id", areaID, "must not be empty")
	}

	level, err := s.db.GetDreadLevel(ctx, areaID)
	if err != nil {
		return 0, errorx.StorageError("world_db", err)
	}
	return level, nil
}

// ElevatedAreas returns every area with a dread level above zero,
// highest level first.
func (s *Service) ElevatedAreas(ctx context.Context) ([]*database.DreadLevel, error) {
	levels, err := s.db.ListElevatedDreadLevels(ctx)
	if err != nil {
		return nil, errorx.StorageError("world_db", err)
	}
	return levels, nil
}

// AreaName returns the display name a content bundle declared for an
// area, if any.
func (s *Service) AreaName(areaID string) (string, bool) {
	return s.content.AreaName(areaID)
}

// LeaveNote places a single-word note at a location, replacing whatever
// was written there before. The word must come from the content word
// list.
func (s *Service) LeaveNote(ctx context.Context, areaID, noteLocationID, word string) error {
	if areaID == "" {
		return errorx.ValidationError("area_id", areaID, "must not be empty")
	}
	if noteLocationID == "" {
		return errorx.ValidationError("note_location_id", noteLocationID, "must not be empty")
	}
	if !s.content.ValidWord(word) {
		return errorx.ValidationError("word", word, "not in the allowed word list").
			WithDetail("allowed_words", s.content.Words())
	}

	if err := s.db.UpsertNote(ctx, areaID, noteLocationID, word); err != nil {
		return errorx.StorageError("world_db", err)
	}

	s.logger.Info("note left",
		zap.String("area_id", areaID),
		zap.String("note_location_id", noteLocationID),
		zap.String("word", word))
	return nil
}

// PlayerNotes returns the notes left in an area
func (s *Service) PlayerNotes(ctx context.Context, areaID string) ([]*database.PlayerNote, error) {
	if areaID == "" {
		return nil, errorx.ValidationError("area_id", areaID, "must not be empty")
	}

	notes, err := s.db.ListNotes(ctx, areaID)
	if err != nil {
		return nil, errorx.StorageError("world_db", err)
	}
	return notes, nil
}

// DecayDeaths multiplies every death count by the decay factor and
// rounds the result. Counts falling below 1 are deleted so the area
// drops out of dread ranking entirely.
func (s *Service) DecayDeaths(ctx context.Context) error {
	span := trace.Tracer(cnst.TraceWorld).Start(ctx, cnst.SpanWorldDecay)
	defer span.End()
	ctx = span.Ctx
	start := time.Now()

	counts, err := s.db.ListDeathCounts(ctx)
	if err != nil {
		return errorx.StorageError("world_db", err)
	}

	var decayed, dropped int
	for _, count := range counts {
		next := math.Round(count.DeathCount * s.decayFactor)
		if next < 1 {
			if err := s.db.DeleteDeathCount(ctx, count.AreaID); err != nil {
				return errorx.StorageError("world_db", err)
			}
			dropped++
			continue
		}
		if next == count.DeathCount {
			// Rounding held the count in place; nothing to write.
			continue
		}
		count.DeathCount = next
		if err := s.db.SaveDeathCount(ctx, count); err != nil {
			return errorx.StorageError("world_db", err)
		}
		decayed++
	}

	span.WithAttrs(
		attribute.Int(cnst.AttrWorldDecayed, decayed),
		attribute.Int(cnst.AttrWorldDropped, dropped),
	)
	s.metrics.WorldTaskDone(taskDecay, start)
	s.logger.Debug("death counts decayed",
		zap.Int("decayed", decayed),
		zap.Int("dropped", dropped))
	return nil
}

// RecalculateDread rebuilds dread levels from the current death counts.
// All levels reset to zero, then the deadliest eligible area is set to
// 2 and the runner-up to 1. Ties rank by area id so repeated runs over
// the same counts agree.
func (s *Service) RecalculateDread(ctx context.Context) error {
	span := trace.Tracer(cnst.TraceWorld).Start(ctx, cnst.SpanWorldDread)
	defer span.End()
	ctx = span.Ctx
	start := time.Now()

	counts, err := s.db.ListDeathCounts(ctx)
	if err != nil {
		return errorx.StorageError("world_db", err)
	}

	eligible := make([]*database.AreaDeathCount, 0, len(counts))
	for _, count := range counts {
		if count.DeathCount >= float64(s.minDeaths) {
			eligible = append(eligible, count)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].DeathCount != eligible[j].DeathCount {
			return eligible[i].DeathCount > eligible[j].DeathCount
		}
		return eligible[i].AreaID < eligible[j].AreaID
	})

	if err := s.db.ResetDreadLevels(ctx); err != nil {
		return errorx.StorageError("world_db", err)
	}

	elevated := 0
	if len(eligible) > 0 {
		if err := s.db.SetDreadLevel(ctx, eligible[0].AreaID, 2); err != nil {
			return errorx.StorageError("world_db", err)
		}
		elevated++
	}
	if len(eligible) > 1 {
		if err := s.db.SetDreadLevel(ctx, eligible[1].AreaID, 1); err != nil {
			return errorx.StorageError("world_db", err)
		}
		elevated++
	}

	span.WithAttrs(attribute.Int(cnst.AttrWorldElevated, elevated))
	s.metrics.WorldTaskDone(taskDread, start)
	s.logger.Debug("dread levels recalculated",
		zap.Int("eligible", len(eligible)),
		zap.Int("elevated", elevated))
	return nil
}

// Start launches the background loop. Both tasks run once at startup so
// a restart never serves dread derived from counts it no longer has.
func (s *Service) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("world service is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("starting world service",
		zap.Duration("decay_interval", s.decayInterval),
		zap.Duration("dread_interval", s.dreadInterval),
		zap.Float64("decay_factor", s.decayFactor),
		zap.Int("min_deaths_for_dread", s.minDeaths))
	go s.loop(ctx)
	return nil
}

// Stop halts the background loop and waits for it to drain
func (s *Service) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.logger.Info("stopping world service")
	s.cancel()
	<-s.done
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	s.runTask(ctx, taskDecay, s.DecayDeaths)
	s.runTask(ctx, taskDread, s.RecalculateDread)

	lastDecay := s.clock()
	lastDread := lastDecay

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock()
			switch {
			case now.Sub(lastDecay) >= s.decayInterval:
				// Decay changes the ranking inputs, so dread follows
				// immediately instead of waiting out its own interval.
				s.runTask(ctx, taskDecay, s.DecayDeaths)
				s.runTask(ctx, taskDread, s.RecalculateDread)
				lastDecay = now
				lastDread = now
			case now.Sub(lastDread) >= s.dreadInterval:
				s.runTask(ctx, taskDread, s.RecalculateDread)
				lastDread = now
			}
		}
	}
}

func (s *Service) runTask(ctx context.Context, task string, fn func(context.Context) error) {
	tctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := fn(tctx); err != nil {
		s.logger.Error("world task failed",
			zap.String("task", task),
			zap.Error(err))
	}
}
