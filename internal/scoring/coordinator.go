package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/soniclint/soniclint/internal/analyze"
	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/observe"
	"github.com/soniclint/soniclint/internal/store"
)

// Coordinator drains segment-created notifications through a bounded queue
// into a fixed pool of scoring workers. Each segment moves through
// queued -> scoring -> persisted, or is skipped on a counted error; a failure
// never stops the worker loop or affects other segments.
//
// Enqueue honours the configured backpressure policy. Closing the
// coordinator cancels idle workers immediately while a worker mid-segment
// finishes its segment first, so no partial records are written.
type Coordinator struct {
	cfg       config.ScoringConfig
	analyzers config.AnalyzersConfig
	registry  *analyze.ProfileRegistry
	media     media.Store
	scores    store.ScoreStore // nil disables relational persistence
	pub       notify.Publisher
	metrics   *observe.Metrics

	queue  chan notify.SegmentCreated
	newSet func() *workerSet
	group  *errgroup.Group
	cancel context.CancelFunc
}

// Per-metric analyzer contracts, satisfied by the analyze package types.
type (
	intelligibilityScorer interface {
		Analyze(samples []float64, sampleRate int) analyze.Result
	}
	naturalnessScorer interface {
		Analyze(samples []float64, sampleRate int) analyze.Result
	}
	archetypeScorer interface {
		Analyze(samples []float64, sampleRate int, archetypeID string) analyze.Result
	}
	stabilityScorer interface {
		Analyze(samples []float64, sampleRate int, effectsApplied bool, fx *analyze.EffectsMetadata) analyze.Result
	}
)

// workerSet is one worker's private analyzer instances.
type workerSet struct {
	intelligibility intelligibilityScorer
	naturalness     naturalnessScorer
	archetype       archetypeScorer
	stability       stabilityScorer
}

// NewCoordinator wires a coordinator to its collaborators. scores may be nil
// when relational persistence is disabled; registry may be nil when no
// archetype profiles are deployed.
func NewCoordinator(
	cfg config.ScoringConfig,
	analyzers config.AnalyzersConfig,
	registry *analyze.ProfileRegistry,
	mediaStore media.Store,
	scores store.ScoreStore,
	pub notify.Publisher,
	metrics *observe.Metrics,
) *Coordinator {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	c := &Coordinator{
		cfg:       cfg,
		analyzers: analyzers,
		registry:  registry,
		media:     mediaStore,
		scores:    scores,
		pub:       pub,
		metrics:   metrics,
		queue:     make(chan notify.SegmentCreated, queueSize),
	}
	c.newSet = c.defaultSet
	return c
}

// defaultSet builds one worker's private analyzer instances. The
// intelligibility analyzer caches per call and must not be shared across
// workers.
func (c *Coordinator) defaultSet() *workerSet {
	return &workerSet{
		intelligibility: analyze.NewIntelligibility(c.analyzers.Intelligibility),
		naturalness:     analyze.NewNaturalness(c.analyzers.Naturalness),
		archetype:       analyze.NewArchetype(c.analyzers.Archetype, c.registry),
		stability:       analyze.NewStability(c.analyzers.Stability),
	}
}

// Start launches the worker pool. Workers run until Close is called or ctx
// is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	c.group = g

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	for i := range workers {
		g.Go(func() error {
			return c.worker(gctx, i)
		})
	}
	slog.Info("scoring coordinator started",
		"workers", workers,
		"queue_size", cap(c.queue),
		"backpressure", string(c.cfg.Backpressure),
	)
}

// Close stops the worker pool and waits for mid-segment workers to finish
// their current segment.
func (c *Coordinator) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	return c.group.Wait()
}

// Enqueue hands one segment-created notification to the worker pool. Under
// the block policy a full queue makes the caller wait; under drop_newest the
// notification is discarded and counted.
func (c *Coordinator) Enqueue(ctx context.Context, ev notify.SegmentCreated) error {
	if c.cfg.Backpressure == config.BackpressureDropNewest {
		select {
		case c.queue <- ev:
			c.metrics.QueueDepth.Add(ctx, 1)
		default:
			c.metrics.DroppedNotifications.Add(ctx, 1)
			slog.Warn("scoring queue full; notification dropped", "segment_id", ev.SegmentID)
		}
		return nil
	}

	select {
	case c.queue <- ev:
		c.metrics.QueueDepth.Add(ctx, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLen reports the current scoring queue backlog, used for readiness
// checks.
func (c *Coordinator) QueueLen() int {
	return len(c.queue)
}

// worker is the scoring loop for one pool slot.
func (c *Coordinator) worker(ctx context.Context, id int) error {
	set := c.newSet()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("scoring worker stopped", "worker", id)
			return nil
		case ev := <-c.queue:
			c.metrics.QueueDepth.Add(ctx, -1)
			c.score(ctx, id, set, ev)
		}
	}
}

// score takes one segment through retrieval, analysis, persistence, and the
// scores-computed event. A segment accepted here is finished even if
// shutdown starts mid-flight.
func (c *Coordinator) score(ctx context.Context, workerID int, set *workerSet, ev notify.SegmentCreated) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observe.StartSpan(ctx, "scoring.segment",
		trace.WithAttributes(
			attribute.String("segment_id", ev.SegmentID),
			attribute.String("segment_type", ev.SegmentType),
		))
	defer span.End()
	logger := observe.Logger(ctx).With("worker", workerID, "segment_id", ev.SegmentID)

	clip, err := c.media.Get(ctx, ev.MediaRef)
	if err != nil {
		c.metrics.RecordPipelineError(ctx, "retrieval")
		c.metrics.RecordSegmentScored(ctx, "skipped")
		if errors.Is(err, media.ErrNotFound) {
			logger.Warn("segment media missing; skipped", "media_ref", ev.MediaRef)
		} else {
			logger.Error("segment media retrieval failed; skipped",
				"media_ref", ev.MediaRef, "err", err)
		}
		return
	}

	rec, err := c.analyzeSegment(ctx, set, ev, clip)
	if err != nil {
		c.metrics.RecordPipelineError(ctx, "analysis")
		c.metrics.RecordSegmentScored(ctx, "failed")
		logger.Error("segment analysis failed", "err", err)
		return
	}

	if c.scores != nil {
		if err := c.scores.UpsertScores(ctx, rec.row()); err != nil {
			c.metrics.RecordPipelineError(ctx, "storage")
			c.metrics.RecordSegmentScored(ctx, "failed")
			logger.Error("score record upsert failed", "err", err)
			return
		}
	}

	if err := c.pub.PublishScoresComputed(ctx, rec.event(ev)); err != nil {
		logger.Error("scores-computed publish failed", "err", err)
	}

	c.metrics.RecordSegmentScored(ctx, "persisted")
	logger.Debug("segment scored",
		"intelligibility", rec.Intelligibility.Score,
		"naturalness", rec.Naturalness.Score,
		"archetype_conformity", rec.Archetype.Score,
		"simulator_stability", rec.Stability.Score,
	)
}

// analyzeSegment runs the four analyzers under a panic boundary. On any
// failure the partial results are discarded.
func (c *Coordinator) analyzeSegment(ctx context.Context, set *workerSet, ev notify.SegmentCreated, clip media.Clip) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("scoring: analysis panic: %v", r)
		}
	}()

	rec = &Record{
		SegmentID:       ev.SegmentID,
		AnalysisVersion: c.cfg.AnalysisVersion,
	}

	rec.Intelligibility = c.timed(ctx, analyze.MetricIntelligibility, func() analyze.Result {
		return set.intelligibility.Analyze(clip.Samples, clip.SampleRate)
	})
	rec.Naturalness = c.timed(ctx, analyze.MetricNaturalness, func() analyze.Result {
		return set.naturalness.Analyze(clip.Samples, clip.SampleRate)
	})
	rec.Archetype = c.timed(ctx, analyze.MetricArchetype, func() analyze.Result {
		return set.archetype.Analyze(clip.Samples, clip.SampleRate, ev.Speaker.ArchetypeID)
	})
	rec.Stability = c.timed(ctx, analyze.MetricStability, func() analyze.Result {
		return set.stability.Analyze(clip.Samples, clip.SampleRate, ev.EffectsApplied, nil)
	})
	return rec, nil
}

// timed runs one analyzer and records its latency.
func (c *Coordinator) timed(ctx context.Context, name string, run func() analyze.Result) analyze.Result {
	started := time.Now()
	res := run()
	c.metrics.RecordAnalysisDuration(ctx, name, time.Since(started).Seconds())
	return res
}
