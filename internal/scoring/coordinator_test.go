package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/soniclint/soniclint/internal/analyze"
	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/observe"
	"github.com/soniclint/soniclint/internal/store"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// captureScoreStore records upserts and signals each one on a channel.
type captureScoreStore struct {
	mu     sync.Mutex
	rows   []*store.ScoreRow
	upsert chan *store.ScoreRow
}

func newCaptureScoreStore() *captureScoreStore {
	return &captureScoreStore{upsert: make(chan *store.ScoreRow, 16)}
}

func (c *captureScoreStore) UpsertScores(_ context.Context, row *store.ScoreRow) error {
	c.mu.Lock()
	c.rows = append(c.rows, row)
	c.mu.Unlock()
	c.upsert <- row
	return nil
}

func (c *captureScoreStore) GetScores(context.Context, string) (*store.ScoreRow, error) {
	return nil, nil
}

func (c *captureScoreStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// testClip is a short tone the analyzers can chew through quickly.
func testClip() media.Clip {
	n := 2000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*200*float64(i)/8000)
	}
	return media.Clip{Samples: samples, SampleRate: 8000}
}

func testScoringCfg() config.ScoringConfig {
	return config.ScoringConfig{
		QueueSize:       8,
		Workers:         2,
		Backpressure:    config.BackpressureBlock,
		AnalysisVersion: "v1",
	}
}

func waitForRow(t *testing.T, ch <-chan *store.ScoreRow) *store.ScoreRow {
	t.Helper()
	select {
	case row := <-ch:
		return row
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a score row")
		return nil
	}
}

func TestCoordinator_ScoresAndPersists(t *testing.T) {
	ctx := context.Background()
	mediaStore := media.NewMemoryStore()
	scores := newCaptureScoreStore()
	bus := notify.NewBus()

	if err := mediaStore.Put(ctx, "clips/seg-1", testClip()); err != nil {
		t.Fatalf("media Put: %v", err)
	}

	computed, cancelSub := bus.SubscribeScoresComputed(4)
	defer cancelSub()

	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, mediaStore, scores, bus, testMetrics(t))
	c.Start(ctx)
	defer c.Close()

	err := c.Enqueue(ctx, notify.SegmentCreated{
		SegmentID:      "seg-1",
		SegmentType:    "dialogue",
		MediaRef:       "clips/seg-1",
		SampleRate:     8000,
		EffectsApplied: false,
		BusName:        "combat_dialogue",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	row := waitForRow(t, scores.upsert)
	if row.SegmentID != "seg-1" {
		t.Errorf("segment id = %q, want seg-1", row.SegmentID)
	}
	if row.AnalysisVersion != "v1" {
		t.Errorf("analysis version = %q, want v1", row.AnalysisVersion)
	}
	for name, v := range map[string]float64{
		"intelligibility": row.Intelligibility,
		"naturalness":     row.Naturalness,
		"archetype":       row.ArchetypeConformity,
		"stability":       row.SimulatorStability,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0, 1]", name, v)
		}
	}
	// Effects were not applied, so stability is perfect by definition.
	if row.SimulatorStability != 1 || row.StabilityBand != "stable" {
		t.Errorf("stability = %v (%q), want 1 (stable)", row.SimulatorStability, row.StabilityBand)
	}
	// No archetype binding means trivial conformity.
	if row.ArchetypeConformity != 1 {
		t.Errorf("archetype conformity = %v, want 1 without binding", row.ArchetypeConformity)
	}

	select {
	case ev := <-computed:
		if ev.SegmentID != "seg-1" || len(ev.Scores) != 4 {
			t.Errorf("scores-computed = %q with %d scores, want seg-1 with 4", ev.SegmentID, len(ev.Scores))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no scores-computed event")
	}
}

func TestCoordinator_MissingMediaIsSkipped(t *testing.T) {
	ctx := context.Background()
	mediaStore := media.NewMemoryStore()
	scores := newCaptureScoreStore()

	if err := mediaStore.Put(ctx, "clips/good", testClip()); err != nil {
		t.Fatalf("media Put: %v", err)
	}

	cfg := testScoringCfg()
	cfg.Workers = 1 // serialize so the missing segment is handled first
	c := NewCoordinator(cfg, config.Default().Analyzers, nil, mediaStore, scores, notify.NewBus(), testMetrics(t))
	c.Start(ctx)
	defer c.Close()

	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "ghost", MediaRef: "clips/ghost"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "good", MediaRef: "clips/good"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	row := waitForRow(t, scores.upsert)
	if row.SegmentID != "good" {
		t.Errorf("persisted segment = %q, want good", row.SegmentID)
	}
	if got := scores.count(); got != 1 {
		t.Errorf("persisted rows = %d, want 1 (ghost skipped)", got)
	}
}

func TestCoordinator_DropNewestBackpressure(t *testing.T) {
	ctx := context.Background()
	cfg := config.ScoringConfig{QueueSize: 1, Workers: 1, Backpressure: config.BackpressureDropNewest}

	// Not started: nothing drains the queue, so the second enqueue must hit
	// the full-queue path.
	c := NewCoordinator(cfg, config.Default().Analyzers, nil, media.NewMemoryStore(), nil, notify.NewBus(), testMetrics(t))

	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "b"}); err != nil {
		t.Fatalf("drop_newest Enqueue must not error, got %v", err)
	}
	if got := c.QueueLen(); got != 1 {
		t.Errorf("queue length = %d, want 1 after drop", got)
	}
}

func TestCoordinator_BlockBackpressureHonorsContext(t *testing.T) {
	cfg := config.ScoringConfig{QueueSize: 1, Workers: 1, Backpressure: config.BackpressureBlock}
	c := NewCoordinator(cfg, config.Default().Analyzers, nil, media.NewMemoryStore(), nil, notify.NewBus(), testMetrics(t))

	if err := c.Enqueue(context.Background(), notify.SegmentCreated{SegmentID: "a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("blocked Enqueue err = %v, want context.Canceled", err)
	}
}

// crashingStability panics on clips of one specific length and scores
// everything else as stable.
type crashingStability struct {
	poisonLen int
}

func (s crashingStability) Analyze(samples []float64, _ int, _ bool, _ *analyze.EffectsMetadata) analyze.Result {
	if len(samples) == s.poisonLen {
		panic("effects state corrupted")
	}
	return analyze.Result{Score: 1, Band: analyze.BandStable}
}

func TestCoordinator_AnalyzeSegmentRecoversPanic(t *testing.T) {
	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, media.NewMemoryStore(), nil, notify.NewBus(), testMetrics(t))
	clip := testClip()

	set := c.defaultSet()
	set.stability = crashingStability{poisonLen: len(clip.Samples)}

	rec, err := c.analyzeSegment(context.Background(), set, notify.SegmentCreated{SegmentID: "seg-1"}, clip)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("err = %v, want analysis panic", err)
	}
	if rec != nil {
		t.Errorf("record = %+v, want nil partial results discarded", rec)
	}
}

func TestCoordinator_AnalyzerPanicDoesNotStopWorker(t *testing.T) {
	ctx := context.Background()
	mediaStore := media.NewMemoryStore()
	scores := newCaptureScoreStore()

	poison := testClip()
	poison.Samples = poison.Samples[:1999]
	if err := mediaStore.Put(ctx, "clips/poison", poison); err != nil {
		t.Fatalf("media Put: %v", err)
	}
	if err := mediaStore.Put(ctx, "clips/good", testClip()); err != nil {
		t.Fatalf("media Put: %v", err)
	}

	cfg := testScoringCfg()
	cfg.Workers = 1 // serialize so the panicking segment is handled first
	c := NewCoordinator(cfg, config.Default().Analyzers, nil, mediaStore, scores, notify.NewBus(), testMetrics(t))
	c.newSet = func() *workerSet {
		set := c.defaultSet()
		set.stability = crashingStability{poisonLen: 1999}
		return set
	}
	c.Start(ctx)
	defer c.Close()

	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "poison", MediaRef: "clips/poison"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := c.Enqueue(ctx, notify.SegmentCreated{SegmentID: "good", MediaRef: "clips/good"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	row := waitForRow(t, scores.upsert)
	if row.SegmentID != "good" {
		t.Errorf("persisted segment = %q, want good", row.SegmentID)
	}
	if got := scores.count(); got != 1 {
		t.Errorf("persisted rows = %d, want 1 (panicking segment discarded)", got)
	}
}

func TestCoordinator_CloseBeforeStart(t *testing.T) {
	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, media.NewMemoryStore(), nil, notify.NewBus(), testMetrics(t))
	if err := c.Close(); err != nil {
		t.Errorf("Close before Start = %v, want nil", err)
	}
}

func TestCoordinator_CloseStopsWorkers(t *testing.T) {
	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, media.NewMemoryStore(), nil, notify.NewBus(), testMetrics(t))
	c.Start(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
}
