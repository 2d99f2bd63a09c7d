package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/media"
	"github.com/soniclint/soniclint/internal/notify"
)

func TestIntake_EnqueuesBeforeFanOut(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewBus()
	sub, cancel := bus.SubscribeSegmentCreated(1)
	defer cancel()

	// Not started: enqueued events stay visible in the queue.
	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, media.NewMemoryStore(), nil, bus, testMetrics(t))
	in := NewIntake(c, bus)

	if err := in.PublishSegmentCreated(ctx, notify.SegmentCreated{SegmentID: "seg-1"}); err != nil {
		t.Fatalf("PublishSegmentCreated: %v", err)
	}
	if got := c.QueueLen(); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
	select {
	case ev := <-sub:
		if ev.SegmentID != "seg-1" {
			t.Errorf("fan-out received %q, want seg-1", ev.SegmentID)
		}
	default:
		t.Error("fan-out subscriber received nothing")
	}
}

func TestIntake_FullQueueBlocksInsteadOfDropping(t *testing.T) {
	bus := notify.NewBus()
	sub, cancel := bus.SubscribeSegmentCreated(2)
	defer cancel()

	cfg := config.ScoringConfig{QueueSize: 1, Workers: 1, Backpressure: config.BackpressureBlock}
	c := NewCoordinator(cfg, config.Default().Analyzers, nil, media.NewMemoryStore(), nil, bus, testMetrics(t))
	in := NewIntake(c, bus)

	if err := in.PublishSegmentCreated(context.Background(), notify.SegmentCreated{SegmentID: "a"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	// Queue full and nothing draining: the second publish must surface the
	// blocked enqueue instead of silently losing the event, and must not
	// fan out an event scoring never accepted.
	ctx, stop := context.WithCancel(context.Background())
	stop()
	if err := in.PublishSegmentCreated(ctx, notify.SegmentCreated{SegmentID: "b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("blocked publish err = %v, want context.Canceled", err)
	}

	if ev := <-sub; ev.SegmentID != "a" {
		t.Errorf("fan-out received %q, want a", ev.SegmentID)
	}
	select {
	case ev := <-sub:
		t.Errorf("fan-out received %q after failed enqueue", ev.SegmentID)
	default:
	}
}

func TestIntake_ScoresComputedPassThrough(t *testing.T) {
	bus := notify.NewBus()
	sub, cancel := bus.SubscribeScoresComputed(1)
	defer cancel()

	c := NewCoordinator(testScoringCfg(), config.Default().Analyzers, nil, media.NewMemoryStore(), nil, bus, testMetrics(t))
	in := NewIntake(c, bus)

	if err := in.PublishScoresComputed(context.Background(), notify.ScoresComputed{SegmentID: "seg-2"}); err != nil {
		t.Fatalf("PublishScoresComputed: %v", err)
	}
	select {
	case ev := <-sub:
		if ev.SegmentID != "seg-2" {
			t.Errorf("received %q, want seg-2", ev.SegmentID)
		}
	default:
		t.Error("subscriber received nothing")
	}
}
