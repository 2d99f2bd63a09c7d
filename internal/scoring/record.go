// Package scoring runs the four quality analyzers over segments as they are
// announced, persists one upsertable score record per segment, and emits a
// scores-computed event. The [Coordinator] owns the bounded queue and the
// fixed worker pool.
package scoring

import (
	"github.com/soniclint/soniclint/internal/analyze"
	"github.com/soniclint/soniclint/internal/notify"
	"github.com/soniclint/soniclint/internal/store"
)

// Record is the complete scoring outcome for one segment. A Record is built
// only after all four analyzers succeed; a failed analyzer discards the
// segment's partial results instead of persisting them.
type Record struct {
	SegmentID       string
	Intelligibility analyze.Result
	Naturalness     analyze.Result
	Archetype       analyze.Result
	Stability       analyze.Result
	AnalysisVersion string
}

// row maps the record to its persisted shape.
func (r *Record) row() *store.ScoreRow {
	return &store.ScoreRow{
		SegmentID:                 r.SegmentID,
		Intelligibility:           r.Intelligibility.Score,
		IntelligibilityBand:       r.Intelligibility.Band,
		IntelligibilityConfidence: r.Intelligibility.Confidence,
		Naturalness:               r.Naturalness.Score,
		NaturalnessBand:           r.Naturalness.Band,
		ArchetypeConformity:       r.Archetype.Score,
		ArchetypeBand:             r.Archetype.Band,
		SimulatorStability:        r.Stability.Score,
		StabilityBand:             r.Stability.Band,
		AnalysisVersion:           r.AnalysisVersion,
	}
}

// event maps the record to its scores-computed notification, carrying the
// identity fields over from the segment-created event.
func (r *Record) event(ev notify.SegmentCreated) notify.ScoresComputed {
	return notify.ScoresComputed{
		SegmentID:   r.SegmentID,
		SegmentType: ev.SegmentType,
		Speaker:     ev.Speaker,
		BusName:     ev.BusName,
		Scores: []notify.MetricScore{
			{Metric: analyze.MetricIntelligibility, Score: r.Intelligibility.Score, Band: r.Intelligibility.Band},
			{Metric: analyze.MetricNaturalness, Score: r.Naturalness.Score, Band: r.Naturalness.Band},
			{Metric: analyze.MetricArchetype, Score: r.Archetype.Score, Band: r.Archetype.Band},
			{Metric: analyze.MetricStability, Score: r.Stability.Score, Band: r.Stability.Band},
		},
		AnalysisVersion: r.AnalysisVersion,
	}
}
