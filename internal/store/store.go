// Package store defines the relational persistence collaborator: one row of
// segment facts per segment, and one upsertable score row per segment id.
// [Postgres] is the reference implementation.
package store

import (
	"context"
	"time"
)

// SegmentRow is the persisted shape of one segment's facts. Samples are not
// stored here; they live in the media store under MediaRef.
type SegmentRow struct {
	ID             string
	Type           string
	BusName        string
	SpeakerID      string
	SpeakerRole    string
	ArchetypeID    string
	Language       string
	SceneID        string
	ExperienceID   string
	LineID         string
	EmotionalTag   string
	Environment    string
	EffectsApplied bool
	MediaRef       string
	SampleRate     int
	BitDepth       int
	Channels       int
	Duration       float64
	Start          time.Time
	End            time.Time
	Extra          map[string]string
	CreatedAt      time.Time
}

// ScoreRow is the persisted shape of one segment's scores. The same segment
// id overwrites: re-analysis produces exactly one surviving row.
type ScoreRow struct {
	SegmentID                 string
	Intelligibility           float64
	IntelligibilityBand       string
	IntelligibilityConfidence float64
	Naturalness               float64
	NaturalnessBand           string
	ArchetypeConformity       float64
	ArchetypeBand             string
	SimulatorStability        float64
	StabilityBand             string
	AnalysisVersion           string
	UpdatedAt                 time.Time
}

// SegmentStore persists segment facts.
//
// Implementations must be safe for concurrent use.
type SegmentStore interface {
	// SaveSegment inserts the segment facts row. Segment ids are unique;
	// saving the same id twice is an error.
	SaveSegment(ctx context.Context, row *SegmentRow) error
}

// ScoreStore persists score records with upsert semantics.
//
// Implementations must be safe for concurrent use.
type ScoreStore interface {
	// UpsertScores creates or replaces the score row for row.SegmentID.
	UpsertScores(ctx context.Context, row *ScoreRow) error

	// GetScores returns the score row for segmentID. It returns (nil, nil)
	// when no row exists.
	GetScores(ctx context.Context, segmentID string) (*ScoreRow, error)
}
