// Package notify defines the event contracts the pipeline emits (segment
// created, scores computed) and the [Publisher] interface collaborators
// implement. Encoding and transport are owned by the collaborator; the
// in-process [Bus] fans events out to passive observers and tests, while
// pipeline-critical delivery into scoring goes through its own Publisher.
package notify

import (
	"context"
	"time"
)

// SpeakerInfo identifies the character behind a segment.
type SpeakerInfo struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	ArchetypeID string `json:"archetype_id"`
}

// SegmentCreated announces one newly cut segment. It carries everything a
// scoring worker needs except the samples themselves, which are fetched via
// the media reference.
type SegmentCreated struct {
	SegmentID      string            `json:"segment_id"`
	SegmentType    string            `json:"segment_type"`
	Speaker        SpeakerInfo       `json:"speaker"`
	Language       string            `json:"language"`
	LineID         string            `json:"line_id"`
	SceneID        string            `json:"scene_id"`
	ExperienceID   string            `json:"experience_id"`
	EmotionalTag   string            `json:"emotional_tag"`
	Environment    string            `json:"environment"`
	EffectsApplied bool              `json:"effects_applied"`
	MediaRef       string            `json:"media_ref"`
	SampleRate     int               `json:"sample_rate"`
	BitDepth       int               `json:"bit_depth"`
	Channels       int               `json:"channels"`
	Duration       float64           `json:"duration_seconds"`
	BusName        string            `json:"bus_name"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// MetricScore is one metric's result inside a [ScoresComputed] event.
type MetricScore struct {
	Metric string  `json:"metric"`
	Score  float64 `json:"score"`
	Band   string  `json:"band"`
}

// ScoresComputed announces that all metrics for a segment were computed and
// persisted.
type ScoresComputed struct {
	SegmentID       string        `json:"segment_id"`
	SegmentType     string        `json:"segment_type"`
	Speaker         SpeakerInfo   `json:"speaker"`
	BusName         string        `json:"bus_name"`
	Scores          []MetricScore `json:"scores"`
	AnalysisVersion string        `json:"analysis_version"`
}

// Publisher delivers pipeline events to downstream consumers.
//
// Implementations must be safe for concurrent use. A failed publish is the
// collaborator's problem to surface; the pipeline logs and counts it but
// never halts on it.
type Publisher interface {
	PublishSegmentCreated(ctx context.Context, ev SegmentCreated) error
	PublishScoresComputed(ctx context.Context, ev ScoresComputed) error
}
