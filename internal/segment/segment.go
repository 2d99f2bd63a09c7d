// Package segment turns raw audio telemetry streams into bounded, scoreable
// clips. It owns the per-stream sample buffer, the segmentation strategies
// (silence-gated for voice buses, fixed-window for ambient and mixed buses),
// and the stream lifecycle manager that feeds segments into scoring.
package segment

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a segment by the kind of bus it was cut from. The type
// also selects the segmentation strategy, resolved once at stream creation.
type Type string

const (
	TypeDialogue     Type = "dialogue"
	TypeVocalization Type = "vocalization"
	TypeAmbient      Type = "ambient"
	TypeMixedBus     Type = "mixed_bus"
)

// IsValid reports whether t is a recognised segment type.
func (t Type) IsValid() bool {
	switch t {
	case TypeDialogue, TypeVocalization, TypeAmbient, TypeMixedBus:
		return true
	}
	return false
}

// ResolveType maps a bus name to a segment type by substring match against
// the known bus categories. Unmatched buses fall back to the mixed-bus
// strategy.
func ResolveType(busName string) Type {
	name := strings.ToLower(busName)
	switch {
	case strings.Contains(name, "dialog"): // covers "dialog" and "dialogue"
		return TypeDialogue
	case strings.Contains(name, "vocal"):
		return TypeVocalization
	case strings.Contains(name, "ambient"):
		return TypeAmbient
	default:
		return TypeMixedBus
	}
}

// Metadata carries the game context attached to one segment. It is owned
// exclusively by its segment: context enrichment overwrites it in place and
// it is never shared across segments.
type Metadata struct {
	SpeakerID      string
	SpeakerRole    string
	ArchetypeID    string
	Language       string
	SceneID        string
	ExperienceID   string
	LineID         string
	EmotionalTag   string
	Environment    string
	BusName        string
	EffectsApplied bool

	// Extra holds context keys the pipeline has no typed field for.
	Extra map[string]string
}

// Clone returns a deep copy of m so each segment owns its metadata.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Segment is one bounded, scoreable clip cut from a stream. Segments are
// immutable after creation except for one [Segment.Enrich] call before
// hand-off to scoring.
type Segment struct {
	ID         string
	Type       Type
	Samples    []float64 // mono; downmixed at ingest
	SampleRate int
	Channels   int // channel count of the source bus
	BitDepth   int
	Start      time.Time
	End        time.Time
	Metadata   Metadata
}

// Duration returns the clip length derived from the sample count.
func (s *Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Enrich merges a caller-supplied game context into the segment's metadata.
// Known keys overwrite the typed fields; every other key is stringified into
// the open Extra map. Performed once, before the segment is handed to
// scoring.
func (s *Segment) Enrich(gameContext map[string]any) {
	if len(gameContext) == 0 {
		return
	}
	m := &s.Metadata
	for key, val := range gameContext {
		switch key {
		case "scene_id":
			m.SceneID = stringify(val)
		case "line_id":
			m.LineID = stringify(val)
		case "emotional_context":
			m.EmotionalTag = stringify(val)
		case "speaker_info":
			if info, ok := val.(map[string]any); ok {
				if v, ok := info["id"]; ok {
					m.SpeakerID = stringify(v)
				}
				if v, ok := info["role"]; ok {
					m.SpeakerRole = stringify(v)
				}
				if v, ok := info["archetype_id"]; ok {
					m.ArchetypeID = stringify(v)
				}
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[key] = stringify(val)
		}
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
