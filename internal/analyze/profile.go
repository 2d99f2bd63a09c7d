package analyze

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soniclint/soniclint/internal/config"
)

// FormantTarget is one named formant expectation in an archetype profile.
type FormantTarget struct {
	Name   string  `yaml:"name"`
	MeanHz float64 `yaml:"mean_hz"`
	StdHz  float64 `yaml:"std_hz"`
}

// ArchetypeProfile describes the expected vocal signature of one character
// archetype: pitch statistics, formant targets, texture ranges, and the
// special features the voice direction calls for.
type ArchetypeProfile struct {
	ID          string       `yaml:"id"`
	PitchMeanHz float64      `yaml:"pitch_mean_hz"`
	PitchStdHz  float64      `yaml:"pitch_std_hz"`
	PitchRange  config.Range `yaml:"pitch_range"`

	Formants []FormantTarget `yaml:"formants"`

	// Roughness is the expected low-frequency envelope modulation depth.
	Roughness config.Range `yaml:"roughness"`

	// Breathiness is the expected high-band to speech-band energy ratio.
	Breathiness config.Range `yaml:"breathiness"`

	// TiltDBPerOctave is the target spectral tilt; TiltToleranceDB is the
	// deviation at which the tilt score reaches 0.
	TiltDBPerOctave float64 `yaml:"tilt_db_per_octave"`
	TiltToleranceDB float64 `yaml:"tilt_tolerance_db"`

	// SpecialFeatures names the feature detectors this archetype should
	// trigger: vocal_fry, whisper, nasal, low_resonance, clear_articulation.
	SpecialFeatures []string `yaml:"special_features"`
}

// ProfileRegistry resolves archetype ids to their profiles. A nil registry
// resolves nothing.
type ProfileRegistry struct {
	profiles map[string]*ArchetypeProfile
}

// NewProfileRegistry builds a registry from the given profiles.
func NewProfileRegistry(profiles ...*ArchetypeProfile) *ProfileRegistry {
	r := &ProfileRegistry{profiles: make(map[string]*ArchetypeProfile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

// LoadProfiles reads a YAML archetype profile file of the form:
//
//	archetypes:
//	  - id: gravel_warden
//	    pitch_mean_hz: 110
//	    ...
func LoadProfiles(path string) (*ProfileRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyze: read archetype profiles: %w", err)
	}
	var doc struct {
		Archetypes []*ArchetypeProfile `yaml:"archetypes"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("analyze: parse archetype profiles %q: %w", path, err)
	}
	for _, p := range doc.Archetypes {
		if p.ID == "" {
			return nil, fmt.Errorf("analyze: archetype profile in %q has no id", path)
		}
	}
	return NewProfileRegistry(doc.Archetypes...), nil
}

// Lookup returns the profile for id and whether it exists.
func (r *ProfileRegistry) Lookup(id string) (*ArchetypeProfile, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.profiles[id]
	return p, ok
}
