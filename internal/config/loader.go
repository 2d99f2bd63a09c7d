package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays it onto
// [Default], and returns the validated result. It is a convenience wrapper
// around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	seg := cfg.Segmentation
	if seg.MaxBufferedSeconds <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.max_buffered_seconds must be positive, got %v", seg.MaxBufferedSeconds))
	}
	if seg.FlushSeconds <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.flush_seconds must be positive, got %v", seg.FlushSeconds))
	}
	if seg.FlushSeconds > seg.MaxBufferedSeconds {
		errs = append(errs, fmt.Errorf("segmentation.flush_seconds %v exceeds max_buffered_seconds %v; flushes would never see the full buffer", seg.FlushSeconds, seg.MaxBufferedSeconds))
	}
	if seg.SilenceThresholdDB >= 0 {
		errs = append(errs, fmt.Errorf("segmentation.silence_threshold_db must be negative dBFS, got %v", seg.SilenceThresholdDB))
	}
	if seg.MinSilenceSeconds <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_silence_seconds must be positive, got %v", seg.MinSilenceSeconds))
	}
	if seg.MinWindowFraction <= 0 || seg.MinWindowFraction > 1 {
		errs = append(errs, fmt.Errorf("segmentation.min_window_fraction %v is out of range (0, 1]", seg.MinWindowFraction))
	}

	sc := cfg.Scoring
	if sc.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("scoring.queue_size must be positive, got %d", sc.QueueSize))
	}
	if sc.Workers <= 0 {
		errs = append(errs, fmt.Errorf("scoring.workers must be positive, got %d", sc.Workers))
	}
	if sc.Backpressure != "" && !sc.Backpressure.IsValid() {
		errs = append(errs, fmt.Errorf("scoring.backpressure %q is invalid; valid values: block, drop_newest", sc.Backpressure))
	}

	errs = append(errs, validateWeights("analyzers.intelligibility",
		cfg.Analyzers.Intelligibility.SNRWeight,
		cfg.Analyzers.Intelligibility.ClarityWeight,
		cfg.Analyzers.Intelligibility.ArticulationWeight)...)
	errs = append(errs, validateWeights("analyzers.naturalness",
		cfg.Analyzers.Naturalness.PitchWeight,
		cfg.Analyzers.Naturalness.RhythmWeight,
		cfg.Analyzers.Naturalness.SpectralWeight)...)
	errs = append(errs, validateWeights("analyzers.archetype",
		cfg.Analyzers.Archetype.PitchWeight,
		cfg.Analyzers.Archetype.FormantWeight,
		cfg.Analyzers.Archetype.TextureWeight,
		cfg.Analyzers.Archetype.FeatureWeight)...)
	errs = append(errs, validateWeights("analyzers.stability",
		cfg.Analyzers.Stability.GlitchWeight,
		cfg.Analyzers.Stability.ArtifactWeight,
		cfg.Analyzers.Stability.ContinuityWeight,
		cfg.Analyzers.Stability.QualityWeight,
		cfg.Analyzers.Stability.ParameterWeight)...)

	if o := cfg.Analyzers.Archetype.LPCOrder; o < 2 || o > 64 {
		errs = append(errs, fmt.Errorf("analyzers.archetype.lpc_order %d is out of range [2, 64]", o))
	}

	errs = append(errs, validateBandOrder("analyzers.intelligibility",
		cfg.Analyzers.Intelligibility.DegradedThreshold,
		cfg.Analyzers.Intelligibility.AcceptableThreshold)...)
	errs = append(errs, validateBandOrder("analyzers.naturalness",
		cfg.Analyzers.Naturalness.RoboticThreshold,
		cfg.Analyzers.Naturalness.OKThreshold)...)
	errs = append(errs, validateBandOrder("analyzers.archetype",
		cfg.Analyzers.Archetype.TooFlatThreshold,
		cfg.Analyzers.Archetype.OnProfileThreshold,
		cfg.Analyzers.Archetype.TooCleanThreshold)...)

	return errors.Join(errs...)
}

// validateWeights checks that a blend weight set is non-negative and sums to
// approximately 1.
func validateWeights(prefix string, weights ...float64) []error {
	var errs []error
	var sum float64
	for _, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%s: negative weight %v", prefix, w))
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Errorf("%s: weights sum to %v, want 1", prefix, sum))
	}
	return errs
}

// validateBandOrder checks that band thresholds ascend and lie in [0, 1].
func validateBandOrder(prefix string, ascending ...float64) []error {
	var errs []error
	for i, t := range ascending {
		if t < 0 || t > 1 {
			errs = append(errs, fmt.Errorf("%s: band threshold %v is out of range [0, 1]", prefix, t))
		}
		if i > 0 && t <= ascending[i-1] {
			errs = append(errs, fmt.Errorf("%s: band thresholds must strictly ascend, got %v then %v", prefix, ascending[i-1], t))
		}
	}
	return errs
}
