// Package config provides the configuration schema and loader for the
// soniclint audio-quality pipeline.
//
// Every numeric policy knob in the pipeline (silence thresholds, strategy
// window lengths, analyzer sub-metric weights, band cutoffs, queue sizing)
// is a named field here so deployments can retune scoring policy without
// touching the algorithms.
package config

// LogLevel controls log verbosity for the soniclint daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// BackpressurePolicy selects what the segment producer does when the scoring
// queue is full.
type BackpressurePolicy string

const (
	// BackpressureBlock makes the producer wait for queue space.
	BackpressureBlock BackpressurePolicy = "block"

	// BackpressureDropNewest discards the incoming notification and counts
	// the drop.
	BackpressureDropNewest BackpressurePolicy = "drop_newest"
)

// IsValid reports whether b is a recognised backpressure policy.
func (b BackpressurePolicy) IsValid() bool {
	return b == BackpressureBlock || b == BackpressureDropNewest
}

// Range is an inclusive numeric band used for "natural range" scoring.
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Config is the root configuration structure for soniclint. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader]; zero fields are
// filled from [Default].
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	Analyzers    AnalyzersConfig    `yaml:"analyzers"`
	Storage      StorageConfig      `yaml:"storage"`
}

// ServerConfig holds network and logging settings for the daemon.
type ServerConfig struct {
	// ListenAddr is the TCP address serving /metrics, /healthz, and /readyz.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// SegmentationConfig tunes stream buffering and the segmentation strategies.
type SegmentationConfig struct {
	// MaxBufferedSeconds caps the duration a stream buffer retains before
	// evicting its oldest chunks.
	MaxBufferedSeconds float64 `yaml:"max_buffered_seconds"`

	// FlushSeconds is the buffered duration that triggers a segmentation
	// pass on Feed.
	FlushSeconds float64 `yaml:"flush_seconds"`

	// SilenceThresholdDB is the RMS level below which a 10 ms window counts
	// as silent.
	SilenceThresholdDB float64 `yaml:"silence_threshold_db"`

	// MinSilenceSeconds is the shortest silent region treated as a gap.
	MinSilenceSeconds float64 `yaml:"min_silence_seconds"`

	// MinDialogueClipSeconds drops dialogue sub-clips shorter than this.
	MinDialogueClipSeconds float64 `yaml:"min_dialogue_clip_seconds"`

	// MinVocalClipSeconds drops vocalization sub-clips shorter than this.
	// Non-verbal vocalizations are legitimately shorter than dialogue.
	MinVocalClipSeconds float64 `yaml:"min_vocal_clip_seconds"`

	// AmbientWindowSeconds is the fixed window length for ambient buses.
	AmbientWindowSeconds float64 `yaml:"ambient_window_seconds"`

	// MixedWindowSeconds is the fixed window length for mixed buses.
	MixedWindowSeconds float64 `yaml:"mixed_window_seconds"`

	// MinWindowFraction discards a trailing fixed window shorter than this
	// fraction of the target length.
	MinWindowFraction float64 `yaml:"min_window_fraction"`
}

// ScoringConfig tunes the scoring coordinator.
type ScoringConfig struct {
	// QueueSize bounds the segment-created notification queue.
	QueueSize int `yaml:"queue_size"`

	// Workers is the fixed number of scoring workers.
	Workers int `yaml:"workers"`

	// Backpressure selects the full-queue policy.
	Backpressure BackpressurePolicy `yaml:"backpressure"`

	// AnalysisVersion tags every persisted score record so downstream
	// regression tooling can separate algorithm revisions.
	AnalysisVersion string `yaml:"analysis_version"`
}

// AnalyzersConfig groups the per-analyzer tuning blocks.
type AnalyzersConfig struct {
	Intelligibility IntelligibilityConfig `yaml:"intelligibility"`
	Naturalness     NaturalnessConfig     `yaml:"naturalness"`
	Archetype       ArchetypeConfig       `yaml:"archetype"`
	Stability       StabilityConfig       `yaml:"stability"`
}

// IntelligibilityConfig tunes the speech-intelligibility analyzer.
type IntelligibilityConfig struct {
	// SNRWeight, ClarityWeight, and ArticulationWeight blend the three
	// sub-metrics. They should sum to 1.
	SNRWeight          float64 `yaml:"snr_weight"`
	ClarityWeight      float64 `yaml:"clarity_weight"`
	ArticulationWeight float64 `yaml:"articulation_weight"`

	// AcceptableThreshold and DegradedThreshold are the inclusive lower
	// bounds of the acceptable and degraded bands.
	AcceptableThreshold float64 `yaml:"acceptable_threshold"`
	DegradedThreshold   float64 `yaml:"degraded_threshold"`
}

// NaturalnessConfig tunes the vocal-naturalness analyzer.
type NaturalnessConfig struct {
	// PitchWeight, RhythmWeight, and SpectralWeight blend the three
	// sub-scores. They should sum to 1.
	PitchWeight    float64 `yaml:"pitch_weight"`
	RhythmWeight   float64 `yaml:"rhythm_weight"`
	SpectralWeight float64 `yaml:"spectral_weight"`

	// PitchCV is the natural band for the pitch coefficient of variation.
	PitchCV Range `yaml:"pitch_cv"`

	// ContourChangesPerSec is the natural band for pitch-contour direction
	// changes per second of voiced audio.
	ContourChangesPerSec Range `yaml:"contour_changes_per_sec"`

	// OnsetIntervalCV is the natural band for inter-onset interval CV:
	// regular but not robotic.
	OnsetIntervalCV Range `yaml:"onset_interval_cv"`

	// PauseRatio is the natural band for the fraction of long pauses.
	PauseRatio Range `yaml:"pause_ratio"`

	// SpectralFlux is the natural band for mean cepstral delta magnitude.
	SpectralFlux Range `yaml:"spectral_flux"`

	// CentroidCV is the natural band for spectral-centroid CV.
	CentroidCV Range `yaml:"centroid_cv"`

	// OKThreshold and RoboticThreshold are the inclusive lower bounds of
	// the ok and robotic bands.
	OKThreshold      float64 `yaml:"ok_threshold"`
	RoboticThreshold float64 `yaml:"robotic_threshold"`
}

// ArchetypeConfig tunes the archetype-conformity analyzer.
type ArchetypeConfig struct {
	// PitchWeight, FormantWeight, TextureWeight, and FeatureWeight blend
	// the four conformity sub-scores. They should sum to 1.
	PitchWeight   float64 `yaml:"pitch_weight"`
	FormantWeight float64 `yaml:"formant_weight"`
	TextureWeight float64 `yaml:"texture_weight"`
	FeatureWeight float64 `yaml:"feature_weight"`

	// LPCOrder is the linear-predictive model order for formant estimation.
	LPCOrder int `yaml:"lpc_order"`

	// TooCleanThreshold, OnProfileThreshold, and TooFlatThreshold are the
	// inclusive lower bounds of the too_clean, on_profile, and too_flat
	// bands.
	TooCleanThreshold  float64 `yaml:"too_clean_threshold"`
	OnProfileThreshold float64 `yaml:"on_profile_threshold"`
	TooFlatThreshold   float64 `yaml:"too_flat_threshold"`
}

// StabilityConfig tunes the effects-processor stability analyzer.
type StabilityConfig struct {
	// GlitchWeight, ArtifactWeight, ContinuityWeight, QualityWeight, and
	// ParameterWeight blend the five detectors. They should sum to 1.
	GlitchWeight     float64 `yaml:"glitch_weight"`
	ArtifactWeight   float64 `yaml:"artifact_weight"`
	ContinuityWeight float64 `yaml:"continuity_weight"`
	QualityWeight    float64 `yaml:"quality_weight"`
	ParameterWeight  float64 `yaml:"parameter_weight"`

	// DCOffsetTolerance is the acceptable absolute DC offset.
	DCOffsetTolerance float64 `yaml:"dc_offset_tolerance"`

	// DynamicRangeDB is the healthy dynamic-range band.
	DynamicRangeDB Range `yaml:"dynamic_range_db"`

	// Kurtosis is the healthy amplitude-kurtosis band.
	Kurtosis Range `yaml:"kurtosis"`

	// ParamRanges maps effects-processor control parameters to their
	// expected operating ranges.
	ParamRanges map[string]Range `yaml:"param_ranges"`

	// StableThreshold is the inclusive lower bound of the stable band.
	StableThreshold float64 `yaml:"stable_threshold"`
}

// StorageConfig selects the collaborator backends.
type StorageConfig struct {
	// PostgresDSN is the connection string for the segment/score store.
	// Empty disables relational persistence.
	PostgresDSN string `yaml:"postgres_dsn"`

	// MediaDir is the Badger directory for the local media blob store.
	MediaDir string `yaml:"media_dir"`

	// ArchetypeProfiles is the path to the YAML archetype profile file.
	ArchetypeProfiles string `yaml:"archetype_profiles"`
}

// Default returns a Config populated with the standard tuning. Loaded YAML
// values override these field by field.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":9464",
			LogLevel:   LogInfo,
		},
		Segmentation: SegmentationConfig{
			MaxBufferedSeconds:     30,
			FlushSeconds:           10,
			SilenceThresholdDB:     -40,
			MinSilenceSeconds:      0.3,
			MinDialogueClipSeconds: 0.1,
			MinVocalClipSeconds:    0.05,
			AmbientWindowSeconds:   5,
			MixedWindowSeconds:     2,
			MinWindowFraction:      0.9,
		},
		Scoring: ScoringConfig{
			QueueSize:       64,
			Workers:         4,
			Backpressure:    BackpressureBlock,
			AnalysisVersion: "v1",
		},
		Analyzers: AnalyzersConfig{
			Intelligibility: IntelligibilityConfig{
				SNRWeight:           0.3,
				ClarityWeight:       0.3,
				ArticulationWeight:  0.4,
				AcceptableThreshold: 0.75,
				DegradedThreshold:   0.50,
			},
			Naturalness: NaturalnessConfig{
				PitchWeight:          0.4,
				RhythmWeight:         0.3,
				SpectralWeight:       0.3,
				PitchCV:              Range{Lo: 0.1, Hi: 0.4},
				ContourChangesPerSec: Range{Lo: 2, Hi: 8},
				OnsetIntervalCV:      Range{Lo: 0.3, Hi: 0.7},
				PauseRatio:           Range{Lo: 0.10, Hi: 0.20},
				SpectralFlux:         Range{Lo: 0.1, Hi: 0.5},
				CentroidCV:           Range{Lo: 0.1, Hi: 0.3},
				OKThreshold:          0.70,
				RoboticThreshold:     0.40,
			},
			Archetype: ArchetypeConfig{
				PitchWeight:        0.3,
				FormantWeight:      0.3,
				TextureWeight:      0.2,
				FeatureWeight:      0.2,
				LPCOrder:           16,
				TooCleanThreshold:  0.90,
				OnProfileThreshold: 0.75,
				TooFlatThreshold:   0.40,
			},
			Stability: StabilityConfig{
				GlitchWeight:      0.3,
				ArtifactWeight:    0.2,
				ContinuityWeight:  0.2,
				QualityWeight:     0.2,
				ParameterWeight:   0.1,
				DCOffsetTolerance: 0.02,
				DynamicRangeDB:    Range{Lo: 20, Hi: 60},
				Kurtosis:          Range{Lo: 2, Hi: 8},
				StableThreshold:   0.80,
			},
		},
		Storage: StorageConfig{
			MediaDir: "data/media",
		},
	}
}
