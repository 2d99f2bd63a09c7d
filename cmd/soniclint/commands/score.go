package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soniclint/soniclint/internal/analyze"
	"github.com/soniclint/soniclint/internal/dsp"
)

var scoreFlags struct {
	sampleRate     int
	channels       int
	archetypeID    string
	effectsApplied bool
}

var scoreCmd = &cobra.Command{
	Use:   "score <pcm16-file>",
	Short: "Score a raw PCM file offline",
	Long: `Run the four quality analyzers over a raw little-endian PCM16 file
and print the scores as JSON. Useful for spot checks and for tuning
analyzer thresholds against reference clips.

Example:
  soniclint score --rate 48000 --archetype gravel_warden line_0042.pcm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(cmd, args[0])
	},
}

func init() {
	scoreCmd.Flags().IntVar(&scoreFlags.sampleRate, "rate", 48000, "sample rate of the input file")
	scoreCmd.Flags().IntVar(&scoreFlags.channels, "channels", 1, "interleaved channel count of the input file")
	scoreCmd.Flags().StringVar(&scoreFlags.archetypeID, "archetype", "", "archetype id to score conformity against")
	scoreCmd.Flags().BoolVar(&scoreFlags.effectsApplied, "effects", false, "treat the clip as effects-processor output")
}

// scoreOutput is the JSON report for one offline scoring run.
type scoreOutput struct {
	File            string  `json:"file"`
	DurationSeconds float64 `json:"duration_seconds"`

	Intelligibility analyze.Result `json:"intelligibility"`
	Naturalness     analyze.Result `json:"naturalness"`
	Archetype       analyze.Result `json:"archetype_conformity"`
	Stability       analyze.Result `json:"simulator_stability"`
}

func runScore(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	samples := dsp.DownmixMono(dsp.DecodePCM16(raw), scoreFlags.channels)
	if len(samples) == 0 {
		return fmt.Errorf("no samples decoded from %q", path)
	}

	var registry *analyze.ProfileRegistry
	if p := cfg.Storage.ArchetypeProfiles; p != "" {
		registry, err = analyze.LoadProfiles(p)
		if err != nil {
			return err
		}
	}

	rate := scoreFlags.sampleRate
	out := scoreOutput{
		File:            path,
		DurationSeconds: float64(len(samples)) / float64(rate),

		Intelligibility: analyze.NewIntelligibility(cfg.Analyzers.Intelligibility).Analyze(samples, rate),
		Naturalness:     analyze.NewNaturalness(cfg.Analyzers.Naturalness).Analyze(samples, rate),
		Archetype:       analyze.NewArchetype(cfg.Analyzers.Archetype, registry).Analyze(samples, rate, scoreFlags.archetypeID),
		Stability:       analyze.NewStability(cfg.Analyzers.Stability).Analyze(samples, rate, scoreFlags.effectsApplied, nil),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
