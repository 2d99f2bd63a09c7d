// Package commands implements the soniclint CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soniclint/soniclint/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "soniclint",
	Short: "Game-audio telemetry segmentation and quality scoring",
	Long: `soniclint segments game-audio telemetry streams into scoreable clips
and scores each clip on four quality metrics: speech intelligibility,
vocal naturalness, archetype conformity, and effects-processor stability.

Commands:
  serve    - run the segmentation and scoring daemon
  score    - score a raw PCM file offline
  schema   - print the relational schema DDL`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, scoreCmd, schemaCmd)
}

// loadConfig reads the configured YAML file, falling back to defaults when
// the file does not exist and no explicit path was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
