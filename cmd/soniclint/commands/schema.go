package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soniclint/soniclint/internal/store"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the relational schema DDL",
	Long: `Print the PostgreSQL DDL for the audio_segments and segment_scores
tables. The serve command applies it automatically on startup; this is for
deployments that manage migrations externally.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), store.Schema)
	},
}
