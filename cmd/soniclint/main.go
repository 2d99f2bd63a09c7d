// Command soniclint is the game-audio quality pipeline daemon and its
// offline tooling.
//
// Usage:
//
//	soniclint serve   - run the segmentation and scoring daemon
//	soniclint score   - score a raw PCM file offline
//	soniclint schema  - print the relational schema DDL
package main

import (
	"fmt"
	"os"

	"github.com/soniclint/soniclint/cmd/soniclint/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
