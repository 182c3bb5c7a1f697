package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facetrack/internal/constants"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("facetrack %s\n", Version)
		fmt.Printf("  Commit: %s\n", CommitSHA)
		fmt.Printf("  Built:  %s\n", BuildDate)
		fmt.Printf("  Model:  %dx%d input, %d-dim embeddings, match below %.2f\n",
			constants.InputSize, constants.InputSize, constants.OutputSize, constants.MatchThreshold)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
