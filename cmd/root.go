package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facetrack",
	Short: "Track whether the enrolled person is in front of the camera",
	Long: `Facetrack classifies camera frames against a set of enrolled faces.
Every frame becomes a tracking event (face found, moved away, multiple
subjects or unknown subject); changes are forwarded to a remote event
collector and, optionally, recorded in an event journal.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
