package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// flagValue reads a flag registered in init(). A lookup error means the flag
// was never defined, which is a programming bug, so it panics.
func flagValue[T any](name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return flagValue(name, cmd.Flags().GetBool)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return flagValue(name, cmd.Flags().GetInt)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return flagValue(name, cmd.Flags().GetString)
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	return flagValue(name, cmd.Flags().GetStringSlice)
}

// flagOrEnv returns the flag value when the user set it explicitly, else the
// environment fallback.
func flagOrEnv[T any](cmd *cobra.Command, name string, get func(string) (T, error), fallback T) T {
	if cmd.Flags().Changed(name) {
		return flagValue(name, get)
	}
	return fallback
}
