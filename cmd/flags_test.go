package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func newFlagCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().Float64("threshold", 0, "")
	c.Flags().Bool("mirrored", false, "")
	return c
}

func TestFlagOrEnv(t *testing.T) {
	c := newFlagCommand()
	if got := flagOrEnv(c, "threshold", c.Flags().GetFloat64, 1.1); got != 1.1 {
		t.Errorf("unset flag: got %v, want fallback 1.1", got)
	}

	if err := c.Flags().Set("threshold", "0.8"); err != nil {
		t.Fatal(err)
	}
	if got := flagOrEnv(c, "threshold", c.Flags().GetFloat64, 1.1); got != 0.8 {
		t.Errorf("set flag: got %v, want 0.8", got)
	}

	// An explicit false must win over a true fallback
	if err := c.Flags().Set("mirrored", "false"); err != nil {
		t.Fatal(err)
	}
	if flagOrEnv(c, "mirrored", c.Flags().GetBool, true) {
		t.Error("explicit --mirrored=false was ignored")
	}
}

func TestFlagValue_UnknownFlagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for undefined flag")
		}
	}()
	mustGetInt(newFlagCommand(), "missing")
}
