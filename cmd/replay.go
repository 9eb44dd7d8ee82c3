package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/bintype/internal/source"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Type from a recorded frame file",
	Long: `Replay steps the pipeline once per recorded frame, exactly as a live
source would with tick_rate 0, then prints the typed text. Each line holds
a raw reading ("-" when absent), optionally followed by three stylus
angles. Use "-" as FILE to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolP("verbose", "v", false, "print hovered keys")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(settings, cmd.ErrOrStderr())
	verbose, _ := cmd.Flags().GetBool("verbose")

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	frames, err := source.ReadReplay(in)
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	s, err := newSession(cmd.Context(), settings, newLinePresenter(out, verbose), logger)
	if err != nil {
		return err
	}
	for _, f := range frames {
		s.Step(f)
	}
	drain(s)
	s.EndWord()

	logger.Debug("replay finished", "frames", len(frames))
	fmt.Fprintf(out, "typed: %q\n", s.Typed())
	return nil
}
