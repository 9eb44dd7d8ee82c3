package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Type from the configured device until interrupted",
	Long: `Listen opens the configured source (serial, audio or stdin) and prints
every confirmed key and finished word. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolP("verbose", "v", false, "print hovered keys")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(settings, cmd.ErrOrStderr())
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	s, err := newSession(ctx, settings, newLinePresenter(out, verbose), logger)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, settings, cmd.InOrStdin(), logger)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("close source", "error", cerr)
		}
	}()

	logger.Info("listening", "source", settings.Source, "tick_rate", settings.TickRate)
	err = s.Run(ctx, src.Frames(), tickInterval(settings))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	drain(s)
	s.EndWord()
	fmt.Fprintf(out, "typed: %q\n", s.Typed())

	if err := src.Err(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}
