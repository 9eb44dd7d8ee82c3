package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode LABEL...",
	Short: "Rank the words a sequence of key labels can spell",
	Long: `Decode expands each label into its letters and prints the best
spellings. With a dictionary configured, known words rank by frequency
ahead of bigram-only guesses.`,
	Example: "  bintype decode TGB YHN EDC",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(settings, cmd.ErrOrStderr())

	d, err := newDisambiguator(cmd.Context(), settings, logger)
	if err != nil {
		return err
	}

	labels := make([]string, len(args))
	for i, a := range args {
		labels[i] = strings.ToUpper(a)
	}
	candidates := d.Rank(labels, settings.MaxResults)
	if len(candidates) == 0 {
		return fmt.Errorf("no spelling for %s", strings.Join(labels, " "))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tWORD\tSCORE\tFREQUENCY")
	for i, c := range candidates {
		freq := "-"
		if c.HasFrequency {
			freq = fmt.Sprint(c.Frequency)
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%s\n", i+1, c.Word, c.Score, freq)
	}
	return w.Flush()
}
