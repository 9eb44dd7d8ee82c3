package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/bintype/internal/layout"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "List the built-in layouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODE\tSLOTS\tKEYS")
		for _, name := range layout.Names() {
			l, err := layout.Builtin(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.Name, l.Mode, l.SlotCount(), strings.Join(printableAll(l.Labels()), " "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)
}

func printableAll(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = printable(l)
	}
	return out
}
