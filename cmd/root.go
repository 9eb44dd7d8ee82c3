// Package cmd implements the bintype command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/bintype/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "bintype",
	Short: "Text entry from a single analog slider with cluster keys",
	Long: `bintype turns the readings of a slider or stylus into text. Each
gesture selects a cluster of letters; finished words are disambiguated
with English bigram statistics and an optional word-frequency corpus.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps persistent flags to the settings they override.
var flagKeys = map[string]string{
	"layout":      "layout",
	"layout-file": "layout_file",
	"source":      "source",
	"port":        "serial_port",
	"device":      "device_index",
	"dictionary":  "dictionary",
	"db":          "dictionary_db",
	"max-results": "max_results",
	"alternate":   "use_alternate",
	"debug":       "debug",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	flags := rootCmd.PersistentFlags()
	flags.StringP("layout", "l", "squashed-qwerty", "built-in layout name")
	flags.String("layout-file", "", "TOML layout file (overrides --layout)")
	flags.StringP("source", "s", "serial", "device source: serial, audio or stdin")
	flags.StringP("port", "p", "/dev/ttyACM0", "serial port of the slider")
	flags.IntP("device", "d", -1, "audio device index (-1 for default)")
	flags.String("dictionary", "", "word frequency list")
	flags.String("db", "", "SQLite word corpus")
	flags.IntP("max-results", "n", 5, "candidates per word")
	flags.Bool("alternate", false, "type the alternate character layer")
	flags.BoolP("debug", "D", false, "enable debug logging")
}

// bindFlags ties the persistent flags to viper keys. It runs on every
// Execute so a viper.Reset between runs does not lose the bindings.
func bindFlags() {
	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	bindFlags()
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
