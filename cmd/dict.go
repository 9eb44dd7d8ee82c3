package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/bintype/internal/config"
	"github.com/ColonelBlimp/bintype/internal/lexicon"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the word-frequency corpus",
}

var dictImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load a \"word count\" frequency list into the SQLite corpus",
	Long: `Import reads one "word count" pair per line and adds the counts to the
corpus at dictionary_db (or --db). Without either, the corpus lives in
the bintype config directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runDictImport,
}

var dictLookupCmd = &cobra.Command{
	Use:   "lookup WORD",
	Short: "Show the frequency, completions and corrections of a word",
	Args:  cobra.ExactArgs(1),
	RunE:  runDictLookup,
}

func init() {
	dictCmd.AddCommand(dictImportCmd, dictLookupCmd)
	rootCmd.AddCommand(dictCmd)
}

// corpusPath returns the SQLite corpus to manage.
func corpusPath(s *config.Settings) (string, error) {
	if s.DictionaryDB != "" {
		return s.DictionaryDB, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, config.AppName, "lexicon.db"), nil
}

func runDictImport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	path, err := corpusPath(settings)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := lexicon.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	total, err := st.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d words into %s (%d total)\n", n, path, total)
	return nil
}

func runDictLookup(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.DictionaryDB == "" && settings.Dictionary == "" {
		path, err := corpusPath(settings)
		if err != nil {
			return err
		}
		settings.DictionaryDB = path
	}
	dict, err := loadDictionary(cmd.Context(), settings)
	if err != nil {
		return fmt.Errorf("dictionary: %w", err)
	}

	word := strings.ToLower(args[0])
	out := cmd.OutOrStdout()
	if n, ok := dict.Frequency(word); ok {
		fmt.Fprintf(out, "%s: %d\n", word, n)
	} else {
		fmt.Fprintf(out, "%s: not found\n", word)
	}
	if c := dict.Completions(word); len(c) > 0 {
		fmt.Fprintf(out, "completions: %s\n", strings.Join(c, " "))
	}
	if s := dict.Suggestions(word, lexicon.VerbosityClosest); len(s) > 0 {
		fmt.Fprintf(out, "suggestions: %s\n", strings.Join(s, " "))
	}
	return nil
}
