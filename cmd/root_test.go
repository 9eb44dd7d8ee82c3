package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/bintype/internal/layout"
)

// resetForTest clears viper and puts every flag back to its default, since
// cobra keeps flag values between Execute calls.
func resetForTest() {
	viper.Reset()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
		for _, sub := range c.Commands() {
			reset(sub.Flags())
		}
	}
}

// setupConfig points the user config dir at a temp HOME holding yaml.
func setupConfig(t *testing.T, yaml string) string {
	t.Helper()
	resetForTest()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("NO_COLOR", "1")
	configDir := filepath.Join(tmpDir, ".config", "bintype")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return tmpDir
}

// execute runs the root command with args and stdin, returning everything
// written to stdout.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"layout", "l", layout.SquashedQWERTY},
		{"layout-file", "", ""},
		{"source", "s", "serial"},
		{"port", "p", "/dev/ttyACM0"},
		{"device", "d", "-1"},
		{"dictionary", "", ""},
		{"db", "", ""},
		{"max-results", "n", "5"},
		{"alternate", "", "false"},
		{"debug", "D", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
			if _, ok := flagKeys[tt.name]; !ok {
				t.Errorf("flag %q is not bound to a setting", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "bintype" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "bintype")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}

	want := []string{"decode", "devices", "dict", "layouts", "listen", "replay"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetForTest()

	out, err := execute(t, nil, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"bintype", "--layout", "replay", "listen"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	setupConfig(t, "max_results: 7\n")

	// Should not panic
	initConfig()

	if viper.GetInt("max_results") != 7 {
		t.Errorf("viper.GetInt(max_results) = %d, want 7", viper.GetInt("max_results"))
	}
	if viper.GetString("layout") != layout.SquashedQWERTY {
		t.Errorf("viper.GetString(layout) = %q", viper.GetString("layout"))
	}
}

func TestDecodeCmd(t *testing.T) {
	setupConfig(t, "max_results: 5\n")

	out, err := execute(t, nil, "decode", "tgb")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !strings.Contains(out, "WORD") {
		t.Errorf("missing header in:\n%s", out)
	}
	for _, want := range []string{"T", "G", "B"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDecodeCmd_MaxResultsFlag(t *testing.T) {
	setupConfig(t, "")

	out, err := execute(t, nil, "decode", "-n", "2", "TGB", "YHN", "EDC")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	// header plus two candidates
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("got %d lines, want 3:\n%s", lines, out)
	}
}

func TestDecodeCmd_RequiresLabels(t *testing.T) {
	setupConfig(t, "")

	if _, err := execute(t, nil, "decode"); err == nil {
		t.Error("expected error without labels")
	}
}

func TestDecodeCmd_InvalidConfig(t *testing.T) {
	setupConfig(t, "epsilon: 0\n")

	_, err := execute(t, nil, "decode", "TGB")
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestLayoutsCmd(t *testing.T) {
	setupConfig(t, "")

	out, err := execute(t, nil, "layouts")
	if err != nil {
		t.Fatalf("layouts error = %v", err)
	}
	for _, name := range layout.Names() {
		if !strings.Contains(out, name) {
			t.Errorf("output missing layout %q:\n%s", name, out)
		}
	}
	for _, want := range []string{"slider", "two-rotation", "normalized-slider", "TGB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

const gesture = "# one press over TGB\n30\n30\n30\n30\n"

func TestReplayCmd(t *testing.T) {
	dir := setupConfig(t, "")
	path := writeFile(t, dir, "frames.txt", gesture)

	out, err := execute(t, nil, "replay", path)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if !strings.Contains(out, "[TGB] T?") {
		t.Errorf("missing key line:\n%s", out)
	}
	if !strings.Contains(out, "word T") {
		t.Errorf("missing word line:\n%s", out)
	}
	if !strings.Contains(out, `typed: "T"`) {
		t.Errorf("missing typed text:\n%s", out)
	}
}

func TestReplayCmd_DictionaryWords(t *testing.T) {
	dir := setupConfig(t, "")
	frames := writeFile(t, dir, "frames.txt", gesture)
	words := writeFile(t, dir, "words.txt", "the 100\nto 50\ntea 3\n")

	out, err := execute(t, nil, "replay", "--dictionary", words, frames)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	for _, want := range []string{"| more the to tea", "| fix to", "word T"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReplayCmd_Stdin(t *testing.T) {
	setupConfig(t, "")

	out, err := execute(t, strings.NewReader(gesture), "replay", "-")
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if !strings.Contains(out, `typed: "T"`) {
		t.Errorf("missing typed text:\n%s", out)
	}
}

func TestReplayCmd_Verbose(t *testing.T) {
	dir := setupConfig(t, "")
	path := writeFile(t, dir, "frames.txt", gesture)

	out, err := execute(t, nil, "replay", "-v", path)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if strings.Count(out, "over T") != 1 {
		t.Errorf("want one hover line over T:\n%s", out)
	}
}

func TestReplayCmd_Malformed(t *testing.T) {
	dir := setupConfig(t, "")
	path := writeFile(t, dir, "frames.txt", "30\nthirty\n")

	_, err := execute(t, nil, "replay", path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %v, want line 2", err)
	}
}

func TestReplayCmd_MissingFile(t *testing.T) {
	dir := setupConfig(t, "")

	if _, err := execute(t, nil, "replay", filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestListenCmd_Stdin(t *testing.T) {
	setupConfig(t, "")

	out, err := execute(t, strings.NewReader(gesture), "listen", "--source", "stdin")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	if !strings.Contains(out, "[TGB] T?") {
		t.Errorf("missing key line:\n%s", out)
	}
	if !strings.Contains(out, `typed: "T"`) {
		t.Errorf("missing typed text:\n%s", out)
	}
}

func TestListenCmd_SerialOpenFails(t *testing.T) {
	dir := setupConfig(t, "")

	_, err := execute(t, nil, "listen", "--source", "serial", "--port", filepath.Join(dir, "no-such-tty"))
	if err == nil {
		t.Fatal("expected error for missing serial port")
	}
	if !strings.Contains(err.Error(), "source") {
		t.Errorf("error = %v, want source error", err)
	}
}

func TestListenCmd_InvalidSource(t *testing.T) {
	setupConfig(t, "")

	_, err := execute(t, nil, "listen", "--source", "bluetooth")
	if err == nil || !strings.Contains(err.Error(), "config") {
		t.Errorf("error = %v, want config error", err)
	}
}

func TestDictCmd_ImportAndLookup(t *testing.T) {
	dir := setupConfig(t, "")
	list := writeFile(t, dir, "words.txt", "the 100\nthey 50\nthen 20\nten 5\n")
	db := filepath.Join(dir, "corpus", "lexicon.db")

	out, err := execute(t, nil, "dict", "import", list, "--db", db)
	if err != nil {
		t.Fatalf("dict import error = %v", err)
	}
	if !strings.Contains(out, "imported 4 words") {
		t.Errorf("import output = %q", out)
	}

	resetForTest()
	out, err = execute(t, nil, "dict", "lookup", "THE", "--db", db)
	if err != nil {
		t.Fatalf("dict lookup error = %v", err)
	}
	for _, want := range []string{"the: 100", "completions: the they then", "suggestions:"} {
		if !strings.Contains(out, want) {
			t.Errorf("lookup output missing %q:\n%s", want, out)
		}
	}

	resetForTest()
	out, err = execute(t, nil, "decode", "--db", db, "TGB", "YHN", "EDC")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) < 2 || !strings.Contains(lines[1], "THE") || !strings.Contains(lines[1], "100") {
		t.Errorf("want THE ranked first by frequency:\n%s", out)
	}
}

func TestDictCmd_DefaultCorpusPath(t *testing.T) {
	dir := setupConfig(t, "")
	list := writeFile(t, dir, "words.txt", "hello 3\n")

	if _, err := execute(t, nil, "dict", "import", list); err != nil {
		t.Fatalf("dict import error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".config", "bintype", "lexicon.db")); err != nil {
		t.Errorf("corpus not created in config dir: %v", err)
	}

	resetForTest()
	out, err := execute(t, nil, "dict", "lookup", "hello")
	if err != nil {
		t.Fatalf("dict lookup error = %v", err)
	}
	if !strings.Contains(out, "hello: 3") {
		t.Errorf("lookup output = %q", out)
	}
}

func TestDictCmd_ImportMalformed(t *testing.T) {
	dir := setupConfig(t, "")
	list := writeFile(t, dir, "words.txt", "the many\n")

	if _, err := execute(t, nil, "dict", "import", list, "--db", filepath.Join(dir, "x.db")); err == nil {
		t.Error("expected error for malformed list")
	}
}
