package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ColonelBlimp/bintype/internal/disambig"
	"github.com/ColonelBlimp/bintype/internal/session"
)

var (
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	certainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	uncertainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	bestStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7EC699")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// useColor reports whether w is a terminal that accepts styling.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// linePresenter prints one line per confirmed key and per finished word.
// Hovers are printed only with verbose set, and only when the letter
// under the finger changes.
type linePresenter struct {
	out     io.Writer
	color   bool
	verbose bool

	lastHover rune
}

func newLinePresenter(out io.Writer, verbose bool) *linePresenter {
	return &linePresenter{out: out, color: useColor(out), verbose: verbose}
}

func (p *linePresenter) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *linePresenter) Hover(k session.KeyPress) {
	if !p.verbose || k.Letter == p.lastHover {
		return
	}
	p.lastHover = k.Letter
	fmt.Fprintf(p.out, "  %s %s\n", p.style(mutedStyle, "over"), p.letter(k))
}

func (p *linePresenter) Key(k session.KeyPress) {
	p.lastHover = 0
	line := fmt.Sprintf("%s %s", p.style(labelStyle, "["+printable(k.Label)+"]"), p.letter(k))
	if len(k.Candidates) > 0 {
		line += "  " + p.candidates(k.Candidates)
	}
	line += p.words("fix", k.Corrections) + p.words("more", k.Completions)
	fmt.Fprintln(p.out, line)
}

func (p *linePresenter) Word(w session.Word) {
	fmt.Fprintf(p.out, "%s %s  %s%s\n",
		p.style(mutedStyle, "word"),
		p.style(certainStyle, w.Typed),
		p.candidates(w.Candidates),
		p.words("fix", w.Corrections))
}

// words renders a dictionary list as "  | title a b", or nothing when
// the list is empty.
func (p *linePresenter) words(title string, ws []string) string {
	if len(ws) == 0 {
		return ""
	}
	return "  " + p.style(mutedStyle, "| "+title) + " " + strings.Join(ws, " ")
}

func (p *linePresenter) letter(k session.KeyPress) string {
	text := printable(string(k.Letter))
	if k.Certain {
		return p.style(certainStyle, text)
	}
	return p.style(uncertainStyle, text+"?")
}

func (p *linePresenter) candidates(cs []disambig.Candidate) string {
	words := make([]string, len(cs))
	for i, c := range cs {
		if i == 0 {
			words[i] = p.style(bestStyle, c.Word)
			continue
		}
		words[i] = c.Word
	}
	return strings.Join(words, " ")
}

// printable spells out the characters that do not print on their own.
func printable(s string) string {
	return strings.NewReplacer(" ", "␣", "\b", "⌫", "\t", "⇥", "\n", "⏎").Replace(s)
}
