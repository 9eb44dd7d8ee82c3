// Package session drives the typing pipeline: device frames go through the
// touch classifier, confirmed gestures are resolved against the active
// layout, and finished words are ranked by the disambiguator.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ColonelBlimp/bintype/internal/disambig"
	"github.com/ColonelBlimp/bintype/internal/layout"
	"github.com/ColonelBlimp/bintype/internal/lexicon"
	"github.com/ColonelBlimp/bintype/internal/source"
	"github.com/ColonelBlimp/bintype/internal/touch"
)

const (
	space     = ' '
	backspace = '\b'
)

var (
	// ErrLayoutRequired indicates a session without a layout
	ErrLayoutRequired = errors.New("layout is required")
	// ErrClassifierRequired indicates a session without a classifier
	ErrClassifierRequired = errors.New("classifier is required")
	// ErrDisambiguatorRequired indicates a session without a disambiguator
	ErrDisambiguatorRequired = errors.New("disambiguator is required")
	// ErrInvalidSampleRange indicates a sample range below 2
	ErrInvalidSampleRange = errors.New("sample range must be at least 2")
)

// KeyPress describes the key under the finger. Hover reports one per
// touching tick; Key reports the confirmed one.
type KeyPress struct {
	Address layout.Address
	// Label is the outer key label appended to the word
	Label  string
	Letter rune
	// Certain is false when the layout only knew the bin
	Certain bool
	Tick    int64
	// Candidates ranks the word so far; empty for hovers
	Candidates []disambig.Candidate
	// Corrections and Completions of the typed word, when a corrector is
	// configured
	Corrections []string
	Completions []string
}

// Word is a finished label sequence and its ranking.
type Word struct {
	Labels      []string
	Typed       string
	Candidates  []disambig.Candidate
	Corrections []string
}

// Corrector proposes dictionary words close to, or starting with, the
// word being typed. *lexicon.Dictionary is one.
type Corrector interface {
	Suggestions(word string, v lexicon.Verbosity) []string
	Completions(prefix string) []string
}

// Presenter receives the pipeline output. Calls happen on the goroutine
// that drives the session.
type Presenter interface {
	Hover(k KeyPress)
	Key(k KeyPress)
	Word(w Word)
}

// Config holds session configuration.
type Config struct {
	// SampleRange is the number of distinct device readings
	SampleRange uint
	// MaxResults bounds every candidate list
	MaxResults int
	// Corrector is optional
	Corrector Corrector
	Verbosity lexicon.Verbosity
	Logger    *slog.Logger
}

// Session glues one layout, classifier and disambiguator together. Like the
// classifier it is driven by a single goroutine.
type Session struct {
	config     Config
	layout     *layout.Layout
	classifier *touch.Classifier
	disamb     *disambig.Disambiguator
	presenter  Presenter
	logger     *slog.Logger

	frame   source.Frame
	labels  []string
	letters []rune
	typed   []rune
}

// New creates a session and subscribes it to the classifier. A nil
// presenter discards output.
func New(cfg Config, l *layout.Layout, c *touch.Classifier, d *disambig.Disambiguator, p Presenter) (*Session, error) {
	if l == nil {
		return nil, ErrLayoutRequired
	}
	if c == nil {
		return nil, ErrClassifierRequired
	}
	if d == nil {
		return nil, ErrDisambiguatorRequired
	}
	if cfg.SampleRange < 2 {
		return nil, ErrInvalidSampleRange
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = disambig.DefaultMaxResults
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if p == nil {
		p = discard{}
	}

	s := &Session{
		config:     cfg,
		layout:     l,
		classifier: c,
		disamb:     d,
		presenter:  p,
		logger:     cfg.Logger,
	}
	c.Subscribe(s.onEvent)
	return s, nil
}

// Step runs one tick with a fresh frame.
func (s *Session) Step(f source.Frame) {
	s.frame = f
	s.classifier.Provide(f.Raw, f.HasRaw)
	s.classifier.Tick()
}

// Idle runs one tick without a frame, letting the classifier synthesize a
// reading once its idle period has passed.
func (s *Session) Idle() {
	s.classifier.Tick()
}

// Run steps the session from frames until the channel closes or ctx ends.
// With a zero interval every frame is one tick. Otherwise a ticker drives
// the session, each tick consuming the newest pending frame or idling.
func (s *Session) Run(ctx context.Context, frames <-chan source.Frame, interval time.Duration) error {
	if interval <= 0 {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case f, ok := <-frames:
				if !ok {
					return nil
				}
				s.Step(f)
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending source.Frame
	havePending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				if havePending {
					s.Step(pending)
				}
				return nil
			}
			pending, havePending = f, true
		case <-ticker.C:
			if havePending {
				s.Step(pending)
				havePending = false
			} else {
				s.Idle()
			}
		}
	}
}

func (s *Session) onEvent(e touch.Event) {
	s.logger.Debug("touch", "kind", e.Kind, "value", e.Value, "present", e.Present, "auto", e.Auto, "tick", e.Tick)

	switch e.Kind {
	case touch.NoTouches:
		return
	case touch.FingerUp:
		if s.layout.KeyOnFingerUp {
			s.confirm(e)
		}
	case touch.FingerDown:
		if !s.layout.KeyOnFingerUp {
			s.confirm(e)
			return
		}
		s.hover(e)
	case touch.Touching:
		s.hover(e)
	}
}

// input builds the layout input for a stabilised reading.
func (s *Session) input(value uint) layout.Input {
	return layout.Input{
		Slider:    float64(value) / float64(s.config.SampleRange-1),
		HasSlider: true,
		Angles:    s.frame.Angles,
		RawIndex:  value,
		HasRaw:    true,
	}
}

// resolve returns the key under value; ok is false for an empty zone.
func (s *Session) resolve(e touch.Event) (KeyPress, bool) {
	addr, ok, err := s.layout.Resolve(s.input(e.Value))
	if err != nil {
		s.logger.Warn("resolve failed", "value", e.Value, "error", err)
		return KeyPress{}, false
	}
	if !ok {
		return KeyPress{}, false
	}
	letter, certain, ok := addr.Letter(s.layout.UseAlternate)
	if !ok {
		return KeyPress{}, false
	}
	if s.layout.GuessInner {
		letter, certain = s.disamb.Guess(addr.Bin.Label(), s.lastTyped()), false
	}
	return KeyPress{
		Address: addr,
		Label:   addr.Bin.Label(),
		Letter:  letter,
		Certain: certain,
		Tick:    e.Tick,
	}, true
}

// lastTyped returns the previous typed character, or a space at the start
// of the text.
func (s *Session) lastTyped() rune {
	if len(s.typed) == 0 {
		return space
	}
	return s.typed[len(s.typed)-1]
}

func (s *Session) hover(e touch.Event) {
	if !e.Present {
		return
	}
	if k, ok := s.resolve(e); ok {
		s.presenter.Hover(k)
	}
}

func (s *Session) confirm(e touch.Event) {
	k, ok := s.resolve(e)
	if !ok {
		s.logger.Debug("gesture ended in empty zone", "value", e.Value)
		return
	}

	switch k.Letter {
	case space:
		s.typed = append(s.typed, space)
		s.presenter.Key(k)
		s.EndWord()
		return
	case backspace:
		s.dropLast()
	default:
		s.labels = append(s.labels, k.Label)
		s.letters = append(s.letters, k.Letter)
		s.typed = append(s.typed, k.Letter)
	}

	k.Candidates = s.disamb.Rank(s.labels, s.config.MaxResults)
	if s.config.Corrector != nil && len(s.letters) > 0 {
		word := string(s.letters)
		k.Corrections = s.limit(s.config.Corrector.Suggestions(word, s.config.Verbosity))
		k.Completions = s.limit(s.config.Corrector.Completions(word))
	}
	s.logger.Debug("key", "label", k.Label, "letter", string(k.Letter), "certain", k.Certain)
	s.presenter.Key(k)
}

func (s *Session) dropLast() {
	if len(s.typed) > 0 {
		s.typed = s.typed[:len(s.typed)-1]
	}
	if len(s.labels) == 0 {
		return
	}
	s.labels = s.labels[:len(s.labels)-1]
	s.letters = s.letters[:len(s.letters)-1]
}

// EndWord ranks the pending label sequence, hands it to the presenter and
// starts a new word. It does nothing when no key is pending.
func (s *Session) EndWord() {
	if len(s.labels) == 0 {
		return
	}
	w := Word{
		Labels:     s.Labels(),
		Typed:      string(s.letters),
		Candidates: s.disamb.Rank(s.labels, s.config.MaxResults),
	}
	if s.config.Corrector != nil {
		w.Corrections = s.limit(s.config.Corrector.Suggestions(w.Typed, s.config.Verbosity))
	}
	s.logger.Info("word", "labels", len(w.Labels), "typed", w.Typed, "candidates", len(w.Candidates))
	s.presenter.Word(w)
	s.resetWord()
}

func (s *Session) limit(words []string) []string {
	if len(words) > s.config.MaxResults {
		return words[:s.config.MaxResults]
	}
	return words
}

// Cancel discards the pending word without ranking it. Its letters stay in
// the typed text.
func (s *Session) Cancel() {
	s.resetWord()
}

func (s *Session) resetWord() {
	s.labels = nil
	s.letters = nil
}

// Typed returns every letter typed so far, including spaces.
func (s *Session) Typed() string {
	return string(s.typed)
}

// Labels returns a copy of the pending word's label sequence.
func (s *Session) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

type discard struct{}

func (discard) Hover(KeyPress) {}
func (discard) Key(KeyPress)   {}
func (discard) Word(Word)      {}
