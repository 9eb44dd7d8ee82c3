package cmd

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/bintype/internal/config"
	"github.com/ColonelBlimp/bintype/internal/layout"
	"github.com/ColonelBlimp/bintype/internal/logging"
	"github.com/ColonelBlimp/bintype/internal/session"
	"github.com/ColonelBlimp/bintype/internal/source"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Epsilon:         2,
		Deadzone:        8,
		SampleRange:     64,
		IdlePeriod:      3,
		Clock:           "frames",
		Layout:          layout.SquashedQWERTY,
		MaxResults:      5,
		Source:          "stdin",
		SampleRate:      48000,
		PilotFrequency:  600,
		BlockSize:       480,
		Threshold:       0.1,
		Hysteresis:      2,
		AGCAttack:       0.1,
		AGCDecay:        0.9995,
		AGCWarmupBlocks: 10,
		LogFormat:       "text",
	}
}

func TestTickInterval(t *testing.T) {
	tests := []struct {
		rate float64
		want time.Duration
	}{
		{0, 0},
		{-1, 0},
		{100, 10 * time.Millisecond},
		{4, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		s := testSettings()
		s.TickRate = tt.rate
		if got := tickInterval(s); got != tt.want {
			t.Errorf("tickInterval(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestAudioConfig(t *testing.T) {
	s := testSettings()
	s.DeviceIndex = 2
	s.AGCEnabled = true

	cfg := audioConfig(s, logging.Discard())
	if cfg.Capture.DeviceIndex != 2 || cfg.Capture.SampleRate != 48000 || cfg.Capture.BufferSize != 480 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Goertzel.PilotFrequency != 600 || cfg.Goertzel.BlockSize != 480 {
		t.Errorf("goertzel = %+v", cfg.Goertzel)
	}
	if cfg.Meter.SampleRange != 64 || !cfg.Meter.AGCEnabled || cfg.Meter.Hysteresis != 2 {
		t.Errorf("meter = %+v", cfg.Meter)
	}
}

func TestLoadLayout(t *testing.T) {
	s := testSettings()
	s.Layout = layout.ArcType
	s.UseAlternate = true

	l, err := loadLayout(s)
	if err != nil {
		t.Fatalf("loadLayout() error = %v", err)
	}
	if l.Name != layout.ArcType || !l.UseAlternate {
		t.Errorf("layout = %s alternate=%v", l.Name, l.UseAlternate)
	}

	s.Layout = "dvorak"
	if _, err := loadLayout(s); err == nil {
		t.Error("expected error for unknown layout")
	}

	s.LayoutFile = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := loadLayout(s); err == nil {
		t.Error("expected error for missing layout file")
	}
}

func TestLoadDictionary_None(t *testing.T) {
	d, err := loadDictionary(context.Background(), testSettings())
	if err != nil || d != nil {
		t.Errorf("loadDictionary() = %v, %v; want nil, nil", d, err)
	}
}

func TestOpenSource_Stdin(t *testing.T) {
	src, err := openSource(context.Background(), testSettings(), strings.NewReader("12\n-\n"), logging.Discard())
	if err != nil {
		t.Fatalf("openSource() error = %v", err)
	}
	defer src.Close()

	var got []source.Frame
	for f := range src.Frames() {
		got = append(got, f)
	}
	if len(got) != 2 || got[0].Raw != 12 || got[1].HasRaw {
		t.Errorf("frames = %+v", got)
	}
}

func TestOpenSource_Unknown(t *testing.T) {
	s := testSettings()
	s.Source = "carrier-pigeon"
	if _, err := openSource(context.Background(), s, io.MultiReader(), logging.Discard()); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestNewSession_Drain(t *testing.T) {
	p := &countingPresenter{}
	s, err := newSession(context.Background(), testSettings(), p, logging.Discard())
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		s.Step(source.Frame{Raw: 30, HasRaw: true})
	}
	if p.keys != 0 {
		t.Fatal("key confirmed while touching")
	}
	drain(s)
	if p.keys != 1 {
		t.Errorf("got %d keys after drain, want 1", p.keys)
	}
}

func TestNewSession_InvalidSettings(t *testing.T) {
	s := testSettings()
	s.Epsilon = 0
	if _, err := newSession(context.Background(), s, nil, logging.Discard()); err == nil {
		t.Error("expected filter error")
	}

	s = testSettings()
	s.Clock = "sundial"
	if _, err := newSession(context.Background(), s, nil, logging.Discard()); err == nil {
		t.Error("expected clock error")
	}
}

type countingPresenter struct {
	hovers, keys, words int
}

func (p *countingPresenter) Hover(session.KeyPress) { p.hovers++ }
func (p *countingPresenter) Key(session.KeyPress)   { p.keys++ }
func (p *countingPresenter) Word(session.Word)      { p.words++ }
