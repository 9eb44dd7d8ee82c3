package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ColonelBlimp/bintype/internal/audio"
	"github.com/ColonelBlimp/bintype/internal/config"
	"github.com/ColonelBlimp/bintype/internal/disambig"
	"github.com/ColonelBlimp/bintype/internal/dsp"
	"github.com/ColonelBlimp/bintype/internal/filter"
	"github.com/ColonelBlimp/bintype/internal/layout"
	"github.com/ColonelBlimp/bintype/internal/lexicon"
	"github.com/ColonelBlimp/bintype/internal/logging"
	"github.com/ColonelBlimp/bintype/internal/session"
	"github.com/ColonelBlimp/bintype/internal/source"
	"github.com/ColonelBlimp/bintype/internal/touch"
)

func loadSettings() (*config.Settings, error) {
	s, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func newLogger(s *config.Settings, w io.Writer) *slog.Logger {
	format, _ := logging.ParseFormat(s.LogFormat)
	level := logging.LevelInfo
	if s.Debug {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{Level: level, Format: format, Output: w})
}

func loadLayout(s *config.Settings) (*layout.Layout, error) {
	var (
		l   *layout.Layout
		err error
	)
	if s.LayoutFile != "" {
		l, err = layout.LoadFile(s.LayoutFile)
	} else {
		l, err = layout.Builtin(s.Layout)
	}
	if err != nil {
		return nil, err
	}
	if s.UseAlternate {
		l.UseAlternate = true
	}
	return l, nil
}

// loadDictionary returns the configured corpus, or nil when none is set.
// The SQLite corpus wins over a frequency list.
func loadDictionary(ctx context.Context, s *config.Settings) (*lexicon.Dictionary, error) {
	switch {
	case s.DictionaryDB != "":
		st, err := lexicon.Open(s.DictionaryDB)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		return st.Dictionary(ctx)
	case s.Dictionary != "":
		return lexicon.LoadFile(s.Dictionary)
	}
	return nil, nil
}

func newDisambiguator(ctx context.Context, s *config.Settings, logger *slog.Logger) (*disambig.Disambiguator, error) {
	dict, err := loadDictionary(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	return disambiguatorFor(dict, logger), nil
}

func disambiguatorFor(dict *lexicon.Dictionary, logger *slog.Logger) *disambig.Disambiguator {
	if dict == nil {
		logger.Debug("no dictionary configured, ranking by bigrams only")
		return disambig.New()
	}
	logger.Debug("dictionary loaded", "terms", dict.Len())
	return disambig.New(disambig.WithOracle(dict))
}

// newSession wires filter, classifier, layout and disambiguator from the
// settings. A configured dictionary also corrects and completes the word
// being typed.
func newSession(ctx context.Context, s *config.Settings, p session.Presenter, logger *slog.Logger) (*session.Session, error) {
	l, err := loadLayout(s)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	f, err := filter.New(s.Epsilon, s.Deadzone)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	clock, err := touch.ParseClock(s.Clock)
	if err != nil {
		return nil, err
	}
	c, err := touch.New(touch.Config{Deadzone: s.Deadzone, Period: s.IdlePeriod, Clock: clock}, f)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	dict, err := loadDictionary(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}

	cfg := session.Config{
		SampleRange: s.SampleRange,
		MaxResults:  s.MaxResults,
		Verbosity:   lexicon.VerbosityClosest,
		Logger:      logging.Component(logger, "session"),
	}
	if dict != nil {
		cfg.Corrector = dict
	}
	logger.Debug("session ready", "layout", l.Name, "mode", l.Mode, "slots", l.SlotCount())
	return session.New(cfg, l, c, disambiguatorFor(dict, logger), p)
}

// drain pushes enough empty frames through the filter to release the
// readings it still holds, so a trailing gesture is confirmed.
func drain(s *session.Session) {
	for i := 0; i < filter.HistorySize+1; i++ {
		s.Step(source.Frame{})
	}
}

// tickInterval converts tick_rate to a ticker period; zero means one tick
// per frame.
func tickInterval(s *config.Settings) time.Duration {
	if s.TickRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.TickRate)
}

func audioConfig(s *config.Settings, logger *slog.Logger) source.AudioConfig {
	capture := audio.DefaultConfig()
	capture.DeviceIndex = s.DeviceIndex
	capture.SampleRate = uint32(s.SampleRate)
	capture.BufferSize = uint32(s.BlockSize)

	return source.AudioConfig{
		Capture: capture,
		Goertzel: dsp.GoertzelConfig{
			PilotFrequency: s.PilotFrequency,
			SampleRate:     s.SampleRate,
			BlockSize:      s.BlockSize,
		},
		Meter: dsp.MeterConfig{
			SampleRange:     s.SampleRange,
			Threshold:       s.Threshold,
			Hysteresis:      s.Hysteresis,
			AGCEnabled:      s.AGCEnabled,
			AGCAttack:       s.AGCAttack,
			AGCDecay:        s.AGCDecay,
			AGCWarmupBlocks: s.AGCWarmupBlocks,
		},
		Logger: logger,
	}
}

// openSource starts the configured device. stdin reads frames from in.
func openSource(ctx context.Context, s *config.Settings, in io.Reader, logger *slog.Logger) (source.Source, error) {
	logger = logging.Component(logger, "source")
	switch s.Source {
	case "serial":
		cfg := source.DefaultSerialConfig()
		cfg.Port = s.SerialPort
		cfg.Baud = s.BaudRate
		cfg.Logger = logger
		src, err := source.NewSerial(cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "audio":
		src, err := source.NewAudio(ctx, audioConfig(s, logger))
		if err != nil {
			return nil, err
		}
		return src, nil
	case "stdin":
		return source.NewReader(in, nil, logger), nil
	}
	return nil, fmt.Errorf("unknown source %q", s.Source)
}
