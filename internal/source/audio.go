package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ColonelBlimp/bintype/internal/audio"
	"github.com/ColonelBlimp/bintype/internal/dsp"
)

// AudioConfig describes a pilot-tone source: the potentiometer sets the
// amplitude of a tone fed into a sound card input.
type AudioConfig struct {
	Capture  audio.Config
	Goertzel dsp.GoertzelConfig
	Meter    dsp.MeterConfig
	Logger   *slog.Logger
}

// device is the part of audio.Capture the source drives.
type device interface {
	SetCallback(cb audio.SampleCallback)
	Init() error
	Start(ctx context.Context) error
	Close() error
}

// Audio is a Source that emits one frame per measured block. Frames are
// dropped when the consumer falls behind.
type Audio struct {
	dev    device
	meter  *dsp.LevelMeter
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	dropped int
	frames  chan Frame
}

// NewAudio opens the capture device and starts measuring. Capture stops when
// ctx is cancelled; Close must still be called.
func NewAudio(ctx context.Context, cfg AudioConfig) (*Audio, error) {
	if cfg.Goertzel.SampleRate == 0 {
		cfg.Goertzel.SampleRate = float64(cfg.Capture.SampleRate)
	}
	return newAudio(ctx, audio.New(cfg.Capture), cfg)
}

func newAudio(ctx context.Context, dev device, cfg AudioConfig) (*Audio, error) {
	g, err := dsp.NewGoertzel(cfg.Goertzel)
	if err != nil {
		return nil, fmt.Errorf("pilot tone filter: %w", err)
	}
	meter, err := dsp.NewLevelMeter(cfg.Meter, g)
	if err != nil {
		return nil, fmt.Errorf("level meter: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Audio{
		dev:    dev,
		meter:  meter,
		logger: logger,
		frames: make(chan Frame, FrameBuffer),
	}
	meter.SetCallback(a.onLevel)
	dev.SetCallback(meter.Process)

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("audio source: %w", err)
	}
	if err := dev.Start(ctx); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("audio source: %w", err)
	}
	logger.Info("audio source started",
		"pilot_hz", cfg.Goertzel.PilotFrequency,
		"block", cfg.Goertzel.BlockSize,
		"range", cfg.Meter.SampleRange)
	return a, nil
}

// onLevel runs on the audio thread and must not block.
func (a *Audio) onLevel(l dsp.Level) {
	f := Frame{Raw: l.Raw, HasRaw: l.Present}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.frames <- f:
	default:
		a.dropped++
	}
}

// Frames implements Source.
func (a *Audio) Frames() <-chan Frame {
	return a.frames
}

// Err implements Source. The audio source only stops when closed.
func (a *Audio) Err() error {
	return nil
}

// Dropped returns the number of frames discarded because the channel was
// full.
func (a *Audio) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close implements Source.
func (a *Audio) Close() error {
	err := a.dev.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.frames)
		if a.dropped > 0 {
			a.logger.Warn("audio frames dropped", "count", a.dropped)
		}
	}
	return err
}
