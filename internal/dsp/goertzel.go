// Package dsp measures the amplitude of the pilot tone an analogue slider
// modulates, so a sound card can stand in for a microcontroller ADC.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("pilot frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates not enough samples for the configured block size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig holds configuration for single-bin tone measurement.
type GoertzelConfig struct {
	// PilotFrequency is the tone to measure in Hz (config: pilot_frequency)
	PilotFrequency float64
	// SampleRate is the capture sample rate in Hz (config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per measurement (config: block_size)
	BlockSize int
}

// Goertzel computes the DFT magnitude of one frequency bin. For a single
// frequency it is cheaper than an FFT.
type Goertzel struct {
	config      GoertzelConfig
	coefficient float64 // 2cos(2πf/fs)
	normalizer  float64 // 2/N
}

// NewGoertzel creates a Goertzel filter for the configured pilot tone.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.PilotFrequency <= 0 || cfg.PilotFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * cfg.PilotFrequency / cfg.SampleRate
	return &Goertzel{
		config:      cfg,
		coefficient: 2 * math.Cos(omega),
		normalizer:  2 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the amplitude of the pilot tone in the first BlockSize
// samples. A full-scale sine at the pilot frequency measures about 1.0.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples[:g.config.BlockSize]), nil
}

func (g *Goertzel) magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block {
		s0 := float64(x) + g.coefficient*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - g.coefficient*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}

// Config returns the filter configuration.
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}

// BlockSize returns the configured block size.
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}
