package dsp

import (
	"errors"
	"math"
	"sync/atomic"
)

var (
	// ErrInvalidSampleRange indicates the quantized range needs at least two steps
	ErrInvalidSampleRange = errors.New("sample range must be at least 2")
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be non-negative
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrInvalidAGCWarmup indicates AGC warmup blocks must be non-negative
	ErrInvalidAGCWarmup = errors.New("agc warmup blocks must be non-negative")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// agcFloor keeps the peak tracker away from zero.
const agcFloor = 0.001

// Level is one quantized pilot-tone reading.
type Level struct {
	// Raw is the level quantized to [0, SampleRange)
	Raw uint
	// Present is false while the tone is below threshold
	Present bool
	// Magnitude is the normalized magnitude (0.0-1.0 after AGC)
	Magnitude float64
}

// LevelCallback receives one Level per measured block. It is called from the
// capture path and must not block.
type LevelCallback func(Level)

// MeterConfig holds level meter configuration.
type MeterConfig struct {
	// SampleRange is the number of quantization steps (config: sample_range)
	SampleRange uint
	// Threshold is the normalized magnitude below which the slider reads absent
	Threshold float64
	// Hysteresis is the number of consecutive blocks needed to change presence
	Hysteresis int
	// AGCEnabled scales magnitudes by the tracked peak
	AGCEnabled bool
	// AGCAttack is how fast the peak rises to louder blocks (config: agc_attack)
	AGCAttack float64
	// AGCDecay is the per-block peak decay factor (config: agc_decay)
	AGCDecay float64
	// AGCWarmupBlocks are measured for calibration only
	AGCWarmupBlocks int
}

// LevelMeter turns captured audio into quantized slider readings.
type LevelMeter struct {
	config    MeterConfig
	goertzel  *Goertzel
	blockSize int

	buffer []float32

	agcPeak float64
	warmup  int

	present  bool
	pending  bool
	debounce int

	callback atomic.Pointer[LevelCallback]
}

// NewLevelMeter creates a level meter around g.
func NewLevelMeter(cfg MeterConfig, g *Goertzel) (*LevelMeter, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.SampleRange < 2 {
		return nil, ErrInvalidSampleRange
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 0 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}
	if cfg.AGCWarmupBlocks < 0 {
		return nil, ErrInvalidAGCWarmup
	}

	return &LevelMeter{
		config:    cfg,
		goertzel:  g,
		blockSize: g.BlockSize(),
		buffer:    make([]float32, 0, g.BlockSize()),
		agcPeak:   1.0,
	}, nil
}

// SetCallback sets the callback for levels. A nil callback disables it.
func (m *LevelMeter) SetCallback(cb LevelCallback) {
	if cb == nil {
		m.callback.Store(nil)
		return
	}
	m.callback.Store(&cb)
}

// Process buffers samples and measures every complete block.
func (m *LevelMeter) Process(samples []float32) {
	m.buffer = append(m.buffer, samples...)
	for len(m.buffer) >= m.blockSize {
		m.measure(m.buffer[:m.blockSize])
		n := copy(m.buffer, m.buffer[m.blockSize:])
		m.buffer = m.buffer[:n]
	}
}

func (m *LevelMeter) measure(block []float32) {
	magnitude := m.goertzel.magnitude(block)

	if m.warmup < m.config.AGCWarmupBlocks {
		m.warmup++
		if m.config.AGCEnabled && magnitude > agcFloor {
			// the first block sets the peak, later ones only raise it
			if m.warmup == 1 || magnitude > m.agcPeak {
				m.agcPeak = magnitude
			}
		}
		return
	}

	if m.config.AGCEnabled {
		magnitude = m.applyAGC(magnitude)
	} else if magnitude > 1 {
		magnitude = 1
	}

	m.updatePresence(magnitude > m.config.Threshold)

	level := Level{Present: m.present, Magnitude: magnitude}
	if m.present {
		level.Raw = m.Quantize(magnitude)
	}
	m.emit(level)
}

// Quantize maps a normalized magnitude onto [0, SampleRange).
func (m *LevelMeter) Quantize(magnitude float64) uint {
	if magnitude <= 0 || math.IsNaN(magnitude) {
		return 0
	}
	if magnitude >= 1 {
		return m.config.SampleRange - 1
	}
	return uint(math.Floor(magnitude * float64(m.config.SampleRange-1)))
}

func (m *LevelMeter) applyAGC(magnitude float64) float64 {
	if magnitude > m.agcPeak {
		m.agcPeak += m.config.AGCAttack * (magnitude - m.agcPeak)
	} else {
		m.agcPeak *= m.config.AGCDecay
	}
	if m.agcPeak < agcFloor {
		m.agcPeak = agcFloor
	}

	normalized := magnitude / m.agcPeak
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// updatePresence debounces presence changes over Hysteresis blocks.
func (m *LevelMeter) updatePresence(present bool) {
	if present == m.present {
		m.pending = m.present
		m.debounce = 0
		return
	}
	if present == m.pending {
		m.debounce++
	} else {
		m.pending = present
		m.debounce = 1
	}
	if m.debounce >= m.config.Hysteresis {
		m.present = m.pending
		m.debounce = 0
	}
}

func (m *LevelMeter) emit(level Level) {
	if cb := m.callback.Load(); cb != nil {
		(*cb)(level)
	}
}

// Present returns the debounced presence.
func (m *LevelMeter) Present() bool {
	return m.present
}

// AGCPeak returns the tracked peak magnitude.
func (m *LevelMeter) AGCPeak() float64 {
	return m.agcPeak
}

// Reset clears buffered samples and detection state.
func (m *LevelMeter) Reset() {
	m.buffer = m.buffer[:0]
	m.agcPeak = 1.0
	m.warmup = 0
	m.present = false
	m.pending = false
	m.debounce = 0
}

// Config returns the meter configuration.
func (m *LevelMeter) Config() MeterConfig {
	return m.config
}
