// Package touch turns stabilised slider readings into touch events.
package touch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod indicates the idle period must be positive
	ErrInvalidPeriod = errors.New("idle period must be positive")
	// ErrInvalidClock indicates an unknown clock mode
	ErrInvalidClock = errors.New("clock must be frames or seconds")
	// ErrStabilizerRequired indicates a stabilizer instance is required
	ErrStabilizerRequired = errors.New("stabilizer instance is required")
)

// Kind classifies a touch event by the presence of the previous and current
// readings.
type Kind int

const (
	// NoTouches: absent before and now
	NoTouches Kind = iota
	// Touching: present before and now
	Touching
	// FingerDown: absent before, present now
	FingerDown
	// FingerUp: present before, absent now
	FingerUp
)

func (k Kind) String() string {
	switch k {
	case NoTouches:
		return "NoTouches"
	case Touching:
		return "Touching"
	case FingerDown:
		return "FingerDown"
	case FingerUp:
		return "FingerUp"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindFor derives the event kind from the previous and current presence.
func KindFor(wasPresent, isPresent bool) Kind {
	if wasPresent == isPresent {
		if isPresent {
			return Touching
		}
		return NoTouches
	}
	if isPresent {
		return FingerDown
	}
	return FingerUp
}

// Event is emitted once per provided reading, or when an idle tick
// synthesises a change.
type Event struct {
	Kind Kind
	// Value is the stabilised reading. For FingerUp it is the last present
	// reading, since the final position of the gesture is what matters.
	Value uint
	// Present is false when Value carries no reading.
	Present bool
	// Auto is true when the event was synthesised by Tick.
	Auto bool
	// Tick is the tick id the event belongs to.
	Tick int64
}

// Listener receives events synchronously. It must not call back into the
// classifier.
type Listener func(Event)

// Stabilizer denoises one raw sample per tick. filter.Filter satisfies it.
type Stabilizer interface {
	Push(raw uint) uint
}

// Clock selects the unit of the idle period.
type Clock int

const (
	// ClockFrames measures the idle period in ticks
	ClockFrames Clock = iota
	// ClockSeconds measures the idle period in wall-clock seconds
	ClockSeconds
)

// ParseClock maps "frames" or "seconds" to a Clock.
func ParseClock(s string) (Clock, error) {
	switch s {
	case "frames", "":
		return ClockFrames, nil
	case "seconds":
		return ClockSeconds, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

// Config holds classifier configuration.
type Config struct {
	// Deadzone is the reading at or below which the stabilised value is absent
	Deadzone uint
	// Period is how long, in Clock units, the classifier waits without a
	// provided reading before it synthesises one
	Period float64
	// Clock is the unit of Period
	Clock Clock
	// Now returns the wall-clock time for ClockSeconds; defaults to time.Now
	Now func() time.Time
}

type lastState struct {
	value   uint
	present bool
	at      float64
	tick    int64
}

// Classifier converts presence and absence of a stabilised reading into
// typed touch events.
//
// Exactly one producer drives a classifier; it is not safe for concurrent use.
type Classifier struct {
	config     Config
	stabilizer Stabilizer

	tick  int64
	start time.Time
	last  lastState

	listeners []Listener
}

// New creates a classifier around the given stabilizer.
func New(cfg Config, s Stabilizer) (*Classifier, error) {
	if s == nil {
		return nil, ErrStabilizerRequired
	}
	if cfg.Period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if cfg.Clock != ClockFrames && cfg.Clock != ClockSeconds {
		return nil, ErrInvalidClock
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Classifier{
		config:     cfg,
		stabilizer: s,
		start:      cfg.Now(),
	}
	// no reading has been provided yet: the idle timer starts now and the
	// current tick has not been used
	c.last = lastState{at: c.now(), tick: -1}
	return c, nil
}

// Subscribe registers a listener. Listeners are called in registration order.
func (c *Classifier) Subscribe(l Listener) {
	if l != nil {
		c.listeners = append(c.listeners, l)
	}
}

// Provide pushes a new reading through the stabilizer and emits an event.
// ok is false when the device reported no reading.
func (c *Classifier) Provide(raw uint, ok bool) {
	value, present := c.stabilize(raw, ok)
	kind := KindFor(c.last.present, present)

	e := Event{Kind: kind, Value: value, Present: present, Tick: c.tick}
	if kind == FingerUp {
		e.Value = c.last.value
		e.Present = true
	}

	c.last = lastState{value: value, present: present, at: c.now(), tick: c.tick}
	c.emit(e)
}

// Tick advances one time unit. When the idle period has elapsed and nothing
// was provided or generated during this tick, the last reading is pushed
// through the stabilizer again and an auto event is emitted if it changed.
func (c *Classifier) Tick() {
	defer func() { c.tick++ }()

	if c.now()-c.last.at < c.config.Period {
		return
	}

	if c.last.tick == c.tick {
		c.last.at = c.now()
		return
	}

	value, present := c.stabilize(c.last.value, c.last.present)
	if present != c.last.present || (present && value != c.last.value) {
		e := Event{
			Kind:    KindFor(c.last.present, present),
			Value:   value,
			Present: present,
			Auto:    true,
			Tick:    c.tick,
		}
		if e.Kind == FingerUp {
			e.Value = c.last.value
			e.Present = true
		}
		c.emit(e)
	}
	c.last = lastState{value: value, present: present, at: c.now(), tick: c.tick}
}

// Current returns the last stabilised reading.
func (c *Classifier) Current() (uint, bool) {
	return c.last.value, c.last.present
}

// TickID returns the id of the current tick.
func (c *Classifier) TickID() int64 {
	return c.tick
}

// Config returns the classifier configuration.
func (c *Classifier) Config() Config {
	return c.config
}

func (c *Classifier) stabilize(raw uint, ok bool) (uint, bool) {
	if !ok {
		raw = 0
	}
	v := c.stabilizer.Push(raw)
	if !ok || v <= c.config.Deadzone {
		return 0, false
	}
	return v, true
}

func (c *Classifier) now() float64 {
	if c.config.Clock == ClockSeconds {
		return c.config.Now().Sub(c.start).Seconds()
	}
	return float64(c.tick)
}

func (c *Classifier) emit(e Event) {
	for _, l := range c.listeners {
		l(e)
	}
}
