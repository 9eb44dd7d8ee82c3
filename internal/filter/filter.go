// Package filter stabilises raw potentiometer readings before they are
// classified into touch events.
package filter

import "errors"

// HistorySize is the number of input/output pairs the filter remembers.
// A value pushed now is reported HistorySize-1 pushes later.
const HistorySize = 3

// steepDropFactor scales epsilon when deciding whether the previous output
// sits far enough above the current input to be treated as an outlier.
const steepDropFactor = 2.5

var (
	// ErrInvalidEpsilon indicates epsilon must be positive
	ErrInvalidEpsilon = errors.New("epsilon must be positive")
	// ErrInvalidDeadzone indicates deadzone must be positive
	ErrInvalidDeadzone = errors.New("deadzone must be positive")
)

type pair struct {
	input  uint
	output uint
}

// Filter denoises one raw sample per tick.
//
// Each Push computes an output for the new sample but returns the output
// computed two pushes earlier, which leaves room to retroactively correct a
// spurious low outlier before it is ever reported.
type Filter struct {
	epsilon  uint
	deadzone uint

	ring   [HistorySize]pair
	cursor int

	// jumped alternates every time a sample jumps cleanly off the floor
	jumped bool
}

// New creates a filter. Samples below deadzone are treated as no touch and
// samples within epsilon of each other are considered the same reading.
func New(epsilon, deadzone uint) (*Filter, error) {
	if epsilon == 0 {
		return nil, ErrInvalidEpsilon
	}
	if deadzone == 0 {
		return nil, ErrInvalidDeadzone
	}
	return &Filter{
		epsilon:  epsilon,
		deadzone: deadzone,
		cursor:   HistorySize - 1,
	}, nil
}

// Epsilon returns the neighbourhood radius.
func (f *Filter) Epsilon() uint {
	return f.epsilon
}

// Deadzone returns the no-touch threshold.
func (f *Filter) Deadzone() uint {
	return f.deadzone
}

// slot returns the ring index `back` pushes before the current one.
func (f *Filter) slot(back int) int {
	return (f.cursor + HistorySize - back) % HistorySize
}

// Push feeds one raw sample and returns the output computed two pushes ago.
func (f *Filter) Push(raw uint) uint {
	f.cursor = (f.cursor + 1) % HistorySize
	f.ring[f.cursor] = pair{input: raw, output: raw}

	prev := &f.ring[f.slot(1)]
	pprev := f.ring[f.slot(2)]
	out := &f.ring[f.cursor].output

	switch {
	case raw < f.deadzone:
		*out = 0
	case prev.output == 0 && raw >= f.deadzone+f.epsilon:
		// a single jump-shaped sample is held back until a second confirms it
		if f.jumped {
			*out = raw
		} else {
			*out = 0
		}
		f.jumped = !f.jumped
	case float64(prev.output) >= steepDropFactor*float64(f.epsilon)+float64(raw):
		*out = 0
		prev.output = pprev.output
	case f.near(raw, prev.input) && f.near(raw, pprev.input):
		*out = (prev.input + pprev.input) / 2
	}

	return pprev.output
}

// near reports whether v lies within epsilon of center.
func (f *Filter) near(center, v uint) bool {
	d := int64(center) - int64(v)
	if d < 0 {
		d = -d
	}
	return d <= int64(f.epsilon)
}

// Partials returns the outputs that have been computed but not yet reported,
// oldest first. They may still change on the next Push.
func (f *Filter) Partials() []uint {
	return []uint{f.ring[f.slot(1)].output, f.ring[f.cursor].output}
}

// Reset clears all history.
func (f *Filter) Reset() {
	f.ring = [HistorySize]pair{}
	f.cursor = HistorySize - 1
	f.jumped = false
}

// Batch runs a whole recording through f and returns one filtered value per
// input: the values reported while pushing, minus the two warm-up reports,
// followed by the partials still held in the filter.
func Batch(f *Filter, raws []uint) []uint {
	reported := make([]uint, 0, len(raws)+HistorySize-1)
	for _, raw := range raws {
		reported = append(reported, f.Push(raw))
	}
	reported = append(reported, f.Partials()...)
	if len(reported) < HistorySize-1 {
		return nil
	}
	return reported[HistorySize-1:]
}
