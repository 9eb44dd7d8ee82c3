// Package layout resolves normalized device input to an address in a
// two-level key hierarchy.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ColonelBlimp/bintype/internal/keys"
)

var (
	// ErrUnknownMode indicates an unsupported resolution mode
	ErrUnknownMode = errors.New("unknown layout mode")
	// ErrUnknownLayout indicates no built-in layout with the given name
	ErrUnknownLayout = errors.New("unknown layout")
	// ErrNoBins indicates a layout has no bins
	ErrNoBins = errors.New("layout has no bins")
)

// Mode selects how the outer and inner indices are derived from the input.
type Mode int

const (
	// ModeSlider walks the raw slider index across the whole partition:
	// the bin owning the index is the outer key and the remainder selects
	// the letter inside it.
	ModeSlider Mode = iota
	// ModeStylusSlider takes the outer index from the Z rotation axis and
	// the inner index from the inverted slider.
	ModeStylusSlider
	// ModeTwoRotation takes the outer index from the Z rotation axis and
	// the inner index from the inverted X rotation axis.
	ModeTwoRotation
	// ModeNormalizedSlider spreads the normalized slider over Positions
	// slots and walks the partition like ModeSlider.
	ModeNormalizedSlider
)

// DefaultPositions is the slot count of a normalized slider layout that
// does not set Positions.
const DefaultPositions = 64

var modeNames = map[Mode]string{
	ModeSlider:           "slider",
	ModeStylusSlider:     "stylus-slider",
	ModeTwoRotation:      "two-rotation",
	ModeNormalizedSlider: "normalized-slider",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Axis indices into Input.Angles.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Input is one tick's normalized device state.
type Input struct {
	// Slider is the normalized slider position in [0,1]
	Slider    float64
	HasSlider bool
	// Angles are the normalized stylus rotations in [0,1]
	Angles [3]float64
	// RawIndex is the stabilised slider reading
	RawIndex uint
	HasRaw   bool
}

// Address is the result of resolving an input against a layout.
type Address struct {
	// Outer is the index of the bin in the layout
	Outer int
	Bin   keys.BinnedKey
	// Inner is valid only when HasInner is true
	Inner    keys.SimpleKey
	HasInner bool
}

// Layout is an ordered set of bins plus the rule for addressing them.
// It is built once per activation and not mutated afterwards.
type Layout struct {
	Name string
	Mode Mode
	Bins []keys.BinnedKey
	// UseAlternate selects the alternate character layer
	UseAlternate bool
	// KeyOnFingerUp is true when lifting the finger confirms a key
	KeyOnFingerUp bool
	// GuessInner marks the inner key as a hint only: the letter inside a
	// bin is guessed from the text already typed.
	GuessInner bool
	// Positions is the slot count of ModeNormalizedSlider
	Positions int
}

// New validates and creates a layout.
func New(name string, mode Mode, bins ...keys.BinnedKey) (*Layout, error) {
	if _, ok := modeNames[mode]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	if len(bins) == 0 {
		return nil, ErrNoBins
	}
	for i, b := range bins {
		if b.Size() == 0 {
			return nil, fmt.Errorf("bin %d: %w", i, keys.ErrEmptyBin)
		}
	}
	owned := make([]keys.BinnedKey, len(bins))
	copy(owned, bins)
	return &Layout{Name: name, Mode: mode, Bins: owned, KeyOnFingerUp: true}, nil
}

// SlotCount returns the total size of all bins: the number of raw slider
// positions the layout occupies.
func (l *Layout) SlotCount() int {
	n := 0
	for _, b := range l.Bins {
		n += b.Size()
	}
	return n
}

// Labels returns the label of every bin in order.
func (l *Layout) Labels() []string {
	out := make([]string, len(l.Bins))
	for i, b := range l.Bins {
		out[i] = b.Label()
	}
	return out
}

// slot returns the partition slot of the slider modes.
func (l *Layout) slot(in Input) (int, bool) {
	switch l.Mode {
	case ModeSlider:
		return int(in.RawIndex), in.HasRaw
	case ModeNormalizedSlider:
		if !in.HasSlider {
			return 0, false
		}
		n := l.Positions
		if n <= 0 {
			n = DefaultPositions
		}
		return keys.IndexFromNormalized(in.Slider, n), true
	}
	return 0, false
}

// Outer returns the index of the bin the input points at.
func (l *Layout) Outer(in Input) (int, bool) {
	if len(l.Bins) == 0 {
		return 0, false
	}
	switch l.Mode {
	case ModeSlider, ModeNormalizedSlider:
		remaining, ok := l.slot(in)
		if !ok {
			return 0, false
		}
		for i, b := range l.Bins {
			if remaining < b.Size() {
				return i, true
			}
			remaining -= b.Size()
		}
		return 0, false
	case ModeStylusSlider, ModeTwoRotation:
		return keys.IndexFromNormalized(in.Angles[AxisZ], len(l.Bins)), true
	}
	return 0, false
}

// inner returns the index inside bin the input points at.
func (l *Layout) inner(in Input, outer int) (int, bool) {
	bin := l.Bins[outer]
	switch l.Mode {
	case ModeSlider, ModeNormalizedSlider:
		remaining, ok := l.slot(in)
		if !ok {
			return 0, false
		}
		for _, b := range l.Bins[:outer] {
			remaining -= b.Size()
		}
		return remaining, true
	case ModeStylusSlider:
		if !in.HasSlider {
			return 0, false
		}
		return keys.IndexFromNormalized(1-in.Slider, bin.Size()), true
	case ModeTwoRotation:
		return keys.IndexFromNormalized(1-in.Angles[AxisX], bin.Size()), true
	}
	return 0, false
}

// Resolve maps the input to a bin and, when the second stage has data, a
// letter inside it. ok is false when the input points at no bin.
func (l *Layout) Resolve(in Input) (Address, bool, error) {
	outer, ok := l.Outer(in)
	if !ok {
		return Address{}, false, nil
	}
	addr := Address{Outer: outer, Bin: l.Bins[outer]}

	idx, ok := l.inner(in, outer)
	if !ok {
		return addr, true, nil
	}
	k, err := addr.Bin.ItemAt(idx)
	if err != nil {
		return addr, true, fmt.Errorf("resolve %s bin %d: %w", l.Name, outer, err)
	}
	addr.Inner = k
	addr.HasInner = true
	return addr, true, nil
}

// Letter returns the selected character. When only the bin is known, or
// the layout guesses inside its bins, certain is false.
func (l *Layout) Letter(in Input) (letter rune, certain bool, ok bool) {
	addr, ok, err := l.Resolve(in)
	if err != nil || !ok {
		return 0, false, false
	}
	letter, certain, ok = addr.Letter(l.UseAlternate)
	return letter, certain && !l.GuessInner, ok
}

// Letter returns the character the address selects on the primary or
// alternate layer. Without an inner key it guesses the bin's first
// character and reports certain as false.
func (a Address) Letter(useAlternate bool) (letter rune, certain bool, ok bool) {
	if !a.HasInner {
		for _, r := range a.Bin.Label() {
			return r, false, true
		}
		return 0, false, false
	}
	return a.Inner.CharWithAlternate(useAlternate), true, true
}
