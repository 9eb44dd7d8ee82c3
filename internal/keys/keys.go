// Package keys models the two-level key hierarchy: bins of letters, each
// addressed as one physical key, and the letters inside them.
package keys

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrIndexOutOfRange indicates an index outside [0, size)
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidSize indicates a key size must be positive
	ErrInvalidSize = errors.New("key size must be positive")
	// ErrEmptyBin indicates a binned key has zero total size
	ErrEmptyBin = errors.New("binned key has zero total size")
)

// Key is either a SimpleKey or a BinnedKey.
type Key interface {
	// Size is the key's weight: its physical proportion and the number of
	// indices it owns.
	Size() int
	// Label is the character(s) the key represents.
	Label() string
	// ItemAt returns the leaf owning index.
	ItemAt(index int) (SimpleKey, error)

	sealed()
}

// SimpleKey is a single character, optionally with an alternate character
// shown on a second layer (digits, punctuation).
type SimpleKey struct {
	Primary      rune
	Alternate    rune
	HasAlternate bool
	Weight       int
}

// NewSimple creates a key without an alternate character.
func NewSimple(primary rune, size int) SimpleKey {
	return SimpleKey{Primary: primary, Weight: size}
}

// NewSimpleAlt creates a key with an alternate character.
func NewSimpleAlt(primary rune, size int, alternate rune) SimpleKey {
	return SimpleKey{Primary: primary, Alternate: alternate, HasAlternate: true, Weight: size}
}

func (SimpleKey) sealed() {}

// Size returns the key weight.
func (k SimpleKey) Size() int {
	return k.Weight
}

// Label returns the primary character as a string.
func (k SimpleKey) Label() string {
	return string(k.Primary)
}

// ItemAt returns k itself for any index it owns.
func (k SimpleKey) ItemAt(index int) (SimpleKey, error) {
	if index < 0 || index >= k.Weight {
		return SimpleKey{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, k.Weight)
	}
	return k, nil
}

// CharWithAlternate returns the alternate character when requested and
// defined, otherwise the primary.
func (k SimpleKey) CharWithAlternate(useAlternate bool) rune {
	if useAlternate && k.HasAlternate {
		return k.Alternate
	}
	return k.Primary
}

func (k SimpleKey) String() string {
	if k.HasAlternate {
		return fmt.Sprintf("%q/%q(%d)", k.Primary, k.Alternate, k.Weight)
	}
	return fmt.Sprintf("%q(%d)", k.Primary, k.Weight)
}

// BinnedKey is an ordered cluster of simple keys. Child i owns the indices
// [offset_i, offset_i+size_i) where offsets are the running sum of sizes.
type BinnedKey struct {
	children []SimpleKey
	size     int
	label    string
}

// NewBinned creates a bin from its children. Every child must have a
// positive size.
func NewBinned(children ...SimpleKey) (BinnedKey, error) {
	var b strings.Builder
	size := 0
	for i, c := range children {
		if c.Weight <= 0 {
			return BinnedKey{}, fmt.Errorf("%w: child %d has size %d", ErrInvalidSize, i, c.Weight)
		}
		size += c.Weight
		b.WriteString(c.Label())
	}
	if size == 0 {
		return BinnedKey{}, ErrEmptyBin
	}

	owned := make([]SimpleKey, len(children))
	copy(owned, children)
	return BinnedKey{children: owned, size: size, label: b.String()}, nil
}

// MustBinned is NewBinned for static layouts; it panics on error.
func MustBinned(children ...SimpleKey) BinnedKey {
	k, err := NewBinned(children...)
	if err != nil {
		panic(err)
	}
	return k
}

func (BinnedKey) sealed() {}

// Size returns the sum of the children's sizes.
func (k BinnedKey) Size() int {
	return k.size
}

// Label returns the children's labels concatenated in order.
func (k BinnedKey) Label() string {
	return k.label
}

// Len returns the number of children.
func (k BinnedKey) Len() int {
	return len(k.children)
}

// Children returns a copy of the children.
func (k BinnedKey) Children() []SimpleKey {
	out := make([]SimpleKey, len(k.children))
	copy(out, k.children)
	return out
}

// ItemAt walks the children subtracting sizes and returns the first child
// for which the remainder goes negative.
func (k BinnedKey) ItemAt(index int) (SimpleKey, error) {
	if index < 0 {
		return SimpleKey{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, k.size)
	}
	remaining := index
	for _, c := range k.children {
		remaining -= c.Weight
		if 0 > remaining {
			return c, nil
		}
	}
	return SimpleKey{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, k.size)
}

// IndexOf returns the position of the child owning index.
func (k BinnedKey) IndexOf(index int) (int, error) {
	if index >= 0 {
		remaining := index
		for i, c := range k.children {
			remaining -= c.Weight
			if 0 > remaining {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, k.size)
}

func (k BinnedKey) String() string {
	return fmt.Sprintf("[%s](%d)", k.label, k.size)
}

// IndexFromNormalized maps x in [0,1] onto [0, length) as
// floor(lerp(0, max(0, length-1), x)). x is clamped to [0,1]; a zero length
// yields 0 and callers must special-case empty hierarchies.
func IndexFromNormalized(x float64, length int) int {
	if math.IsNaN(x) || x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	span := length - 1
	if span < 0 {
		span = 0
	}
	return int(math.Floor(float64(span) * x))
}
