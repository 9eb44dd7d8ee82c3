package layout

import (
	"fmt"
	"sort"

	"github.com/ColonelBlimp/bintype/internal/keys"
)

// Built-in layout names.
const (
	SquashedQWERTY    = "squashed-qwerty"
	StylusBinnedABCDE = "stylus-binned-abcde"
	TwoRotationABCDE  = "two-rotation-abcde"
	ArcType           = "arc-type"
	TiltType          = "tilt-type"
	LinearABCDE       = "linear-abcde"
	SliderOnly        = "slider-only"
)

var builtins = map[string]func() *Layout{
	SquashedQWERTY: func() *Layout {
		return &Layout{
			Name:          SquashedQWERTY,
			Mode:          ModeSlider,
			Bins:          squashedQWERTYBins(),
			KeyOnFingerUp: true,
			GuessInner:    true,
		}
	},
	LinearABCDE: func() *Layout {
		return &Layout{
			Name:          LinearABCDE,
			Mode:          ModeSlider,
			Bins:          linearBins(false),
			KeyOnFingerUp: true,
		}
	},
	SliderOnly: func() *Layout {
		return &Layout{
			Name:          SliderOnly,
			Mode:          ModeNormalizedSlider,
			Bins:          linearBins(true),
			KeyOnFingerUp: true,
			Positions:     DefaultPositions,
		}
	},
	StylusBinnedABCDE: func() *Layout {
		return &Layout{
			Name:          StylusBinnedABCDE,
			Mode:          ModeStylusSlider,
			Bins:          abcdeBins(2, 3, '.'),
			KeyOnFingerUp: true,
		}
	},
	TwoRotationABCDE: func() *Layout {
		return &Layout{
			Name:          TwoRotationABCDE,
			Mode:          ModeTwoRotation,
			Bins:          abcdeBins(2, 3, '.'),
			KeyOnFingerUp: true,
		}
	},
	ArcType: func() *Layout {
		return &Layout{
			Name:          ArcType,
			Mode:          ModeStylusSlider,
			Bins:          abcdeBins(4, 4, '0'),
			KeyOnFingerUp: true,
		}
	},
	TiltType: func() *Layout {
		return &Layout{
			Name:          TiltType,
			Mode:          ModeTwoRotation,
			Bins:          abcdeBins(4, 4, '0'),
			KeyOnFingerUp: true,
		}
	},
}

// Builtin returns a fresh copy of the named built-in layout.
func Builtin(name string) (*Layout, error) {
	mk, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return mk(), nil
}

// Names lists the built-in layouts in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func squashedQWERTYBins() []keys.BinnedKey {
	return []keys.BinnedKey{
		keys.MustBinned(keys.NewSimple('Q', 2), keys.NewSimple('A', 3), keys.NewSimple('Z', 2)),
		keys.MustBinned(keys.NewSimple('W', 2), keys.NewSimple('S', 3), keys.NewSimple('X', 2)),
		keys.MustBinned(keys.NewSimple('E', 2), keys.NewSimple('D', 3), keys.NewSimple('C', 2)),
		keys.MustBinned(keys.NewSimple('R', 2), keys.NewSimple('F', 3), keys.NewSimple('V', 2)),
		keys.MustBinned(keys.NewSimple('T', 2), keys.NewSimple('G', 3), keys.NewSimple('B', 2)),
		keys.MustBinned(keys.NewSimple('U', 2), keys.NewSimple('H', 3), keys.NewSimple('Y', 2)),
		keys.MustBinned(keys.NewSimple('N', 2), keys.NewSimple('J', 3), keys.NewSimple('I', 2)),
		keys.MustBinned(keys.NewSimple('M', 2), keys.NewSimple('K', 3), keys.NewSimple('O', 2)),
		keys.MustBinned(keys.NewSimple('L', 3), keys.NewSimple('P', 2)),
	}
}

// linearWeights holds the slot count of each letter A-Z on the linear
// slider layouts. Vowels and the common consonants get a wider slot.
var linearWeights = [26]int{
	3, 2, 2, 2, 3, 2, 2, 2, 3, 2, 2, 2, 2,
	3, 3, 2, 2, 3, 2, 3, 2, 2, 2, 2, 2, 2,
}

// linearBins lays the alphabet out one key per bin. withEdit appends space
// and backspace.
func linearBins(withEdit bool) []keys.BinnedKey {
	bins := make([]keys.BinnedKey, 0, len(linearWeights)+2)
	for i, w := range linearWeights {
		bins = append(bins, keys.MustBinned(keys.NewSimple(rune('A'+i), w)))
	}
	if withEdit {
		bins = append(bins,
			keys.MustBinned(keys.NewSimple(' ', 3)),
			keys.MustBinned(keys.NewSimple('\b', 3)),
		)
	}
	return bins
}

// abcdeBins builds the seven alphabetical bins of four keys. The last bin
// ends with period and space, each of weight tail.
func abcdeBins(weight, tail int, lAlt rune) []keys.BinnedKey {
	k := func(r rune, alt rune) keys.SimpleKey { return keys.NewSimpleAlt(r, weight, alt) }
	return []keys.BinnedKey{
		keys.MustBinned(k('A', '1'), k('B', '4'), k('C', '7'), k('D', '*')),
		keys.MustBinned(k('E', '2'), k('F', '5'), k('G', '8'), k('H', '+')),
		keys.MustBinned(k('I', '3'), k('J', '6'), k('K', '9'), k('L', lAlt)),
		keys.MustBinned(k('M', '/'), k('N', '%'), k('O', '#'), k('P', '(')),
		keys.MustBinned(k('Q', '@'), k('R', '\''), k('S', '"'), k('T', ')')),
		keys.MustBinned(k('U', '-'), k('V', '&'), k('W', '?'), k('X', '!')),
		keys.MustBinned(
			k('Y', ';'),
			k('Z', ':'),
			keys.NewSimpleAlt('.', tail, ','),
			keys.NewSimpleAlt(' ', tail, '\b'),
		),
	}
}
