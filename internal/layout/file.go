package layout

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ColonelBlimp/bintype/internal/keys"
)

var (
	// ErrUnknownEscape indicates a backslash sequence ParseBins does not know
	ErrUnknownEscape = errors.New("unknown escape sequence")
	// ErrInvalidFile indicates a layout file that cannot describe a layout
	ErrInvalidFile = errors.New("invalid layout file")
)

// File is the TOML form of a layout.
//
// Bins may be given compactly as a string (see ParseBins), with alternates
// paired by position, or explicitly as [[bin]] tables.
type File struct {
	Name          string    `toml:"name"`
	Mode          string    `toml:"mode"`
	UseAlternate  bool      `toml:"use-alternate"`
	KeyOnFingerUp *bool     `toml:"key-on-finger-up"`
	GuessInner    bool      `toml:"guess-inner"`
	Positions     int       `toml:"positions"`
	Weight        int       `toml:"weight"`
	Bins          string    `toml:"bins"`
	Alternates    string    `toml:"alternates"`
	Bin           []FileBin `toml:"bin"`
}

// FileBin is one explicit bin.
type FileBin struct {
	Key []FileKey `toml:"key"`
}

// FileKey is one explicit key. Char and Alt hold a single character; the
// escapes accepted by ParseBins are allowed.
type FileKey struct {
	Char string `toml:"char"`
	Alt  string `toml:"alt"`
	Size int    `toml:"size"`
}

// LoadFile reads a TOML layout file.
func LoadFile(path string) (*Layout, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	l, err := f.Layout()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Decode parses a TOML layout document.
func Decode(data string) (*Layout, error) {
	var f File
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	return f.Layout()
}

// Layout builds the layout the file describes.
func (f File) Layout() (*Layout, error) {
	mode, err := ParseMode(f.Mode)
	if err != nil {
		return nil, err
	}
	weight := f.Weight
	if weight == 0 {
		weight = 1
	}

	var bins []keys.BinnedKey
	switch {
	case f.Bins != "" && len(f.Bin) > 0:
		return nil, fmt.Errorf("%w: both bins and [[bin]] given", ErrInvalidFile)
	case f.Bins != "":
		bins, err = compactBins(f.Bins, f.Alternates, weight)
	default:
		bins, err = explicitBins(f.Bin, weight)
	}
	if err != nil {
		return nil, err
	}

	name := f.Name
	if name == "" {
		name = "custom"
	}
	l, err := New(name, mode, bins...)
	if err != nil {
		return nil, err
	}
	if f.Positions < 0 {
		return nil, fmt.Errorf("%w: negative positions", ErrInvalidFile)
	}
	l.UseAlternate = f.UseAlternate
	l.GuessInner = f.GuessInner
	l.Positions = f.Positions
	if f.KeyOnFingerUp != nil {
		l.KeyOnFingerUp = *f.KeyOnFingerUp
	}
	return l, nil
}

func compactBins(spec, alternates string, weight int) ([]keys.BinnedKey, error) {
	chars, err := ParseBins(spec)
	if err != nil {
		return nil, err
	}
	var alts []rune
	if alternates != "" {
		altBins, err := ParseBins(alternates)
		if err != nil {
			return nil, fmt.Errorf("alternates: %w", err)
		}
		for _, b := range altBins {
			alts = append(alts, b...)
		}
	}

	n := 0
	bins := make([]keys.BinnedKey, 0, len(chars))
	for i, bin := range chars {
		children := make([]keys.SimpleKey, 0, len(bin))
		for _, r := range bin {
			if n < len(alts) {
				children = append(children, keys.NewSimpleAlt(r, weight, alts[n]))
			} else {
				children = append(children, keys.NewSimple(r, weight))
			}
			n++
		}
		b, err := keys.NewBinned(children...)
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", i, err)
		}
		bins = append(bins, b)
	}
	return bins, nil
}

func explicitBins(fb []FileBin, weight int) ([]keys.BinnedKey, error) {
	bins := make([]keys.BinnedKey, 0, len(fb))
	for i, b := range fb {
		children := make([]keys.SimpleKey, 0, len(b.Key))
		for j, k := range b.Key {
			c, err := singleRune(k.Char)
			if err != nil {
				return nil, fmt.Errorf("bin %d key %d: %w", i, j, err)
			}
			size := k.Size
			if size == 0 {
				size = weight
			}
			if k.Alt == "" {
				children = append(children, keys.NewSimple(c, size))
				continue
			}
			alt, err := singleRune(k.Alt)
			if err != nil {
				return nil, fmt.Errorf("bin %d key %d alt: %w", i, j, err)
			}
			children = append(children, keys.NewSimpleAlt(c, size, alt))
		}
		key, err := keys.NewBinned(children...)
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", i, err)
		}
		bins = append(bins, key)
	}
	return bins, nil
}

func singleRune(s string) (rune, error) {
	bins, err := ParseBins(s)
	if err != nil {
		return 0, err
	}
	if len(bins) != 1 || len(bins[0]) != 1 {
		return 0, fmt.Errorf("%w: %q is not a single character", ErrInvalidFile, s)
	}
	return bins[0][0], nil
}

// ParseBins splits a layout string into bins. Unbroken runs of characters
// form a bin and single spaces separate bins. A backslash introduces a
// control character: \t, \b, \n, or "\ " for a literal space.
func ParseBins(s string) ([][]rune, error) {
	var out [][]rune
	var cur []rune
	escaped := false
	for _, r := range s {
		if escaped {
			escaped = false
			switch r {
			case 't':
				cur = append(cur, '\t')
			case 'b':
				cur = append(cur, '\b')
			case 'n':
				cur = append(cur, '\n')
			case ' ':
				cur = append(cur, ' ')
			case '\\':
				cur = append(cur, '\\')
			default:
				return nil, fmt.Errorf("%w: \\%c", ErrUnknownEscape, r)
			}
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case ' ':
			out = append(out, cur)
			cur = nil
		default:
			cur = append(cur, r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: trailing backslash", ErrUnknownEscape)
	}
	return append(out, cur), nil
}
