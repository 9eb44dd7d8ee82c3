// Package source delivers device readings, one Frame per sample, from a
// serial microcontroller, a pilot tone on a sound card or a recorded file.
package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedFrame indicates a line that is not raw[,x,y,z]
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one sample of device state.
type Frame struct {
	// Raw is the slider reading; valid only when HasRaw is true
	Raw    uint
	HasRaw bool
	// Angles are the stylus rotations about x, y and z, normalized by the
	// device to [0,1]
	Angles [3]float64
}

// ParseFrame parses "raw" or "raw,x,y,z". A raw field of "-" or "" means the
// device reported no reading.
func ParseFrame(line string) (Frame, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 1 && len(fields) != 4 {
		return Frame{}, fmt.Errorf("%w: %q: want 1 or 4 fields, got %d", ErrMalformedFrame, line, len(fields))
	}

	var f Frame
	raw := strings.TrimSpace(fields[0])
	if raw != "" && raw != "-" {
		v, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %q: raw: %v", ErrMalformedFrame, line, err)
		}
		f.Raw = uint(v)
		f.HasRaw = true
	}

	for i, s := range fields[1:] {
		a, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(a) || math.IsInf(a, 0) {
			return Frame{}, fmt.Errorf("%w: %q: angle %d", ErrMalformedFrame, line, i)
		}
		f.Angles[i] = a
	}
	return f, nil
}

// String formats the frame in the form ParseFrame reads.
func (f Frame) String() string {
	raw := "-"
	if f.HasRaw {
		raw = strconv.FormatUint(uint64(f.Raw), 10)
	}
	if f.Angles == [3]float64{} {
		return raw
	}
	parts := []string{raw}
	for _, a := range f.Angles {
		parts = append(parts, strconv.FormatFloat(a, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
