package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ColonelBlimp/bintype/internal/keys"
)

func mustBuiltin(t *testing.T, name string) *Layout {
	t.Helper()
	l, err := Builtin(name)
	if err != nil {
		t.Fatalf("Builtin(%q) error = %v", name, err)
	}
	return l
}

func TestBuiltin_Catalogue(t *testing.T) {
	names := Names()
	if len(names) != 7 {
		t.Fatalf("Names() = %v, want 7 layouts", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
	for _, name := range names {
		l := mustBuiltin(t, name)
		if l.Name != name {
			t.Errorf("Builtin(%q).Name = %q", name, l.Name)
		}
		if len(l.Bins) == 0 {
			t.Errorf("Builtin(%q) has no bins", name)
		}
	}

	if _, err := Builtin("dvorak"); !errors.Is(err, ErrUnknownLayout) {
		t.Errorf("Builtin(dvorak) error = %v, want %v", err, ErrUnknownLayout)
	}
}

func TestBuiltin_FreshCopy(t *testing.T) {
	a := mustBuiltin(t, ArcType)
	a.UseAlternate = true
	a.Bins[0] = keys.MustBinned(keys.NewSimple('X', 1))

	b := mustBuiltin(t, ArcType)
	if b.UseAlternate || b.Bins[0].Label() != "ABCD" {
		t.Error("Builtin returned shared state")
	}
}

func TestSquashedQWERTY_Labels(t *testing.T) {
	l := mustBuiltin(t, SquashedQWERTY)
	want := []string{"QAZ", "WSX", "EDC", "RFV", "TGB", "UHY", "NJI", "MKO", "LP"}
	got := l.Labels()
	if len(got) != len(want) {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if l.SlotCount() != 61 {
		t.Errorf("SlotCount() = %d, want 61", l.SlotCount())
	}
}

func TestSlider_Resolve(t *testing.T) {
	l := mustBuiltin(t, SquashedQWERTY)
	tests := []struct {
		raw       uint
		wantOuter int
		wantRune  rune
	}{
		{0, 0, 'Q'},
		{2, 0, 'A'},
		{6, 0, 'Z'},
		{7, 1, 'W'},
		{9, 1, 'S'},
		{56, 8, 'L'},
		{60, 8, 'P'},
	}
	for _, tt := range tests {
		addr, ok, err := l.Resolve(Input{RawIndex: tt.raw, HasRaw: true})
		if err != nil || !ok {
			t.Fatalf("Resolve(raw=%d) = ok %v, err %v", tt.raw, ok, err)
		}
		if addr.Outer != tt.wantOuter {
			t.Errorf("Resolve(raw=%d).Outer = %d, want %d", tt.raw, addr.Outer, tt.wantOuter)
		}
		if !addr.HasInner || addr.Inner.Primary != tt.wantRune {
			t.Errorf("Resolve(raw=%d).Inner = %v, want %q", tt.raw, addr.Inner, tt.wantRune)
		}
	}
}

func TestSquashedQWERTY_GuessesInner(t *testing.T) {
	l := mustBuiltin(t, SquashedQWERTY)
	if !l.GuessInner {
		t.Fatal("GuessInner = false")
	}
	letter, certain, ok := l.Letter(Input{RawIndex: 29, HasRaw: true})
	if !ok || letter != 'T' || certain {
		t.Errorf("Letter(raw=29) = %q, %v, %v; want an uncertain T", letter, certain, ok)
	}
}

func TestLinear_Catalogue(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		slots int
		last  string
	}{
		{LinearABCDE, ModeSlider, 59, "Z"},
		{SliderOnly, ModeNormalizedSlider, 65, "\b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustBuiltin(t, tt.name)
			if l.Mode != tt.mode || l.GuessInner {
				t.Errorf("mode = %v guess = %v, want %v", l.Mode, l.GuessInner, tt.mode)
			}
			if l.SlotCount() != tt.slots {
				t.Errorf("SlotCount() = %d, want %d", l.SlotCount(), tt.slots)
			}
			labels := l.Labels()
			if labels[0] != "A" || labels[len(labels)-1] != tt.last {
				t.Errorf("Labels() = %q", labels)
			}
		})
	}
}

func TestLinearABCDE_Resolve(t *testing.T) {
	l := mustBuiltin(t, LinearABCDE)
	tests := []struct {
		raw  uint
		want rune
	}{
		{0, 'A'},
		{2, 'A'},
		{3, 'B'},
		{10, 'E'},
		{27, 'M'},
		{29, 'N'},
		{58, 'Z'},
	}
	for _, tt := range tests {
		letter, certain, ok := l.Letter(Input{RawIndex: tt.raw, HasRaw: true})
		if !ok || !certain || letter != tt.want {
			t.Errorf("Letter(raw=%d) = %q, %v, %v; want %q", tt.raw, letter, certain, ok, tt.want)
		}
	}
	if _, ok := l.Outer(Input{RawIndex: 59, HasRaw: true}); ok {
		t.Error("Outer(raw=59) matched past the last slot")
	}
}

func TestNormalizedSlider_Resolve(t *testing.T) {
	l := mustBuiltin(t, SliderOnly)
	tests := []struct {
		slider float64
		want   rune
	}{
		{0, 'A'},
		{10.5 / 63, 'E'},
		{60.5 / 63, ' '},
		{1, '\b'},
	}
	for _, tt := range tests {
		letter, certain, ok := l.Letter(Input{Slider: tt.slider, HasSlider: true})
		if !ok || !certain || letter != tt.want {
			t.Errorf("Letter(%v) = %q, %v, %v; want %q", tt.slider, letter, certain, ok, tt.want)
		}
	}
	if _, ok := l.Outer(Input{RawIndex: 10, HasRaw: true}); ok {
		t.Error("Outer() matched without a slider reading")
	}

	l.Positions = 0
	if got, _ := l.Outer(Input{Slider: 1, HasSlider: true}); got != len(l.Bins)-1 {
		t.Errorf("Outer(1) = %d with default positions, want the last bin", got)
	}
}

func TestSlider_NoMatch(t *testing.T) {
	l := mustBuiltin(t, SquashedQWERTY)
	if _, ok, err := l.Resolve(Input{RawIndex: 61, HasRaw: true}); ok || err != nil {
		t.Errorf("Resolve(raw=61) = ok %v, err %v; want no match", ok, err)
	}
	if _, ok := l.Outer(Input{}); ok {
		t.Error("Outer() matched without a raw reading")
	}
	if _, _, ok := l.Letter(Input{}); ok {
		t.Error("Letter() matched without a raw reading")
	}
}

func TestStylusSlider_Resolve(t *testing.T) {
	l := mustBuiltin(t, StylusBinnedABCDE)

	in := Input{Angles: [3]float64{0, 0, 0.5}, Slider: 1, HasSlider: true}
	addr, ok, err := l.Resolve(in)
	if err != nil || !ok {
		t.Fatalf("Resolve() = ok %v, err %v", ok, err)
	}
	if addr.Outer != 3 || addr.Bin.Label() != "MNOP" {
		t.Errorf("Resolve() bin = %d %q, want 3 MNOP", addr.Outer, addr.Bin.Label())
	}
	if addr.Inner.Primary != 'M' {
		t.Errorf("Resolve() inner = %q, want 'M' at full slider", addr.Inner.Primary)
	}

	in.Slider = 0
	if r, certain, ok := l.Letter(in); !ok || !certain || r != 'P' {
		t.Errorf("Letter(slider=0) = %q, %v, %v; want 'P', true, true", r, certain, ok)
	}
}

func TestStylusSlider_OuterOnly(t *testing.T) {
	l := mustBuiltin(t, StylusBinnedABCDE)
	in := Input{Angles: [3]float64{0, 0, 0.5}}

	addr, ok, err := l.Resolve(in)
	if err != nil || !ok {
		t.Fatalf("Resolve() = ok %v, err %v", ok, err)
	}
	if addr.HasInner {
		t.Error("Resolve() selected an inner key without a slider reading")
	}
	r, certain, ok := l.Letter(in)
	if !ok || certain || r != 'M' {
		t.Errorf("Letter() = %q, %v, %v; want 'M', false, true", r, certain, ok)
	}
}

func TestStylusSlider_Alternate(t *testing.T) {
	l := mustBuiltin(t, StylusBinnedABCDE)
	in := Input{Angles: [3]float64{0, 0, 1}, Slider: 0, HasSlider: true}

	if r, _, _ := l.Letter(in); r != ' ' {
		t.Errorf("Letter() = %q, want space", r)
	}
	l.UseAlternate = true
	if r, _, _ := l.Letter(in); r != '\b' {
		t.Errorf("Letter() with alternate = %q, want backspace", r)
	}
}

func TestTwoRotation_Resolve(t *testing.T) {
	l := mustBuiltin(t, TiltType)
	tests := []struct {
		x, z float64
		want rune
	}{
		{1, 0, 'A'},
		{0, 0, 'D'},
		{1, 1, 'Y'},
		{0.5, 0.17, 'F'},
	}
	for _, tt := range tests {
		in := Input{Angles: [3]float64{tt.x, 0, tt.z}}
		r, certain, ok := l.Letter(in)
		if !ok || !certain || r != tt.want {
			t.Errorf("Letter(x=%v, z=%v) = %q, %v, %v; want %q", tt.x, tt.z, r, certain, ok, tt.want)
		}
	}
}

func TestOuter_UsesBinCount(t *testing.T) {
	l := mustBuiltin(t, TwoRotationABCDE)
	for i := 0; i <= 100; i++ {
		z := float64(i) / 100
		got, ok := l.Outer(Input{Angles: [3]float64{0, 0, z}})
		if !ok || got < 0 || got >= len(l.Bins) {
			t.Fatalf("Outer(z=%v) = %d, %v", z, got, ok)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("x", ModeSlider); !errors.Is(err, ErrNoBins) {
		t.Errorf("New() without bins error = %v, want %v", err, ErrNoBins)
	}
	bin := keys.MustBinned(keys.NewSimple('A', 1))
	if _, err := New("x", Mode(9), bin); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("New(mode 9) error = %v, want %v", err, ErrUnknownMode)
	}
	if _, err := New("x", ModeSlider, keys.BinnedKey{}); !errors.Is(err, keys.ErrEmptyBin) {
		t.Errorf("New(zero bin) error = %v, want %v", err, keys.ErrEmptyBin)
	}
}

func TestEmptyLayout_NeverMatches(t *testing.T) {
	l := &Layout{Mode: ModeTwoRotation}
	if _, ok := l.Outer(Input{}); ok {
		t.Error("Outer() matched on an empty layout")
	}
	if _, ok, err := l.Resolve(Input{}); ok || err != nil {
		t.Errorf("Resolve() = ok %v, err %v on an empty layout", ok, err)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSlider, ModeStylusSlider, ModeTwoRotation, ModeNormalizedSlider} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("joystick"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ParseMode(joystick) error = %v, want %v", err, ErrUnknownMode)
	}
}

func TestParseBins(t *testing.T) {
	got, err := ParseBins(`AB CD\ \b E`)
	if err != nil {
		t.Fatalf("ParseBins() error = %v", err)
	}
	want := [][]rune{{'A', 'B'}, {'C', 'D', ' ', '\b'}, {'E'}}
	if len(got) != len(want) {
		t.Fatalf("ParseBins() = %q, want %q", got, want)
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Errorf("bin %d = %q, want %q", i, string(got[i]), string(want[i]))
		}
	}

	for _, bad := range []string{`AB\q`, `AB\`} {
		if _, err := ParseBins(bad); !errors.Is(err, ErrUnknownEscape) {
			t.Errorf("ParseBins(%q) error = %v, want %v", bad, err, ErrUnknownEscape)
		}
	}
}

func TestDecode_Compact(t *testing.T) {
	l, err := Decode(`
name = "tiny"
mode = "two-rotation"
weight = 2
use-alternate = true
bins = 'AB CD\ '
alternates = '12 34\b'
`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if l.Name != "tiny" || l.Mode != ModeTwoRotation || !l.UseAlternate || !l.KeyOnFingerUp {
		t.Errorf("Decode() = %+v", l)
	}
	if l.SlotCount() != 10 {
		t.Errorf("SlotCount() = %d, want 10", l.SlotCount())
	}
	space, err := l.Bins[1].ItemAt(5)
	if err != nil {
		t.Fatalf("ItemAt(5) error = %v", err)
	}
	if space.Primary != ' ' || space.CharWithAlternate(true) != '\b' {
		t.Errorf("last key = %v, want space with backspace alternate", space)
	}
}

func TestDecode_Explicit(t *testing.T) {
	l, err := Decode(`
name = "explicit"
mode = "slider"
key-on-finger-up = false

[[bin]]
  [[bin.key]]
  char = "Q"
  size = 2
  [[bin.key]]
  char = "A"
  alt = "1"

[[bin]]
  [[bin.key]]
  char = '\b'
`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if l.KeyOnFingerUp {
		t.Error("KeyOnFingerUp = true, want false")
	}
	if l.SlotCount() != 4 {
		t.Errorf("SlotCount() = %d, want 4", l.SlotCount())
	}
	addr, ok, err := l.Resolve(Input{RawIndex: 3, HasRaw: true})
	if err != nil || !ok || addr.Inner.Primary != '\b' {
		t.Errorf("Resolve(raw=3) = %v, %v, %v; want backspace", addr.Inner, ok, err)
	}
}

func TestDecode_GuessAndPositions(t *testing.T) {
	l, err := Decode(`
mode = "normalized-slider"
guess-inner = true
positions = 4
bins = "AB CD"
`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !l.GuessInner || l.Positions != 4 || l.Mode != ModeNormalizedSlider {
		t.Fatalf("Decode() = %+v", l)
	}
	addr, ok, err := l.Resolve(Input{Slider: 1, HasSlider: true})
	if err != nil || !ok || addr.Outer != 1 || addr.Inner.Primary != 'D' {
		t.Errorf("Resolve(1) = %+v, %v, %v; want D", addr, ok, err)
	}
	if _, certain, _ := l.Letter(Input{Slider: 1, HasSlider: true}); certain {
		t.Error("Letter() certain on a guessing layout")
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no mode", `bins = "AB"`, ErrUnknownMode},
		{"no bins", `mode = "slider"`, ErrNoBins},
		{"both forms", "mode = \"slider\"\nbins = \"AB\"\n[[bin]]\n[[bin.key]]\nchar = \"C\"", ErrInvalidFile},
		{"long char", "mode = \"slider\"\n[[bin]]\n[[bin.key]]\nchar = \"CD\"", ErrInvalidFile},
		{"bad escape", `mode = "slider"` + "\n" + `bins = 'A\q'`, ErrUnknownEscape},
		{"empty bin", `mode = "slider"` + "\n" + `bins = "A  B"`, keys.ErrEmptyBin},
		{"negative positions", "mode = \"slider\"\nbins = \"AB\"\npositions = -1", ErrInvalidFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.toml")
	doc := "name = \"file\"\nmode = \"stylus-slider\"\nbins = \"ABC DEF\"\n"
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := l.Labels(); len(got) != 2 || got[1] != "DEF" {
		t.Errorf("Labels() = %v", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFile(missing) succeeded")
	}
}
