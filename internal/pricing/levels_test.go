package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLevelsReferenceScenario(t *testing.T) {
	levels, err := Levels(decimal.RequireFromString("2.08"), DefaultConfig())
	if err != nil {
		t.Fatalf("Levels 不应报错: %v", err)
	}

	expected := map[Band]string{
		BandPlus10:  "2.288",
		BandPlus5:   "2.184",
		BandPlus3:   "2.1424",
		BandMinus3:  "2.0176",
		BandMinus5:  "1.976",
		BandMinus10: "1.872",
	}
	for band, want := range expected {
		if got := levels.Level(band); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("band %s: 期望 %s, 实际 %s", band, want, got)
		}
	}
}

func TestLevelsOrdering(t *testing.T) {
	for _, ref := range []string{"0.5", "2.08", "123.456", "9999.99"} {
		levels, err := Levels(decimal.RequireFromString(ref), DefaultConfig())
		if err != nil {
			t.Fatalf("Levels(%s) failed: %v", ref, err)
		}

		if !levels.Plus3.LessThan(levels.Plus5) || !levels.Plus5.LessThan(levels.Plus10) {
			t.Fatalf("ref %s: upper levels out of order: %s %s %s", ref, levels.Plus3, levels.Plus5, levels.Plus10)
		}
		if !levels.Minus3.GreaterThan(levels.Minus5) || !levels.Minus5.GreaterThan(levels.Minus10) {
			t.Fatalf("ref %s: lower levels out of order: %s %s %s", ref, levels.Minus3, levels.Minus5, levels.Minus10)
		}
	}
}

func TestLevelsRejectsNonPositiveReference(t *testing.T) {
	for _, ref := range []string{"0", "-2.08"} {
		if _, err := Levels(decimal.RequireFromString(ref), DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ref %s 应返回 ErrInvalidInput, 实际 %v", ref, err)
		}
	}
}

// Rounding is half-up (half away from zero), not banker's rounding.
func TestDisplayRoundingHalfUp(t *testing.T) {
	cases := map[string]string{
		"2.125":  "2.13",
		"2.135":  "2.14",
		"-2.125": "-2.13",
		"2.184":  "2.18",
	}
	for in, want := range cases {
		got := Display(decimal.RequireFromString(in), DefaultConfig())
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Display(%s): 期望 %s, 实际 %s", in, want, got)
		}
	}
}

func TestLevelsCustomPrecision(t *testing.T) {
	levels, err := Levels(decimal.RequireFromString("2.08"), Config{CalcPrecision: 2, DisplayPrecision: 2})
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}
	if !levels.Plus3.Equal(decimal.RequireFromString("2.14")) {
		t.Fatalf("+3%% at precision 2: expected 2.14, got %s", levels.Plus3)
	}
}
