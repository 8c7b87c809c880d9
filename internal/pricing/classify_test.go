package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestClassifyAgainstReference(t *testing.T) {
	ref := decimal.RequireFromString("2.08")

	cases := []struct {
		current   string
		inRange   bool
		matched   RangeLabel
		changePct string
	}{
		{"2.15", true, RangeUpper, "3.37"},
		{"2.16", true, RangeUpper, "3.85"},
		{"2.20", false, RangeNone, "5.77"},
		{"2.08", false, RangeNone, "0"},
		{"1.99", true, RangeLower, "-4.33"},
		{"1.90", false, RangeNone, "-8.65"},
		// boundaries are inclusive on both ends
		{"2.1424", true, RangeUpper, "3"},
		{"2.184", true, RangeUpper, "5"},
		{"2.0176", true, RangeLower, "-3"},
		{"1.976", true, RangeLower, "-5"},
	}

	for _, tc := range cases {
		result, err := Classify(decimal.RequireFromString(tc.current), ref, DefaultConfig())
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", tc.current, err)
		}
		if result.InRange != tc.inRange {
			t.Fatalf("current %s: in_range 期望 %v, 实际 %v", tc.current, tc.inRange, result.InRange)
		}
		if result.MatchedRange != tc.matched {
			t.Fatalf("current %s: matched 期望 %q, 实际 %q", tc.current, tc.matched, result.MatchedRange)
		}
		if !result.ChangePct.Equal(decimal.RequireFromString(tc.changePct)) {
			t.Fatalf("current %s: change pct 期望 %s, 实际 %s", tc.current, tc.changePct, result.ChangePct)
		}
	}
}

func TestClassifySingleMatch(t *testing.T) {
	ref := decimal.RequireFromString("2.08")
	// walk across both bands and the gap between them
	price := decimal.RequireFromString("1.80")
	step := decimal.RequireFromString("0.005")
	end := decimal.RequireFromString("2.40")

	for ; price.LessThanOrEqual(end); price = price.Add(step) {
		result, err := Classify(price, ref, DefaultConfig())
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", price, err)
		}
		if result.InRange && result.MatchedRange == RangeNone {
			t.Fatalf("price %s: in range without a matched label", price)
		}
		if !result.InRange && result.MatchedRange != RangeNone {
			t.Fatalf("price %s: matched %q while out of range", price, result.MatchedRange)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	current := decimal.RequireFromString("2.15")
	ref := decimal.RequireFromString("2.08")

	first, err := Classify(current, ref, DefaultConfig())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := Classify(current, ref, DefaultConfig())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if first.InRange != second.InRange || first.MatchedRange != second.MatchedRange || !first.ChangePct.Equal(second.ChangePct) {
		t.Fatalf("相同输入应得到相同结果: %+v vs %+v", first, second)
	}
}

func TestClassifyInvalidReference(t *testing.T) {
	if _, err := Classify(decimal.RequireFromString("2.15"), decimal.Zero, DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("零参考价应返回 ErrInvalidInput, 实际 %v", err)
	}
}
