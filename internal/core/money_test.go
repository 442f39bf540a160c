package core

import (
	"strings"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0,00",
		123456:  "1.234,56",
		1000000: "10.000,00",
	}
	for cents, digits := range cases {
		got := (Money{Cents: cents}).String()
		if !strings.HasPrefix(got, "R$") || !strings.HasSuffix(got, digits) {
			t.Errorf("Money{%d}.String() = %q, want R$ prefix and %q", cents, got, digits)
		}
	}
	if got := (Money{Cents: -250}).String(); !strings.HasPrefix(got, "-") {
		t.Errorf("negative amount %q should carry a minus sign", got)
	}
}

func TestMoneyFromFloat(t *testing.T) {
	if got := MoneyFromFloat(1120.004); got.Cents != 112000 {
		t.Errorf("MoneyFromFloat(1120.004) = %d", got.Cents)
	}
	if got := MoneyFromFloat(2.5); got.Cents != 250 {
		t.Errorf("MoneyFromFloat(2.5) = %d", got.Cents)
	}
}
