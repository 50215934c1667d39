package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0.01", 0.01, true},
		{"1.005", 1.01, true}, // half away from zero
		{" 2.50 ", 2.5, true},
		{"150", 150, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false}, // rounds to zero
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %v", tc.in, got)
			}
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{0, 0},
		{33.333333, 33.33},
		{66.666666, 66.67},
		{2.345, 2.35},
		{-2.345, -2.35},
		{-0.004, 0},
		{100, 100},
		{-83.333333, -83.33},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.out {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(40); got != "40.00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(12.5); got != "12.50" {
		t.Fatalf("got %q", got)
	}
}
