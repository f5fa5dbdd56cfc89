package utils

import "testing"

func TestHumanizeMinutes(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{-5, "0m"},
		{45, "45m"},
		{60, "1h"},
		{90, "1h 30m"},
		{150, "2h 30m"},
	}
	for _, tc := range cases {
		if got := HumanizeMinutes(tc.minutes); got != tc.want {
			t.Errorf("HumanizeMinutes(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestParseDurationText(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"  ", 0},
		{"0m", 0},
		{"45m", 45},
		{"1h", 60},
		{"1h 30m", 90},
		{"2h 30m", 150},
	}
	for _, tc := range cases {
		if got := ParseDurationText(tc.text); got != tc.want {
			t.Errorf("ParseDurationText(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestHumanizeParseRoundTrip(t *testing.T) {
	for _, m := range []int{0, 1, 59, 60, 61, 90, 600} {
		if got := ParseDurationText(HumanizeMinutes(m)); got != m {
			t.Errorf("round trip of %d minutes came back as %d", m, got)
		}
	}
}

func TestCombineDateClock(t *testing.T) {
	date, err := ParseDate("2025-01-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	got, err := CombineDateClock(date, "09:30")
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if FormatDateTime(got) != "2025-01-01 09:30:00" {
		t.Fatalf("combined time wrong: %s", FormatDateTime(got))
	}
	if _, err := CombineDateClock(date, "nonsense"); err == nil {
		t.Fatalf("expected error for invalid clock string")
	}
}
