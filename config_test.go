package weathermart

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2023-04-12", time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)},
		{"2023-04-12 06:30:00", time.Date(2023, 4, 12, 6, 30, 0, 0, time.UTC)},
		{"2023-04-12T06:30:00Z", time.Date(2023, 4, 12, 6, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParseDate("12.04.2023"); err == nil {
		t.Fatal("want error for unsupported layout")
	}
}

func TestNormalizeDates(t *testing.T) {
	d1 := time.Date(2023, 4, 13, 15, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 4, 12, 8, 0, 0, 0, time.UTC)
	d3 := time.Date(2023, 4, 13, 2, 0, 0, 0, time.UTC) // same day as d1

	got := normalizeDates([]time.Time{d1, d2, d3})
	if len(got) != 2 {
		t.Fatalf("normalized to %d days, want 2", len(got))
	}
	if !got[0].Equal(time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got[0] = %s", got[0])
	}
	if !got[1].Equal(time.Date(2023, 4, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got[1] = %s", got[1])
	}
}

func TestKeyLayout(t *testing.T) {
	day := time.Date(2023, 4, 12, 13, 45, 0, 0, time.UTC)
	k := NewKey("ICON-CH1-EPS", day, "level500")
	if got := k.EntryName(); got != "20230412level500" {
		t.Fatalf("entry name = %q", got)
	}
	if got := k.String(); got != "icon-ch1-eps/20230412level500" {
		t.Fatalf("key = %q", got)
	}
	if k.Date.Hour() != 0 {
		t.Fatalf("date not normalized to midnight: %s", k.Date)
	}
}
