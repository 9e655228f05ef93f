package warmup

import (
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{}); err != errProviderRequired {
		t.Fatalf("want errProviderRequired, got %v", err)
	}
}

func TestWindow(t *testing.T) {
	w := &Warmer{now: func() time.Time {
		return time.Date(2023, 4, 15, 13, 30, 0, 0, time.UTC)
	}}

	got := w.window(3)
	want := []time.Time{
		time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 4, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 4, 14, 0, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("window = %v", got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("window[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if got := w.window(0); len(got) != 1 || !got[0].Equal(want[2]) {
		t.Fatalf("window(0) = %v, want yesterday only", got)
	}
}
