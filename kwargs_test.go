package weathermart

import (
	"errors"
	"testing"
)

func TestFormatKwarg(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  Value
		want string
	}{
		{"int list range", "levels", Ints(100, 200, 300), "level100to300"},
		{"singleton int list", "levels", Ints(500), "level500"},
		{"scalar int", "step_hours", Int(3), "step3"},
		{"ensemble range", "ensemble_members", Ints(0, 1, 2, 3), "ens0to3"},
		{"default scalar omitted", "use_limitation", Int(20), ""},
		{"default singleton omitted", "use_limitation", Ints(20), ""},
		{"non-default limitation", "use_limitation", Int(30), "limitation30"},
		{"bool true renders key", "extended", Bool(true), "extended"},
		{"bool false omitted", "extended", Bool(false), ""},
		{"float list", "thresholds", Floats(1.1, 2.2), "11_22"},
		{"scalar float", "thresholds", Float(0.5), "05"},
		{"string dots stripped", "variant", String("v.a.lue"), "value"},
		{"string punctuation", "variant", String("a-b c"), "a_b_c"},
		{"string list", "members", Strings("ctrl", "p1"), "ctrl_p1"},
		{"unknown key no prefix", "whatever", Int(7), "7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatKwarg(tc.key, tc.val)
			if err != nil {
				t.Fatalf("FormatKwarg(%s): %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("FormatKwarg(%s, %s) = %q, want %q", tc.key, tc.val, got, tc.want)
			}
		})
	}
}

func TestFormatKwargErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  Value
	}{
		{"unsorted int list", "levels", Ints(300, 100)},
		{"duplicate int list", "levels", Ints(100, 100)},
		{"empty int list", "levels", Ints()},
		{"unsorted float list", "thresholds", Floats(2.2, 1.1)},
		{"empty string list", "members", Strings()},
		{"forward slash", "variant", String("a/b")},
		{"backslash", "variant", String(`a\b`)},
		{"slash in bool key", "bad/key", Bool(true)},
		{"zero value", "levels", Value{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FormatKwarg(tc.key, tc.val)
			var kerr *KwargValueError
			if !errors.As(err, &kerr) {
				t.Fatalf("FormatKwarg(%s, %s): want KwargValueError, got %v", tc.key, tc.val, err)
			}
			if kerr.Key != tc.key {
				t.Fatalf("error key = %q, want %q", kerr.Key, tc.key)
			}
		})
	}
}

func TestFragment(t *testing.T) {
	k := Kwargs{
		"levels":         Ints(100, 200, 300),
		"step_hours":     Int(3),
		"use_limitation": Int(20),
	}
	got, err := k.Fragment()
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	// Sorted key order: levels, step_hours, use_limitation (omitted default).
	if want := "level100to300_step3"; got != want {
		t.Fatalf("fragment = %q, want %q", got, want)
	}
}

func TestFragmentEmpty(t *testing.T) {
	got, err := Kwargs{}.Fragment()
	if err != nil || got != "" {
		t.Fatalf("empty kwargs fragment = %q, %v", got, err)
	}

	// All-default options also leave the fragment empty.
	got, err = Kwargs{"use_limitation": Int(20), "extended": Bool(false)}.Fragment()
	if err != nil || got != "" {
		t.Fatalf("all-default fragment = %q, %v", got, err)
	}
}

func TestFragmentStableAcrossOrder(t *testing.T) {
	a := Kwargs{"levels": Ints(500), "step_hours": Int(6)}
	b := Kwargs{"step_hours": Int(6), "levels": Ints(500)}
	fa, err := a.Fragment()
	if err != nil {
		t.Fatal(err)
	}
	fb, err := b.Fragment()
	if err != nil {
		t.Fatal(err)
	}
	if fa != fb {
		t.Fatalf("fragment depends on construction order: %q vs %q", fa, fb)
	}
}

func TestFragmentPropagatesError(t *testing.T) {
	_, err := Kwargs{"levels": Ints(300, 100)}.Fragment()
	var kerr *KwargValueError
	if !errors.As(err, &kerr) {
		t.Fatalf("want KwargValueError, got %v", err)
	}
}
