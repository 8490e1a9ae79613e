package stacktrace

import (
	"strings"
	"testing"

	"github.com/crimson-sun/burl/internal/model"
)

func frame(fn, file string, contributes bool) model.ContributingFrame {
	return model.ContributingFrame{
		Frame:       model.Frame{Function: fn, Filename: file},
		Contributes: contributes,
	}
}

func TestContributingVariantPrefersApp(t *testing.T) {
	variants := []model.GroupingVariant{
		{Kind: model.VariantSystem, Contributes: true},
		{Kind: model.VariantApp, Contributes: true},
	}
	v, ok := ContributingVariant(variants)
	if !ok || v.Kind != model.VariantApp {
		t.Errorf("expected app variant, got %+v ok=%v", v, ok)
	}
}

func TestContributingVariantFallsBackToSystem(t *testing.T) {
	variants := []model.GroupingVariant{
		{Kind: model.VariantApp, Contributes: false},
		{Kind: model.VariantSystem, Contributes: true},
	}
	v, ok := ContributingVariant(variants)
	if !ok || v.Kind != model.VariantSystem {
		t.Errorf("expected system variant, got %+v ok=%v", v, ok)
	}
}

func TestContributingVariantNone(t *testing.T) {
	variants := []model.GroupingVariant{
		{Kind: model.VariantApp, Contributes: false},
	}
	if _, ok := ContributingVariant(variants); ok {
		t.Error("expected no contributing variant")
	}
}

func TestTooManyContributingFrames(t *testing.T) {
	variants := []model.GroupingVariant{{
		Kind:        model.VariantApp,
		Contributes: true,
		Frames: []model.ContributingFrame{
			frame("a", "a.py", true),
			frame("b", "b.py", true),
			frame("c", "c.py", false), // non-contributing frames don't count
		},
	}}
	if TooManyContributingFrames(variants, 2) {
		t.Error("2 contributing frames should pass a limit of 2")
	}
	if !TooManyContributingFrames(variants, 1) {
		t.Error("2 contributing frames should exceed a limit of 1")
	}
}

func TestFromEventRendersHeaderAndFrames(t *testing.T) {
	event := &model.Event{
		Exceptions: []model.Exception{{Type: "ValueError", Value: "bad input"}},
	}
	variants := []model.GroupingVariant{{
		Kind:        model.VariantApp,
		Contributes: true,
		Frames: []model.ContributingFrame{
			{
				Frame: model.Frame{
					Function:    "handle",
					Filename:    "app/views.py",
					ContextLine: "  raise ValueError(x)",
				},
				Contributes: true,
			},
		},
	}}

	s := FromEvent(event, variants)
	for _, want := range []string{
		"ValueError: bad input",
		`File "app/views.py", function handle`,
		"raise ValueError(x)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("stacktrace string missing %q:\n%s", want, s)
		}
	}
}

func TestFromEventEmptyWhenNothingContributes(t *testing.T) {
	event := &model.Event{Exceptions: []model.Exception{{Type: "ValueError"}}}
	variants := []model.GroupingVariant{{
		Kind:        model.VariantApp,
		Contributes: true,
		Frames:      []model.ContributingFrame{frame("a", "a.py", false)},
	}}
	if s := FromEvent(event, variants); s != "" {
		t.Errorf("expected empty string, got %q", s)
	}
}

func TestSanitizeType(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ValueError", "ValueError"},
		{"Value\x00Error", "ValueError"},
		{"Weird\x01\x02Type", "WeirdType"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeType(c.in); got != c.want {
			t.Errorf("SanitizeType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
