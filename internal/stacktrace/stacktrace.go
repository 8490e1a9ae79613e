// Package stacktrace derives the text representation of an event's stack
// that gets sent to the similarity service, and the frame-count bookkeeping
// the eligibility gate needs.
package stacktrace

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/burl/internal/model"
)

// ContributingVariant returns the stacktrace variant driving the event's
// grouping: the in-app variant when it contributes, otherwise the system
// variant. Returns false when neither contributes.
func ContributingVariant(variants []model.GroupingVariant) (model.GroupingVariant, bool) {
	var system model.GroupingVariant
	var haveSystem bool
	for _, v := range variants {
		if !v.Contributes {
			continue
		}
		switch v.Kind {
		case model.VariantApp:
			return v, true
		case model.VariantSystem:
			system, haveSystem = v, true
		}
	}
	return system, haveSystem
}

// TooManyContributingFrames reports whether the grouping-driving variant
// carries more contributing frames than the similarity model accepts.
func TooManyContributingFrames(variants []model.GroupingVariant, maxFrames int) bool {
	v, ok := ContributingVariant(variants)
	if !ok {
		return false
	}
	return v.ContributingFrameCount() > maxFrames
}

// FromEvent renders the stacktrace string for the similarity request:
// exception headers followed by the contributing frames of the variant that
// drives grouping. Returns "" when there is nothing to send.
func FromEvent(event *model.Event, variants []model.GroupingVariant) string {
	v, ok := ContributingVariant(variants)
	if !ok {
		return ""
	}

	var frames []model.Frame
	for _, f := range v.Frames {
		if f.Contributes {
			frames = append(frames, f.Frame)
		}
	}
	if len(frames) == 0 {
		return ""
	}

	var b strings.Builder
	for _, exc := range event.Exceptions {
		writeHeader(&b, exc.Type, exc.Value)
	}
	if len(event.Exceptions) == 0 {
		// Thread-only events still get a header line so the model sees
		// something to anchor on.
		b.WriteString("Thread\n")
	}
	for _, f := range frames {
		writeFrame(&b, f)
	}
	return b.String()
}

func writeHeader(b *strings.Builder, excType, excValue string) {
	if excType == "" && excValue == "" {
		return
	}
	b.WriteString(SanitizeType(excType))
	if excValue != "" {
		b.WriteString(": ")
		b.WriteString(excValue)
	}
	b.WriteString("\n")
}

func writeFrame(b *strings.Builder, f model.Frame) {
	b.WriteString(`  File "`)
	b.WriteString(f.Filename)
	b.WriteString(`", function `)
	b.WriteString(f.Function)
	b.WriteString("\n")
	if f.ContextLine != "" {
		b.WriteString("    ")
		b.WriteString(strings.TrimSpace(f.ContextLine))
		b.WriteString("\n")
	}
}

// sanitizer normalizes to NFC and drops null bytes and other non-printable
// control characters, which the similarity service rejects.
var sanitizer = transform.Chain(
	norm.NFC,
	runes.Remove(runes.Predicate(func(r rune) bool {
		return r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t')
	})),
)

// SanitizeType cleans an exception-type string for the outbound request.
func SanitizeType(s string) string {
	out, _, err := transform.String(sanitizer, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to a plain
		// null-byte strip.
		return strings.ReplaceAll(s, "\x00", "")
	}
	return out
}
