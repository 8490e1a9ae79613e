package model

// Grouping variant kinds produced by the upstream grouping pipeline.
const (
	VariantCustomFingerprint  = "custom_fingerprint"
	VariantBuiltInFingerprint = "built_in_fingerprint"
	VariantApp                = "app"
	VariantSystem             = "system"
)

// DefaultFingerprint is the sentinel token meaning "no custom fingerprinting".
const DefaultFingerprint = "{{ default }}"

// GroupingVariant is one grouping strategy's output for an event. Variants are
// produced upstream and are read-only here.
type GroupingVariant struct {
	Kind        string // one of the Variant* constants
	Contributes bool   // whether this variant drives the event's grouping
	Frames      []ContributingFrame
}

// ContributingFrame is a frame as seen by a grouping variant, with the
// variant's own contribution verdict attached.
type ContributingFrame struct {
	Frame
	Contributes bool
}

// ContributingFrameCount returns the number of frames the variant counts
// toward grouping.
func (v GroupingVariant) ContributingFrameCount() int {
	n := 0
	for _, f := range v.Frames {
		if f.Contributes {
			n++
		}
	}
	return n
}
