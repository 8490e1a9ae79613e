package burl

import "github.com/crimson-sun/burl/internal/model"

// DefaultFingerprint is the sentinel token meaning "no custom fingerprinting".
const DefaultFingerprint = model.DefaultFingerprint

// Grouping variant kinds.
const (
	VariantCustomFingerprint  = model.VariantCustomFingerprint
	VariantBuiltInFingerprint = model.VariantBuiltInFingerprint
	VariantApp                = model.VariantApp
	VariantSystem             = model.VariantSystem
)

// Event is one ingested error occurrence. It is the stable public type;
// internal representations may evolve without breaking consumers.
type Event struct {
	ID          string      `json:"event_id"`
	ProjectID   int64       `json:"project_id"`
	Platform    string      `json:"platform,omitempty"`
	Fingerprint []string    `json:"fingerprint,omitempty"`
	Exceptions  []Exception `json:"exceptions,omitempty"`
	Threads     []Thread    `json:"threads,omitempty"`
	PrimaryHash string      `json:"primary_hash"`
}

// Exception is one entry in an event's exception chain, oldest first.
type Exception struct {
	Type   string  `json:"type,omitempty"`
	Value  string  `json:"value,omitempty"`
	Frames []Frame `json:"frames,omitempty"`
}

// Thread carries a thread's captured stack, for events without an exception.
type Thread struct {
	ID     int     `json:"id"`
	Frames []Frame `json:"frames,omitempty"`
}

// Frame is a single stack frame.
type Frame struct {
	Function    string `json:"function,omitempty"`
	Module      string `json:"module,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContextLine string `json:"context_line,omitempty"`
	InApp       bool   `json:"in_app,omitempty"`
}

// Variant is one grouping strategy's output for an event.
type Variant struct {
	Kind        string         `json:"kind"`
	Contributes bool           `json:"contributes"`
	Frames      []VariantFrame `json:"frames,omitempty"`
}

// VariantFrame is a frame with a variant's contribution verdict attached.
type VariantFrame struct {
	Frame
	Contributes bool `json:"contributes"`
}

// Match identifies the ledger entry a matched event should be grouped under.
type Match struct {
	Hash      string `json:"hash"`
	ProjectID int64  `json:"project_id"`
	GroupID   int64  `json:"group_id"`
}

func toModelEvent(e Event) *model.Event {
	out := &model.Event{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Platform:    e.Platform,
		Fingerprint: e.Fingerprint,
		PrimaryHash: e.PrimaryHash,
	}
	for _, exc := range e.Exceptions {
		out.Exceptions = append(out.Exceptions, model.Exception{
			Type:   exc.Type,
			Value:  exc.Value,
			Frames: toModelFrames(exc.Frames),
		})
	}
	for _, th := range e.Threads {
		out.Threads = append(out.Threads, model.Thread{
			ID:     th.ID,
			Frames: toModelFrames(th.Frames),
		})
	}
	return out
}

func toModelFrames(frames []Frame) []model.Frame {
	out := make([]model.Frame, len(frames))
	for i, f := range frames {
		out[i] = model.Frame(f)
	}
	return out
}

func toModelVariants(variants []Variant) []model.GroupingVariant {
	out := make([]model.GroupingVariant, len(variants))
	for i, v := range variants {
		mv := model.GroupingVariant{Kind: v.Kind, Contributes: v.Contributes}
		for _, f := range v.Frames {
			mv.Frames = append(mv.Frames, model.ContributingFrame{
				Frame:       model.Frame(f.Frame),
				Contributes: f.Contributes,
			})
		}
		out[i] = mv
	}
	return out
}

func matchFromGroupHash(gh *model.GroupHash) *Match {
	if gh == nil {
		return nil
	}
	return &Match{Hash: gh.Hash, ProjectID: gh.ProjectID, GroupID: gh.GroupID}
}
