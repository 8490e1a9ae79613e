package model

// Event is one ingested error occurrence. It is immutable once the ingest
// decision runs, except for the scratch stacktrace string, which exists only
// for the duration of a single decision pass and is never persisted.
type Event struct {
	ID          string   // 32-char hex event identifier
	ProjectID   int64    // owning project
	Platform    string   // e.g. "python", "javascript"
	Fingerprint []string // user/system fingerprint tokens; may contain the default sentinel
	Exceptions  []Exception
	Threads     []Thread
	PrimaryHash string // derived primary content hash

	// scratch holds the derived stacktrace string between the eligibility
	// check and the similarity call, so it is computed at most once.
	scratch string
}

// Exception is one entry in an event's exception chain, oldest first.
type Exception struct {
	Type   string
	Value  string
	Frames []Frame
}

// Thread carries a thread's captured stack, for events without an exception.
type Thread struct {
	ID     int
	Frames []Frame
}

// Frame is a single stack frame.
type Frame struct {
	Function    string
	Module      string
	Filename    string
	ContextLine string
	InApp       bool
}

// HasStacktrace reports whether the event carries any stack frames, either
// on an exception or on a thread.
func (e *Event) HasStacktrace() bool {
	for _, exc := range e.Exceptions {
		if len(exc.Frames) > 0 {
			return true
		}
	}
	for _, th := range e.Threads {
		if len(th.Frames) > 0 {
			return true
		}
	}
	return false
}

// ExceptionType returns the type of the most recent exception in the chain,
// or "" if the event has none.
func (e *Event) ExceptionType() string {
	if len(e.Exceptions) == 0 {
		return ""
	}
	return e.Exceptions[len(e.Exceptions)-1].Type
}

// CacheStacktraceString stores the derived stacktrace string for reuse later
// in the same decision pass.
func (e *Event) CacheStacktraceString(s string) { e.scratch = s }

// CachedStacktraceString returns the cached stacktrace string, or "" if none
// was cached.
func (e *Event) CachedStacktraceString() string { return e.scratch }

// ClearStacktraceString drops the cached stacktrace string so it cannot leak
// into storage.
func (e *Event) ClearStacktraceString() { e.scratch = "" }
