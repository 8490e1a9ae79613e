package similarity

// ModelVersion tags every metadata record with the similarity model that
// answered. Bump when the remote service rolls a new index.
const ModelVersion = "v0"

// ReferrerIngest is the caller tag sent on requests made from the ingest
// decision path.
const ReferrerIngest = "ingest"

// Request is the outbound similar-issues query.
type Request struct {
	EventID       string  `json:"event_id"`
	Hash          string  `json:"hash"`
	ProjectID     int64   `json:"project_id"`
	Stacktrace    string  `json:"stacktrace"`
	ExceptionType *string `json:"exception_type,omitempty"`
	K             int     `json:"k"`
	Referrer      string  `json:"referrer"`
	UseReranking  bool    `json:"use_reranking"`
}

// Result is one neighbor candidate. The service returns results ordered
// closest-first.
type Result struct {
	ParentHash         string  `json:"parent_hash"`
	StacktraceDistance float64 `json:"stacktrace_distance"`
	MessageDistance    float64 `json:"message_distance"`
	ShouldGroup        bool    `json:"should_group"`
}

// Metadata is what the engine records about a similarity call regardless of
// whether a local ledger match was found.
type Metadata struct {
	Results      []Result `json:"results"`
	ModelVersion string   `json:"similarity_model_version"`
}

// envelope is the wire shape of the service response.
type envelope struct {
	Responses []Result `json:"responses"`
}
