package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Status is the retrieval verdict attached to pipeline state and outcomes.
type Status string

const (
	// StatusOK means documents were selected and generation may proceed.
	StatusOK Status = "ok"
	// StatusRefuse means the pipeline declined to answer.
	StatusRefuse Status = "refuse"
	// StatusAmbiguous means the caller must pick one of the offered options.
	StatusAmbiguous Status = "ambiguous"
)

// Refusal reasons surfaced in outcomes. They are part of the API contract:
// callers and the evaluation harness match on these strings.
const (
	ReasonEmptyQuery        = "Empty or invalid query"
	ReasonOutOfDomain       = "Out of domain"
	ReasonNoRelevantDocs    = "No relevant documents found"
	ReasonNoValidOptions    = "Ambiguous gate produced no valid options"
	ReasonEmptyOKDocs       = "OK status but empty documents (unexpected)"
	ReasonSelectionRequired = "User selection required"
	ReasonCancelled         = "Cancelled"
	ReasonInternal          = "Internal error"
)

// RefusalText is the canned answer returned whenever the pipeline refuses.
const RefusalText = "I don't know based on the provided documents."

// AmbiguousAnswer is the canned answer returned while a selection is pending.
const AmbiguousAnswer = "Ambiguous retrieval. Please choose an option number (1..N) to continue."

// InvalidSelectionReason builds the refusal reason for an out-of-range option id.
func InvalidSelectionReason(n int) string {
	return fmt.Sprintf("Invalid selection: %d", n)
}

// MissingCoverageReason builds the refusal reason listing entities with no
// document coverage.
func MissingCoverageReason(missing []string) string {
	return "Missing document coverage for: " + strings.Join(missing, ", ")
}

// BackendErrorReason builds the refusal reason for a failed backend call.
// The kind names the backend ("vector store", "embedding", "generation"),
// never the underlying error text.
func BackendErrorReason(kind string) string {
	return "Backend error: " + kind
}

// Document is one retrievable chunk of the corpus plus its metadata.
//
// Metadata keys written by ingestion: "source" (file path), "page"
// (integer for paginated formats), "entities" ([]string tags), and the
// catalog tags "domain", "doc_type", "product", "vendor", "version".
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetaString returns the metadata value for key as a trimmed string,
// or "" when the key is absent or not scalar.
func (d Document) MetaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	switch v := d.Metadata[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case int, int32, int64, float32, float64, bool:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}

// SourcePath returns the raw source path recorded at ingest time.
func (d Document) SourcePath() string {
	return d.MetaString("source")
}

// SourceName returns the base filename of the document's source,
// or "" when the source is unknown.
func (d Document) SourceName() string {
	src := d.SourcePath()
	if src == "" {
		return ""
	}
	return filepath.Base(src)
}

// Page returns the raw page metadata value, which may be nil.
func (d Document) Page() any {
	if d.Metadata == nil {
		return nil
	}
	return d.Metadata["page"]
}

// PageNumber returns the page as an int when the stored value is integral.
// JSON round-trips turn ints into float64, so integral floats count too.
func (d Document) PageNumber() (int, bool) {
	switch v := d.Page().(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case float32:
		if float64(v) == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// PageLabel returns the page normalized for display, "n/a" when missing.
func (d Document) PageLabel() string {
	return NormalizePage(d.Page())
}

// Entities returns the entity tags attached at ingest time.
func (d Document) Entities() []string {
	if d.Metadata == nil {
		return nil
	}
	switch v := d.Metadata["entities"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ScoredDocument pairs a document with its L2 distance from the query.
// Lower is closer.
type ScoredDocument struct {
	Doc   Document `json:"doc"`
	Score float64  `json:"score"`
}

// SourceRef is a display-ready citation: base filename plus normalized page.
type SourceRef struct {
	Filename string `json:"filename"`
	Page     string `json:"page"`
}

// Option is one disambiguation choice presented to the caller. IDs are
// 1-based and contiguous within a single response.
type Option struct {
	ID           int         `json:"option_id"`
	Docs         []Document  `json:"docs"`
	Sources      []SourceRef `json:"sources"`
	BestDistance float64     `json:"best_distance"`
}

// State is the mutable record threaded through the pipeline stages. Stages
// receive it by value and return an updated copy.
type State struct {
	Input          string
	Status         Status
	Docs           []Document
	Scored         []ScoredDocument
	Context        string
	Answer         string
	RefusalReason  string
	Options        []Option
	SelectedOption int
	SkipLLM        bool
}

// OK returns a copy of the state resolved with the given documents.
func (s State) OK(docs []Document) State {
	s.Status = StatusOK
	s.Docs = docs
	s.Options = nil
	s.RefusalReason = ""
	s.SkipLLM = false
	return s
}

// Refuse returns a copy of the state refusing with the given reason.
// Downstream stages see SkipLLM and pass the state through unchanged.
func (s State) Refuse(reason string) State {
	s.Status = StatusRefuse
	s.Docs = nil
	s.Context = ""
	s.Answer = ""
	s.Options = nil
	s.SelectedOption = 0
	s.RefusalReason = reason
	s.SkipLLM = true
	return s
}

// Ambiguous returns a copy of the state carrying options for the caller
// to choose from on a follow-up request.
func (s State) Ambiguous(options []Option) State {
	s.Status = StatusAmbiguous
	s.Docs = nil
	s.Context = ""
	s.Answer = ""
	s.Options = options
	s.RefusalReason = ""
	s.SkipLLM = true
	return s
}

// Request is one turn of the ask protocol. First call: Input only. After an
// ambiguous outcome: same Input plus SelectedOption and the echoed Options.
type Request struct {
	Input          string   `json:"input"`
	SelectedOption int      `json:"selected_option,omitempty"`
	Options        []Option `json:"options,omitempty"`
}

// NewState seeds pipeline state from an incoming request.
func NewState(req Request) State {
	return State{
		Input:          req.Input,
		Options:        req.Options,
		SelectedOption: req.SelectedOption,
	}
}

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	Input           string      `json:"input"`
	Status          Status      `json:"status"`
	Answer          string      `json:"answer"`
	RefusalReason   string      `json:"refusal_reason,omitempty"`
	SourceDocuments []Document  `json:"source_documents"`
	Sources         []SourceRef `json:"sources"`
	Options         []Option    `json:"options,omitempty"`
	SelectedOption  int         `json:"selected_option,omitempty"`
}

// Embedder converts text into dense vectors. Identity names the backing
// model so caches can key on (identity, text) without cross-model reuse.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Identity() string
}

// VectorIndex performs similarity search over an embedded corpus. The index
// embeds the query itself and returns candidates ordered by ascending L2
// distance.
type VectorIndex interface {
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error)
}
