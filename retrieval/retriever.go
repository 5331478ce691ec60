package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smallnest/raggate/log"
)

// ErrEmbedding marks failures inside an embedding backend so callers can
// report them separately from vector store failures. Stores wrap their
// query-embedding errors with it.
var ErrEmbedding = errors.New("embedding backend failure")

// SafeFetchK widens the requested fetch size so the ambiguity resolver has
// enough candidates to build distinct options from.
func SafeFetchK(fetchK, finalK, maxOptions int) int {
	floor := finalK + 2*maxOptions + 2
	if fetchK > floor {
		return fetchK
	}
	return floor
}

// RetrieverConfig wires the retriever's search and gating behavior.
type RetrieverConfig struct {
	// FetchK is how many candidates to pull from the index. It is widened
	// to SafeFetchK automatically.
	FetchK    int
	Gate      GateConfig
	Ambiguity AmbiguityConfig
}

// Retriever runs similarity search, the distance gates, tag clustering,
// and ambiguity resolution, turning raw nearest neighbors into a decided
// state: ok with documents, ambiguous with options, or a refusal.
type Retriever struct {
	index      VectorIndex
	gate       *GateEngine
	resolver   *AmbiguityResolver
	fetchK     int
	finalK     int
	maxOptions int
	strictSig  bool
	logger     log.Logger
}

// NewRetriever validates the configuration and builds the stage. The
// extractor and embedder may be nil; the corresponding resolver steps are
// skipped.
func NewRetriever(index VectorIndex, cfg RetrieverConfig, extractor *EntityExtractor, embedder Embedder, logger log.Logger) (*Retriever, error) {
	if index == nil {
		return nil, errors.New("retriever: vector index is required")
	}
	if cfg.Gate.FinalK < 1 {
		return nil, fmt.Errorf("retriever: final_k must be at least 1, got %d", cfg.Gate.FinalK)
	}
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Retriever{
		index:      index,
		gate:       NewGateEngine(cfg.Gate, logger),
		resolver:   NewAmbiguityResolver(cfg.Ambiguity, extractor, embedder, logger),
		fetchK:     SafeFetchK(cfg.FetchK, cfg.Gate.FinalK, cfg.Ambiguity.MaxOptions),
		finalK:     cfg.Gate.FinalK,
		maxOptions: cfg.Ambiguity.MaxOptions,
		strictSig:  cfg.Ambiguity.StrictSignature,
		logger:     logger,
	}, nil
}

// Step retrieves and gates candidates for the state's query.
func (r *Retriever) Step(ctx context.Context, state State) State {
	if state.SkipLLM {
		return state
	}
	query := strings.TrimSpace(state.Input)

	scored, err := r.index.SimilaritySearchWithScore(ctx, query, r.fetchK)
	if err != nil {
		if ctx.Err() != nil {
			return state.Refuse(ReasonCancelled)
		}
		if errors.Is(err, ErrEmbedding) {
			r.logger.Error("query embedding failed: %v", err)
			return state.Refuse(BackendErrorReason("embedding"))
		}
		r.logger.Error("similarity search failed: %v", err)
		return state.Refuse(BackendErrorReason("vector store"))
	}
	if len(scored) == 0 {
		return state.Refuse(ReasonNoRelevantDocs)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	state.Scored = scored

	kept, status := r.gate.Gate(scored)
	switch status {
	case StatusRefuse:
		return state.Refuse(ReasonNoRelevantDocs)
	case StatusOK:
		docs := docsOf(kept)
		if len(docs) == 0 {
			return state.Refuse(ReasonEmptyOKDocs)
		}
		r.logger.Debug("gate kept %d of %d candidates", len(docs), len(scored))
		return state.OK(docs)
	}

	buckets := ClusterByTags(kept, r.strictSig)
	r.logger.Debug("ambiguous retrieval: %d candidates across %d buckets", len(kept), len(buckets))
	res := r.resolver.Resolve(ctx, query, buckets, r.finalK)
	if res.Resolved {
		return state.OK(res.Docs)
	}

	options := DeduplicateOptions(BuildOptions(res.Buckets, scored, r.finalK, r.maxOptions))
	switch len(options) {
	case 0:
		return state.Refuse(ReasonNoValidOptions)
	case 1:
		// Distinct buckets collapsed to one source set; nothing to ask.
		return state.OK(options[0].Docs)
	default:
		return state.Ambiguous(options)
	}
}

func docsOf(scored []ScoredDocument) []Document {
	docs := make([]Document, 0, len(scored))
	for _, sd := range scored {
		docs = append(docs, sd.Doc)
	}
	return docs
}
