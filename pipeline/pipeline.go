package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/smallnest/raggate/generate"
	"github.com/smallnest/raggate/log"
	"github.com/smallnest/raggate/retrieval"
)

// Node names. The graph is compiled once in New and reused for every call.
const (
	nodeNormalize = "normalize"
	nodeSelect    = "select"
	nodeOOD       = "ood"
	nodeRetrieve  = "retrieve"
	nodeCoverage  = "coverage"
	nodeAugment   = "augment"
	nodePolicy    = "policy"
	nodeContext   = "context"
	nodeGenerate  = "generate"
)

// defaultMaxCharsPerChunk bounds each document's contribution to the
// prompt context.
const defaultMaxCharsPerChunk = 1800

// Options wires a Pipeline. Index is required; everything else has a
// usable zero value. A nil Generator runs the pipeline retrieval-only:
// ok outcomes carry documents and sources but no generated answer.
type Options struct {
	// Index answers similarity searches. It owns query embedding.
	Index retrieval.VectorIndex
	// Retrieval carries fetch size, distance gates and ambiguity knobs.
	Retrieval retrieval.RetrieverConfig
	// OOD is the domain allow/deny gate over raw queries.
	OOD retrieval.OODConfig
	// Coverage is the compare/broad query entity-coverage gate.
	Coverage retrieval.CoverageConfig
	// Aliases is the query-side entity table shared by the resolver,
	// the coverage gate and the augmenter.
	Aliases []retrieval.EntityAliases
	// Embedder powers the signature and anchor tie-breakers. Nil
	// disables them.
	Embedder retrieval.Embedder
	// Generator writes the final answer. Nil skips generation.
	Generator generate.Generator
	// MaxCharsPerChunk clips each document in the context block.
	MaxCharsPerChunk int
	Logger           log.Logger
}

// Pipeline is the compiled ask workflow: a typed stage graph running
// OOD gating, retrieval, coverage, augmentation, policy, context assembly
// and generation. It is immutable after New and safe for concurrent use;
// each Invoke threads its own State value through the graph.
type Pipeline struct {
	runnable  *Runnable[retrieval.State]
	ood       *retrieval.OODGate
	retriever *retrieval.Retriever
	coverage  *retrieval.CoverageGate
	augmenter *retrieval.EntityAugmenter
	generator generate.Generator
	maxChars  int
	logger    log.Logger
}

// New validates the options, builds the stages and compiles the graph.
func New(opts Options) (*Pipeline, error) {
	if opts.Index == nil {
		return nil, errors.New("pipeline: vector index is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	maxChars := opts.MaxCharsPerChunk
	if maxChars <= 0 {
		maxChars = defaultMaxCharsPerChunk
	}

	extractor := retrieval.NewEntityExtractor(opts.Aliases)
	retriever, err := retrieval.NewRetriever(opts.Index, opts.Retrieval, extractor, opts.Embedder, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		ood:       retrieval.NewOODGate(opts.OOD, logger),
		retriever: retriever,
		coverage:  retrieval.NewCoverageGate(opts.Coverage, extractor, logger),
		augmenter: retrieval.NewEntityAugmenter(extractor, opts.Retrieval.Gate.FinalK, logger),
		generator: opts.Generator,
		maxChars:  maxChars,
		logger:    logger,
	}

	g := NewStateGraph[retrieval.State]()
	g.AddNode(nodeNormalize, "Trim the incoming query", p.normalizeNode)
	g.AddNode(nodeSelect, "Resolve a pending option selection", p.selectNode)
	g.AddNode(nodeOOD, "Refuse out-of-domain queries", p.oodNode)
	g.AddNode(nodeRetrieve, "Search, gate and disambiguate candidates", p.retrieveNode)
	g.AddNode(nodeCoverage, "Require cited docs to cover query entities", p.coverageNode)
	g.AddNode(nodeAugment, "Top up citations for uncovered entities", p.augmentNode)
	g.AddNode(nodePolicy, "Normalize terminal status and canned answers", p.policyNode)
	g.AddNode(nodeContext, "Assemble the prompt context block", p.contextNode)
	g.AddNode(nodeGenerate, "Generate the grounded answer", p.generateNode)

	g.SetEntryPoint(nodeNormalize)
	g.AddConditionalEdge(nodeNormalize, p.routeAfterNormalize)
	g.AddEdge(nodeSelect, nodeCoverage)
	g.AddEdge(nodeOOD, nodeRetrieve)
	g.AddEdge(nodeRetrieve, nodeCoverage)
	g.AddEdge(nodeCoverage, nodeAugment)
	g.AddEdge(nodeAugment, nodePolicy)
	g.AddEdge(nodePolicy, nodeContext)
	g.AddEdge(nodeContext, nodeGenerate)
	g.AddEdge(nodeGenerate, END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	p.runnable = runnable
	return p, nil
}

// Invoke runs one ask turn. Every failure mode maps to a refusal inside
// the Outcome; the error return is reserved for programmer misuse and is
// nil in normal operation.
func (p *Pipeline) Invoke(ctx context.Context, req retrieval.Request) (retrieval.Outcome, error) {
	runID := uuid.NewString()
	p.logger.Debug("run %s: input=%q selected_option=%d", runID, req.Input, req.SelectedOption)

	state, err := p.runnable.Invoke(ctx, retrieval.NewState(req))
	if err != nil {
		switch {
		case ctx.Err() != nil:
			p.logger.Warn("run %s: cancelled: %v", runID, err)
			state = state.Refuse(retrieval.ReasonCancelled)
		default:
			p.logger.Error("run %s: %v", runID, err)
			state = state.Refuse(retrieval.ReasonInternal)
		}
		state.Answer = retrieval.RefusalText
	}

	outcome := retrieval.BuildOutcome(state)
	p.logger.Debug("run %s: status=%s docs=%d options=%d", runID, outcome.Status, len(outcome.SourceDocuments), len(outcome.Options))
	return outcome, nil
}

func (p *Pipeline) routeAfterNormalize(ctx context.Context, state retrieval.State) string {
	if state.SelectedOption != 0 {
		return nodeSelect
	}
	return nodeOOD
}

func (p *Pipeline) normalizeNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	state.Input = strings.TrimSpace(state.Input)
	return state, nil
}

func (p *Pipeline) selectNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	return retrieval.ResolveSelection(state), nil
}

func (p *Pipeline) oodNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	return p.ood.Check(state), nil
}

func (p *Pipeline) retrieveNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	return p.retriever.Step(ctx, state), nil
}

func (p *Pipeline) coverageNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	return p.coverage.Check(state), nil
}

// augmentNode rebalances citations on the retrieval path only. A
// user-chosen option is cited exactly as offered.
func (p *Pipeline) augmentNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	if state.SelectedOption != 0 {
		return state, nil
	}
	return p.augmenter.Augment(state), nil
}

func (p *Pipeline) policyNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	return retrieval.ApplyAnswerPolicy(state), nil
}

func (p *Pipeline) contextNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	if state.SkipLLM {
		return state, nil
	}
	state.Context = retrieval.FormatContext(state.Docs, p.maxChars)
	return state, nil
}

// generateNode writes the answer. Backend failures refuse like every
// other backend failure; the raw error stays in the log.
func (p *Pipeline) generateNode(ctx context.Context, state retrieval.State) (retrieval.State, error) {
	if state.SkipLLM || p.generator == nil {
		return state, nil
	}

	raw, err := p.generator.Generate(ctx, state.Input, state.Context)
	if err != nil {
		if ctx.Err() != nil {
			state = state.Refuse(retrieval.ReasonCancelled)
		} else {
			p.logger.Error("generation failed: %v", err)
			state = state.Refuse(retrieval.BackendErrorReason("generation"))
		}
		state.Answer = retrieval.RefusalText
		return state, nil
	}

	state.Answer = generate.Clean(raw).Text
	return state, nil
}
