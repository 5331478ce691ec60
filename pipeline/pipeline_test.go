package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/raggate/retrieval"
)

func newDoc(content, source string, page any, tags map[string]any, entities ...string) retrieval.Document {
	md := map[string]any{}
	if source != "" {
		md["source"] = source
	}
	if page != nil {
		md["page"] = page
	}
	for k, v := range tags {
		md[k] = v
	}
	if len(entities) > 0 {
		md["entities"] = entities
	}
	return retrieval.Document{Content: content, Metadata: md}
}

func mustPatterns(t *testing.T, exprs ...string) []*retrieval.Pattern {
	t.Helper()
	out, err := retrieval.CompilePatterns(exprs)
	require.NoError(t, err)
	return out
}

type fakeIndex struct {
	scored []retrieval.ScoredDocument
	err    error
	calls  int
	gotK   int
}

func (f *fakeIndex) SimilaritySearchWithScore(_ context.Context, _ string, k int) ([]retrieval.ScoredDocument, error) {
	f.calls++
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.scored, nil
}

type fakeGen struct {
	answer     string
	err        error
	calls      int
	gotQuery   string
	gotContext string
}

func (g *fakeGen) Generate(_ context.Context, query, docContext string) (string, error) {
	g.calls++
	g.gotQuery = query
	g.gotContext = docContext
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// baseOptions wires a pipeline with both verdict gates off so each test
// enables exactly what it exercises.
func baseOptions(idx retrieval.VectorIndex, gen *fakeGen) Options {
	opts := Options{
		Index: idx,
		Retrieval: retrieval.RetrieverConfig{
			FetchK: 10,
			Gate: retrieval.GateConfig{
				FinalK:    4,
				MaxL2:     0.8,
				SoftMaxL2: 1.0,
				MinKeep:   1,
				MinGap:    0.05,
			},
			Ambiguity: retrieval.AmbiguityConfig{MaxOptions: 3},
		},
	}
	if gen != nil {
		opts.Generator = gen
	}
	return opts
}

func mqttChunks() []retrieval.ScoredDocument {
	tags := map[string]any{"domain": "mqtt", "doc_type": "spec", "product": "mqtt"}
	return []retrieval.ScoredDocument{
		{Doc: newDoc("QoS 1 delivers at least once.", "mqtt-v3.1.1-os.pdf", 3, tags, "mqtt"), Score: 0.30},
		{Doc: newDoc("The PUBACK packet acknowledges QoS 1.", "mqtt-v3.1.1-os.pdf", 4, tags, "mqtt"), Score: 0.32},
		{Doc: newDoc("Retained messages persist per topic.", "mqtt-v3.1.1-os.pdf", 7, tags, "mqtt"), Score: 0.40},
		{Doc: newDoc("Session state survives reconnects.", "mqtt-v3.1.1-os.pdf", 9, tags, "mqtt"), Score: 0.45},
		{Doc: newDoc("The broker routes by topic filter.", "mqtt-v3.1.1-os.pdf", 12, tags, "mqtt"), Score: 0.55},
	}
}

func TestPipeline_OKFlowGeneratesGroundedAnswer(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	gen := &fakeGen{answer: "Answer:\nQoS 1 retries publishes until acknowledged."}
	p, err := New(baseOptions(idx, gen))
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "What is MQTT QoS?"})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusOK, out.Status)
	require.Len(t, out.SourceDocuments, 4)
	for _, src := range out.Sources {
		assert.Equal(t, "mqtt-v3.1.1-os.pdf", src.Filename)
	}

	// Label line removed by the output cleaner.
	assert.Equal(t, "QoS 1 retries publishes until acknowledged.", out.Answer)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "What is MQTT QoS?", gen.gotQuery)
	assert.Contains(t, gen.gotContext, "[mqtt-v3.1.1-os.pdf, page 3]")
	assert.Contains(t, gen.gotContext, "QoS 1 delivers at least once.")
}

func TestPipeline_WidensFetchK(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	p, err := New(baseOptions(idx, nil))
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), retrieval.Request{Input: "qos"})
	require.NoError(t, err)
	assert.Equal(t, retrieval.SafeFetchK(10, 4, 3), idx.gotK)
}

func TestPipeline_EmptyQueryRefusal(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	p, err := New(baseOptions(idx, nil))
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "   "})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Equal(t, retrieval.ReasonEmptyQuery, out.RefusalReason)
	assert.Equal(t, retrieval.RefusalText, out.Answer)
	assert.Empty(t, out.SourceDocuments)
	assert.Zero(t, idx.calls)
}

func TestPipeline_OODRefusalSkipsSearch(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	opts := baseOptions(idx, nil)
	opts.OOD = retrieval.OODConfig{
		Enabled: true,
		Allow:   mustPatterns(t, `\bmqtt\b`, `\bqos\s*[012]\b`),
		Deny:    mustPatterns(t, `\bweather\b|\bforecast\b`),
	}
	p, err := New(opts)
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "What is the weather today?"})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Equal(t, retrieval.ReasonOutOfDomain, out.RefusalReason)
	assert.Zero(t, idx.calls, "no vector search after an OOD refusal")
}

func TestPipeline_CoverageRefusalNamesMissingEntity(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	opts := baseOptions(idx, nil)
	opts.Coverage = retrieval.CoverageConfig{
		Enabled: true,
		Compare: mustPatterns(t, `\bvs\.?\b`, `\bversus\b`),
		Generic: mustPatterns(t, `\bwhat\s+is\b`),
	}
	opts.Aliases = []retrieval.EntityAliases{
		{Name: "kafka", Patterns: mustPatterns(t, `\bkafka\b`)},
		{Name: "mqtt", Patterns: mustPatterns(t, `\bmqtt\b`)},
	}
	p, err := New(opts)
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "MQTT vs Kafka differences"})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Contains(t, out.RefusalReason, "Missing document coverage for:")
	assert.Contains(t, out.RefusalReason, "kafka")
	assert.Empty(t, out.SourceDocuments)
}

func ambiguousChunks() []retrieval.ScoredDocument {
	iotTags := map[string]any{"domain": "iot", "doc_type": "guide", "product": "aws_iot"}
	jobsTags := map[string]any{"domain": "iot", "doc_type": "guide", "product": "aws_iot_jobs"}
	return []retrieval.ScoredDocument{
		{Doc: newDoc("Shadow state sync for things.", "aws-iot-core.pdf", 10, iotTags, "aws_iot"), Score: 0.40},
		{Doc: newDoc("Job rollout controls device batches.", "aws-iot-jobs.pdf", 22, jobsTags, "aws_iot", "aws_iot_jobs"), Score: 0.42},
		{Doc: newDoc("Thing registry naming rules.", "aws-iot-core.pdf", 14, iotTags, "aws_iot"), Score: 0.50},
		{Doc: newDoc("Job execution timeout semantics.", "aws-iot-jobs.pdf", 25, jobsTags, "aws_iot", "aws_iot_jobs"), Score: 0.52},
	}
}

func TestPipeline_AmbiguousThenSelectionRoundTrip(t *testing.T) {
	idx := &fakeIndex{scored: ambiguousChunks()}
	gen := &fakeGen{answer: "Rollouts batch job executions."}
	opts := baseOptions(idx, gen)
	// Keep the two buckets' source sets disjoint so they survive option
	// deduplication.
	opts.Retrieval.Gate.FinalK = 2
	p, err := New(opts)
	require.NoError(t, err)

	first, err := p.Invoke(context.Background(), retrieval.Request{Input: "how does the rollout timeout behave?"})
	require.NoError(t, err)

	require.Equal(t, retrieval.StatusAmbiguous, first.Status)
	require.Len(t, first.Options, 2)
	assert.Equal(t, 1, first.Options[0].ID)
	assert.Equal(t, 2, first.Options[1].ID)
	assert.Equal(t, retrieval.AmbiguousAnswer, first.Answer)
	assert.Equal(t, retrieval.ReasonSelectionRequired, first.RefusalReason)
	assert.Empty(t, first.SourceDocuments)
	assert.Zero(t, gen.calls, "no generation while a selection is pending")

	second, err := p.Invoke(context.Background(), retrieval.Request{
		Input:          "how does the rollout timeout behave?",
		SelectedOption: 2,
		Options:        first.Options,
	})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusOK, second.Status)
	assert.Equal(t, first.Options[1].Docs, second.SourceDocuments)
	assert.Equal(t, 2, second.SelectedOption)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, idx.calls, "selection pass must not search again")
}

func TestPipeline_InvalidSelection(t *testing.T) {
	idx := &fakeIndex{scored: ambiguousChunks()}
	opts := baseOptions(idx, nil)
	opts.Retrieval.Gate.FinalK = 2
	p, err := New(opts)
	require.NoError(t, err)

	first, err := p.Invoke(context.Background(), retrieval.Request{Input: "how does the rollout timeout behave?"})
	require.NoError(t, err)
	require.Equal(t, retrieval.StatusAmbiguous, first.Status)

	out, err := p.Invoke(context.Background(), retrieval.Request{
		Input:          "how does the rollout timeout behave?",
		SelectedOption: 7,
		Options:        first.Options,
	})
	require.NoError(t, err)
	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Equal(t, retrieval.InvalidSelectionReason(7), out.RefusalReason)

	// A selection with no carried options is equally invalid.
	out, err = p.Invoke(context.Background(), retrieval.Request{Input: "anything", SelectedOption: 1})
	require.NoError(t, err)
	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Equal(t, retrieval.InvalidSelectionReason(1), out.RefusalReason)
}

func TestPipeline_EntityEvidencePicksCoveringBucket(t *testing.T) {
	idx := &fakeIndex{scored: ambiguousChunks()}
	opts := baseOptions(idx, nil)
	opts.Retrieval.Ambiguity.EnableEntityResolve = true
	opts.Aliases = []retrieval.EntityAliases{
		{Name: "aws_iot", Patterns: mustPatterns(t, `\baws\s*iot\b`)},
		{Name: "aws_iot_jobs", Patterns: mustPatterns(t, `\baws\s*iot\s*jobs?\b`, `\brollout\b`, `\btimeout\b`)},
	}
	p, err := New(opts)
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "AWS IoT Jobs rollout timeout"})
	require.NoError(t, err)

	require.Equal(t, retrieval.StatusOK, out.Status)
	require.NotEmpty(t, out.SourceDocuments)
	assert.Equal(t, "Job rollout controls device batches.", out.SourceDocuments[0].Content)
}

func TestPipeline_CollapsedOptionsAutoResolve(t *testing.T) {
	// Two buckets over the same two documents: both options cite the same
	// (filename, page) set, so deduplication leaves one choice and the
	// pipeline answers instead of asking.
	specTags := map[string]any{"domain": "mqtt", "doc_type": "spec", "product": "mqtt"}
	guideTags := map[string]any{"domain": "mqtt", "doc_type": "guide", "product": "mqtt"}
	idx := &fakeIndex{scored: []retrieval.ScoredDocument{
		{Doc: newDoc("Will messages fire on abnormal disconnect.", "a.pdf", 1, specTags), Score: 0.40},
		{Doc: newDoc("Configure the last will at connect time.", "b.pdf", 9, guideTags), Score: 0.44},
	}}
	opts := baseOptions(idx, nil)
	opts.Retrieval.Gate.FinalK = 2
	p, err := New(opts)
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "when is the will message published?"})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusOK, out.Status)
	assert.Len(t, out.SourceDocuments, 2)
	assert.Empty(t, out.Options)
}

func TestPipeline_BackendFailuresRefuse(t *testing.T) {
	t.Run("vector store", func(t *testing.T) {
		idx := &fakeIndex{err: errors.New("faiss exploded")}
		p, err := New(baseOptions(idx, nil))
		require.NoError(t, err)

		out, err := p.Invoke(context.Background(), retrieval.Request{Input: "qos"})
		require.NoError(t, err)
		assert.Equal(t, retrieval.StatusRefuse, out.Status)
		assert.Equal(t, retrieval.BackendErrorReason("vector store"), out.RefusalReason)
	})

	t.Run("embedding", func(t *testing.T) {
		idx := &fakeIndex{err: retrieval.ErrEmbedding}
		p, err := New(baseOptions(idx, nil))
		require.NoError(t, err)

		out, err := p.Invoke(context.Background(), retrieval.Request{Input: "qos"})
		require.NoError(t, err)
		assert.Equal(t, retrieval.StatusRefuse, out.Status)
		assert.Equal(t, retrieval.BackendErrorReason("embedding"), out.RefusalReason)
	})

	t.Run("generation", func(t *testing.T) {
		idx := &fakeIndex{scored: mqttChunks()}
		gen := &fakeGen{err: errors.New("model unavailable")}
		p, err := New(baseOptions(idx, gen))
		require.NoError(t, err)

		out, err := p.Invoke(context.Background(), retrieval.Request{Input: "What is MQTT QoS?"})
		require.NoError(t, err)
		assert.Equal(t, retrieval.StatusRefuse, out.Status)
		assert.Equal(t, retrieval.BackendErrorReason("generation"), out.RefusalReason)
		assert.Equal(t, retrieval.RefusalText, out.Answer)
		assert.Empty(t, out.SourceDocuments)
	})
}

func TestPipeline_RetrievalOnlyMode(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	p, err := New(baseOptions(idx, nil))
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), retrieval.Request{Input: "What is MQTT QoS?"})
	require.NoError(t, err)

	assert.Equal(t, retrieval.StatusOK, out.Status)
	assert.Len(t, out.SourceDocuments, 4)
	assert.Empty(t, out.Answer, "no generator configured")
}

func TestPipeline_CancelledContext(t *testing.T) {
	idx := &fakeIndex{scored: mqttChunks()}
	p, err := New(baseOptions(idx, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := p.Invoke(ctx, retrieval.Request{Input: "What is MQTT QoS?"})
	require.NoError(t, err)
	assert.Equal(t, retrieval.StatusRefuse, out.Status)
	assert.Equal(t, retrieval.ReasonCancelled, out.RefusalReason)
	assert.Equal(t, retrieval.RefusalText, out.Answer)
}

func TestPipeline_RequiresIndex(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
