package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "n/a"},
		{7, "7"},
		{int64(12), "12"},
		{float64(3), "3"},
		{float64(3.5), "3.5"},
		{float32(9), "9"},
		{"iv", "iv"},
		{"  ", "n/a"},
		{"", "n/a"},
		{true, "true"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePage(tc.in), "page %#v", tc.in)
	}
}

func TestCollectSources(t *testing.T) {
	docs := []Document{
		newDoc("b1", "corpus/b.pdf", 2, nil),
		newDoc("a2", "corpus/a.pdf", 5, nil),
		newDoc("a1", "corpus/a.pdf", 1, nil),
		newDoc("a1 dup", "corpus/a.pdf", 1, nil),
		newDoc("orphan", "", nil, nil),
	}
	refs := CollectSources(docs)
	assert.Equal(t, []SourceRef{
		{Filename: "a.pdf", Page: "1"},
		{Filename: "a.pdf", Page: "5"},
		{Filename: "b.pdf", Page: "2"},
		{Filename: "unknown", Page: "n/a"},
	}, refs)
}

func TestFormatContext(t *testing.T) {
	docs := []Document{
		newDoc("MQTT defines three QoS levels.", "mqtt.pdf", 3, nil),
		newDoc(strings.Repeat("x", 50), "kafka.pdf", nil, nil),
	}
	out := FormatContext(docs, 20)

	blocks := strings.Split(out, "\n\n")
	assert.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "[mqtt.pdf, page 3]\n"))
	assert.True(t, strings.HasPrefix(blocks[1], "[kafka.pdf, page n/a]\n"))

	// Chunk text is clipped to the per-chunk budget.
	body := strings.SplitN(blocks[1], "\n", 2)[1]
	assert.Equal(t, strings.Repeat("x", 20), body)
}

func TestFormatContext_RuneSafeClipping(t *testing.T) {
	docs := []Document{newDoc("héllo wörld, ünïcode content", "u.md", 1, nil)}
	out := FormatContext(docs, 5)
	body := strings.SplitN(out, "\n", 2)[1]
	assert.Equal(t, "héllo", body)
}

func TestBuildOutcome(t *testing.T) {
	t.Run("ok exposes docs and sources", func(t *testing.T) {
		state := State{
			Input:  "q",
			Status: StatusOK,
			Answer: "QoS 1 guarantees at-least-once delivery.",
			Docs:   []Document{newDoc("qos", "mqtt.pdf", 3, nil)},
		}
		out := BuildOutcome(state)
		assert.Equal(t, StatusOK, out.Status)
		assert.Len(t, out.SourceDocuments, 1)
		assert.Equal(t, []SourceRef{{Filename: "mqtt.pdf", Page: "3"}}, out.Sources)
	})

	t.Run("refusal hides leftover docs", func(t *testing.T) {
		state := State{
			Input:         "q",
			Status:        StatusRefuse,
			RefusalReason: ReasonOutOfDomain,
			Docs:          []Document{newDoc("leak", "secret.pdf", 1, nil)},
		}
		out := BuildOutcome(state)
		assert.Empty(t, out.SourceDocuments)
		assert.Empty(t, out.Sources)
		assert.NotNil(t, out.SourceDocuments)
	})

	t.Run("ambiguous carries options", func(t *testing.T) {
		opts := []Option{{ID: 1}, {ID: 2}}
		out := BuildOutcome(State{Input: "q", Status: StatusAmbiguous, Options: opts})
		assert.Len(t, out.Options, 2)
		assert.Empty(t, out.SourceDocuments)
	})
}
