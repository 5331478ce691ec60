package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionFixture() ([]Bucket, []ScoredDocument) {
	scored := []ScoredDocument{
		{Doc: newDoc("mqtt p1", "docs/mqtt.pdf", 1, mqttTags()), Score: 0.30},
		{Doc: newDoc("kafka p1", "docs/kafka.pdf", 1, kafkaTags()), Score: 0.31},
		{Doc: newDoc("mqtt p2", "docs/mqtt.pdf", 2, mqttTags()), Score: 0.33},
		{Doc: newDoc("mqtt p5", "docs/mqtt.pdf", 5, mqttTags()), Score: 0.34},
		{Doc: newDoc("kafka p3", "docs/kafka.pdf", 3, kafkaTags()), Score: 0.40},
	}
	return ClusterByTags(scored, false), scored
}

func TestBuildOptions(t *testing.T) {
	buckets, scored := optionFixture()
	require.Len(t, buckets, 2)

	options := BuildOptions(buckets, scored, 4, 3)
	require.Len(t, options, 2)

	first := options[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 0.30, first.BestDistance)
	require.Len(t, first.Docs, 4)
	// Anchor leads, same-file companions follow on fresh pages, and the
	// kafka chunk sharing the anchor's page number is passed over.
	assert.Equal(t, "mqtt p1", first.Docs[0].Content)
	assert.Equal(t, "mqtt p2", first.Docs[1].Content)
	assert.Equal(t, "mqtt p5", first.Docs[2].Content)
	assert.Equal(t, "kafka p3", first.Docs[3].Content)

	second := options[1]
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 0.31, second.BestDistance)
	require.Len(t, second.Docs, 4)
	assert.Equal(t, "kafka p1", second.Docs[0].Content)

	// Sources are deduplicated and sorted for display.
	require.NotEmpty(t, first.Sources)
	assert.Equal(t, SourceRef{Filename: "kafka.pdf", Page: "3"}, first.Sources[0])
}

func TestBuildOptions_AnchorOnlyWhenFinalKIsOne(t *testing.T) {
	buckets, scored := optionFixture()

	options := BuildOptions(buckets, scored, 1, 3)
	require.Len(t, options, 2)
	for _, opt := range options {
		assert.Len(t, opt.Docs, 1)
	}
}

func TestBuildOptions_MaxOptionsCap(t *testing.T) {
	scored := []ScoredDocument{
		{Doc: newDoc("a", "a.pdf", 1, map[string]any{"domain": "d1"}), Score: 0.30},
		{Doc: newDoc("b", "b.pdf", 1, map[string]any{"domain": "d2"}), Score: 0.31},
		{Doc: newDoc("c", "c.pdf", 1, map[string]any{"domain": "d3"}), Score: 0.32},
		{Doc: newDoc("d", "d.pdf", 1, map[string]any{"domain": "d4"}), Score: 0.33},
	}
	buckets := ClusterByTags(scored, false)
	require.Len(t, buckets, 4)

	options := BuildOptions(buckets, scored, 4, 3)
	assert.Len(t, options, 3)
}

func TestDeduplicateOptions(t *testing.T) {
	options := []Option{
		{ID: 1, Sources: []SourceRef{{Filename: "a.pdf", Page: "1"}, {Filename: "b.pdf", Page: "2"}}},
		{ID: 2, Sources: []SourceRef{{Filename: "b.pdf", Page: "2"}, {Filename: "a.pdf", Page: "1"}}},
		{ID: 3, Sources: []SourceRef{{Filename: "c.pdf", Page: "9"}}},
	}

	out := DeduplicateOptions(options)
	require.Len(t, out, 2)
	// Survivors are renumbered contiguously.
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, 2, out[1].ID)
	assert.Equal(t, "c.pdf", out[1].Sources[0].Filename)
}

func TestSelectDistinctDocs_Phases(t *testing.T) {
	anchor := newDoc("anchor", "a.pdf", 1, nil)

	t.Run("falls back to same page different file", func(t *testing.T) {
		candidates := []Document{
			newDoc("same page other file", "b.pdf", 1, nil),
		}
		picked := selectDistinctDocs(anchor, candidates, 2)
		// Phase 0 skips it (page seen), phase 1 admits it (new file).
		require.Len(t, picked, 1)
		assert.Equal(t, "same page other file", picked[0].Content)
	})

	t.Run("unconditional phase drains leftovers", func(t *testing.T) {
		candidates := []Document{
			newDoc("same file same page twin", "a.pdf", 2, nil),
			newDoc("second twin", "a.pdf", 3, nil),
		}
		picked := selectDistinctDocs(anchor, candidates, 2)
		assert.Len(t, picked, 2)
	})

	t.Run("never picks one chunk twice", func(t *testing.T) {
		dup := newDoc("dup", "b.pdf", 7, nil)
		picked := selectDistinctDocs(anchor, []Document{dup, dup, dup}, 3)
		assert.Len(t, picked, 1)
	})

	t.Run("zero need picks nothing", func(t *testing.T) {
		assert.Nil(t, selectDistinctDocs(anchor, []Document{newDoc("x", "b.pdf", 1, nil)}, 0))
	})
}
