package retrieval

import (
	"sort"
)

// Bucket is one signature cluster of gate survivors. Docs keep their
// ascending distance order, so Docs[0] is the bucket anchor.
type Bucket struct {
	Signature Signature
	Docs      []ScoredDocument
}

// Anchor returns the bucket's closest document.
func (b Bucket) Anchor() ScoredDocument {
	return b.Docs[0]
}

// Best returns the bucket's best (lowest) distance.
func (b Bucket) Best() float64 {
	return b.Docs[0].Score
}

// TopDocs returns up to k documents from the bucket in distance order.
// Non-positive k returns them all.
func (b Bucket) TopDocs(k int) []Document {
	n := len(b.Docs)
	if k > 0 && k < n {
		n = k
	}
	docs := make([]Document, 0, n)
	for _, sd := range b.Docs[:n] {
		docs = append(docs, sd.Doc)
	}
	return docs
}

// EntitySet returns the union of entity tags across the bucket's documents.
func (b Bucket) EntitySet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, sd := range b.Docs {
		for _, e := range sd.Doc.Entities() {
			set[e] = struct{}{}
		}
	}
	return set
}

// ClusterByTags groups candidates by tag signature. Documents without any
// catalog tags fall back to a per-file signature so they still cluster.
// Buckets come back ordered by best distance; insertion order breaks ties.
func ClusterByTags(scored []ScoredDocument, strict bool) []Bucket {
	index := make(map[Signature]int, len(scored))
	buckets := make([]Bucket, 0, len(scored))
	for _, sd := range scored {
		sig := SignatureFromMetadata(sd.Doc.Metadata, strict)
		if sig.IsZero() {
			sig = FileSignature(sd.Doc)
		}
		i, ok := index[sig]
		if !ok {
			i = len(buckets)
			index[sig] = i
			buckets = append(buckets, Bucket{Signature: sig})
		}
		buckets[i].Docs = append(buckets[i].Docs, sd)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Best() < buckets[j].Best()
	})
	return buckets
}
