package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/smallnest/raggate/retrieval"
)

// Store is the full surface of a vector document store: the read side the
// pipeline searches through plus the write side ingestion fills.
type Store interface {
	retrieval.VectorIndex

	// Add persists documents with their precomputed embeddings, 1:1 by
	// position.
	Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error
}

// Entry pairs a stored document with its embedding. Backends that scan in
// process load entries and hand them to Rank.
type Entry struct {
	Doc    retrieval.Document
	Vector []float32
}

// L2Distance returns the Euclidean distance between two vectors, or +Inf
// when the dimensions differ.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Rank scores entries against the query vector and returns the k nearest,
// ascending by L2 distance. Entries whose dimensions do not match the
// query are skipped.
func Rank(query []float32, entries []Entry, k int) []retrieval.ScoredDocument {
	if k <= 0 {
		return nil
	}
	scored := make([]retrieval.ScoredDocument, 0, len(entries))
	for _, e := range entries {
		dist := L2Distance(query, e.Vector)
		if math.IsInf(dist, 1) {
			continue
		}
		scored = append(scored, retrieval.ScoredDocument{Doc: e.Doc, Score: dist})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// EncodeVector packs a vector as little-endian float32 bytes for BLOB
// columns.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks a little-endian float32 BLOB produced by
// EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("store: malformed vector blob: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
