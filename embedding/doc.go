// Package embedding provides retrieval.Embedder implementations.
//
// LangChain adapts any langchaingo embedder, OpenAI talks to the OpenAI
// embeddings API directly, Hash is a deterministic offline fallback for
// tests and examples, and Cached decorates any of them with an
// (identity, text)-keyed vector cache. Every implementation carries an
// Identity tag so caches never mix vectors from different models.
package embedding
