// Raggate - Gated Retrieval Question Answering in Go
//
// Raggate answers questions strictly from an ingested document corpus. Where
// a plain RAG chain always stuffs the top-k chunks into a prompt, raggate
// puts gates in front of generation: out-of-domain questions are refused
// before any vector search runs, weak retrieval results are refused instead
// of hallucinated over, and questions that match several distinct documents
// come back as explicit options for the caller to choose from.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/raggate
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/raggate/config"
//		"github.com/smallnest/raggate/embedding"
//		"github.com/smallnest/raggate/pipeline"
//		"github.com/smallnest/raggate/retrieval"
//		"github.com/smallnest/raggate/store/memory"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		embedder := embedding.NewHash(256)
//		vectorStore, _ := memory.NewMemoryVectorStore(embedder)
//
//		rt, _ := config.DefaultConfig().Build()
//		p, _ := pipeline.New(pipeline.Options{
//			Index:            vectorStore,
//			Retrieval:        rt.Retrieval,
//			OOD:              rt.OOD,
//			Coverage:         rt.Coverage,
//			Aliases:          rt.Aliases,
//			Embedder:         embedder,
//			MaxCharsPerChunk: rt.MaxCharsPerChunk,
//		})
//
//		outcome, _ := p.Invoke(ctx, retrieval.Request{Input: "How do MQTT QoS levels work?"})
//		fmt.Println(outcome.Status, outcome.Answer)
//	}
//
// # Key Features
//
//   - Domain Gating: Regex allow/deny lists refuse off-topic questions before retrieval
//   - Distance Gating: L2 thresholds and relative-gap cuts turn weak matches into refusals
//   - Ambiguity Resolution: Multi-document hits become selectable options instead of blended answers
//   - Coverage Gating: Comparison questions must retrieve every entity they name
//   - Grounded Citations: Every answer carries (filename, page) source references
//   - Pluggable Stores: In-memory, SQLite, Postgres/pgvector and Redis backends
//   - Optional Generation: Wire an LLM for written answers, or run retrieval-only
//   - Evaluation Harness: JSONL case suites with status, citation and hygiene checks
//
// # Outcome Statuses
//
// Every Invoke resolves to one of three statuses:
//
//   - ok: documents passed the gates; Answer and Sources are populated
//   - refuse: the pipeline declined; RefusalReason says why and no sources leak
//   - ambiguous: the hits split across distinct documents; Options lists them
//
// An ambiguous outcome is resolved by re-invoking with the chosen option and
// the options from the first pass:
//
//	outcome, _ := p.Invoke(ctx, retrieval.Request{Input: question})
//	if outcome.Status == retrieval.StatusAmbiguous {
//		outcome, _ = p.Invoke(ctx, retrieval.Request{
//			Input:          question,
//			SelectedOption: outcome.Options[0].ID,
//			Options:        outcome.Options,
//		})
//	}
//
// # Package Structure
//
// retrieval/
// The gate and resolver stages plus the shared document model
//
//	// Compile the domain gate and run one query state through it
//	gate := retrieval.NewOODGate(oodConfig, logger)
//	state = gate.Check(state)
//
// pipeline/
// Wires the stages into one runnable pipeline
//
//	p, _ := pipeline.New(pipeline.Options{Index: store, Retrieval: cfg, ...})
//	outcome, _ := p.Invoke(ctx, retrieval.Request{Input: question})
//
// store/
// Vector store backends behind one Store interface
//
// Options:
//   - memory: exact in-process scan, right for tests and small corpora
//   - sqlite: single-file persistence, vectors scanned in process
//   - pgvector: Postgres with native vector indexing
//   - redis: key-prefixed document hashes with in-process ranking
//
// Example:
//
//	vectorStore, _ := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//		Path: "./raggate.db",
//	}, embedder)
//
// embedding/
// Embedder implementations
//
// Options:
//   - OpenAI: the embeddings API, any text-embedding-* model
//   - LangChain: adapter over langchaingo embedders (Ollama, HuggingFace, ...)
//   - Hash: deterministic token hashing, no network, for tests and examples
//   - Cached: memoizing wrapper around any of the above
//
// ingest/
// Corpus loading, splitting, tagging and indexing
//
//	ing, _ := ingest.New(vectorStore, embedder, ingest.Options{
//		ChunkSize:    500,
//		ChunkOverlap: 100,
//	})
//	stats, _ := ing.Build(ctx, "./docs")
//
// generate/
// Answer generation over the retrieved context via langchaingo models
//
//	model, _ := ollama.New(ollama.WithModel("llama3"))
//	gen, _ := generate.NewLangChainModel(model, logger)
//
// eval/
// Regression harness that replays JSONL cases through the pipeline
//
//	cases, _ := eval.LoadCases("cases.jsonl")
//	runner, _ := eval.NewRunner(p, eval.Options{})
//	results, _ := runner.Run(ctx, cases)
//	fmt.Print(eval.FormatReport(results))
//
// config/
// YAML configuration with compiled runtime form
//
//	cfg, _ := config.Load("raggate.yaml")
//	rt, _ := cfg.Build()
//
// log/
// Logging facade with a kataras/golog backend
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.ParseLevel("debug"))
//
// # Command Line
//
// cmd/raggate ships a CLI over the same components:
//
//	raggate ingest --corpus ./docs       # build the vector store
//	raggate ask "How do MQTT QoS levels work?"
//	raggate chat                         # interactive loop with option selection
//	raggate eval --cases cases.jsonl     # replay a QA regression suite
//
// # Configuration
//
// The library reads configuration from raggate.yaml plus environment
// variables:
//
//   - OPENAI_API_KEY: API key for embeddings and generation
//   - OLLAMA_HOST: Ollama server URL for local generation
//   - RAGGATE_DB: SQLite database path override
//   - RAGGATE_REDIS_ADDR: Redis address override
//
// # Community and Support
//
//   - GitHub: https://github.com/smallnest/raggate
//   - Documentation: https://pkg.go.dev/github.com/smallnest/raggate
//   - Examples: ./examples directory
//   - Issues: Report bugs and request features on GitHub
//
// # License
//
// This project is licensed under the MIT License - see the LICENSE file for details.
package raggate // import "github.com/smallnest/raggate"
