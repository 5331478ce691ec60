package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/smallnest/raggate/log"
	"github.com/smallnest/raggate/retrieval"
)

// Writer is the store-side surface ingestion fills. Every vector store in
// store/ satisfies it.
type Writer interface {
	Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error
}

// Options tunes the ingestion pipeline. Zero values fall back to the
// defaults noted on each field.
type Options struct {
	// ChunkSize and ChunkOverlap feed the recursive character splitter.
	// Defaults 500 / 100.
	ChunkSize    int
	ChunkOverlap int
	// MinChunkChars drops cleaned chunks shorter than this. Default 20.
	MinChunkChars int
	// BatchSize bounds how many chunks are embedded and written per
	// round trip. Default 64.
	BatchSize int
	// Catalog assigns per-file tags (domain, doc_type, ...). Optional.
	Catalog *Catalog
	// EntityRules tag chunks with the entities they evidence. Optional.
	EntityRules []EntityRule
	Logger      log.Logger
}

const (
	defaultChunkSize     = 500
	defaultChunkOverlap  = 100
	defaultMinChunkChars = 20
	defaultBatchSize     = 64
)

// Stats summarizes one ingestion run.
type Stats struct {
	// Files is the number of source files loaded.
	Files int
	// Pages is the number of page-level documents the loaders produced.
	Pages int
	// Chunks is the number of cleaned chunks embedded and stored.
	Chunks int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Pages += o.Pages
	s.Chunks += o.Chunks
}

// Ingestor turns raw corpus files into embedded, tagged chunks in a
// vector store: load, split, clean, tag, embed, write.
type Ingestor struct {
	writer   Writer
	embedder retrieval.Embedder
	splitter textsplitter.TextSplitter
	opts     Options
	logger   log.Logger
}

// New validates the options and builds the ingestor.
func New(writer Writer, embedder retrieval.Embedder, opts Options) (*Ingestor, error) {
	if writer == nil {
		return nil, errors.New("ingest: writer is required")
	}
	if embedder == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = defaultChunkOverlap
	}
	if opts.ChunkOverlap >= opts.ChunkSize {
		return nil, fmt.Errorf("ingest: chunk overlap %d must be smaller than chunk size %d", opts.ChunkOverlap, opts.ChunkSize)
	}
	if opts.MinChunkChars <= 0 {
		opts.MinChunkChars = defaultMinChunkChars
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = &log.NoOpLogger{}
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)

	return &Ingestor{
		writer:   writer,
		embedder: embedder,
		splitter: splitter,
		opts:     opts,
		logger:   opts.Logger,
	}, nil
}

// Build ingests every supported file under dir, walking subdirectories in
// lexical order. It fails if the directory holds no supported files.
func (in *Ingestor) Build(ctx context.Context, dir string) (Stats, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if SupportedFile(path) {
			paths = append(paths, path)
		} else {
			in.logger.Debug("skipping unsupported file %s", path)
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return Stats{}, fmt.Errorf("no supported documents found in %s", dir)
	}
	sort.Strings(paths)

	return in.AddFiles(ctx, paths...)
}

// AddFiles ingests the given files in order.
func (in *Ingestor) AddFiles(ctx context.Context, paths ...string) (Stats, error) {
	var total Stats
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		stats, err := in.addFile(ctx, path)
		if err != nil {
			return total, err
		}
		total.add(stats)
	}
	in.logger.Info("ingested %d files: %d pages, %d chunks", total.Files, total.Pages, total.Chunks)
	return total, nil
}

func (in *Ingestor) addFile(ctx context.Context, path string) (Stats, error) {
	loaded, err := loadFile(ctx, path)
	if err != nil {
		return Stats{}, err
	}

	split, err := textsplitter.SplitDocuments(in.splitter, loaded)
	if err != nil {
		return Stats{}, fmt.Errorf("split %s: %w", path, err)
	}

	chunks := in.prepare(split)
	in.logger.Debug("%s: %d pages, %d chunks", filepath.Base(path), len(loaded), len(chunks))

	if err := in.store(ctx, chunks); err != nil {
		return Stats{}, err
	}
	return Stats{Files: 1, Pages: len(loaded), Chunks: len(chunks)}, nil
}

// prepare cleans, filters, tags, and converts split chunks.
func (in *Ingestor) prepare(split []schema.Document) []retrieval.Document {
	chunks := make([]retrieval.Document, 0, len(split))
	for _, sd := range split {
		content := CleanText(sd.PageContent)
		if len(content) < in.opts.MinChunkChars {
			continue
		}

		meta := make(map[string]any, len(sd.Metadata)+2)
		for k, v := range sd.Metadata {
			meta[k] = v
		}
		if source, _ := meta["source"].(string); source != "" {
			meta = in.opts.Catalog.Enrich(source, meta)
		}

		chunks = append(chunks, retrieval.Document{Content: content, Metadata: meta})
	}
	TagEntities(chunks, in.opts.EntityRules)
	return chunks
}

func (in *Ingestor) store(ctx context.Context, chunks []retrieval.Document) error {
	for start := 0; start < len(chunks); start += in.opts.BatchSize {
		end := start + in.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := in.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if err := in.writer.Add(ctx, batch, vectors); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
	}
	return nil
}

// CleanText normalizes chunk text for embedding stability: drops BOMs,
// turns control characters into spaces, and collapses all whitespace
// runs to single spaces.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\uFEFF':
			return -1
		case r == 0x7F, r < 0x20 && r != '\t' && r != '\n' && r != '\r':
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
