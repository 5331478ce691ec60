package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/raggate/ingest"
)

var corpusDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector store from a document corpus",
	Long: `Walks the corpus directory, splits every supported document (.pdf,
.md, .txt, .html) into chunks, embeds them and writes them to the
configured store.

Example:
  raggate ingest --corpus ./docs`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&corpusDir, "corpus", "", "Directory of source documents (required)")
	_ = ingestCmd.MarkFlagRequired("corpus")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var catalog *ingest.Catalog
	if path := a.cfg.Catalog.Path; path != "" {
		catalog, err = ingest.LoadCatalog(path)
		if err != nil {
			return err
		}
	}

	ing, err := ingest.New(a.store, a.embedder, ingest.Options{
		ChunkSize:     a.cfg.Splitter.ChunkSize,
		ChunkOverlap:  a.cfg.Splitter.ChunkOverlap,
		MinChunkChars: a.cfg.Splitter.MinChunkChars,
		BatchSize:     a.cfg.Embedding.BatchSize,
		Catalog:       catalog,
		EntityRules:   a.rt.DocRules,
		Logger:        a.logger,
	})
	if err != nil {
		return err
	}

	stats, err := ing.Build(ctx, corpusDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d files (%d pages) into %d chunks.\n",
		stats.Files, stats.Pages, stats.Chunks)
	return nil
}
