// Package ingest builds the document corpus a retrieval pipeline searches:
// it loads source files, splits them into overlapping chunks, cleans the
// text, attaches catalog tags and entity tags, embeds the chunks, and
// writes them to a vector store.
//
// # Key Features
//
//   - Loaders for plain text, Markdown, HTML, and PDF files. Markdown is
//     rendered and stripped so the indexed text reads like prose, not
//     syntax; HTML keeps only the main content region and drops scripts.
//   - Recursive character splitting with configurable size and overlap.
//   - Text cleanup: BOM removal, control characters squashed, whitespace
//     collapsed, sub-minimum chunks dropped.
//   - Catalog tagging: a JSON rule registry maps filenames to document
//     tags (domain, doc_type, vendor, product, version) that downstream
//     disambiguation groups on.
//   - Entity tagging: regex rule sets mark each chunk with the entities
//     it evidences, gated by a minimum number of distinct pattern hits.
//   - Batched embedding and writes through any store in store/.
//
// # Basic Usage
//
//	emb, _ := embedding.NewOpenAI(embedding.OpenAIOptions{APIKey: key})
//	vs, _ := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{Path: "corpus.db"}, emb)
//
//	catalog, _ := ingest.LoadCatalog("catalog.json")
//	in, _ := ingest.New(vs, emb, ingest.Options{Catalog: catalog})
//
//	stats, err := in.Build(ctx, "./docs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d files, %d chunks\n", stats.Files, stats.Chunks)
//
// # Metadata Contract
//
// Every stored chunk carries metadata["source"] (the file it came from)
// and metadata["entities"] (the sorted entity tags, possibly empty).
// PDF chunks also carry the loader's page numbers, HTML chunks the page
// title, and catalog-matched files their rule's tags. Metadata already
// present on a chunk always wins over catalog tags.
package ingest
