package ingest

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

var frontMatterRe = regexp.MustCompile(`(?s)\A---\s*\n.*?\n---\s*\n`)

// SupportedFile reports whether the ingestor has a loader for the file.
func SupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md", ".markdown", ".html", ".htm", ".pdf":
		return true
	}
	return false
}

// loadFile reads one file into page-level documents. Every document gets
// metadata["source"]; PDFs also get the loader's page numbers.
func loadFile(ctx context.Context, path string) ([]schema.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return loadText(ctx, path)
	case ".md", ".markdown":
		return loadMarkdown(path)
	case ".html", ".htm":
		return loadHTML(path)
	case ".pdf":
		return loadPDF(ctx, path)
	}
	return nil, fmt.Errorf("unsupported file type: %s", path)
}

func loadText(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return withSource(docs, path), nil
}

// loadMarkdown renders the markdown to HTML and strips the tags, so the
// indexed text is what a reader sees: no #, *, or link syntax. YAML front
// matter is dropped first.
func loadMarkdown(path string) ([]schema.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := frontMatterRe.ReplaceAllString(string(raw), "")

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.Render(p.Parse([]byte(text)), renderer)

	stripped := bluemonday.StrictPolicy().SanitizeBytes(rendered)
	content := normalizeLines(html.UnescapeString(string(stripped)))

	doc := schema.Document{
		PageContent: content,
		Metadata:    map[string]any{"source": path},
	}
	return []schema.Document{doc}, nil
}

// loadHTML extracts readable text from the page's main content region,
// preferring <main>, then <article>, then <body>.
func loadHTML(path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	page, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	page.Find("script, style, noscript, svg").Remove()

	region := page.Find("main")
	if region.Length() == 0 {
		region = page.Find("article")
	}
	if region.Length() == 0 {
		region = page.Find("body")
	}
	var text string
	if region.Length() > 0 {
		text = region.Text()
	} else {
		text = page.Text()
	}

	meta := map[string]any{"source": path}
	if title := strings.TrimSpace(page.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}

	doc := schema.Document{
		PageContent: normalizeLines(text),
		Metadata:    meta,
	}
	return []schema.Document{doc}, nil
}

func loadPDF(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	docs, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return withSource(docs, path), nil
}

func withSource(docs []schema.Document, path string) []schema.Document {
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any, 1)
		}
		if _, ok := docs[i].Metadata["source"]; !ok {
			docs[i].Metadata["source"] = path
		}
	}
	return docs
}

// normalizeLines trims every line and drops the empty ones, keeping one
// line per block of extracted text.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
