package retrieval

import (
	"fmt"
	"strings"
)

// Signature identifies a tag bucket by its normalized catalog tags. With
// strict clustering disabled only the core fields (domain, doc_type,
// product) are populated, so variants of one product cluster together.
type Signature struct {
	Domain  string
	DocType string
	Product string
	Vendor  string
	Version string
}

// SignatureFromMetadata builds the bucket signature for document metadata.
func SignatureFromMetadata(meta map[string]any, strict bool) Signature {
	sig := Signature{
		Domain:  normTag(meta["domain"]),
		DocType: normTag(meta["doc_type"]),
		Product: normTag(meta["product"]),
	}
	if strict {
		sig.Vendor = normTag(meta["vendor"])
		sig.Version = normTag(meta["version"])
	}
	return sig
}

// FileSignature is the fallback signature for untagged documents, keyed by
// source file so they still form per-file buckets.
func FileSignature(doc Document) Signature {
	name := doc.SourceName()
	if name == "" {
		name = "unknown"
	}
	return Signature{Domain: "__file__:" + name}
}

// IsZero reports whether every tag field is empty.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Render flattens the signature into embeddable text, for example
// "domain: iot; doc_type: spec; product: mqtt".
func (s Signature) Render() string {
	parts := make([]string, 0, 5)
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+": "+value)
		}
	}
	add("domain", s.Domain)
	add("doc_type", s.DocType)
	add("product", s.Product)
	add("vendor", s.Vendor)
	add("version", s.Version)
	if len(parts) == 0 {
		return "signature: unknown"
	}
	return strings.Join(parts, "; ")
}

func normTag(v any) string {
	if v == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
}

// docKey identifies a chunk by (filename, page) for dedupe purposes.
type docKey struct {
	file string
	page string
}

func keyOf(doc Document) docKey {
	return docKey{file: doc.SourceName(), page: doc.PageLabel()}
}
