package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// tagKeys are the metadata keys a catalog rule may set. They are the
// fields the tag clusterer builds signatures from.
var tagKeys = []string{"domain", "doc_type", "vendor", "product", "version"}

// CatalogMatch selects files either by exact base filename or by a
// case-insensitive regular expression over the base filename. Exact match
// wins when both are set.
type CatalogMatch struct {
	Filename      string `json:"filename,omitempty"`
	FilenameRegex string `json:"filename_regex,omitempty"`
}

// CatalogRule pairs a file matcher with the tags it assigns.
type CatalogRule struct {
	Match CatalogMatch      `json:"match"`
	Tags  map[string]string `json:"tags"`
}

type compiledRule struct {
	filename string
	re       *regexp.Regexp
	tags     map[string]string
}

// Catalog resolves per-file document tags from a rule registry. The first
// matching rule wins.
type Catalog struct {
	rules []compiledRule
}

// NewCatalog compiles a rule list. Invalid filename regexps fail here,
// not at ingest time.
func NewCatalog(rules []CatalogRule) (*Catalog, error) {
	c := &Catalog{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		cr := compiledRule{
			filename: rule.Match.Filename,
			tags:     normalizeTags(rule.Tags),
		}
		if rule.Match.Filename == "" && rule.Match.FilenameRegex != "" {
			re, err := regexp.Compile("(?i)" + rule.Match.FilenameRegex)
			if err != nil {
				return nil, fmt.Errorf("catalog rule %d: %w", i, err)
			}
			cr.re = re
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// LoadCatalog reads a JSON registry of the form
//
//	{"rules": [{"match": {"filename": "mqtt-v3.1.1-os.pdf"},
//	            "tags": {"domain": "mqtt", "doc_type": "spec"}}]}
//
// and compiles it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file struct {
		Rules []CatalogRule `json:"rules"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return NewCatalog(file.Rules)
}

// Resolve returns the tags for the given source path, or nil when no rule
// matches. A nil catalog resolves nothing.
func (c *Catalog) Resolve(source string) map[string]string {
	if c == nil {
		return nil
	}
	filename := filepath.Base(source)
	for _, rule := range c.rules {
		if rule.filename != "" {
			if rule.filename == filename {
				return rule.tags
			}
			continue
		}
		if rule.re != nil && rule.re.MatchString(filename) {
			return rule.tags
		}
	}
	return nil
}

// Enrich fills the document's metadata with catalog tags for its source.
// Keys already present win over the catalog.
func (c *Catalog) Enrich(source string, meta map[string]any) map[string]any {
	tags := c.Resolve(source)
	if len(tags) == 0 {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any, len(tags))
	}
	for key, value := range tags {
		if _, ok := meta[key]; !ok {
			meta[key] = value
		}
	}
	return meta
}

// normalizeTags keeps only the known tag keys, trimmed and lowercased.
func normalizeTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for _, key := range tagKeys {
		if v, ok := tags[key]; ok {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				out[key] = v
			}
		}
	}
	return out
}
