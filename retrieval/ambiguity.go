package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/smallnest/raggate/log"
)

// AmbiguityConfig controls how bucket-level ambiguity is resolved.
type AmbiguityConfig struct {
	// MaxOptions caps how many buckets are offered when resolution fails.
	MaxOptions int
	// StrictSignature clusters on the full five-field signature instead
	// of the core (domain, doc_type, product) triple.
	StrictSignature bool
	// MinGroupGap is the best-distance lead the closest bucket needs to
	// win outright. Zero disables the group gap rule.
	MinGroupGap float64

	// EnableEntityResolve turns on entity-evidence resolution.
	EnableEntityResolve bool
	// RequireFullEntityCoverage refuses to auto-resolve unless one bucket
	// mentions every entity found in the query.
	RequireFullEntityCoverage bool

	// KeepAmbiguousForGeneric forces options for overview-style queries
	// that name no concrete facet.
	KeepAmbiguousForGeneric bool
	// GenericQuery and FacetQuery classify overview-style queries.
	GenericQuery []*Pattern
	FacetQuery   []*Pattern

	// EnableSignatureTieBreak compares the query against rendered bucket
	// signatures by embedding similarity.
	EnableSignatureTieBreak bool
	MinSignatureSim         float64
	MinSignatureSimGap      float64

	// EnableAnchorTieBreak compares the query against each bucket's
	// anchor content by embedding similarity.
	EnableAnchorTieBreak bool
	MinAnchorSim         float64
	MinAnchorSimGap      float64
	// AnchorClipChars bounds how much anchor content is embedded.
	AnchorClipChars int
}

// ResolveResult reports whether disambiguation succeeded. When it did not,
// Buckets carries the (possibly narrowed) bucket set to offer as options.
type ResolveResult struct {
	Resolved bool
	Docs     []Document
	Buckets  []Bucket
}

// AmbiguityResolver decides between competing tag buckets when the distance
// gate could not. It tries, in order: the generic-query guard, entity
// evidence, the group distance gap, signature-embedding similarity, and
// anchor-content similarity. Whatever stays unresolved becomes options.
type AmbiguityResolver struct {
	cfg       AmbiguityConfig
	extractor *EntityExtractor
	embedder  Embedder
	sigCache  *sigVectorCache
	logger    log.Logger
}

// NewAmbiguityResolver creates a resolver. The extractor may be nil when no
// entity table is configured; the embedder may be nil, which disables the
// similarity tie-breakers.
func NewAmbiguityResolver(cfg AmbiguityConfig, extractor *EntityExtractor, embedder Embedder, logger log.Logger) *AmbiguityResolver {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &AmbiguityResolver{
		cfg:       cfg,
		extractor: extractor,
		embedder:  embedder,
		sigCache:  newSigVectorCache(),
		logger:    logger,
	}
}

// Resolve attempts to pick one bucket for the query. finalK bounds how many
// documents a resolved bucket contributes.
func (r *AmbiguityResolver) Resolve(ctx context.Context, query string, buckets []Bucket, finalK int) ResolveResult {
	if len(buckets) == 0 {
		return ResolveResult{Buckets: buckets}
	}

	overview := r.isOverviewQuery(query)
	if r.cfg.KeepAmbiguousForGeneric && overview && len(buckets) >= 2 {
		r.logger.Debug("generic query kept ambiguous across %d buckets", len(buckets))
		return ResolveResult{Buckets: buckets}
	}

	if len(buckets) == 1 {
		return resolvedBucket(buckets[0], finalK)
	}

	queryEntities := r.extractor.Extract(query)
	if overview && len(queryEntities) == 0 {
		r.logger.Debug("generic query without entity mentions kept ambiguous")
		return ResolveResult{Buckets: buckets}
	}

	if r.cfg.EnableEntityResolve && len(queryEntities) > 0 {
		winner, narrowed := r.resolveByEntities(queryEntities, buckets)
		if winner != nil {
			r.logger.Debug("entity evidence chose bucket %q", winner.Signature.Render())
			return resolvedBucket(*winner, finalK)
		}
		buckets = narrowed
	}

	if r.cfg.MinGroupGap > 0 && len(buckets) >= 2 {
		gap := buckets[1].Best() - buckets[0].Best()
		if gap >= r.cfg.MinGroupGap {
			r.logger.Debug("bucket gap %.4f clears %.4f, taking closest bucket", gap, r.cfg.MinGroupGap)
			return resolvedBucket(buckets[0], finalK)
		}
	}

	if r.cfg.EnableSignatureTieBreak && r.embedder != nil {
		sigs := make([]Signature, len(buckets))
		for i, b := range buckets {
			sigs[i] = b.Signature
		}
		pick, err := pickBySignature(ctx, r.embedder, r.sigCache, query, sigs, r.cfg.MinSignatureSim, r.cfg.MinSignatureSimGap)
		if err != nil {
			r.logger.Warn("signature tie-break skipped: %v", err)
		} else if pick != nil {
			r.logger.Debug("signature tie-break chose %q (sim %.3f over %.3f)",
				sigs[pick.index].Render(), pick.bestSim, pick.secondSim)
			return resolvedBucket(buckets[pick.index], finalK)
		}
	}

	if r.cfg.EnableAnchorTieBreak && r.embedder != nil {
		anchors := make([]string, len(buckets))
		for i, b := range buckets {
			anchors[i] = b.Anchor().Doc.Content
		}
		pick, err := pickByAnchor(ctx, r.embedder, query, anchors, r.cfg.AnchorClipChars, r.cfg.MinAnchorSim, r.cfg.MinAnchorSimGap)
		if err != nil {
			r.logger.Warn("anchor tie-break skipped: %v", err)
		} else if pick != nil {
			r.logger.Debug("anchor tie-break chose bucket %d (sim %.3f over %.3f)",
				pick.index, pick.bestSim, pick.secondSim)
			return resolvedBucket(buckets[pick.index], finalK)
		}
	}

	return ResolveResult{Buckets: buckets}
}

// isOverviewQuery reports whether the query asks for an overview (matches a
// generic pattern) without naming a concrete facet.
func (r *AmbiguityResolver) isOverviewQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if !anyPatternMatches(r.cfg.GenericQuery, q) {
		return false
	}
	return !anyPatternMatches(r.cfg.FacetQuery, q)
}

// bucketEntityRank is the per-bucket entity evidence used to rank buckets:
// how many query entities the bucket covers, how many its anchor covers,
// how many of its docs mention any, and how broad its entity set is.
type bucketEntityRank struct {
	bucket     Bucket
	hits       int
	anchorHits int
	docsHits   int
	groupHits  int
	best       float64
}

func rankBefore(a, b bucketEntityRank) bool {
	if a.anchorHits != b.anchorHits {
		return a.anchorHits > b.anchorHits
	}
	if a.docsHits != b.docsHits {
		return a.docsHits > b.docsHits
	}
	if a.groupHits != b.groupHits {
		return a.groupHits > b.groupHits
	}
	return a.best < b.best
}

func rankEqual(a, b bucketEntityRank) bool {
	return a.anchorHits == b.anchorHits &&
		a.docsHits == b.docsHits &&
		a.groupHits == b.groupHits &&
		a.best == b.best
}

// resolveByEntities picks the bucket with the most query-entity coverage.
// Entity hit count beats distance outright: a farther bucket covering two
// query entities wins over a closer one covering one. Returns either the
// winning bucket or the narrowed set of buckets still tied for the lead.
func (r *AmbiguityResolver) resolveByEntities(queryEntities []string, buckets []Bucket) (*Bucket, []Bucket) {
	qset := make(map[string]struct{}, len(queryEntities))
	for _, e := range queryEntities {
		qset[e] = struct{}{}
	}

	ranks := make([]bucketEntityRank, 0, len(buckets))
	maxHits := 0
	for _, b := range buckets {
		union := b.EntitySet()
		rank := bucketEntityRank{bucket: b, groupHits: len(union), best: b.Best()}
		for e := range qset {
			if _, ok := union[e]; ok {
				rank.hits++
			}
		}
		for _, e := range b.Anchor().Doc.Entities() {
			if _, ok := qset[e]; ok {
				rank.anchorHits++
			}
		}
		for _, sd := range b.Docs {
			for _, e := range sd.Doc.Entities() {
				if _, ok := qset[e]; ok {
					rank.docsHits++
					break
				}
			}
		}
		ranks = append(ranks, rank)
		if rank.hits > maxHits {
			maxHits = rank.hits
		}
	}

	if maxHits == 0 {
		return nil, buckets
	}
	if r.cfg.RequireFullEntityCoverage && maxHits < len(qset) {
		r.logger.Debug("entity resolve needs %d entities, best bucket covers %d", len(qset), maxHits)
		return nil, buckets
	}

	winners := make([]bucketEntityRank, 0, len(ranks))
	for _, rank := range ranks {
		if rank.hits == maxHits {
			winners = append(winners, rank)
		}
	}
	if len(winners) == 1 {
		return &winners[0].bucket, buckets
	}

	sort.SliceStable(winners, func(i, j int) bool {
		return rankBefore(winners[i], winners[j])
	})
	if !rankEqual(winners[0], winners[1]) {
		return &winners[0].bucket, buckets
	}

	// Several buckets remain tied on every criterion. Narrow to them,
	// preserving the original distance order, and let later stages decide.
	tied := make(map[Signature]struct{}, len(winners))
	for _, w := range winners {
		if rankEqual(w, winners[0]) {
			tied[w.bucket.Signature] = struct{}{}
		}
	}
	narrowed := make([]Bucket, 0, len(tied))
	for _, b := range buckets {
		if _, ok := tied[b.Signature]; ok {
			narrowed = append(narrowed, b)
		}
	}
	r.logger.Debug("entity evidence narrowed %d buckets to %d", len(buckets), len(narrowed))
	return nil, narrowed
}

func resolvedBucket(b Bucket, finalK int) ResolveResult {
	return ResolveResult{Resolved: true, Docs: b.TopDocs(finalK)}
}
