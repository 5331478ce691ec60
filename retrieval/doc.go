// Package retrieval implements the decision core of raggate: the stages
// that turn raw nearest-neighbor search results into one of three outcomes.
//
// A query flows through:
//
//	OODGate        domain allow/deny filtering on the raw query
//	Retriever      similarity search plus the GateEngine distance gates
//	TagClusterer   signature bucketing of gate survivors (ClusterByTags)
//	AmbiguityResolver
//	               entity evidence, group gap, and embedding tie-breaks
//	CoverageGate   compare/broad queries must cite every named entity
//	EntityAugmenter
//	               top up citations to cover query entities
//
// Every stage receives State by value and returns an updated copy, so a
// pipeline invocation is a sequence of pure transformations and concurrent
// queries never share mutable state. Refusals are uniform: Status turns to
// StatusRefuse, documents are dropped, and RefusalReason carries one of the
// fixed reason strings that callers match on.
//
// When the distance gate cannot separate the top candidates and the
// resolver cannot either, the stages fail open: the caller receives
// StatusAmbiguous with up to max_options disjoint interpretations and picks
// one on a follow-up request (ResolveSelection).
package retrieval
