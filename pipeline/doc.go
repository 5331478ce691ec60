// Package pipeline compiles the retrieval stages into one ask workflow.
//
// A Pipeline is a typed stage graph over retrieval.State: normalize feeds
// either the selection resolver (when the caller answers an ambiguous
// outcome) or the OOD gate and retriever, and both paths converge on the
// coverage gate, the entity augmenter, answer policy, context assembly and
// generation. The graph is compiled once in New and shared by all calls;
// every Invoke threads its own State value through it, so concurrent
// queries never share mutable state.
//
// Invoke never leaks backend errors: cancellations, panics and generation
// failures all come back as refusals inside the Outcome, each with its own
// fixed reason string. The error return is reserved for wiring mistakes.
//
//	p, err := pipeline.New(pipeline.Options{
//		Index:     index,
//		Retrieval: retrieval.RetrieverConfig{ /* gates and knobs */ },
//	})
//	if err != nil {
//		// bad wiring, not a query failure
//	}
//	outcome, _ := p.Invoke(ctx, retrieval.Request{Input: "what does qos 1 guarantee?"})
//	if outcome.Status == retrieval.StatusAmbiguous {
//		// render outcome.Options, then re-Invoke with SelectedOption set
//	}
package pipeline
