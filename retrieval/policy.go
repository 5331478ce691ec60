package retrieval

// ApplyAnswerPolicy normalizes terminal state before formatting. Refusals
// get the canned refusal text, pending selections get the choose-an-option
// prompt, and an ok state that somehow lost its documents is downgraded to
// a refusal instead of generating from empty context.
func ApplyAnswerPolicy(state State) State {
	switch state.Status {
	case StatusOK:
		if len(state.Docs) == 0 {
			state = state.Refuse(ReasonEmptyOKDocs)
			state.Answer = RefusalText
			return state
		}
		state.SkipLLM = false
		state.RefusalReason = ""
		return state

	case StatusAmbiguous:
		if len(state.Options) == 0 {
			state = state.Refuse(ReasonNoValidOptions)
			state.Answer = RefusalText
			return state
		}
		state.SkipLLM = true
		state.Answer = AmbiguousAnswer
		state.RefusalReason = ReasonSelectionRequired
		return state

	case StatusRefuse:
		reason := state.RefusalReason
		if reason == "" {
			reason = ReasonNoRelevantDocs
		}
		state = state.Refuse(reason)
		state.Answer = RefusalText
		return state

	default:
		state = state.Refuse(ReasonInternal)
		state.Answer = RefusalText
		return state
	}
}
