package retrieval

// ResolveSelection serves the second call of the ask protocol: the caller
// re-sends the query with the option id it picked plus the options from the
// ambiguous outcome. The matching option's documents become the answer set;
// an id that matches nothing is refused.
func ResolveSelection(state State) State {
	if state.SkipLLM {
		return state
	}
	for _, opt := range state.Options {
		if opt.ID == state.SelectedOption {
			return state.OK(opt.Docs)
		}
	}
	return state.Refuse(InvalidSelectionReason(state.SelectedOption))
}
