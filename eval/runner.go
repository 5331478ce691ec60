// Package eval replays curated QA cases against a pipeline and scores the
// outcomes: did the verdict match, were the right sources cited, and is
// the outcome internally consistent.
package eval

import (
	"context"
	"errors"
	"strings"

	"github.com/smallnest/raggate/log"
	"github.com/smallnest/raggate/retrieval"
)

// Invoker runs one ask turn. *pipeline.Pipeline satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, req retrieval.Request) (retrieval.Outcome, error)
}

// Options tunes the runner.
type Options struct {
	// AutoResolveAmbiguous re-invokes with the first offered option when
	// a case comes back ambiguous, scoring the resolved outcome instead.
	AutoResolveAmbiguous bool
	// RetrievalOnly marks pipelines running without a generator: ok
	// outcomes are then expected to cite documents rather than carry an
	// answer.
	RetrievalOnly bool
	Logger        log.Logger
}

// Result is the scored outcome of one case.
type Result struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	ExpectStatus string `json:"expect_status"`
	ActualStatus string `json:"actual_status"`
	AutoResolved bool   `json:"auto_resolved,omitempty"`

	Passed    bool `json:"passed"`
	StatusOK  bool `json:"status_ok"`
	SourcesOK bool `json:"sources_ok"`
	HygieneOK bool `json:"hygiene_ok"`
	ReasonOK  bool `json:"reason_ok"`

	NumSources    int                   `json:"num_sources"`
	Sources       []retrieval.SourceRef `json:"sources,omitempty"`
	RefusalReason string                `json:"refusal_reason,omitempty"`
	AnswerPreview string                `json:"answer_preview,omitempty"`
	Notes         string                `json:"notes,omitempty"`
}

// Runner replays cases against one pipeline.
type Runner struct {
	invoker Invoker
	opts    Options
	logger  log.Logger
}

// NewRunner creates a runner. The invoker is required.
func NewRunner(invoker Invoker, opts Options) (*Runner, error) {
	if invoker == nil {
		return nil, errors.New("eval: invoker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Runner{invoker: invoker, opts: opts, logger: logger}, nil
}

// Run scores every case in order. It stops early only when the context is
// cancelled, returning the results gathered so far with the context error.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.RunCase(ctx, c)
		r.logger.Debug("case %s: passed=%v status=%s sources=%d", res.ID, res.Passed, res.ActualStatus, res.NumSources)
		results = append(results, res)
	}
	return results, nil
}

// RunCase invokes the pipeline for one case and applies its checks.
func (r *Runner) RunCase(ctx context.Context, c Case) Result {
	outcome := r.invoke(ctx, retrieval.Request{Input: c.Query})

	autoResolved := false
	if r.opts.AutoResolveAmbiguous && outcome.Status == retrieval.StatusAmbiguous && len(outcome.Options) > 0 {
		outcome = r.invoke(ctx, retrieval.Request{
			Input:          c.Query,
			SelectedOption: firstOptionID(outcome.Options),
			Options:        outcome.Options,
		})
		autoResolved = true
	}

	res := Result{
		ID:           c.ID,
		Query:        c.Query,
		ExpectStatus: c.ExpectStatus,
		ActualStatus: string(outcome.Status),
		AutoResolved: autoResolved,

		StatusOK:  statusMatches(c.ExpectStatus, outcome.Status),
		SourcesOK: sourcesSatisfied(c, outcome),
		HygieneOK: r.hygieneSatisfied(outcome),
		ReasonOK:  reasonSatisfied(c, outcome),

		NumSources:    len(outcome.Sources),
		Sources:       outcome.Sources,
		RefusalReason: outcome.RefusalReason,
		AnswerPreview: clip(outcome.Answer, 200),
		Notes:         c.Notes,
	}
	res.Passed = res.StatusOK && res.SourcesOK && res.HygieneOK && res.ReasonOK
	return res
}

// invoke shields the runner from invoker failures: any error becomes a
// refusal outcome so scoring can proceed.
func (r *Runner) invoke(ctx context.Context, req retrieval.Request) retrieval.Outcome {
	outcome, err := r.invoker.Invoke(ctx, req)
	if err != nil {
		r.logger.Error("invoke failed: %v", err)
		return retrieval.Outcome{
			Input:         req.Input,
			Status:        retrieval.StatusRefuse,
			RefusalReason: "pipeline failure",
		}
	}
	return outcome
}

// hygieneSatisfied checks the outcome's internal consistency independent
// of what the case expected.
func (r *Runner) hygieneSatisfied(outcome retrieval.Outcome) bool {
	switch outcome.Status {
	case retrieval.StatusRefuse:
		return strings.TrimSpace(outcome.RefusalReason) != ""
	case retrieval.StatusAmbiguous:
		if outcome.SelectedOption != 0 {
			return true
		}
		return len(outcome.Options) >= 2
	case retrieval.StatusOK:
		if r.opts.RetrievalOnly {
			return len(outcome.SourceDocuments) > 0
		}
		return strings.TrimSpace(outcome.Answer) != ""
	}
	return false
}

func reasonSatisfied(c Case, outcome retrieval.Outcome) bool {
	if c.ReasonContains == "" {
		return true
	}
	return strings.Contains(strings.ToLower(outcome.RefusalReason), strings.ToLower(c.ReasonContains))
}

func firstOptionID(options []retrieval.Option) int {
	id := options[0].ID
	for _, opt := range options[1:] {
		if opt.ID < id {
			id = opt.ID
		}
	}
	return id
}

func clip(text string, n int) string {
	text = strings.TrimSpace(text)
	if len(text) <= n {
		return text
	}
	return text[:n]
}
