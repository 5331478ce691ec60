package generate

import (
	"regexp"
	"strings"
)

// Decision classifies cleaned model output.
type Decision string

const (
	DecisionAnswer Decision = "answer"
	DecisionRefuse Decision = "refuse"
)

// RefusalFallback replaces verbose model refusals so every refusal the
// model writes itself collapses to one stable sentence.
const RefusalFallback = "I don't have enough information in the provided context to answer this question."

// CleanResult is the cleaned text plus whether it reads as a refusal.
type CleanResult struct {
	Text     string
	Decision Decision
}

var (
	labelLineRe      = regexp.MustCompile(`(?i)^\s*(Answer|Summary|Context|Question)\s*:\s*$`)
	examplesHeaderRe = regexp.MustCompile(`(?i)^\s*Examples\s*:\s*$`)
	codeFenceRe      = regexp.MustCompile("(?s)```.*?```")
	mdHeadingRe      = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+.*$`)
	placeholderRe    = regexp.MustCompile(`(?i)^\s*(None|N/A)\s*$`)
	emptyBulletRe    = regexp.MustCompile(`^\s*-\s*$`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
	spaceRunRe       = regexp.MustCompile(`[ \t]{2,}`)
	sourcesHeaderRe  = regexp.MustCompile(`(?i)^\s*sources\s*:\s*$`)
)

// refusalMarkers are lowercase substrings that mark a model-written refusal.
var refusalMarkers = []string{
	"not enough information",
	"insufficient information",
	"provided context does not",
	"context does not contain",
	"cannot be determined from the context",
	"i don't have enough information",
	"i do not have enough information",
}

// Clean scrubs raw model output: markdown remnants, chat labels,
// placeholder lines, excess whitespace, and Examples headers with nothing
// under them. Refusal-shaped output longer than a sentence or two is
// normalized to RefusalFallback.
func Clean(raw string) CleanResult {
	text := strings.TrimSpace(raw)
	text = removeMarkdown(text)
	text = dropLines(text, func(line string) bool { return labelLineRe.MatchString(line) })
	text = dropLines(text, func(line string) bool {
		return placeholderRe.MatchString(line) || emptyBulletRe.MatchString(line)
	})
	text = normalizeWhitespace(text)
	text = pruneEmptyExamples(text)

	decision := DecisionAnswer
	if text == "" || isRefusal(text) {
		decision = DecisionRefuse
		if text == "" || len(strings.Fields(text)) > 35 {
			text = RefusalFallback
		}
	}
	return CleanResult{Text: text, Decision: decision}
}

// NormalizeForCLI cleans the text and additionally cuts everything from a
// trailing "Sources:" header on, since the CLI prints its own source list.
func NormalizeForCLI(raw string) string {
	cleaned := Clean(raw).Text
	var out []string
	for _, line := range strings.Split(cleaned, "\n") {
		if sourcesHeaderRe.MatchString(strings.TrimSpace(line)) {
			break
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func removeMarkdown(text string) string {
	if strings.Contains(text, "```") {
		text = strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))
	}
	if strings.Contains(text, "#") {
		text = strings.TrimSpace(mdHeadingRe.ReplaceAllString(text, ""))
	}
	return text
}

func dropLines(text string, drop func(string) bool) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if drop(line) {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func normalizeWhitespace(text string) string {
	text = strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
	return spaceRunRe.ReplaceAllString(text, " ")
}

// pruneEmptyExamples removes an "Examples:" header whose next non-blank
// line is not a bullet, so the prompt's structure rules cannot leak an
// empty section into the final answer.
func pruneEmptyExamples(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		line := lines[i]
		if examplesHeaderRe.MatchString(line) {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j >= len(lines) || !strings.HasPrefix(strings.TrimLeft(lines[j], " \t"), "-") {
				i = j
				continue
			}
			out = append(out, "Examples:")
			i++
			continue
		}
		out = append(out, line)
		i++
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
