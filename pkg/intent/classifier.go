// Package intent provides a stateless keyword classifier that maps a
// natural-language instruction to a tool category and a risk hint. It
// backs the heuristic planner when no LLM provider is configured and
// seeds the risk estimate the approval gate sees.
package intent

import (
	"strings"

	"github.com/steward-dev/steward/pkg/types"
)

// Intent is the classification outcome for one instruction.
type Intent struct {
	Category types.ToolCategory
	Risk     types.RiskLevel
	// Matched lists the keywords that contributed to the score, useful
	// for explaining the classification.
	Matched []string
}

type rule struct {
	keywords []string
	category types.ToolCategory
	risk     types.RiskLevel
	weight   int
}

// Rules are checked in order of accumulated score; ties resolve to the
// higher risk.
var rules = []rule{
	{[]string{"delete", "remove", "drop", "wipe", "clean up"}, types.CategoryFilesystem, types.RiskHigh, 3},
	{[]string{"deploy", "push", "publish", "release"}, types.CategoryGit, types.RiskHigh, 3},
	{[]string{"install", "run", "execute", "build", "compile", "start", "npm", "make"}, types.CategoryShell, types.RiskMedium, 2},
	{[]string{"commit", "branch", "merge", "rebase", "stash"}, types.CategoryGit, types.RiskMedium, 2},
	{[]string{"write", "create", "add", "edit", "change", "modify", "update", "rename", "fix", "refactor", "implement"}, types.CategoryFilesystem, types.RiskMedium, 2},
	{[]string{"read", "show", "view", "open", "cat", "display"}, types.CategoryFilesystem, types.RiskLow, 1},
	{[]string{"search", "find", "grep", "look for", "locate", "list"}, types.CategorySearch, types.RiskLow, 1},
	{[]string{"status", "diff", "log", "history"}, types.CategoryGit, types.RiskLow, 1},
	{[]string{"explain", "what", "why", "how", "describe", "summarize"}, types.CategoryInteraction, types.RiskLow, 1},
}

// Classify scores the instruction against the keyword table. Unmatched
// input defaults to interaction at medium risk so the gate still gets a
// say.
func Classify(instruction string) Intent {
	text := strings.ToLower(instruction)

	best := Intent{Category: types.CategoryInteraction, Risk: types.RiskMedium}
	bestScore := 0

	for _, r := range rules {
		score := 0
		var matched []string
		for _, kw := range r.keywords {
			if containsWord(text, kw) {
				score += r.weight
				matched = append(matched, kw)
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && r.risk.Rank() > best.Risk.Rank()) {
			bestScore = score
			best = Intent{Category: r.category, Risk: r.risk, Matched: matched}
		}
	}
	return best
}

// containsWord matches a keyword at word boundaries so "add" does not
// fire on "address".
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
