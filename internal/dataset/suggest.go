package dataset

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestions bounds "did you mean" lists.
const maxSuggestions = 3

// SuggestGPU returns up to three GPU ids that resemble id, closest first.
func SuggestGPU(repo Repository, id string) []string {
	var ids []string
	for _, g := range repo.GPUs() {
		ids = append(ids, g.ID)
	}
	return suggest(id, ids)
}

// SuggestModel returns up to three model ids that resemble id, closest first.
func SuggestModel(repo Repository, id string) []string {
	var ids []string
	for _, m := range repo.Models() {
		ids = append(ids, m.ID)
	}
	return suggest(id, ids)
}

func suggest(term string, ids []string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	ranks := fuzzy.RankFindFold(term, ids)
	if len(ranks) == 0 {
		// Fall back to a looser match on the first id segment, e.g. "4090" -> "rtx-4090".
		for _, part := range strings.FieldsFunc(term, func(r rune) bool { return r == '-' || r == '_' || r == ' ' }) {
			ranks = append(ranks, fuzzy.RankFindFold(part, ids)...)
		}
	}
	sort.Stable(ranks)

	var out []string
	seen := map[string]bool{}
	for _, r := range ranks {
		if seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		out = append(out, r.Target)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// MatchGPU reports whether term fuzzily matches the GPU's id, name, tier or architecture.
func MatchGPU(g GpuSpec, term string) bool {
	return matchAny(term, g.ID, g.Name, string(g.Tier), string(g.Architecture))
}

// MatchModel reports whether term fuzzily matches the model's id, name or family.
func MatchModel(m ModelSpec, term string) bool {
	return matchAny(term, m.ID, m.Name, string(m.Family))
}

func matchAny(term string, fields ...string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if fuzzy.MatchFold(term, f) || strings.Contains(strings.ToLower(f), strings.ToLower(term)) {
			return true
		}
	}
	return false
}
