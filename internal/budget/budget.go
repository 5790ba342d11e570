// Package budget estimates token usage for prompts sent to the language
// model. Backends tokenize differently, so the estimate uses a conservative
// character heuristic: 1 token ≈ 4 characters of English prose.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens bounds the retrieved knowledge handed to a
	// single prompt. Small local models (mistral, llama3 8B) run with a 4k-8k
	// window and the recommendation prompts already carry the candidate
	// catalog, so grounding text gets a modest share.
	DefaultMaxContextTokens = 1500
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// ~4 tokens of per-message framing in most chat APIs.
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimSections keeps the longest prefix of sections whose estimated size,
// including sepTokens between consecutive sections, fits within maxTokens.
// Sections are expected in rank order, so the lowest-ranked ones are dropped
// first. A non-positive maxTokens disables trimming.
func TrimSections(sections []string, sepTokens, maxTokens int) []string {
	if maxTokens <= 0 {
		return sections
	}
	used := 0
	for i, s := range sections {
		cost := Estimate(s)
		if i > 0 {
			cost += sepTokens
		}
		if used+cost > maxTokens {
			return sections[:i]
		}
		used += cost
	}
	return sections
}
