// Package token provides token counting for chunk budgeting.
package token

import "unicode"

// Counter estimates the number of model tokens in a text. Counts drive
// chunk sizing and context budgets, so the same Counter instance should be
// used for both.
type Counter interface {
	Count(text string) int
}

// HeuristicCounter approximates a subword tokenizer: each run of letters or
// digits costs one token plus one more per six characters beyond the first
// six, and each punctuation character costs one token. It needs no model
// files and is deterministic.
type HeuristicCounter struct{}

// Count returns the estimated token count for text.
func (HeuristicCounter) Count(text string) int {
	tokens := 0
	runLen := 0
	flush := func() {
		if runLen == 0 {
			return
		}
		tokens += 1 + (runLen-1)/6
		runLen = 0
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			runLen++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens++
		}
	}
	flush()
	return tokens
}

// ApproxCounter is the coarse length/4 fallback. Less accurate than
// HeuristicCounter; chunk length control degrades but does not fail.
type ApproxCounter struct{}

// Count returns len(text)/4.
func (ApproxCounter) Count(text string) int {
	return len(text) / 4
}

// Default returns the counter used when none is configured.
func Default() Counter {
	return HeuristicCounter{}
}
