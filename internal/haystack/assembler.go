// Package haystack assembles background contexts of a target token length
// with one or more needles planted at requested depths.
package haystack

import (
	"fmt"
	"math"

	"github.com/needlebench/needlebench/internal/tokenizer"
)

// AssemblyError is a trial-scoped failure to build a context: the
// requested length does not leave room for the reserved buffer or the
// needles, or the corpus yields no tokens.
type AssemblyError struct {
	ContextLength int
	DepthPercent  float64
	Message       string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble context (len=%d depth=%.2f%%): %s", e.ContextLength, e.DepthPercent, e.Message)
}

// Assembler builds contexts from a fixed corpus using an injected
// tokenizer. It is safe for concurrent use: the only mutable state is the
// lazily built per-document token cache, which is prepared once in New.
type Assembler struct {
	docTokens [][]int
	tok       tokenizer.Tokenizer

	// periodTokens are the token IDs the tokenizer produces for ".",
	// used to find sentence boundaries when placing needles.
	periodTokens map[int]bool
}

// New tokenizes the corpus once and returns an Assembler. The corpus
// must produce at least one token.
func New(corpus []string, tok tokenizer.Tokenizer) (*Assembler, error) {
	docTokens := make([][]int, 0, len(corpus))
	total := 0
	for _, doc := range corpus {
		tokens := tok.Encode(doc)
		total += len(tokens)
		docTokens = append(docTokens, tokens)
	}
	if total == 0 {
		return nil, fmt.Errorf("corpus produced no tokens")
	}

	periods := make(map[int]bool)
	for _, t := range tok.Encode(".") {
		periods[t] = true
	}

	return &Assembler{docTokens: docTokens, tok: tok, periodTokens: periods}, nil
}

// Assemble builds a context of at most contextLength tokens with the
// given needles inserted. The first needle lands at depthPercent; in
// multi-needle mode the remaining needles are spread across evenly spaced
// deeper offsets: needle i goes to depth d + i*(100-d)/n, so three
// needles at depth 40 land at 40%, 60% and 80%.
//
// buffer tokens are reserved off the top of contextLength for system
// prompt and output overhead, so the returned text plus the needles never
// exceeds contextLength - buffer tokens.
func (a *Assembler) Assemble(needles []string, contextLength int, depthPercent float64, buffer int) (string, error) {
	budget := contextLength - buffer
	if budget <= 0 {
		return "", &AssemblyError{
			ContextLength: contextLength,
			DepthPercent:  depthPercent,
			Message:       fmt.Sprintf("context length %d does not exceed buffer %d", contextLength, buffer),
		}
	}
	if len(needles) == 0 {
		return "", &AssemblyError{
			ContextLength: contextLength,
			DepthPercent:  depthPercent,
			Message:       "no needles to insert",
		}
	}

	needleTokens := make([][]int, 0, len(needles))
	needleTotal := 0
	for _, n := range needles {
		tokens := a.tok.Encode(n)
		needleTotal += len(tokens)
		needleTokens = append(needleTokens, tokens)
	}
	if needleTotal >= budget {
		return "", &AssemblyError{
			ContextLength: contextLength,
			DepthPercent:  depthPercent,
			Message:       fmt.Sprintf("needles take %d tokens, budget is %d", needleTotal, budget),
		}
	}

	context := a.contextTokens(budget - needleTotal)

	depth := depthPercent
	interval := (100 - depthPercent) / float64(len(needles))
	for _, nt := range needleTokens {
		context = insertAtDepth(context, nt, depth, a.periodTokens)
		depth += interval
	}

	return a.tok.Decode(context), nil
}

// contextTokens concatenates corpus documents (cycling when the corpus is
// shorter than the budget) and truncates to exactly budget tokens.
func (a *Assembler) contextTokens(budget int) []int {
	out := make([]int, 0, budget)
	for len(out) < budget {
		for _, doc := range a.docTokens {
			out = append(out, doc...)
			if len(out) >= budget {
				break
			}
		}
	}
	return out[:budget]
}

// insertAtDepth splices needle into context at the sentence boundary at or
// before the token offset implied by depthPercent. Depth 100 appends at
// the very end.
func insertAtDepth(context, needle []int, depthPercent float64, periods map[int]bool) []int {
	if depthPercent >= 100 {
		out := make([]int, 0, len(context)+len(needle))
		out = append(out, context...)
		return append(out, needle...)
	}

	point := int(math.Round(depthPercent / 100 * float64(len(context))))
	if point > len(context) {
		point = len(context)
	}
	// Step back to just after the previous period so the needle never
	// lands mid-sentence.
	for point > 0 && !periods[context[point-1]] {
		point--
	}

	out := make([]int, 0, len(context)+len(needle))
	out = append(out, context[:point]...)
	out = append(out, needle...)
	return append(out, context[point:]...)
}
