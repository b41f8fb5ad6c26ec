// Package tokenizer wraps tiktoken BPE encodings behind a small interface
// so haystack assembly and token budgeting use the exact tokenizer of the
// model under test.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models tiktoken has no mapping for
// (Anthropic and Cohere models among them). Token budgets for those
// backends are approximations, which matches how their own consoles
// report prompt sizes.
const fallbackEncoding = "cl100k_base"

// Tokenizer converts between text and token IDs.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

// BPE is a tiktoken-backed Tokenizer.
type BPE struct {
	enc *tiktoken.Tiktoken
}

// ForModel returns the tokenizer registered for the given model name,
// falling back to cl100k_base when the model is unknown to tiktoken.
func ForModel(model string) (*BPE, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &BPE{enc: enc}, nil
}

func (b *BPE) Encode(text string) []int {
	return b.enc.Encode(text, nil, nil)
}

func (b *BPE) Decode(tokens []int) string {
	return b.enc.Decode(tokens)
}

func (b *BPE) Count(text string) int {
	return len(b.Encode(text))
}
