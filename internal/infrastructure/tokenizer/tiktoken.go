package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates model-token cost with the tokenizer matching the
// configured embedding model.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

func NewCounter(model string) (*Counter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for model %s: %w", model, err)
	}
	return &Counter{encoding: encoding}, nil
}

func (c *Counter) Count(text string) int {
	if c.encoding == nil {
		// Rough fallback so the batcher keeps working without an encoding.
		return utf8.RuneCountInString(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}
