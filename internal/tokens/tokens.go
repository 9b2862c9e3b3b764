// Package tokens turns text into token counts for cost estimates.
package tokens

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the GPT-4 family.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding, loaded on first use.
// When the encoding cannot be loaded it falls back to Estimate.
type Counter struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter creates a Counter for encoding, DefaultEncoding when empty.
func NewCounter(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Counter{encoding: encoding}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	c.init()
	if c.err != nil || c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact reports whether Count uses the real encoding.
func (c *Counter) Exact() bool {
	c.init()
	return c.err == nil && c.enc != nil
}

func (c *Counter) init() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.encoding)
		if c.err != nil {
			slog.Warn("token encoding unavailable, estimating", "encoding", c.encoding, "error", c.err)
		}
	})
}

// Estimate approximates tokens as a quarter of the character count.
func Estimate(text string) int {
	return utf8.RuneCountInString(text) / 4
}
