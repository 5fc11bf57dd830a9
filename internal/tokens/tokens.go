// Package tokens counts language-model tokens for context budgeting.
package tokens

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the tokenizer of the chat models the assembled
// context is fed to.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the given encoding (DefaultEncoding if empty).
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates token counts without an encoding file.
// English text averages roughly four characters per token; word boundaries
// keep the estimate from collapsing on whitespace-heavy input.
type EstimateCounter struct{}

// Count returns an approximate token count for text.
func (EstimateCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	estimate := chars / 4
	if words > estimate {
		estimate = words
	}
	return estimate
}

// NewCounter returns a tiktoken-backed counter, falling back to the estimator
// when the encoding cannot be loaded (e.g. no cache and no network).
func NewCounter() Counter {
	counter, err := NewTiktokenCounter(DefaultEncoding)
	if err != nil {
		log.Printf("tokens: tiktoken unavailable, using estimator: %v", err)
		return EstimateCounter{}
	}
	return counter
}
