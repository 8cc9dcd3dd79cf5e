package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec converts between text and token-id sequences.
//
// Decode(Encode(x)) is not guaranteed to reproduce x byte-for-byte; BPE
// tokenizers normalize some whitespace. Callers that slice text by token
// windows must tolerate small length drift.
type Codec interface {
	// Encode converts text to a sequence of token ids.
	Encode(text string) []int
	// Decode converts a sequence of token ids back to text.
	Decode(ids []int) string
	// Count returns the number of tokens in text.
	Count(text string) int
}

// DefaultEncoding is the BPE encoding used when none is configured.
// cl100k_base matches the tokenizer of the generation and embedding models
// this service is deployed against.
const DefaultEncoding = "cl100k_base"

// TiktokenCodec implements Codec using a tiktoken BPE encoding.
type TiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCodec creates a codec for the named encoding (e.g. "cl100k_base").
func NewTiktokenCodec(encoding string) (*TiktokenCodec, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCodec{enc: enc}, nil
}

// Encode converts text to token ids.
func (c *TiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

// Decode converts token ids back to text.
func (c *TiktokenCodec) Decode(ids []int) string {
	return c.enc.Decode(ids)
}

// Count returns the token count of text.
func (c *TiktokenCodec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
