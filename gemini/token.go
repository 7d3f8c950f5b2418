package gemini

import (
	"context"

	"github.com/fwojciec/refinery"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ refinery.TokenCounter = (*TokenCounter)(nil)

// TokenCounter sizes fetched page text with the local Gemini tokenizer,
// so prompt cost can be reported without an API round trip.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the tokenizer vocabulary for model. The first call
// for a model may download the vocabulary.
func NewTokenCounter(model string) (*TokenCounter, error) {
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, refinery.Errorf(refinery.EINTERNAL, "load tokenizer for %s: %v", model, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens returns the token count of text as a single user turn.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, refinery.Errorf(refinery.EINTERNAL, "count tokens: %v", err)
	}
	return int(result.TotalTokens), nil
}
