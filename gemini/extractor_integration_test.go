//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractor_Integration_ExtractsEvent(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	require.NoError(t, err)

	e := gemini.NewExtractor(client.Models)

	got, err := e.Extract(ctx, jazzNight(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "2025-03-15T19:30", refinery.Value(got.Record.StartTime))
	assert.Contains(t, refinery.Value(got.Record.Location), "Blue Room")
}
