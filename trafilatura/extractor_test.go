package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Extractor implements refinery.ContentExtractor at compile time.
var _ refinery.ContentExtractor = (*trafilatura.Extractor)(nil)

const eventPage = `<!DOCTYPE html>
<html>
<head>
<title>Spring Jazz Night | Riverside Arts</title>
<meta property="og:title" content="Spring Jazz Night">
</head>
<body>
<nav class="site-nav"><a href="/">Home</a><a href="/events">Events</a><a href="/donate">Donate</a></nav>
<article>
<h1>Spring Jazz Night</h1>
<p>Join us on March 15th, 2025 at 7:00 PM at The Blue Room for an evening of live jazz featuring local musicians.</p>
<p>Tickets are $25 and include a drink at the bar. Doors open thirty minutes before the first set.</p>
</article>
<footer><p>Copyright 2025 Riverside Arts Council</p></footer>
</body>
</html>`

func TestExtractor_ExtractContent(t *testing.T) {
	t.Parallel()

	t.Run("extracts title from meta tags", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().ExtractContent(eventPage)

		require.NoError(t, err)
		assert.NotEmpty(t, result.Title)
	})

	t.Run("extracts main content", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().ExtractContent(eventPage)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "March 15th, 2025")
		assert.Contains(t, result.ContentHTML, "Tickets are $25")
	})

	t.Run("removes navigation and footer boilerplate", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().ExtractContent(eventPage)

		require.NoError(t, err)
		assert.NotContains(t, result.ContentHTML, "site-nav")
		assert.NotContains(t, result.ContentHTML, "Copyright 2025")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().ExtractContent("  ")

		assert.Equal(t, refinery.EINVALID, refinery.ErrorCode(err))
	})
}
