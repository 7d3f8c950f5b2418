package main_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	main "github.com/fwojciec/refinery/cmd/refinery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventPage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Spring Jazz Night</title>
<meta property="og:title" content="Spring Jazz Night">
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "MusicEvent",
  "name": "Spring Jazz Night",
  "startDate": "2025-03-15T19:00",
  "location": {"@type": "Place", "name": "The Blue Room"},
  "organizer": {"@type": "Organization", "name": "Riverside Arts Council"}
}
</script>
</head>
<body>
<nav><a href="/">Home</a> <a href="/events">Events</a></nav>
<main>
<article>
<h1>Spring Jazz Night</h1>
<p>Date: March 15, 2025 at 7:00 PM</p>
<p>Venue: The Blue Room</p>
<p>Join us for an evening of live jazz featuring local musicians and special guests from across the city. The quartet will play standards and new compositions.</p>
<p>Doors open thirty minutes before the first set. Seating is first come, first served, and the bar will be open throughout the evening.</p>
<p>Hosted by Riverside Arts Council.</p>
</article>
</main>
<footer>Copyright Riverside Arts Council</footer>
</body>
</html>`

func newEventServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/jazz" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, eventPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("shows help without arguments", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), nil, stdout, &bytes.Buffer{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command specified")
		assert.Contains(t, stdout.String(), "run")
	})

	t.Run("help flag succeeds", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Fetch, refine and publish")
	})

	t.Run("publishes then skips duplicates", func(t *testing.T) {
		t.Parallel()

		srv := newEventServer(t)
		dbPath := filepath.Join(t.TempDir(), "refinery.db")
		url := srv.URL + "/events/jazz"

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "run", url}, stdout, stderr)
		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "created")

		stdout.Reset()
		err = main.NewMain().Run(context.Background(), []string{"--db", dbPath, "run", url}, stdout, stderr)
		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "skipped")

		stdout.Reset()
		err = main.NewMain().Run(context.Background(), []string{"--db", dbPath, "list"}, stdout, stderr)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "2025-03-15  Spring Jazz Night")
	})

	t.Run("dry run does not publish", func(t *testing.T) {
		t.Parallel()

		srv := newEventServer(t)
		dbPath := filepath.Join(t.TempDir(), "refinery.db")

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "run", "--dry-run", srv.URL + "/events/jazz"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "dry-run")

		stdout.Reset()
		err = main.NewMain().Run(context.Background(), []string{"--db", dbPath, "list"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "No records found")
	})

	t.Run("reports missing pages as failures", func(t *testing.T) {
		t.Parallel()

		srv := newEventServer(t)
		dbPath := filepath.Join(t.TempDir(), "refinery.db")

		stderr := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "run", srv.URL + "/events/missing"}, &bytes.Buffer{}, stderr)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "404")
	})

	t.Run("writes markdown files with the dir sink", func(t *testing.T) {
		t.Parallel()

		srv := newEventServer(t)
		out := t.TempDir()

		stderr := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--sink", "dir", "--out", out, "run", srv.URL + "/events/jazz"}, &bytes.Buffer{}, stderr)
		require.NoError(t, err, stderr.String())

		files, err := filepath.Glob(filepath.Join(out, "2025-03-15", "spring-jazz-night-*.md"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("reads flag defaults from config file", func(t *testing.T) {
		t.Parallel()

		srv := newEventServer(t)
		dir := t.TempDir()
		config := filepath.Join(dir, "refinery.yaml")
		require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf("sink: dir\nout: %s\nrun:\n  dry_run: true\n", filepath.Join(dir, "events"))), 0644))

		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--config", config, "run", srv.URL + "/events/jazz"}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "dry-run")
		_, err = os.Stat(filepath.Join(dir, "events"))
		assert.True(t, os.IsNotExist(err), "dry run should not create the output directory")
	})

	t.Run("gemini extractor requires an api key", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "refinery.db")

		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "run", "--extractor", "gemini", "--gemini-api-key", "", "https://example.com"}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})
}
