package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fwojciec/refinery"
	main "github.com/fwojciec/refinery/cmd/refinery"
	"github.com/fwojciec/refinery/refine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, url string, opts refinery.RunOptions) (*refinery.WorkflowResult, error)

func (f runnerFunc) Run(ctx context.Context, url string, opts refinery.RunOptions) (*refinery.WorkflowResult, error) {
	return f(ctx, url, opts)
}

func newRunDeps(runner refine.Runner) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
		Batch:  &refine.Batch{Runner: runner, Concurrency: 1},
	}, stdout, stderr
}

func newRunCmd(urls ...string) *main.RunCmd {
	return &main.RunCmd{
		URLs:          urls,
		MaxIterations: 3,
		Threshold:     0.8,
	}
}

func TestRunCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints outcome per url and summary", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newRunDeps(runnerFunc(func(_ context.Context, url string, _ refinery.RunOptions) (*refinery.WorkflowResult, error) {
			return &refinery.WorkflowResult{
				URL:        url,
				Score:      &refinery.QualityScore{Overall: 0.9, Acceptable: true},
				Iterations: 1,
				Success:    true,
				Outcome:    refinery.OutcomeCreated,
				RecordID:   "rec-1",
			}, nil
		}))

		err := newRunCmd("https://example.com/jazz").Run(deps)

		require.NoError(t, err)
		output := stdout.String()
		assert.Contains(t, output, "[1/1] created")
		assert.Contains(t, output, "https://example.com/jazz")
		assert.Contains(t, output, "score=0.90")
		assert.Contains(t, output, "id=rec-1")
		assert.Contains(t, output, "Processed 1 URLs: 1 created, 0 updated, 0 skipped, 0 rejected, 0 failed")
		assert.Empty(t, stderr.String())
	})

	t.Run("passes flag options to the pipeline", func(t *testing.T) {
		t.Parallel()

		var got refinery.RunOptions
		deps, _, _ := newRunDeps(runnerFunc(func(_ context.Context, url string, opts refinery.RunOptions) (*refinery.WorkflowResult, error) {
			got = opts
			return &refinery.WorkflowResult{URL: url, Success: true}, nil
		}))
		cmd := newRunCmd("https://example.com/jazz")
		cmd.MaxIterations = 5
		cmd.Threshold = 0.7
		cmd.MaxCalls = 6
		cmd.Refresh = true
		cmd.DryRun = true

		require.NoError(t, cmd.Run(deps))

		assert.Equal(t, 5, got.MaxIterations)
		assert.InDelta(t, 0.7, got.Policy.Threshold, 0.001)
		assert.Equal(t, 6, got.MaxCalls)
		assert.True(t, got.Refresh)
		assert.True(t, got.DryRun)
	})

	t.Run("reports rejected urls and returns error", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newRunDeps(runnerFunc(func(_ context.Context, url string, _ refinery.RunOptions) (*refinery.WorkflowResult, error) {
			return &refinery.WorkflowResult{
				URL: url,
				Score: &refinery.QualityScore{
					Overall: 0.4,
					Issues:  []refinery.Issue{refinery.MissingField(refinery.FieldStartTime)},
				},
				Iterations: 3,
				Outcome:    refinery.OutcomeRejected,
			}, nil
		}))

		err := newRunCmd("https://example.com/jazz").Run(deps)

		require.Error(t, err)
		assert.Contains(t, stdout.String(), "rejected")
		assert.Contains(t, stderr.String(), "missing field: start_time")
	})

	t.Run("reports fetch failures", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newRunDeps(runnerFunc(func(_ context.Context, url string, _ refinery.RunOptions) (*refinery.WorkflowResult, error) {
			return &refinery.WorkflowResult{
				URL:    url,
				Errors: []error{refinery.Errorf(refinery.EFETCH, "HTTP 503 for %s", url)},
			}, nil
		}))

		err := newRunCmd("https://example.com/jazz").Run(deps)

		require.Error(t, err)
		assert.Contains(t, stdout.String(), "failed")
		assert.Contains(t, stderr.String(), "HTTP 503")
	})

	t.Run("prints json lines", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newRunDeps(runnerFunc(func(_ context.Context, url string, _ refinery.RunOptions) (*refinery.WorkflowResult, error) {
			return &refinery.WorkflowResult{
				URL:     url,
				Record:  &refinery.EventRecord{Title: refinery.String("Spring Jazz Night")},
				Success: true,
				Outcome: refinery.OutcomeSkipped,
				Errors:  []error{refinery.Errorf(refinery.EEXTRACT, "timeout")},
			}, nil
		}))
		cmd := newRunCmd("https://example.com/a", "https://example.com/b")
		cmd.JSON = true

		require.NoError(t, cmd.Run(deps))

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		require.Len(t, lines, 2)
		var line struct {
			URL     string   `json:"url"`
			Outcome string   `json:"outcome"`
			Errors  []string `json:"errors"`
			Record  struct {
				Title string `json:"title"`
			} `json:"record"`
		}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
		assert.Equal(t, refinery.OutcomeSkipped, line.Outcome)
		assert.Equal(t, "Spring Jazz Night", line.Record.Title)
		assert.Equal(t, []string{"timeout"}, line.Errors)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newRunDeps(runnerFunc(func(context.Context, string, refinery.RunOptions) (*refinery.WorkflowResult, error) {
			t.Error("runner should not be called")
			return nil, nil
		}))
		cmd := newRunCmd("https://example.com/jazz")
		cmd.MaxIterations = 0

		err := cmd.Run(deps)

		assert.Equal(t, refinery.EINVALID, refinery.ErrorCode(err))
		assert.Contains(t, stderr.String(), "max iterations")
	})
}
