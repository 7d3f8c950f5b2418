//go:build integration && !windows

package rod_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/fwojciec/refinery/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Close_StopsBrowser(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	pid := fetcher.LauncherPID()
	require.NotZero(t, pid)

	// Signal 0 probes for the process without delivering anything.
	alive := func() bool { return syscall.Kill(pid, syscall.Signal(0)) == nil }
	require.True(t, alive(), "browser should run before Close")

	require.NoError(t, fetcher.Close())

	assert.Eventually(t, func() bool { return !alive() }, 2*time.Second, 50*time.Millisecond,
		"browser should exit after Close")
}
