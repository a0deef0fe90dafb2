//go:build !windows

package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptEngine runs the script through the shell, so it does not need to be
// executable.
func scriptEngine(t *testing.T, body string) *ProcessEngine {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return NewProcessEngine("/bin/sh", path)
}

func testInput() *Input {
	return &Input{
		Entropy:   "00ff00ff",
		Address:   "abc",
		Latitude:  1.5,
		Longitude: -2.25,
		Radius:    100,
		Filter:    3,
	}
}

func TestProcessEngine(t *testing.T) {
	t.Parallel()

	// Echo the flags and stdin back as JSON.
	engine := scriptEngine(t, `entropy=$(cat)
echo "{\"args\": \"$*\", \"entropy\": \"$entropy\"}"
`)
	result, err := engine.Compute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "00ff00ff", result["entropy"])
	assert.Equal(t, "-address abc -latitude 1.5 -longitude -2.25 -radius 100 -filter 3", result["args"])
}

func TestProcessEngineFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	engine := scriptEngine(t, "echo 'out of cheese' >&2\nexit 3\n")
	_, err := engine.Compute(ctx, testInput())
	require.ErrorIs(t, err, ErrComputationFailed)
	assert.Contains(t, err.Error(), "out of cheese")
	assert.Contains(t, err.Error(), "exit status 3")

	engine = scriptEngine(t, "echo 'not json'\n")
	_, err = engine.Compute(ctx, testInput())
	require.ErrorIs(t, err, ErrComputationFailed)

	engine = NewProcessEngine(filepath.Join(t.TempDir(), "missing"))
	_, err = engine.Compute(ctx, testInput())
	require.ErrorIs(t, err, ErrComputationFailed)
}

func TestProcessEngineTimeout(t *testing.T) {
	t.Parallel()

	// The child keeps running in the background, so the whole group must be killed.
	engine := scriptEngine(t, "sleep 30 &\nsleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := engine.Compute(ctx, testInput())
	require.ErrorIs(t, err, ErrComputationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 10*time.Second)
}
