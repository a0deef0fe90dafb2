package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) { //nolint:paralleltest // Modifies global state.
	Set("Entropool", "1.4.0-rc.2", "GPLv3")
	defer Set("", "dev build", "[license unknown]")

	v, err := SemVer()
	require.NoError(t, err)
	assert.Equal(t, "rc.2", v.Prerelease())
	assert.NoError(t, CheckVersion())
	assert.Contains(t, FullVersion(), "GPLv3")
}
