//go:build unit || !integration

package system

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	exists, err := PathExists(dir)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = PathExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, exists)
}
