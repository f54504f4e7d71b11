//go:build unit || !integration

package image

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeID(t *testing.T) {
	binary := []byte("guest binary")
	require.Equal(t, ID(sha256.Sum256(binary)), ComputeID(binary))
}

func TestParseID(t *testing.T) {
	id := ComputeID([]byte("guest"))

	for _, s := range []string{id.String(), id.Hex(), strings.ToUpper(id.String()), " " + id.Hex() + " "} {
		parsed, err := ParseID(s)
		require.NoError(t, err, s)
		require.Equal(t, id, parsed)
	}

	_, err := ParseID("0x1234")
	require.ErrorContains(t, err, "expected 32")

	_, err = ParseID("not hex")
	require.Error(t, err)
}

func TestIDText(t *testing.T) {
	id := ComputeID([]byte("guest"))
	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, id, decoded)
	require.False(t, decoded.IsZero())
	require.True(t, ID{}.IsZero())
}
