//go:build unit || !integration

package executor

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

func TestAttestation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	attester := NewAttester(key)

	id := image.ComputeID([]byte("guest"))
	att, err := attester.Attest(id, []byte("input"), []byte("journal"))
	require.NoError(t, err)

	require.Equal(t, id, att.ImageID)
	require.Equal(t, Digest(id, []byte("input"), []byte("journal")), att.Digest)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), att.Signer)

	signer, err := att.RecoverSigner()
	require.NoError(t, err)
	require.Equal(t, att.Signer, signer)
}

func TestDigestBindsEveryPart(t *testing.T) {
	id := image.ComputeID([]byte("guest"))
	base := Digest(id, []byte("input"), []byte("journal"))

	require.NotEqual(t, base, Digest(image.ComputeID([]byte("other")), []byte("input"), []byte("journal")))
	require.NotEqual(t, base, Digest(id, []byte("other"), []byte("journal")))
	require.NotEqual(t, base, Digest(id, []byte("input"), []byte("other")))
}
