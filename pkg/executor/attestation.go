package executor

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// Attestation binds a journal to the image and input that produced it,
// signed by the relay's key.
type Attestation struct {
	ImageID   image.ID
	Digest    common.Hash
	Signer    common.Address
	Signature []byte
}

// Attester signs execution results.
type Attester struct {
	key    *ecdsa.PrivateKey
	signer common.Address
}

func NewAttester(key *ecdsa.PrivateKey) *Attester {
	return &Attester{
		key:    key,
		signer: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Digest is keccak256(imageID ++ keccak256(input) ++ keccak256(journal)).
func Digest(id image.ID, input, journal []byte) common.Hash {
	return crypto.Keccak256Hash(id.Bytes(), crypto.Keccak256(input), crypto.Keccak256(journal))
}

func (a *Attester) Attest(id image.ID, input, journal []byte) (*Attestation, error) {
	digest := Digest(id, input, journal)
	sig, err := crypto.Sign(digest.Bytes(), a.key)
	if err != nil {
		return nil, fmt.Errorf("signing attestation for image %s: %w", id, err)
	}
	return &Attestation{
		ImageID:   id,
		Digest:    digest,
		Signer:    a.signer,
		Signature: sig,
	}, nil
}

// RecoverSigner returns the address that produced the signature.
func (a *Attestation) RecoverSigner() (common.Address, error) {
	pub, err := crypto.SigToPub(a.Digest.Bytes(), a.Signature)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
