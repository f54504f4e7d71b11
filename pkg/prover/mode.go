package prover

import (
	"strings"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

// Mode selects how the output of a request is produced.
type Mode string

const (
	// ModeUnset behaves like ModeLocal.
	ModeUnset Mode = ""
	// ModeLocal executes the image locally without attestation.
	ModeLocal Mode = "local"
	// ModeLocalWithAttestation executes locally and signs the result.
	ModeLocalWithAttestation Mode = "local-attested"
	// ModeRemote delegates to the remote proving service.
	ModeRemote Mode = "remote"
)

var modeAliases = map[string]Mode{
	"":                               ModeUnset,
	string(ModeLocal):                ModeLocal,
	string(ModeLocalWithAttestation): ModeLocalWithAttestation,
	"prove":                          ModeLocalWithAttestation,
	string(ModeRemote):               ModeRemote,
	"bonsai":                         ModeRemote,
}

func (m Mode) String() string {
	if m == ModeUnset {
		return "unset"
	}
	return string(m)
}

// IsLocal returns true for modes that run the image on this machine.
func (m Mode) IsLocal() bool {
	return m == ModeUnset || m == ModeLocal || m == ModeLocalWithAttestation
}

// ParseMode parses a mode name, ignoring case and surrounding space.
func ParseMode(v string) (Mode, error) {
	if mode, ok := modeAliases[strings.ToLower(strings.TrimSpace(v))]; ok {
		return mode, nil
	}
	return ModeUnset, relayerrors.New(relayerrors.InvalidBackendConfig, "unsupported proving mode %q", v).
		WithHint("use one of %q, %q or %q", ModeLocal, ModeLocalWithAttestation, ModeRemote)
}
