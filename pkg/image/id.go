package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// IDLength is the size in bytes of an image content identifier.
const IDLength = 32

// ID is the content identifier of an image binary.
type ID [IDLength]byte

// ComputeID derives the content identifier of a binary.
func ComputeID(binary []byte) ID {
	return sha256.Sum256(binary)
}

// ParseID decodes a hex encoded identifier, with or without a 0x prefix.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(trimHexPrefix(strings.TrimSpace(s)))
	if err != nil {
		return id, fmt.Errorf("decoding image id %q: %w", s, err)
	}
	if len(raw) != IDLength {
		return id, fmt.Errorf("image id %q is %d bytes, expected %d", s, len(raw), IDLength)
	}
	copy(id[:], raw)
	return id, nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Hex returns the 0x prefixed encoding of the identifier.
func (id ID) Hex() string {
	return "0x" + id.String()
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
