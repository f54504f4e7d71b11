package relay

import (
	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// BuildPayload lays out the calldata handed to the callback contract:
// selector, then the output, then the image id.
func BuildPayload(selector [4]byte, output []byte, id image.ID) []byte {
	payload := make([]byte, 0, len(selector)+len(output)+image.IDLength)
	payload = append(payload, selector[:]...)
	payload = append(payload, output...)
	payload = append(payload, id[:]...)
	return payload
}
