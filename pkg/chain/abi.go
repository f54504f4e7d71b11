package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	callbackRequestEvent = "CallbackRequest"
	invokeCallbacks      = "invokeCallbacks"
)

// ProxyABI is the part of the callback proxy contract the relay uses.
const ProxyABI = `[
  {
    "type": "event",
    "name": "CallbackRequest",
    "anonymous": false,
    "inputs": [
      {"name": "account", "type": "address", "indexed": false},
      {"name": "imageId", "type": "bytes32", "indexed": false},
      {"name": "input", "type": "bytes", "indexed": false},
      {"name": "callbackContract", "type": "address", "indexed": false},
      {"name": "functionSelector", "type": "bytes4", "indexed": false},
      {"name": "gasLimit", "type": "uint64", "indexed": false}
    ]
  },
  {
    "type": "function",
    "name": "invokeCallbacks",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "callbacks",
        "type": "tuple[]",
        "components": [
          {"name": "callbackContract", "type": "address"},
          {"name": "journalInclusionProof", "type": "bytes32[]"},
          {"name": "payload", "type": "bytes"},
          {"name": "gasLimit", "type": "uint64"}
        ]
      }
    ],
    "outputs": []
  }
]`

var proxyABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ProxyABI))
	if err != nil {
		panic(err)
	}
	return parsed
}
