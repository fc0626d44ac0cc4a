package byte4

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector returns the 4-byte function selector of a canonical signature such as
// "transfer(address,uint256)": the first four bytes of its keccak256 hash.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// EncodeCall prefixes ABI encoded arguments with the selector of signature,
// the layout of abi.encodeCall in solidity.
func EncodeCall(signature string, encodedArgs []byte) []byte {
	out := make([]byte, 0, 4+len(encodedArgs))
	out = append(out, Selector(signature)...)
	return append(out, encodedArgs...)
}
