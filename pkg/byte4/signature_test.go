package byte4

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelector(t *testing.T) {
	// These hash can generate locally or getting from Etherscan/Remix
	assert.Equal(t, "a9059cbb", hex.EncodeToString(Selector("transfer(address,uint256)")))
	assert.Equal(t, "70a08231", hex.EncodeToString(Selector("balanceOf(address)")))
}

func TestEncodeCall(t *testing.T) {
	args := []byte{0x01, 0x02}
	calldata := EncodeCall("balanceOf(address)", args)

	assert.Equal(t, "70a082310102", hex.EncodeToString(calldata))
	assert.Equal(t, []byte{0x01, 0x02}, args, "arguments must not be mutated")
}
