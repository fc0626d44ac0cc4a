package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallConfigFlags(t *testing.T) {
	assert.False(t, RequirePreOps.IsSet(0))
	assert.True(t, RequirePreOps.IsSet(4))
	assert.Equal(t, uint32(1<<16), TrustedOpHash.Enable(0))

	props := testUserOpProps()
	props["callConfig"] = TrustedOpHash.Enable(RequirePreOps.Enable(0))
	op, err := NewUserOperation(props)
	require.NoError(t, err)
	assert.True(t, op.RequiresPreOps())
	assert.True(t, op.UsesTrustedOpHash())

	// 600 = 0b1001011000
	op = testUserOp(t)
	assert.False(t, op.RequiresPreOps())
	assert.False(t, op.UsesTrustedOpHash())
}
