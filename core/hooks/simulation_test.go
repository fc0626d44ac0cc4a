package hooks

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/core/testutil"
)

type bidSimulator struct {
	reject map[int64]bool
	fail   map[int64]bool
}

func (s *bidSimulator) SimulateSolverOperation(_ context.Context, _ *big.Int, op *operation.SolverOperation) (bool, error) {
	bid := op.BidAmount().Int64()
	if s.fail[bid] {
		return false, errors.New("node unavailable")
	}
	return !s.reject[bid], nil
}

func TestSimulationDropsRejected(t *testing.T) {
	ops := []*operation.SolverOperation{
		testutil.SolverOperation(t, 10, 1000),
		testutil.SolverOperation(t, 20, 1000),
		testutil.SolverOperation(t, 30, 1000),
		testutil.SolverOperation(t, 40, 1000),
	}
	hook := NewSimulationHook(&bidSimulator{
		reject: map[int64]bool{10: true},
		fail:   map[int64]bool{30: true},
	}, nil)

	got, err := hook.PostGetSolverOperations(context.Background(), NewExtensions(), GetSolverOperationsArgs{ID: "x"}, ops)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 40}, bids(got))
}

func TestSimulationStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hook := NewSimulationHook(&bidSimulator{fail: map[int64]bool{10: true}}, nil)
	_, err := hook.PostGetSolverOperations(ctx, NewExtensions(), GetSolverOperationsArgs{}, []*operation.SolverOperation{
		testutil.SolverOperation(t, 10, 1000),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeCaller struct {
	msg ethereum.CallMsg
	err error
}

func (c *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.msg = msg
	return nil, c.err
}

type revertError struct{}

func (revertError) Error() string          { return "reverted" }
func (revertError) ErrorData() interface{} { return "0x08c379a0" }

func TestEthCallSimulator(t *testing.T) {
	op := testutil.SolverOperation(t, 10, 1000)

	caller := &fakeCaller{}
	ok, err := NewEthCallSimulator(caller).SimulateSolverOperation(context.Background(), nil, op)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, op.From(), caller.msg.From)
	assert.Equal(t, op.To(), *caller.msg.To)
	assert.Equal(t, uint64(1000), caller.msg.Gas)
	assert.Equal(t, op.Data(), caller.msg.Data)

	ok, err = NewEthCallSimulator(&fakeCaller{err: revertError{}}).SimulateSolverOperation(context.Background(), nil, op)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewEthCallSimulator(&fakeCaller{err: errors.New("execution reverted: bad bid")}).SimulateSolverOperation(context.Background(), nil, op)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewEthCallSimulator(&fakeCaller{err: errors.New("connection refused")}).SimulateSolverOperation(context.Background(), nil, op)
	assert.Error(t, err)
}
