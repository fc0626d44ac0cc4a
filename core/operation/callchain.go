package operation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AvaProtocol/ap-atlas/pkg/byte4"
)

// PreOpsCallSignature is IDAppControl.preOpsCall(UserOperation).
var PreOpsCallSignature = "preOpsCall(" + UserOperationSchema.TupleSignature() + ")"

// CallChainHash chains the encoded pre-ops call (optional), the user operation and every
// solver operation in order:
//
//	hash = keccak256(hash || control || abi.encodeCall(preOpsCall, userOp) || i++)   if requirePreOps
//	hash = keccak256(hash || abi.encode(userOp) || i++)
//	hash = keccak256(hash || abi.encode(solverOp) || i++)                             for each solver op
//
// starting from the zero hash, with i a uint256 counter starting at 0. It must match the
// hash recomputed by the Atlas verification contract, so solver order is significant.
func CallChainHash(userOp *UserOperation, solverOps []*SolverOperation, requirePreOps bool) (common.Hash, error) {
	encodedUserOp, err := userOp.AbiEncode()
	if err != nil {
		return common.Hash{}, err
	}

	var (
		hash    common.Hash
		counter int64
	)
	next := func(parts ...[]byte) {
		parts = append([][]byte{hash.Bytes()}, parts...)
		parts = append(parts, common.LeftPadBytes(big.NewInt(counter).Bytes(), 32))
		hash = crypto.Keccak256Hash(parts...)
		counter++
	}

	if requirePreOps {
		next(userOp.Control().Bytes(), byte4.EncodeCall(PreOpsCallSignature, encodedUserOp))
	}

	next(encodedUserOp)

	for _, solverOp := range solverOps {
		encoded, err := solverOp.AbiEncode()
		if err != nil {
			return common.Hash{}, err
		}
		next(encoded)
	}

	return hash, nil
}
