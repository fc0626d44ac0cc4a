package operation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserField indexes the UserOperation layout.
type UserField int

const (
	UserFrom UserField = iota
	UserTo
	UserValue
	UserGas
	UserMaxFeePerGas
	UserNonce
	UserDeadline
	UserDapp
	UserControl
	UserCallConfig
	UserSessionKey
	UserData
	UserSignature
)

var UserOperationSchema = mustSchema("UserOperation", []Field{
	{"from", Address},
	{"to", Address},
	{"value", Uint256},
	{"gas", Uint256},
	{"maxFeePerGas", Uint256},
	{"nonce", Uint256},
	{"deadline", Uint256},
	{"dapp", Address},
	{"control", Address},
	{"callConfig", Uint32},
	{"sessionKey", Address},
	{"data", Bytes},
	{"signature", Bytes},
})

// trustedUserFields is the field subset hashed when the dApp control allows trusted op hashes.
var trustedUserFields = []UserField{UserFrom, UserTo, UserDapp, UserControl, UserCallConfig, UserSessionKey}

// trustedUserSchema is the reduced UserOperation type used for trusted hashes.
var trustedUserSchema = mustSchema("UserOperation", append(trustedFields(), Field{"signature", Bytes}))

func trustedFields() []Field {
	fields := make([]Field, len(trustedUserFields))
	for i, f := range trustedUserFields {
		fields[i] = UserOperationSchema.Fields[f]
	}
	return fields
}

// UserOperation is the intent signed by the user.
type UserOperation struct {
	BaseOperation
}

func newUserOperation() *UserOperation {
	return &UserOperation{BaseOperation: newBaseOperation(UserOperationSchema)}
}

func (u *UserOperation) Set(f UserField, value any) error { return u.set(int(f), value) }
func (u *UserOperation) Get(f UserField) any              { return cloneValue(u.get(int(f))) }

func (u *UserOperation) From() common.Address       { return u.addressAt(int(UserFrom)) }
func (u *UserOperation) To() common.Address         { return u.addressAt(int(UserTo)) }
func (u *UserOperation) Value() *big.Int            { return u.uintAt(int(UserValue)) }
func (u *UserOperation) Gas() *big.Int              { return u.uintAt(int(UserGas)) }
func (u *UserOperation) MaxFeePerGas() *big.Int     { return u.uintAt(int(UserMaxFeePerGas)) }
func (u *UserOperation) Nonce() *big.Int            { return u.uintAt(int(UserNonce)) }
func (u *UserOperation) Deadline() *big.Int         { return u.uintAt(int(UserDeadline)) }
func (u *UserOperation) Dapp() common.Address       { return u.addressAt(int(UserDapp)) }
func (u *UserOperation) Control() common.Address    { return u.addressAt(int(UserControl)) }
func (u *UserOperation) SessionKey() common.Address { return u.addressAt(int(UserSessionKey)) }
func (u *UserOperation) Data() []byte               { return u.bytesAt(int(UserData)) }
func (u *UserOperation) Signature() []byte          { return u.bytesAt(int(UserSignature)) }

func (u *UserOperation) CallConfig() uint32 {
	if v := u.uintAt(int(UserCallConfig)); v != nil {
		return uint32(v.Uint64())
	}
	return 0
}

// HashWithDomain is the user operation hash referenced by solver and dApp operations.
// When trusted is set only from, to, dapp, control, callConfig and sessionKey are hashed.
func (u *UserOperation) HashWithDomain(domain Domain, trusted bool) (common.Hash, error) {
	if !trusted {
		return u.Digest(domain)
	}
	if err := u.ValidateFields(); err != nil {
		return common.Hash{}, err
	}

	reduced := newBaseOperation(trustedUserSchema)
	for i, f := range trustedUserFields {
		reduced.values[i] = u.get(int(f))
	}
	reduced.values[trustedUserSchema.signatureIndex()] = []byte{}

	proof, err := reduced.ProofHash()
	if err != nil {
		return common.Hash{}, err
	}
	return domain.HashTypedData(proof)
}

// Clone returns a deep copy.
func (u *UserOperation) Clone() *UserOperation {
	return &UserOperation{BaseOperation: u.clone()}
}

// UnmarshalJSON accepts the wire form written by MarshalJSON.
func (u *UserOperation) UnmarshalJSON(data []byte) error {
	props, err := propsFromJSON(data)
	if err != nil {
		return err
	}
	op, err := NewUserOperation(props)
	if err != nil {
		return err
	}
	*u = *op
	return nil
}
