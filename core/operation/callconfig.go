package operation

// CallConfigFlag is a bit index into the dApp call config carried by
// UserOperation.callConfig.
type CallConfigFlag uint

const (
	UserNoncesSequential CallConfigFlag = iota
	DAppNoncesSequential
	RequirePreOps
	TrackPreOpsReturnData
	TrackUserReturnData
	DelegateUserCall
	RequirePreSolver
	RequirePostSolver
	ZeroSolvers
	ReuseUserOp
	UserAuctioneer
	SolverAuctioneer
	UnknownAuctioneer
	VerifyCallChainHash
	ForwardReturnData
	RequireFulfillment
	TrustedOpHash
	InvertBidValue
	ExPostBids
	AllowAllocateValueFailure
)

func (f CallConfigFlag) IsSet(callConfig uint32) bool {
	return callConfig&(1<<f) != 0
}

func (f CallConfigFlag) Enable(callConfig uint32) uint32 {
	return callConfig | 1<<f
}

// RequiresPreOps reports whether the dApp control runs a preOps call.
func (u *UserOperation) RequiresPreOps() bool {
	return RequirePreOps.IsSet(u.CallConfig())
}

// UsesTrustedOpHash reports whether the user operation hash covers only the
// trusted field subset.
func (u *UserOperation) UsesTrustedOpHash() bool {
	return TrustedOpHash.IsSet(u.CallConfig())
}
