package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

// intent is the auction state for one submitted user operation.
type intent struct {
	id        string
	startTime time.Time
	solverOps []*operation.SolverOperation

	timer    clockwork.Timer
	elapsed  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func newIntent(id string, clock clockwork.Clock, window time.Duration) *intent {
	in := &intent{
		id:        id,
		startTime: clock.Now(),
		timer:     clock.NewTimer(window),
		elapsed:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
	go in.watch()
	return in
}

func (in *intent) watch() {
	select {
	case <-in.timer.Chan():
		close(in.elapsed)
	case <-in.stop:
		in.timer.Stop()
	}
}

// accepts reports whether a solver operation arriving now is inside the window.
func (in *intent) accepts(clock clockwork.Clock, window time.Duration) bool {
	return clock.Since(in.startTime) <= window
}

func (in *intent) closed(clock clockwork.Clock, window time.Duration) bool {
	select {
	case <-in.elapsed:
		return true
	default:
	}
	return clock.Since(in.startTime) >= window
}

func (in *intent) cancel() {
	in.stopOnce.Do(func() { close(in.stop) })
}

// confirmation holds the bundle hash pushed for an id. ready is closed once
// the hash is set.
type confirmation struct {
	hash  common.Hash
	set   bool
	ready chan struct{}
}

func newConfirmation() *confirmation {
	return &confirmation{ready: make(chan struct{})}
}

func (c *confirmation) fill(hash common.Hash) bool {
	if c.set {
		return false
	}
	c.hash = hash
	c.set = true
	close(c.ready)
	return true
}

type solutionKind int

const (
	solutionMalformed solutionKind = iota
	solutionBundleHash
	solutionSolverOperation
)

func (k solutionKind) String() string {
	switch k {
	case solutionBundleHash:
		return "bundle_hash"
	case solutionSolverOperation:
		return "solver_operation"
	default:
		return "malformed"
	}
}

// classifySolution probes the pushed payload: a 32 byte hex digest is a bundle
// confirmation, anything that decodes as a solver operation is a bid. Solver
// operations may arrive as an object or as a JSON encoded string.
func classifySolution(raw json.RawMessage) (solutionKind, common.Hash, *operation.SolverOperation) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if operation.IsHash(s) {
			return solutionBundleHash, common.HexToHash(s), nil
		}
		raw = json.RawMessage(s)
	}

	var op operation.SolverOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return solutionMalformed, common.Hash{}, nil
	}
	return solutionSolverOperation, common.Hash{}, &op
}
