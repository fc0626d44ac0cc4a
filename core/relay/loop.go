package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

// run owns the read side of the connection. Every inbound message is handled
// here in arrival order; on a read error it reconnects until Close.
func (r *Relay) run(conn *websocket.Conn) {
	defer r.wg.Done()

	for {
		err := r.readLoop(conn)
		if !r.connectionLost(conn, err) {
			return
		}

		conn = r.reconnect()
		if conn == nil {
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
			defer cancel()
			if err := r.subscribe(ctx); err != nil {
				r.logger.Error("relay resubscribe failed", "topic", SolutionsTopic, "error", err)
			}
		}()
	}
}

func (r *Relay) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		r.dispatch(data)
	}
}

// connectionLost fails every pending call and drops subscriptions. Intents
// survive: the feed is keyed by identity so pushes resume after resubscribing.
func (r *Relay) connectionLost(conn *websocket.Conn, cause error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.state = StateReconnecting
	r.conn = nil
	pending := r.pending
	r.pending = make(map[uint64]*pendingCall)
	r.subscriptions = make(map[string]func(json.RawMessage))
	r.mu.Unlock()

	conn.Close()
	r.logger.Warn("relay connection lost", "url", r.url, "pending", len(pending), "error", cause)
	failPending(pending, fmt.Errorf("%w: %v", ErrRelayConnection, cause))
	return true
}

func (r *Relay) reconnect() *websocket.Conn {
	for attempt := 1; ; attempt++ {
		select {
		case <-r.closing:
			return nil
		case <-r.clock.After(r.reconnectDelay):
		}

		conn, err := r.dial(context.Background())
		if err != nil {
			r.logger.Warn("relay reconnect failed", "url", r.url, "attempt", attempt, "error", err)
			continue
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			conn.Close()
			return nil
		}
		r.conn = conn
		r.state = StateOpen
		r.mu.Unlock()

		r.metrics.IncRelayReconnect()
		r.logger.Info("relay reconnected", "url", r.url, "attempt", attempt)
		return conn
	}
}

func (r *Relay) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		r.metrics.IncRelayMessage("malformed")
		r.logger.Warn("dropping malformed relay message", "error", err)
		return
	}

	if msg.Method == methodSubscription {
		r.metrics.IncRelayMessage("push")
		r.handlePush(msg.Params)
		return
	}

	if msg.ID == nil {
		r.metrics.IncRelayMessage("unknown")
		r.logger.Warn("dropping relay message without id", "method", msg.Method)
		return
	}

	r.metrics.IncRelayMessage("response")
	r.mu.Lock()
	call, ok := r.pending[*msg.ID]
	delete(r.pending, *msg.ID)
	r.mu.Unlock()
	if !ok {
		r.logger.Debug("no pending call for relay response", "id", *msg.ID)
		return
	}
	call.resolve(&msg)
}

func (r *Relay) handlePush(raw json.RawMessage) {
	var params subscriptionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		r.logger.Warn("dropping malformed relay push", "error", err)
		return
	}

	subID, err := subscriptionKey(params.Subscription)
	if err != nil {
		r.logger.Warn("dropping relay push", "error", err)
		return
	}

	r.mu.Lock()
	handler := r.subscriptions[subID]
	r.mu.Unlock()
	if handler == nil {
		r.logger.Debug("push for unknown subscription", "subscription", subID)
		return
	}
	handler(params.Result)
}

func (r *Relay) onSolution(raw json.RawMessage) {
	var push solutionPush
	if err := json.Unmarshal(raw, &push); err != nil || push.IntentID == "" {
		r.metrics.IncSolverOperation("malformed")
		r.logger.Warn("dropping solution without intent id", "error", err)
		return
	}

	kind, hash, op := classifySolution(push.Solution)
	switch kind {
	case solutionBundleHash:
		r.storeBundleHash(push.IntentID, hash)
	case solutionSolverOperation:
		r.collect(push.IntentID, op)
	default:
		r.metrics.IncSolverOperation("malformed")
		r.logger.Warn("dropping unrecognised solution", "intentId", push.IntentID)
	}
}

func (r *Relay) collect(id string, op *operation.SolverOperation) {
	r.mu.Lock()
	in, ok := r.intents[id]
	if !ok {
		r.mu.Unlock()
		r.metrics.IncSolverOperation("unknown_intent")
		r.logger.Debug("solver operation for unknown intent", "intentId", id)
		return
	}
	if !in.accepts(r.clock, r.auctionDuration) {
		r.mu.Unlock()
		r.metrics.IncSolverOperation("late")
		r.logger.Debug("dropping late solver operation", "intentId", id, "solver", op.Solver().Hex())
		return
	}
	in.solverOps = append(in.solverOps, op)
	r.mu.Unlock()

	r.metrics.IncSolverOperation("collected")
}

func (r *Relay) storeBundleHash(id string, hash common.Hash) {
	r.mu.Lock()
	filled := r.confirmationFor(id).fill(hash)
	r.mu.Unlock()

	if filled {
		r.metrics.IncBundleHash()
		r.logger.Debug("bundle hash received", "id", id, "hash", hash.Hex())
	}
}
