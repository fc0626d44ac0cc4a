// Package relay is a websocket client for the Atlas auction relay. It submits
// user operations as intents, collects the solver operations pushed for each
// intent during a fixed auction window, and waits for bundle confirmations.
package relay

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/chainio/signer"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/metrics"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

const (
	DefaultAuctionDuration = 2 * time.Second
	DefaultReconnectDelay  = time.Second

	dialTimeout      = 10 * time.Second
	writeTimeout     = 10 * time.Second
	subscribeTimeout = 10 * time.Second
)

var (
	// ErrRelayConnection is returned for calls made while the relay is not
	// connected, and to every call still pending when the connection drops.
	ErrRelayConnection = errors.New("relay connection unavailable")

	ErrClosed = errors.New("relay client closed")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Config struct {
	URL             string
	Header          http.Header
	AuctionDuration time.Duration
	ReconnectDelay  time.Duration

	// Optional. Defaults to the real clock, the default websocket dialer and
	// no-op metrics.
	Clock   clockwork.Clock
	Dialer  *websocket.Dialer
	Metrics metrics.MetricsGenerator
}

type Relay struct {
	url             string
	header          http.Header
	dialer          *websocket.Dialer
	auctionDuration time.Duration
	reconnectDelay  time.Duration
	clock           clockwork.Clock
	logger          sdklogging.Logger
	metrics         metrics.MetricsGenerator

	// ephemeral identity the solutions feed is keyed by
	key      *ecdsa.PrivateKey
	identity common.Address

	writeMu sync.Mutex

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	nextID        uint64
	pending       map[uint64]*pendingCall
	subscriptions map[string]func(json.RawMessage)
	intents       map[string]*intent
	confirmations map[string]*confirmation
	closed        bool

	closing chan struct{}
	wg      sync.WaitGroup
}

func New(cfg Config, log sdklogging.Logger) (*Relay, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("relay url is required")
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate relay identity: %w", err)
	}

	r := &Relay{
		url:             cfg.URL,
		header:          cfg.Header,
		dialer:          cfg.Dialer,
		auctionDuration: cfg.AuctionDuration,
		reconnectDelay:  cfg.ReconnectDelay,
		clock:           cfg.Clock,
		logger:          logger.EnsureLogger(log),
		metrics:         cfg.Metrics,
		key:             key,
		identity:        crypto.PubkeyToAddress(key.PublicKey),
		pending:         make(map[uint64]*pendingCall),
		subscriptions:   make(map[string]func(json.RawMessage)),
		intents:         make(map[string]*intent),
		confirmations:   make(map[string]*confirmation),
		closing:         make(chan struct{}),
	}
	if r.dialer == nil {
		r.dialer = websocket.DefaultDialer
	}
	if r.auctionDuration <= 0 {
		r.auctionDuration = DefaultAuctionDuration
	}
	if r.reconnectDelay <= 0 {
		r.reconnectDelay = DefaultReconnectDelay
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.metrics == nil {
		r.metrics = metrics.NewNoopMetrics()
	}

	return r, nil
}

// Identity is the address the solutions feed is keyed by.
func (r *Relay) Identity() common.Address {
	return r.identity
}

func (r *Relay) AuctionDuration() time.Duration {
	return r.auctionDuration
}

func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Connect dials the relay and subscribes to the solutions feed. After a
// successful Connect the connection is kept open until Close.
func (r *Relay) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state != StateDisconnected {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("relay is already %s", state)
	}
	r.state = StateConnecting
	r.mu.Unlock()

	conn, err := r.dial(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = StateDisconnected
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	r.conn = conn
	r.state = StateOpen
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(conn)

	if err := r.subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", SolutionsTopic, err)
	}

	r.logger.Info("relay connected", "url", r.url, "identity", r.identity.Hex())
	return nil
}

func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closing)
	conn := r.conn
	r.conn = nil
	r.state = StateDisconnected
	pending := r.pending
	r.pending = make(map[uint64]*pendingCall)
	intents := r.intents
	r.intents = make(map[string]*intent)
	r.mu.Unlock()

	failPending(pending, ErrClosed)
	for _, in := range intents {
		in.cancel()
	}

	var err error
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = conn.Close()
	}
	r.wg.Wait()

	r.logger.Info("relay closed", "url", r.url)
	return err
}

func (r *Relay) SubmitUserOperation(ctx context.Context, chainID *big.Int, userOp *operation.UserOperation, hints []string) (*backend.UserOperationResult, error) {
	var intentID string
	params := operation.NewWireUserOperation(chainID, userOp, hints)
	_, err := r.call(ctx, methodSubmitUserOperation, params, func(result json.RawMessage) error {
		if err := json.Unmarshal(result, &intentID); err != nil {
			return fmt.Errorf("decode intent id: %w", err)
		}
		if intentID == "" {
			return fmt.Errorf("relay returned an empty intent id")
		}
		r.openIntent(intentID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("intent accepted", "intentId", intentID, "auctionDuration", r.auctionDuration)
	return &backend.UserOperationResult{Hashes: []string{intentID}}, nil
}

// GetSolverOperations drains the solver operations collected for an intent.
// Without wait it fails with backend.ErrAuctionOngoing while the window is
// open. A drained intent is forgotten. A waiter whose intent is reopened
// follows the new one.
func (r *Relay) GetSolverOperations(ctx context.Context, _ *big.Int, id string, wait bool) ([]*operation.SolverOperation, error) {
	for {
		in, err := r.lookupIntent(id)
		if err != nil {
			return nil, err
		}

		if !in.closed(r.clock, r.auctionDuration) {
			if !wait {
				return nil, fmt.Errorf("%w: intent %s", backend.ErrAuctionOngoing, id)
			}
			select {
			case <-in.elapsed:
			case <-in.stop:
				// replaced, drained or closed
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-r.closing:
				return nil, ErrClosed
			}
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		current, ok := r.intents[id]
		if !ok {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: intent %s", backend.ErrNotFound, id)
		}
		if current != in {
			r.mu.Unlock()
			continue
		}
		delete(r.intents, id)
		ops := in.solverOps
		r.mu.Unlock()
		in.cancel()

		if ops == nil {
			ops = []*operation.SolverOperation{}
		}
		r.logger.Debug("intent drained", "intentId", id, "solverOps", len(ops))
		return ops, nil
	}
}

func (r *Relay) lookupIntent(id string) (*intent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	in, ok := r.intents[id]
	if !ok {
		return nil, fmt.Errorf("%w: intent %s", backend.ErrNotFound, id)
	}
	return in, nil
}

func (r *Relay) SubmitBundle(ctx context.Context, chainID *big.Int, bundle *operation.Bundle) ([]string, error) {
	var ids []string
	_, err := r.call(ctx, methodSubmitBundle, bundle.ToWire(chainID), func(result json.RawMessage) error {
		var err error
		if ids, err = decodeIDs(result); err != nil {
			return err
		}
		r.mu.Lock()
		for _, id := range ids {
			r.confirmationFor(id)
		}
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetBundleHash returns the bundle hash pushed for id. With wait it blocks
// until the hash arrives or ctx is done; there is no window for confirmations.
func (r *Relay) GetBundleHash(ctx context.Context, _ *big.Int, id string, wait bool) (common.Hash, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return common.Hash{}, ErrClosed
	}
	c, ok := r.confirmations[id]
	if ok && c.set {
		delete(r.confirmations, id)
		r.mu.Unlock()
		return c.hash, nil
	}
	if !wait {
		r.mu.Unlock()
		return common.Hash{}, fmt.Errorf("%w: bundle hash for %s", backend.ErrNotFound, id)
	}
	c = r.confirmationFor(id)
	r.mu.Unlock()

	select {
	case <-c.ready:
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	case <-r.closing:
		return common.Hash{}, ErrClosed
	}

	r.mu.Lock()
	if r.confirmations[id] == c {
		delete(r.confirmations, id)
	}
	r.mu.Unlock()
	return c.hash, nil
}

// confirmationFor must be called with mu held.
func (r *Relay) confirmationFor(id string) *confirmation {
	c, ok := r.confirmations[id]
	if !ok {
		c = newConfirmation()
		r.confirmations[id] = c
	}
	return c
}

func (r *Relay) openIntent(id string) {
	in := newIntent(id, r.clock, r.auctionDuration)

	r.mu.Lock()
	old := r.intents[id]
	r.intents[id] = in
	r.mu.Unlock()

	if old != nil {
		old.cancel()
	}
}

func (r *Relay) subscribe(ctx context.Context) error {
	sig, err := signer.SignMessage(r.key, r.identity.Bytes())
	if err != nil {
		return err
	}

	params := subscribeParams{Topic: SolutionsTopic, Identity: r.identity, Signature: sig}
	_, err = r.call(ctx, methodSubscribe, params, func(result json.RawMessage) error {
		subID, err := subscriptionKey(result)
		if err != nil {
			return fmt.Errorf("decode subscription id: %w", err)
		}
		r.mu.Lock()
		r.subscriptions[subID] = r.onSolution
		r.mu.Unlock()
		return nil
	})
	return err
}

func (r *Relay) call(ctx context.Context, method string, params any, accept func(json.RawMessage) error) (json.RawMessage, error) {
	call := newPendingCall(method, accept)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if r.state != StateOpen || r.conn == nil {
		state := r.state
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: relay is %s", ErrRelayConnection, state)
	}
	r.nextID++
	id := r.nextID
	r.pending[id] = call
	conn := r.conn
	r.mu.Unlock()

	if err := r.write(conn, request{ID: id, Method: method, Params: params}); err != nil {
		r.dropPending(id)
		return nil, fmt.Errorf("%w: write %s: %v", ErrRelayConnection, method, err)
	}

	select {
	case res := <-call.done:
		return res.result, res.err
	case <-ctx.Done():
		r.dropPending(id)
		return nil, ctx.Err()
	}
}

func (r *Relay) dropPending(id uint64) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Relay) write(conn *websocket.Conn, v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (r *Relay) dial(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrRelayConnection, r.url, err)
	}
	return conn, nil
}
