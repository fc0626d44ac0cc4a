// Package devnet serves in-memory stand-ins for the Atlas auction relay and
// the operations REST API, for tests and local development.
package devnet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/AvaProtocol/ap-atlas/core/chainio/signer"
	"github.com/AvaProtocol/ap-atlas/core/operation"
)

// Relay is an in-memory auction relay served over websocket. Intent and
// subscription ids are ULIDs. Pushes for an intent go to the latest
// connection subscribed with the identity that submitted it.
type Relay struct {
	upgrader websocket.Upgrader

	// OnUserOperation and OnBundle run after the submission was acknowledged.
	// Set them before serving.
	OnUserOperation func(intentID string, req *operation.WireUserOperation)
	OnBundle        func(id string, req *operation.WireBundle)

	mu            sync.Mutex
	conns         map[*relayConn]struct{}
	byIdentity    map[common.Address]*relayConn
	intents       map[string]common.Address
	userOps       []*operation.WireUserOperation
	bundles       []*operation.WireBundle
	subscriptions int
	holdResponses bool
}

type relayConn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	identity     common.Address
	subscription string
}

type relayRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type relayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewRelay() *Relay {
	return &Relay{
		conns:      make(map[*relayConn]struct{}),
		byIdentity: make(map[common.Address]*relayConn),
		intents:    make(map[string]common.Address),
	}
}

func (m *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &relayConn{ws: ws}
	m.mu.Lock()
	m.conns[c] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.conns, c)
		if m.byIdentity[c.identity] == c {
			delete(m.byIdentity, c.identity)
		}
		m.mu.Unlock()
		ws.Close()
	}()

	for {
		var req relayRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		m.handle(c, &req)
	}
}

func (m *Relay) handle(c *relayConn, req *relayRequest) {
	switch req.Method {
	case "subscribe":
		var params struct {
			Topic     string         `json:"topic"`
			Identity  common.Address `json:"identity"`
			Signature hexutil.Bytes  `json:"signature"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.replyError(req.ID, -32602, err.Error())
			return
		}
		recovered, err := signer.RecoverMessageSigner(params.Identity.Bytes(), params.Signature)
		if err != nil || recovered != params.Identity {
			c.replyError(req.ID, 4001, "identity signature mismatch")
			return
		}

		subID := ulid.Make().String()
		m.mu.Lock()
		c.identity = params.Identity
		c.subscription = subID
		m.byIdentity[params.Identity] = c
		m.subscriptions++
		m.mu.Unlock()
		c.reply(req.ID, subID)

	case "submitUserOperation":
		var params operation.WireUserOperation
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.replyError(req.ID, -32602, err.Error())
			return
		}

		intentID := ulid.Make().String()
		m.mu.Lock()
		m.userOps = append(m.userOps, &params)
		m.intents[intentID] = c.identity
		hold := m.holdResponses
		m.mu.Unlock()
		if hold {
			return
		}
		c.reply(req.ID, intentID)
		if m.OnUserOperation != nil {
			m.OnUserOperation(intentID, &params)
		}

	case "submitBundle":
		var params operation.WireBundle
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.replyError(req.ID, -32602, err.Error())
			return
		}

		id := ulid.Make().String()
		m.mu.Lock()
		m.bundles = append(m.bundles, &params)
		m.intents[id] = c.identity
		m.mu.Unlock()
		c.reply(req.ID, []string{id})
		if m.OnBundle != nil {
			m.OnBundle(id, &params)
		}

	default:
		c.replyError(req.ID, -32601, fmt.Sprintf("method %s not found", req.Method))
	}
}

// Push sends a raw solution for an intent to the subscriber that owns it.
func (m *Relay) Push(intentID string, solution any) error {
	m.mu.Lock()
	identity, ok := m.intents[intentID]
	c := m.byIdentity[identity]
	var subID string
	if c != nil {
		subID = c.subscription
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown intent %s", intentID)
	}
	if c == nil {
		return fmt.Errorf("no subscriber for %s", identity.Hex())
	}

	return c.write(map[string]any{
		"method": "subscription",
		"params": map[string]any{
			"subscription": subID,
			"result": map[string]any{
				"intentId": intentID,
				"solution": solution,
			},
		},
	})
}

func (m *Relay) PushSolverOperation(intentID string, op *operation.SolverOperation) error {
	return m.Push(intentID, op)
}

func (m *Relay) PushBundleHash(id string, hash common.Hash) error {
	return m.Push(id, hash.Hex())
}

// HoldResponses stops the relay from answering user operation submissions.
func (m *Relay) HoldResponses(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdResponses = hold
}

// DropConnections closes every client connection from the server side.
func (m *Relay) DropConnections() {
	m.mu.Lock()
	conns := make([]*relayConn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.ws.Close()
	}
}

// Subscriptions is the number of accepted subscribe calls so far.
func (m *Relay) Subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions
}

func (m *Relay) UserOperations() []*operation.WireUserOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*operation.WireUserOperation(nil), m.userOps...)
}

func (m *Relay) Bundles() []*operation.WireBundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*operation.WireBundle(nil), m.bundles...)
}

func (c *relayConn) reply(id uint64, result any) {
	_ = c.write(map[string]any{"id": id, "result": result})
}

func (c *relayConn) replyError(id uint64, code int, msg string) {
	_ = c.write(map[string]any{"id": id, "error": relayError{Code: code, Message: msg}})
}

func (c *relayConn) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}
