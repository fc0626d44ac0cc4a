package relay

import (
	"encoding/json"
)

type callResult struct {
	result json.RawMessage
	err    error
}

// pendingCall is resolved exactly once: by its response, by the reconnect
// that drops its connection, or by Close.
type pendingCall struct {
	method string
	done   chan callResult

	// accept runs on the reader goroutine before the caller is woken, so
	// state derived from the response exists before any later push is handled.
	accept func(json.RawMessage) error
}

func newPendingCall(method string, accept func(json.RawMessage) error) *pendingCall {
	return &pendingCall{
		method: method,
		done:   make(chan callResult, 1),
		accept: accept,
	}
}

func (c *pendingCall) resolve(msg *inbound) {
	if msg.Error != nil {
		c.done <- callResult{err: msg.Error}
		return
	}
	if c.accept != nil {
		if err := c.accept(msg.Result); err != nil {
			c.done <- callResult{err: err}
			return
		}
	}
	c.done <- callResult{result: msg.Result}
}

func (c *pendingCall) fail(err error) {
	c.done <- callResult{err: err}
}

func failPending(pending map[uint64]*pendingCall, err error) {
	for _, call := range pending {
		call.fail(err)
	}
}
