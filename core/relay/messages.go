package relay

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	methodSubscribe           = "subscribe"
	methodSubmitUserOperation = "submitUserOperation"
	methodSubmitBundle        = "submitBundle"
	methodSubscription        = "subscription"

	// SolutionsTopic carries solver operations and bundle confirmations for
	// intents submitted under an identity.
	SolutionsTopic = "solutions"
)

type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

// inbound is either a response, matched by ID, or a subscription push.
type inbound struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCError is an error reported by the relay for a single request.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

type subscribeParams struct {
	Topic     string         `json:"topic"`
	Identity  common.Address `json:"identity"`
	Signature hexutil.Bytes  `json:"signature"`
}

type subscriptionParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// subscriptionKey normalises a subscription id, which relays assign either as
// a string or as a number.
func subscriptionKey(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("empty subscription id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return "", fmt.Errorf("unexpected subscription id %s", string(raw))
	}
	return n.String(), nil
}

type solutionPush struct {
	IntentID string          `json:"intentId"`
	Solution json.RawMessage `json:"solution"`
}

// decodeIDs accepts either a single id or a list of ids.
func decodeIDs(raw json.RawMessage) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("unexpected id result %s", string(raw))
	}
	return []string{id}, nil
}
