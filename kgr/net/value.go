// Package net implements the master/slave RPC servers that tunnel kgr
// pipes over a net.CryptoSocket.
package net

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/sloked-project/sloked/kgr"
)

// Value is kgr.Value on the wire: any JSON-shaped value (string, number,
// bool, nil, []interface{}, map[string]interface{}), (de)serialised with
// json-iterator.
type Value = kgr.Value

// Dict builds a dictionary-shaped Value.
func Dict(pairs map[string]Value) Value { return pairs }

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type envelopeKind uint8

const (
	kindRequest envelopeKind = iota
	kindResponse
)

// envelope is the on-wire RPC message: either a method invocation or a
// reply to one, keyed by ID so responses can arrive out of order.
type envelope struct {
	Kind   envelopeKind `json:"kind"`
	ID     uint64       `json:"id"`
	Method string       `json:"method,omitempty"`
	Params Value        `json:"params,omitempty"`
	Result Value        `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func encodeEnvelope(e envelope) ([]byte, error) { return jsonAPI.Marshal(e) }

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope
	err := jsonAPI.Unmarshal(data, &e)
	return e, err
}
