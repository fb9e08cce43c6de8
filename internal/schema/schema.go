package schema

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"chaincodec/internal/evmabi"
)

// Param is one declared event parameter.
type Param struct {
	Name    string
	Type    evmabi.Type
	Indexed bool
}

// Event is a parsed, immutable event schema. The selector is the full
// 32-byte keccak256 of the canonical signature — event topics are never
// truncated, unlike 4-byte function selectors.
type Event struct {
	Name     string
	Params   []Param
	Selector common.Hash
}

// New builds an Event, computing its selector from the canonical
// signature.
func New(name string, params []Param) Event {
	return Event{
		Name:     name,
		Params:   params,
		Selector: crypto.Keccak256Hash([]byte(Signature(name, params))),
	}
}

// Signature renders the canonical event signature
// "Name(type1,type2,...)" with every type in its canonical string form.
func Signature(name string, params []Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Type.String())
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// IndexedParams returns the indexed parameters in declaration order.
func (e Event) IndexedParams() []Param {
	out := make([]Param, 0, len(e.Params))
	for _, p := range e.Params {
		if p.Indexed {
			out = append(out, p)
		}
	}
	return out
}

// DataParams returns the non-indexed parameters in declaration order.
func (e Event) DataParams() []Param {
	out := make([]Param, 0, len(e.Params))
	for _, p := range e.Params {
		if !p.Indexed {
			out = append(out, p)
		}
	}
	return out
}
