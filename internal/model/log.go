package model

import "encoding/json"

// RawLog is the normalized representation of an undecoded chain log as
// received across the system boundary. Hex fields accept an optional
// 0x prefix.
type RawLog struct {
	ChainID     uint64   `json:"chain_id,omitempty"`
	BlockNumber uint64   `json:"block_number,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	LogIndex    uint64   `json:"log_index,omitempty"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
}

// DecodedEvent is the primary output: every parameter of the matched
// schema, indexed and non-indexed interleaved in declaration order.
type DecodedEvent struct {
	Name    string       `json:"name"`
	Address string       `json:"address"`
	Params  []NamedValue `json:"params"`
}

// MarshalJSON keeps params as an ordered list of {name, value} pairs.
func (e DecodedEvent) MarshalJSON() ([]byte, error) {
	type param struct {
		Name  string `json:"name"`
		Value Value  `json:"value"`
	}
	params := make([]param, 0, len(e.Params))
	for _, p := range e.Params {
		params = append(params, param{Name: p.Name, Value: p.Value})
	}
	return json.Marshal(struct {
		Name    string  `json:"name"`
		Address string  `json:"address"`
		Params  []param `json:"params"`
	}{e.Name, e.Address, params})
}

// ErrorRecord is the discriminated error form surfaced at the boundary:
// a stable kind, a human message, and the byte offset for data-layout
// failures.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Offset  *int   `json:"offset,omitempty"`
}

// DecodeFailure ties an ErrorRecord back to the log that produced it,
// for the batch decode error stream.
type DecodeFailure struct {
	ChainID     uint64      `json:"chain_id,omitempty"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	TxHash      string      `json:"tx_hash,omitempty"`
	LogIndex    uint64      `json:"log_index,omitempty"`
	Address     string      `json:"address,omitempty"`
	Topic0      string      `json:"topic0,omitempty"`
	Error       ErrorRecord `json:"error"`
}
