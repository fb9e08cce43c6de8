package decoder

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"chaincodec/internal/evmabi"
	"chaincodec/internal/model"
	"chaincodec/internal/registry"
	"chaincodec/internal/schema"
)

// UnknownSelectorError means topics[0] is absent or matches no schema.
type UnknownSelectorError struct {
	Selector string
}

func (e *UnknownSelectorError) Error() string {
	if e.Selector == "" {
		return "log has no topics: selector unknown"
	}
	return fmt.Sprintf("no schema for selector %s", e.Selector)
}

// TopicCountMismatchError means the log carries fewer topics than the
// schema has indexed parameters.
type TopicCountMismatchError struct {
	Event string
	Want  int
	Got   int
}

func (e *TopicCountMismatchError) Error() string {
	return fmt.Sprintf("event %s: expected %d topics, got %d", e.Event, e.Want, e.Got)
}

// Decode resolves a raw log against the registry and reconstructs every
// parameter the contract emitted, in declaration order. The decode is
// all-or-nothing: any parameter failure aborts with an error and no
// partial event is ever returned.
func Decode(log model.RawLog, reg *registry.Registry) (*model.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, &UnknownSelectorError{}
	}

	topics, err := parseTopics(log.Topics)
	if err != nil {
		return nil, err
	}

	ev, ok := reg.Get(topics[0])
	if !ok {
		return nil, &UnknownSelectorError{Selector: topics[0].Hex()}
	}

	indexed := ev.IndexedParams()
	if len(topics)-1 < len(indexed) {
		return nil, &TopicCountMismatchError{Event: ev.Name, Want: len(indexed), Got: len(topics) - 1}
	}

	data, err := hexutil.Decode(withHexPrefix(log.Data))
	if err != nil {
		return nil, fmt.Errorf("invalid log data: %w", err)
	}

	dataValues, err := evmabi.DecodeSequence(paramTypes(ev.DataParams()), data)
	if err != nil {
		return nil, err
	}

	params := make([]model.NamedValue, 0, len(ev.Params))
	topicIdx := 1
	dataIdx := 0
	for _, p := range ev.Params {
		if p.Indexed {
			val, err := decodeTopic(p.Type, topics[topicIdx])
			if err != nil {
				return nil, err
			}
			params = append(params, model.NamedValue{Name: p.Name, Value: val})
			topicIdx++
			continue
		}
		params = append(params, model.NamedValue{Name: p.Name, Value: dataValues[dataIdx]})
		dataIdx++
	}

	return &model.DecodedEvent{
		Name:    ev.Name,
		Address: normalizeAddress(log.Address),
		Params:  params,
	}, nil
}

// decodeTopic decodes one indexed parameter from its 32-byte topic.
// Value types are stored directly and decode to their value. Reference
// types (string, bytes, arrays, tuples) are stored as the keccak256 of
// their encoding: the original value is unrecoverable from the log, so
// they decode to an IndexedHash placeholder rather than an error.
func decodeTopic(t evmabi.Type, topic common.Hash) (model.Value, error) {
	switch t.Kind {
	case evmabi.KindUint, evmabi.KindInt, evmabi.KindBool,
		evmabi.KindAddress, evmabi.KindFixedBytes:
		return evmabi.DecodeWord(t, topic.Bytes())
	default:
		return model.IndexedHashValue(topic.Hex()), nil
	}
}

func parseTopics(raw []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(raw))
	for _, topic := range raw {
		b, err := hexutil.Decode(withHexPrefix(topic))
		if err != nil {
			return nil, fmt.Errorf("invalid topic %q: %w", topic, err)
		}
		if len(b) != common.HashLength {
			return nil, fmt.Errorf("topic %q is %d bytes, want 32", topic, len(b))
		}
		out = append(out, common.BytesToHash(b))
	}
	return out, nil
}

func paramTypes(params []schema.Param) []evmabi.Type {
	types := make([]evmabi.Type, 0, len(params))
	for _, p := range params {
		types = append(types, p.Type)
	}
	return types
}

func normalizeAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

func withHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	if s == "" {
		return "0x"
	}
	return "0x" + s
}

// Error kinds surfaced at the boundary.
const (
	KindSchemaSyntax       = "schema_syntax"
	KindDirectory          = "directory"
	KindUnknownSelector    = "unknown_selector"
	KindTopicCountMismatch = "topic_count_mismatch"
	KindMalformedData      = "malformed_data"
	KindUnsupportedDepth   = "unsupported_depth"
	KindUnsupportedType    = "unsupported_type"
	KindInvalidInput       = "invalid_input"
)

// ErrorRecord maps any error from the decode pipeline onto the
// discriminated boundary form. Errors never cross the boundary as
// control flow; callers get a kind, a message and, for data-layout
// failures, the byte offset.
func ErrorRecord(err error) model.ErrorRecord {
	var (
		syntaxErr    *schema.SyntaxError
		dirErr       *registry.DirectoryError
		unknownErr   *UnknownSelectorError
		topicErr     *TopicCountMismatchError
		malformedErr *evmabi.MalformedDataError
		depthErr     *evmabi.UnsupportedDepthError
		typeErr      *evmabi.UnsupportedTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return model.ErrorRecord{Kind: KindSchemaSyntax, Message: err.Error()}
	case errors.As(err, &dirErr):
		return model.ErrorRecord{Kind: KindDirectory, Message: err.Error()}
	case errors.As(err, &unknownErr):
		return model.ErrorRecord{Kind: KindUnknownSelector, Message: err.Error()}
	case errors.As(err, &topicErr):
		return model.ErrorRecord{Kind: KindTopicCountMismatch, Message: err.Error()}
	case errors.As(err, &malformedErr):
		offset := malformedErr.Offset
		return model.ErrorRecord{Kind: KindMalformedData, Message: err.Error(), Offset: &offset}
	case errors.As(err, &depthErr):
		return model.ErrorRecord{Kind: KindUnsupportedDepth, Message: err.Error()}
	case errors.As(err, &typeErr):
		return model.ErrorRecord{Kind: KindUnsupportedType, Message: err.Error()}
	default:
		return model.ErrorRecord{Kind: KindInvalidInput, Message: err.Error()}
	}
}
