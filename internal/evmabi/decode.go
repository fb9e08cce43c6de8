package evmabi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"chaincodec/internal/model"
)

// WordSize is the EVM ABI word width in bytes.
const WordSize = 32

// MaxNestingDepth bounds recursion over attacker-controlled type
// nesting. Exceeding it is an UnsupportedDepthError, never a crash.
const MaxNestingDepth = 16

// MalformedDataError reports an out-of-bounds read, truncated data or a
// bad tail offset, tagged with the byte offset of the failed access.
type MalformedDataError struct {
	Offset int
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data at byte %d: %s", e.Offset, e.Reason)
}

// UnsupportedDepthError means the nesting guard tripped.
type UnsupportedDepthError struct {
	Max int
}

func (e *UnsupportedDepthError) Error() string {
	return fmt.Sprintf("type nesting exceeds maximum depth %d", e.Max)
}

// UnsupportedTypeError means the decoder has no rule for a declared type.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %q", e.Type)
}

// DecodeSequence decodes an ordered list of parameter types from an
// ABI-encoded data segment using head-tail layout. It is the entry
// point for a log's non-indexed parameters.
func DecodeSequence(types []Type, data []byte) ([]model.Value, error) {
	return decodeSequence(data, 0, types, 0)
}

// DecodeWord decodes a single static value from one 32-byte word, as
// found in a log topic. The type must be a one-word elementary type.
func DecodeWord(t Type, word []byte) (model.Value, error) {
	if len(word) != WordSize {
		return model.Value{}, &MalformedDataError{Offset: len(word), Reason: "topic is not 32 bytes"}
	}
	return decodeStaticWord(t, word, 0)
}

// decodeSequence decodes types laid out at data[frame:]. Static values
// occupy consecutive head slots; dynamic values are reached through an
// offset word relative to the frame start.
func decodeSequence(data []byte, frame int, types []Type, depth int) ([]model.Value, error) {
	if depth > MaxNestingDepth {
		return nil, &UnsupportedDepthError{Max: MaxNestingDepth}
	}

	headBytes := 0
	for _, t := range types {
		headBytes += t.HeadWords() * WordSize
	}

	values := make([]model.Value, 0, len(types))
	cursor := frame
	for _, t := range types {
		if t.IsDynamic() {
			offset, err := readOffset(data, cursor)
			if err != nil {
				return nil, err
			}
			if offset < headBytes {
				return nil, &MalformedDataError{
					Offset: cursor,
					Reason: fmt.Sprintf("tail offset %d points into the head region", offset),
				}
			}
			tail := frame + offset
			if tail > len(data) {
				return nil, &MalformedDataError{
					Offset: cursor,
					Reason: fmt.Sprintf("tail offset %d past end of data", offset),
				}
			}
			val, err := decodeDynamic(data, tail, t, depth+1)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
			cursor += WordSize
			continue
		}

		val, consumed, err := decodeStatic(data, cursor, t, depth+1)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
		cursor += consumed
	}
	return values, nil
}

// decodeStatic decodes a static value occupying one or more consecutive
// head slots. Returns the value and the number of bytes consumed.
func decodeStatic(data []byte, pos int, t Type, depth int) (model.Value, int, error) {
	if depth > MaxNestingDepth {
		return model.Value{}, 0, &UnsupportedDepthError{Max: MaxNestingDepth}
	}

	switch t.Kind {
	case KindFixedArray:
		items := make([]model.Value, 0, t.Size)
		consumed := 0
		for i := 0; i < t.Size; i++ {
			val, n, err := decodeStatic(data, pos+consumed, *t.Elem, depth+1)
			if err != nil {
				return model.Value{}, 0, err
			}
			items = append(items, val)
			consumed += n
		}
		return model.ListValue(items), consumed, nil

	case KindTuple:
		fields := make([]model.NamedValue, 0, len(t.Fields))
		consumed := 0
		for _, f := range t.Fields {
			val, n, err := decodeStatic(data, pos+consumed, f.Type, depth+1)
			if err != nil {
				return model.Value{}, 0, err
			}
			fields = append(fields, model.NamedValue{Name: f.Name, Value: val})
			consumed += n
		}
		return model.StructValue(fields), consumed, nil

	default:
		word, err := readWord(data, pos)
		if err != nil {
			return model.Value{}, 0, err
		}
		val, err := decodeStaticWord(t, word, pos)
		if err != nil {
			return model.Value{}, 0, err
		}
		return val, WordSize, nil
	}
}

// decodeStaticWord interprets one 32-byte word per standard alignment
// rules: numerics right-aligned big-endian, address right-aligned 20
// bytes, fixed bytes left-aligned.
func decodeStaticWord(t Type, word []byte, pos int) (model.Value, error) {
	switch t.Kind {
	case KindUint:
		v := new(big.Int).SetBytes(word)
		return model.NumberValue(truncateUint(v, t.Bits).String()), nil
	case KindInt:
		v := new(big.Int).SetBytes(word)
		return model.NumberValue(toSigned(v, t.Bits).String()), nil
	case KindBool:
		v := new(big.Int).SetBytes(word)
		switch {
		case v.Sign() == 0:
			return model.BoolValue(false), nil
		case v.Cmp(big.NewInt(1)) == 0:
			return model.BoolValue(true), nil
		default:
			return model.Value{}, &MalformedDataError{Offset: pos, Reason: "bool word is not 0 or 1"}
		}
	case KindAddress:
		return model.AddressValue(common.BytesToAddress(word).Hex()), nil
	case KindFixedBytes:
		return model.BytesValue(hexutil.Encode(word[:t.Size])), nil
	default:
		return model.Value{}, &UnsupportedTypeError{Type: t.String()}
	}
}

// decodeDynamic decodes a dynamic value whose tail starts at data[pos].
func decodeDynamic(data []byte, pos int, t Type, depth int) (model.Value, error) {
	if depth > MaxNestingDepth {
		return model.Value{}, &UnsupportedDepthError{Max: MaxNestingDepth}
	}

	switch t.Kind {
	case KindBytes, KindString:
		length, err := readOffset(data, pos)
		if err != nil {
			return model.Value{}, err
		}
		start := pos + WordSize
		if start+length > len(data) {
			return model.Value{}, &MalformedDataError{
				Offset: start + length,
				Reason: fmt.Sprintf("%s payload of %d bytes runs past end of data", t.String(), length),
			}
		}
		payload := data[start : start+length]
		if t.Kind == KindString {
			return model.StringValue(string(payload)), nil
		}
		return model.BytesValue(hexutil.Encode(payload)), nil

	case KindArray:
		length, err := readOffset(data, pos)
		if err != nil {
			return model.Value{}, err
		}
		// Each element needs at least one head word; reject counts the
		// remaining data cannot possibly satisfy.
		if length*WordSize > len(data)-pos-WordSize {
			return model.Value{}, &MalformedDataError{
				Offset: pos,
				Reason: fmt.Sprintf("array length %d exceeds remaining data", length),
			}
		}
		elems := make([]Type, length)
		for i := range elems {
			elems[i] = *t.Elem
		}
		items, err := decodeSequence(data, pos+WordSize, elems, depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.ListValue(items), nil

	case KindFixedArray:
		elems := make([]Type, t.Size)
		for i := range elems {
			elems[i] = *t.Elem
		}
		items, err := decodeSequence(data, pos, elems, depth+1)
		if err != nil {
			return model.Value{}, err
		}
		return model.ListValue(items), nil

	case KindTuple:
		types := make([]Type, 0, len(t.Fields))
		for _, f := range t.Fields {
			types = append(types, f.Type)
		}
		vals, err := decodeSequence(data, pos, types, depth+1)
		if err != nil {
			return model.Value{}, err
		}
		fields := make([]model.NamedValue, 0, len(t.Fields))
		for i, f := range t.Fields {
			fields = append(fields, model.NamedValue{Name: f.Name, Value: vals[i]})
		}
		return model.StructValue(fields), nil

	default:
		return model.Value{}, &UnsupportedTypeError{Type: t.String()}
	}
}

// readWord returns the 32-byte word at data[pos].
func readWord(data []byte, pos int) ([]byte, error) {
	if pos < 0 || pos+WordSize > len(data) {
		return nil, &MalformedDataError{Offset: pos, Reason: "word read past end of data"}
	}
	return data[pos : pos+WordSize], nil
}

// readOffset reads a word and interprets it as a byte offset or length.
// Values that cannot fit a machine int are malformed by construction:
// no real log is that large.
func readOffset(data []byte, pos int) (int, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(word)
	if !v.IsInt64() || v.Int64() > int64(1<<40) {
		return 0, &MalformedDataError{Offset: pos, Reason: "offset word out of range"}
	}
	return int(v.Int64()), nil
}

// truncateUint keeps the low bits of a full-word unsigned value.
func truncateUint(v *big.Int, bits int) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	mask.Sub(mask, big.NewInt(1))
	return v.And(v, mask)
}

// toSigned interprets the full 256-bit word as two's complement, then
// narrows to the declared bit width.
func toSigned(v *big.Int, bits int) *big.Int {
	v = truncateUint(v, bits)
	half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if v.Cmp(half) >= 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		v.Sub(v, full)
	}
	return v
}
