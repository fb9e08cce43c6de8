package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind discriminates decoded value variants.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindAddress
	KindBytes
	KindString
	KindList
	KindStruct
	KindIndexedHash
)

// Value is a decoded parameter value in its boundary representation.
// Numbers are kept as decimal strings so 256-bit values never lose
// precision; byte data and addresses are 0x-prefixed hex.
type Value struct {
	Kind   ValueKind
	Number string
	Bool   bool
	Hex    string
	Text   string
	List   []Value
	Fields []NamedValue
}

// NamedValue is an ordered struct member or event parameter.
type NamedValue struct {
	Name  string
	Value Value
}

func NumberValue(decimal string) Value {
	return Value{Kind: KindNumber, Number: decimal}
}

func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func AddressValue(hex string) Value {
	return Value{Kind: KindAddress, Hex: hex}
}

func BytesValue(hex string) Value {
	return Value{Kind: KindBytes, Hex: hex}
}

func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

func ListValue(items []Value) Value {
	return Value{Kind: KindList, List: items}
}

func StructValue(fields []NamedValue) Value {
	return Value{Kind: KindStruct, Fields: fields}
}

// IndexedHashValue marks an indexed dynamic parameter whose original
// value survived in the topic only as its keccak hash.
func IndexedHashValue(hex string) Value {
	return Value{Kind: KindIndexedHash, Hex: hex}
}

// MarshalJSON renders the boundary form: numbers as decimal strings,
// bytes and addresses as hex strings, structs as ordered objects, and
// indexed-dynamic placeholders as {"indexedHash":"0x..."}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindAddress, KindBytes:
		return json.Marshal(v.Hex)
	case KindString:
		return json.Marshal(v.Text)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindStruct:
		return marshalOrdered(v.Fields)
	case KindIndexedHash:
		return json.Marshal(struct {
			IndexedHash string `json:"indexedHash"`
		}{v.Hex})
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// marshalOrdered writes a JSON object preserving member order, which
// encoding/json maps cannot do.
func marshalOrdered(fields []NamedValue) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
