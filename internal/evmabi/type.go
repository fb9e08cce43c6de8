package evmabi

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the ABI type variants.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindBool
	KindAddress
	KindFixedBytes
	KindBytes
	KindString
	KindArray
	KindFixedArray
	KindTuple
)

// Field is a named member of a tuple type.
type Field struct {
	Name string
	Type Type
}

// Type is the canonical representation of an EVM ABI type.
// Bits carries the width for uint/int, Size the byte length for
// fixed bytes and the element count for fixed arrays.
type Type struct {
	Kind   Kind
	Bits   int
	Size   int
	Elem   *Type
	Fields []Field
}

// IsDynamic reports whether the type uses tail encoding: its value
// cannot be represented in a fixed number of head words.
func (t Type) IsDynamic() bool {
	switch t.Kind {
	case KindBytes, KindString, KindArray:
		return true
	case KindFixedArray:
		return t.Elem.IsDynamic()
	case KindTuple:
		for _, f := range t.Fields {
			if f.Type.IsDynamic() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// HeadWords returns the number of 32-byte words the type occupies in the
// head region. Dynamic types always occupy a single offset word.
func (t Type) HeadWords() int {
	if t.IsDynamic() {
		return 1
	}
	switch t.Kind {
	case KindFixedArray:
		return t.Size * t.Elem.HeadWords()
	case KindTuple:
		n := 0
		for _, f := range t.Fields {
			n += f.Type.HeadWords()
		}
		return n
	default:
		return 1
	}
}

// String renders the canonical type string used in event signatures:
// elementary types in lowercase long form, tuples as "(t1,t2,...)",
// arrays with a "[]" or "[N]" suffix.
func (t Type) String() string {
	switch t.Kind {
	case KindUint:
		return "uint" + strconv.Itoa(t.Bits)
	case KindInt:
		return "int" + strconv.Itoa(t.Bits)
	case KindBool:
		return "bool"
	case KindAddress:
		return "address"
	case KindFixedBytes:
		return "bytes" + strconv.Itoa(t.Size)
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return t.Elem.String() + "[]"
	case KindFixedArray:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Size)
	case KindTuple:
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, f.Type.String())
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return "?"
	}
}

// Convenience constructors used by the schema parser and tests.

func Uint(bits int) Type {
	return Type{Kind: KindUint, Bits: bits}
}

func Int(bits int) Type {
	return Type{Kind: KindInt, Bits: bits}
}

func Bool() Type {
	return Type{Kind: KindBool}
}

func Address() Type {
	return Type{Kind: KindAddress}
}

func Bytes() Type {
	return Type{Kind: KindBytes}
}

func String() Type {
	return Type{Kind: KindString}
}

func FixedBytes(n int) Type {
	return Type{Kind: KindFixedBytes, Size: n}
}

func Array(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

func Tuple(fs ...Field) Type {
	return Type{Kind: KindTuple, Fields: fs}
}

func FixedArray(elem Type, n int) Type {
	return Type{Kind: KindFixedArray, Size: n, Elem: &elem}
}

// ParseType parses a canonical type string such as "uint256",
// "(uint256,address)[]" or "bytes32[4]". The whole input must be
// consumed; trailing characters are an error.
func ParseType(s string) (Type, error) {
	p := &typeParser{input: s}
	t, err := p.parse()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(p.input) {
		return Type{}, fmt.Errorf("unexpected trailing characters in type %q", s)
	}
	return t, nil
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) parse() (Type, error) {
	var base Type
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		t, err := p.parseTuple()
		if err != nil {
			return Type{}, err
		}
		base = t
	} else {
		t, err := p.parseElementary()
		if err != nil {
			return Type{}, err
		}
		base = t
	}
	return p.parseSuffixes(base)
}

func (p *typeParser) parseTuple() (Type, error) {
	p.pos++ // consume '('
	var fields []Field
	if p.pos < len(p.input) && p.input[p.pos] == ')' {
		return Type{}, fmt.Errorf("empty tuple type")
	}
	for {
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		fields = append(fields, Field{Name: strconv.Itoa(len(fields)), Type: elem})
		if p.pos >= len(p.input) {
			return Type{}, fmt.Errorf("unterminated tuple type")
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return Type{Kind: KindTuple, Fields: fields}, nil
		default:
			return Type{}, fmt.Errorf("unexpected character %q in tuple type", p.input[p.pos])
		}
	}
}

func (p *typeParser) parseElementary() (Type, error) {
	start := p.pos
	for p.pos < len(p.input) && (isIdentChar(p.input[p.pos]) || isDigit(p.input[p.pos])) {
		p.pos++
	}
	token := p.input[start:p.pos]
	if token == "" {
		return Type{}, fmt.Errorf("missing type at position %d", start)
	}

	switch token {
	case "bool":
		return Bool(), nil
	case "address":
		return Address(), nil
	case "bytes":
		return Bytes(), nil
	case "string":
		return String(), nil
	case "uint":
		return Uint(256), nil
	case "int":
		return Int(256), nil
	}

	if n, ok := strings.CutPrefix(token, "uint"); ok {
		bits, err := parseBits(n)
		if err != nil {
			return Type{}, fmt.Errorf("invalid type %q: %v", token, err)
		}
		return Uint(bits), nil
	}
	if n, ok := strings.CutPrefix(token, "int"); ok {
		bits, err := parseBits(n)
		if err != nil {
			return Type{}, fmt.Errorf("invalid type %q: %v", token, err)
		}
		return Int(bits), nil
	}
	if n, ok := strings.CutPrefix(token, "bytes"); ok {
		size, err := strconv.Atoi(n)
		if err != nil || size < 1 || size > 32 {
			return Type{}, fmt.Errorf("invalid fixed bytes type %q", token)
		}
		return FixedBytes(size), nil
	}
	return Type{}, fmt.Errorf("unknown type %q", token)
}

func (p *typeParser) parseSuffixes(base Type) (Type, error) {
	for p.pos < len(p.input) && p.input[p.pos] == '[' {
		p.pos++
		if p.pos < len(p.input) && p.input[p.pos] == ']' {
			p.pos++
			base = Array(base)
			continue
		}
		start := p.pos
		for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			p.pos++
		}
		if p.pos >= len(p.input) || p.input[p.pos] != ']' {
			return Type{}, fmt.Errorf("unterminated array suffix in type")
		}
		size, err := strconv.Atoi(p.input[start:p.pos])
		if err != nil || size < 1 {
			return Type{}, fmt.Errorf("invalid fixed array length %q", p.input[start:p.pos])
		}
		p.pos++
		base = FixedArray(base, size)
	}
	return base, nil
}

func parseBits(s string) (int, error) {
	bits, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad width %q", s)
	}
	if bits < 8 || bits > 256 || bits%8 != 0 {
		return 0, fmt.Errorf("width %d out of range", bits)
	}
	return bits, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
