package schema

import (
	"fmt"

	"chaincodec/internal/evmabi"
)

// SyntaxError reports a malformed CSDL declaration. One bad declaration
// fails the whole file: callers get an atomic valid-or-not contract.
type SyntaxError struct {
	Line   int
	Event  string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("line %d: event %s: %s", e.Line, e.Event, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseCSDL parses schema definition text into an ordered list of event
// schemas. Declarations have the form
//
//	event Name(type [indexed] param, ...)
//
// with nesting allowed in types (arrays of tuples, tuples of arrays).
// Whitespace is insignificant; "//" and "#" start comments that run to
// end of line.
func ParseCSDL(src string) ([]Event, error) {
	p := &csdlParser{input: src, line: 1}
	var events []Event
	for {
		p.skipSpace()
		if p.eof() {
			return events, nil
		}
		ev, err := p.parseEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

type csdlParser struct {
	input string
	pos   int
	line  int
}

func (p *csdlParser) parseEvent() (Event, error) {
	kw := p.ident()
	if kw != "event" {
		return Event{}, &SyntaxError{Line: p.line, Reason: fmt.Sprintf("expected 'event', got %q", kw)}
	}
	p.skipSpace()

	name := p.ident()
	if name == "" {
		return Event{}, &SyntaxError{Line: p.line, Reason: "missing event name"}
	}
	p.skipSpace()

	if !p.consume('(') {
		return Event{}, &SyntaxError{Line: p.line, Event: name, Reason: "expected '(' after event name"}
	}

	var params []Param
	seen := map[string]bool{}
	p.skipSpace()
	if p.consume(')') {
		return New(name, params), nil
	}
	for {
		param, err := p.parseParam(name)
		if err != nil {
			return Event{}, err
		}
		if seen[param.Name] {
			return Event{}, &SyntaxError{
				Line: p.line, Event: name,
				Reason: fmt.Sprintf("duplicate parameter name %q", param.Name),
			}
		}
		seen[param.Name] = true
		params = append(params, param)

		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			continue
		}
		if p.consume(')') {
			return New(name, params), nil
		}
		if p.eof() {
			return Event{}, &SyntaxError{Line: p.line, Event: name, Reason: "unterminated declaration"}
		}
		return Event{}, &SyntaxError{
			Line: p.line, Event: name,
			Reason: fmt.Sprintf("unexpected character %q in parameter list", p.input[p.pos]),
		}
	}
}

func (p *csdlParser) parseParam(event string) (Param, error) {
	token, err := p.typeToken(event)
	if err != nil {
		return Param{}, err
	}
	ty, err := evmabi.ParseType(token)
	if err != nil {
		return Param{}, &SyntaxError{Line: p.line, Event: event, Reason: err.Error()}
	}
	p.skipSpace()

	indexed := false
	word := p.ident()
	if word == "indexed" {
		indexed = true
		p.skipSpace()
		word = p.ident()
	}
	if word == "" {
		return Param{}, &SyntaxError{Line: p.line, Event: event, Reason: "missing parameter name"}
	}
	return Param{Name: word, Type: ty, Indexed: indexed}, nil
}

// typeToken collects the characters of one type expression. Commas and
// closing parens terminate the token at nesting depth zero; inside a
// tuple they belong to the type. Whitespace inside a tuple is skipped
// so "( uint256 , address )" parses the same as "(uint256,address)".
func (p *csdlParser) typeToken(event string) (string, error) {
	var out []byte
	depth := 0
	for !p.eof() {
		c := p.input[p.pos]
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return finishTypeToken(out, depth, p, event)
			}
			depth--
		case c == ',':
			if depth == 0 {
				return finishTypeToken(out, depth, p, event)
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if depth == 0 {
				return finishTypeToken(out, depth, p, event)
			}
			p.skipSpace()
			continue
		case c == '/' || c == '#':
			if depth == 0 {
				return finishTypeToken(out, depth, p, event)
			}
			before := p.pos
			p.skipSpace()
			if p.pos == before {
				return "", &SyntaxError{
					Line: p.line, Event: event,
					Reason: fmt.Sprintf("unexpected character %q in type", c),
				}
			}
			continue
		case isTypeChar(c):
			// accumulated below
		default:
			return "", &SyntaxError{
				Line: p.line, Event: event,
				Reason: fmt.Sprintf("unexpected character %q in type", c),
			}
		}
		out = append(out, c)
		p.pos++
	}
	return finishTypeToken(out, depth, p, event)
}

func finishTypeToken(out []byte, depth int, p *csdlParser, event string) (string, error) {
	if depth != 0 {
		return "", &SyntaxError{Line: p.line, Event: event, Reason: "unterminated tuple type"}
	}
	if len(out) == 0 {
		return "", &SyntaxError{Line: p.line, Event: event, Reason: "missing parameter type"}
	}
	return string(out), nil
}

// ident consumes an identifier [A-Za-z_][A-Za-z0-9_]*.
func (p *csdlParser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isNum := c >= '0' && c <= '9'
		if !isAlpha && !(isNum && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *csdlParser) consume(c byte) bool {
	if !p.eof() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *csdlParser) eof() bool {
	return p.pos >= len(p.input)
}

// skipSpace advances past whitespace and comments, tracking lines.
func (p *csdlParser) skipSpace() {
	for !p.eof() {
		c := p.input[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#':
			p.skipLine()
		case c == '/' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '/':
			p.skipLine()
		default:
			return
		}
	}
}

func (p *csdlParser) skipLine() {
	for !p.eof() && p.input[p.pos] != '\n' {
		p.pos++
	}
}

func isTypeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '[' || c == ']'
}
