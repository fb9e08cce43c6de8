package decoder

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"chaincodec/internal/evmabi"
	"chaincodec/internal/model"
	"chaincodec/internal/registry"
	"chaincodec/internal/schema"
)

func TestDecodeTransfer(t *testing.T) {
	reg := loadRegistry(t, `event Transfer(address indexed from, address indexed to, uint256 value)`)

	from := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	to := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	value := new(big.Int)
	value.SetString("1000000000000000000", 10)

	log := model.RawLog{
		Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Topics: []string{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")).Hex(),
			common.BytesToHash(from.Bytes()).Hex(),
			common.BytesToHash(to.Bytes()).Hex(),
		},
		Data: hexutil.Encode(value.FillBytes(make([]byte, 32))),
	}

	event, err := Decode(log, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if event.Name != "Transfer" {
		t.Fatalf("name: %s", event.Name)
	}
	if len(event.Params) != 3 {
		t.Fatalf("param count: %d", len(event.Params))
	}
	if event.Params[0].Name != "from" || event.Params[0].Value.Hex != from.Hex() {
		t.Fatalf("from: %+v", event.Params[0])
	}
	if event.Params[1].Name != "to" || event.Params[1].Value.Hex != to.Hex() {
		t.Fatalf("to: %+v", event.Params[1])
	}
	if event.Params[2].Name != "value" || event.Params[2].Value.Number != "1000000000000000000" {
		t.Fatalf("value: %+v", event.Params[2])
	}
}

func TestDecodeSingleStringParam(t *testing.T) {
	reg := loadRegistry(t, `event Message(string message)`)

	// head word: offset 32, then length 5, then "hello" padded
	data := make([]byte, 0, 96)
	data = append(data, word(32)...)
	data = append(data, word(5)...)
	padded := make([]byte, 32)
	copy(padded, "hello")
	data = append(data, padded...)

	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics:  []string{selectorOf(t, reg, "Message")},
		Data:    hexutil.Encode(data),
	}

	event, err := Decode(log, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(event.Params) != 1 || event.Params[0].Value.Text != "hello" {
		t.Fatalf("message: %+v", event.Params)
	}
}

// An indexed dynamic parameter decodes to the hash placeholder: the
// topic holds keccak256 of the value, which cannot be reversed.
func TestDecodeIndexedDynamicParam(t *testing.T) {
	reg := loadRegistry(t, `event Named(string indexed name, uint256 id)`)

	nameHash := crypto.Keccak256Hash([]byte("alice"))
	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics: []string{
			selectorOf(t, reg, "Named"),
			nameHash.Hex(),
		},
		Data: hexutil.Encode(word(7)),
	}

	event, err := Decode(log, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	val := event.Params[0].Value
	if val.Kind != model.KindIndexedHash {
		t.Fatalf("expected indexed hash, got kind %d", val.Kind)
	}
	if !strings.EqualFold(val.Hex, nameHash.Hex()) {
		t.Fatalf("hash: got %s, want %s", val.Hex, nameHash.Hex())
	}
	if event.Params[1].Value.Number != "7" {
		t.Fatalf("id: %+v", event.Params[1])
	}
}

func TestDecodeInterleavesDeclarationOrder(t *testing.T) {
	reg := loadRegistry(t, `event Mixed(uint256 a, address indexed b, string c, uint8 indexed d)`)

	args := gethabi.Arguments{
		{Type: mustGethType(t, "uint256")},
		{Type: mustGethType(t, "string")},
	}
	data, err := args.Pack(big.NewInt(5), "hi")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics: []string{
			selectorOf(t, reg, "Mixed"),
			common.BytesToHash(addr.Bytes()).Hex(),
			hexutil.Encode(word(9)),
		},
		Data: hexutil.Encode(data),
	}

	event, err := Decode(log, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	names := []string{"a", "b", "c", "d"}
	for i, want := range names {
		if event.Params[i].Name != want {
			t.Fatalf("param %d: got %s, want %s", i, event.Params[i].Name, want)
		}
	}
	if event.Params[0].Value.Number != "5" {
		t.Fatalf("a: %+v", event.Params[0].Value)
	}
	if event.Params[1].Value.Hex != addr.Hex() {
		t.Fatalf("b: %+v", event.Params[1].Value)
	}
	if event.Params[2].Value.Text != "hi" {
		t.Fatalf("c: %+v", event.Params[2].Value)
	}
	if event.Params[3].Value.Number != "9" {
		t.Fatalf("d: %+v", event.Params[3].Value)
	}
}

func TestDecodeNoTopics(t *testing.T) {
	reg := loadRegistry(t, `event Transfer(address indexed from, address indexed to, uint256 value)`)

	_, err := Decode(model.RawLog{Address: "0x1", Topics: nil, Data: "0x"}, reg)
	var unknown *UnknownSelectorError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSelectorError, got %v", err)
	}
}

func TestDecodeUnknownSelector(t *testing.T) {
	reg := loadRegistry(t, `event Transfer(address indexed from, address indexed to, uint256 value)`)

	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics:  []string{crypto.Keccak256Hash([]byte("Unknown()")).Hex()},
		Data:    "0x",
	}
	_, err := Decode(log, reg)
	var unknown *UnknownSelectorError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSelectorError, got %v", err)
	}
}

func TestDecodeTopicCountMismatch(t *testing.T) {
	reg := loadRegistry(t, `event Transfer(address indexed from, address indexed to, uint256 value)`)

	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics: []string{
			selectorOf(t, reg, "Transfer"),
			common.HexToHash("0x01").Hex(),
			// second indexed topic missing
		},
		Data: hexutil.Encode(word(1)),
	}
	_, err := Decode(log, reg)
	var mismatch *TopicCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TopicCountMismatchError, got %v", err)
	}
	if mismatch.Want != 2 || mismatch.Got != 1 {
		t.Fatalf("mismatch detail: %+v", mismatch)
	}
}

func TestDecodeTruncatedDataReportsOffset(t *testing.T) {
	reg := loadRegistry(t, `event Pair(uint256 a, uint256 b)`)

	log := model.RawLog{
		Address: "0x1111111111111111111111111111111111111111",
		Topics:  []string{selectorOf(t, reg, "Pair")},
		Data:    hexutil.Encode(word(1)), // second word missing
	}
	_, err := Decode(log, reg)
	var malformed *evmabi.MalformedDataError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDataError, got %v", err)
	}
	if malformed.Offset != 32 {
		t.Fatalf("offset: got %d, want 32", malformed.Offset)
	}
}

func TestDecodeAcceptsUnprefixedHex(t *testing.T) {
	reg := loadRegistry(t, `event Ping(uint256 n)`)

	sel := selectorOf(t, reg, "Ping")
	log := model.RawLog{
		Address: "1111111111111111111111111111111111111111",
		Topics:  []string{strings.TrimPrefix(sel, "0x")},
		Data:    hexutil.Encode(word(3))[2:],
	}
	event, err := Decode(log, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Params[0].Value.Number != "3" {
		t.Fatalf("n: %+v", event.Params[0].Value)
	}
}

func TestErrorRecordKinds(t *testing.T) {
	offset := 16
	cases := []struct {
		err  error
		kind string
	}{
		{&schema.SyntaxError{Line: 1, Reason: "x"}, KindSchemaSyntax},
		{&registry.DirectoryError{Path: "/x", Err: errors.New("gone")}, KindDirectory},
		{&UnknownSelectorError{}, KindUnknownSelector},
		{&TopicCountMismatchError{Event: "E", Want: 2, Got: 1}, KindTopicCountMismatch},
		{&evmabi.MalformedDataError{Offset: offset, Reason: "short"}, KindMalformedData},
		{&evmabi.UnsupportedDepthError{Max: 16}, KindUnsupportedDepth},
		{&evmabi.UnsupportedTypeError{Type: "t"}, KindUnsupportedType},
		{errors.New("misc"), KindInvalidInput},
	}
	for _, c := range cases {
		record := ErrorRecord(c.err)
		if record.Kind != c.kind {
			t.Fatalf("kind for %v: got %s, want %s", c.err, record.Kind, c.kind)
		}
	}

	record := ErrorRecord(&evmabi.MalformedDataError{Offset: offset, Reason: "short"})
	if record.Offset == nil || *record.Offset != offset {
		t.Fatalf("malformed record must carry offset: %+v", record)
	}
}

func loadRegistry(t *testing.T, csdl string) *registry.Registry {
	t.Helper()
	events, err := schema.ParseCSDL(csdl)
	if err != nil {
		t.Fatalf("parse csdl: %v", err)
	}
	reg := registry.New()
	for _, ev := range events {
		reg.Add(ev)
	}
	return reg
}

func selectorOf(t *testing.T, reg *registry.Registry, name string) string {
	t.Helper()
	for _, ss := range reg.Summary().Schemas {
		if ss.Name == name {
			return ss.Selector
		}
	}
	t.Fatalf("schema %s not in registry", name)
	return ""
}

func mustGethType(t *testing.T, name string) gethabi.Type {
	t.Helper()
	ty, err := gethabi.NewType(name, "", nil)
	if err != nil {
		t.Fatalf("geth type %s: %v", name, err)
	}
	return ty
}

func word(v int64) []byte {
	return big.NewInt(v).FillBytes(make([]byte, 32))
}
