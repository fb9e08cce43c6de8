package model

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRendering(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{NumberValue("1000000000000000000"), `"1000000000000000000"`},
		{NumberValue("-42"), `"-42"`},
		{BoolValue(true), `true`},
		{AddressValue("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"), `"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"`},
		{BytesValue("0xdeadbeef"), `"0xdeadbeef"`},
		{StringValue("hello"), `"hello"`},
		{ListValue(nil), `[]`},
		{ListValue([]Value{NumberValue("1"), NumberValue("2")}), `["1","2"]`},
		{IndexedHashValue("0xabc123"), `{"indexedHash":"0xabc123"}`},
	}
	for _, c := range cases {
		out, err := json.Marshal(c.value)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != c.want {
			t.Fatalf("got %s, want %s", out, c.want)
		}
	}
}

func TestStructValuePreservesOrder(t *testing.T) {
	v := StructValue([]NamedValue{
		{Name: "zebra", Value: NumberValue("1")},
		{Name: "apple", Value: NumberValue("2")},
		{Name: "mango", Value: StringValue("x")},
	})
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"zebra":"1","apple":"2","mango":"x"}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestDecodedEventJSON(t *testing.T) {
	ev := DecodedEvent{
		Name:    "Transfer",
		Address: "0x1111111111111111111111111111111111111111",
		Params: []NamedValue{
			{Name: "from", Value: AddressValue("0x2222222222222222222222222222222222222222")},
			{Name: "value", Value: NumberValue("5")},
		},
	}
	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"Transfer","address":"0x1111111111111111111111111111111111111111",` +
		`"params":[{"name":"from","value":"0x2222222222222222222222222222222222222222"},{"name":"value","value":"5"}]}`
	if string(out) != want {
		t.Fatalf("got %s", out)
	}
}
