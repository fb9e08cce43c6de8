package evmabi

import "testing"

func TestParseTypeElementary(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"uint256", "uint256"},
		{"uint8", "uint8"},
		{"uint", "uint256"},
		{"int24", "int24"},
		{"int", "int256"},
		{"bool", "bool"},
		{"address", "address"},
		{"bytes32", "bytes32"},
		{"bytes1", "bytes1"},
		{"bytes", "bytes"},
		{"string", "string"},
	}
	for _, c := range cases {
		ty, err := ParseType(c.input)
		if err != nil {
			t.Fatalf("parse %q: %v", c.input, err)
		}
		if ty.String() != c.want {
			t.Fatalf("canonical form of %q: got %q, want %q", c.input, ty.String(), c.want)
		}
	}
}

func TestParseTypeComposite(t *testing.T) {
	cases := []string{
		"uint256[]",
		"uint256[3]",
		"uint256[3][]",
		"(uint256,address)",
		"(uint256,address)[]",
		"(uint256,(string,bytes)[])[2]",
		"address[][]",
	}
	for _, c := range cases {
		ty, err := ParseType(c)
		if err != nil {
			t.Fatalf("parse %q: %v", c, err)
		}
		if ty.String() != c {
			t.Fatalf("canonical round trip of %q: got %q", c, ty.String())
		}
	}
}

func TestParseTypeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"uint7",
		"uint264",
		"uint0",
		"bytes0",
		"bytes33",
		"()",
		"(uint256",
		"uint256[",
		"uint256[0]",
		"uint256 ",
		"elephant",
	}
	for _, c := range cases {
		if _, err := ParseType(c); err == nil {
			t.Fatalf("parse %q: expected error", c)
		}
	}
}

func TestIsDynamic(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"uint256", false},
		{"bool", false},
		{"bytes32", false},
		{"bytes", true},
		{"string", true},
		{"uint256[]", true},
		{"uint256[4]", false},
		{"string[4]", true},
		{"(uint256,address)", false},
		{"(uint256,string)", true},
		{"(uint256,address)[2]", false},
	}
	for _, c := range cases {
		ty, err := ParseType(c.input)
		if err != nil {
			t.Fatalf("parse %q: %v", c.input, err)
		}
		if ty.IsDynamic() != c.want {
			t.Fatalf("IsDynamic(%q) = %v, want %v", c.input, ty.IsDynamic(), c.want)
		}
	}
}

func TestHeadWords(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"uint256", 1},
		{"string", 1},
		{"uint256[4]", 4},
		{"(uint256,address)", 2},
		{"(uint256,address)[3]", 6},
		{"(uint256,string)", 1},
		{"uint256[]", 1},
	}
	for _, c := range cases {
		ty, err := ParseType(c.input)
		if err != nil {
			t.Fatalf("parse %q: %v", c.input, err)
		}
		if ty.HeadWords() != c.want {
			t.Fatalf("HeadWords(%q) = %d, want %d", c.input, ty.HeadWords(), c.want)
		}
	}
}
