package value

import "testing"

func TestEncodeParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"positive int", Int(42)},
		{"negative int", Int(-7)},
		{"zero", Int(0)},
		{"float", Float(3.5)},
		{"float whole", Float(4)},
		{"bool true", Bool(true)},
		{"bool false", Bool(false)},
		{"char", Char('a')},
		{"char quote", Char('\'')},
		{"string", RawString("hello")},
		{"string with quote", RawString(`say "hi"`)},
		{"empty int array", RawArray(TypeInt, nil)},
		{"int array", RawArray(TypeInt, []Value{Int(1), Int(2), Int(-3)})},
		{"char array", RawArray(TypeChar, []Value{Char('a'), Char('b')})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.v.Encode()
			parsed, err := ParseValue(encoded)
			if err != nil {
				t.Fatalf("ParseValue(%q) error: %v", encoded, err)
			}
			if got := parsed.Encode(); got != encoded {
				t.Fatalf("round trip mismatch: encoded %q, reparsed+reencoded %q", encoded, got)
			}
		})
	}
}

func TestParseTuple(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"(1, 2, 3)", 3},
		{"(42)", 1},
		{"42", 1},
		{"()", 0},
		{`("a,b", 1)`, 2},
		{"([I: 1, 2], 3)", 2},
	}
	for _, tt := range tests {
		values, err := ParseTuple(tt.in)
		if err != nil {
			t.Fatalf("ParseTuple(%q) error: %v", tt.in, err)
		}
		if len(values) != tt.want {
			t.Fatalf("ParseTuple(%q) = %d values, want %d", tt.in, len(values), tt.want)
		}
	}
}

func TestTypeEqual(t *testing.T) {
	if !Array(TypeInt).Equal(Array(TypeInt)) {
		t.Fatal("equal array types reported unequal")
	}
	if Array(TypeInt).Equal(Array(TypeFloat)) {
		t.Fatal("unequal array types reported equal")
	}
	if !Object("a.B").Equal(Object("a.B")) {
		t.Fatal("equal object types reported unequal")
	}
	if Object("a.B").Equal(Object("a.C")) {
		t.Fatal("unequal object types reported equal")
	}
}
