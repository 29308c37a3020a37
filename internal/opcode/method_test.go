package opcode

import "testing"

func TestParseMethodIDRoundTrip(t *testing.T) {
	tests := []string{
		"a.b.Class.method:(II)I",
		"Simple.noargs:()V",
		"a.b.Strings.concat:(Ljava/lang/String;Ljava/lang/String;)Ljava/lang/String;",
		"a.b.Arrays.sum:([I)I",
		"a.b.Mix.go:(Z[CLjava/lang/String;)Z",
	}
	for _, s := range tests {
		m, err := ParseMethodID(s)
		if err != nil {
			t.Fatalf("ParseMethodID(%q) error: %v", s, err)
		}
		if got := m.String(); got != s {
			t.Fatalf("round trip mismatch: parsed %q, re-rendered %q", s, got)
		}
	}
}

func TestParseMethodIDFields(t *testing.T) {
	m, err := ParseMethodID("a.b.Class.method:(IZ)I")
	if err != nil {
		t.Fatalf("ParseMethodID error: %v", err)
	}
	if m.Class != "a.b.Class" {
		t.Errorf("Class = %q, want a.b.Class", m.Class)
	}
	if m.Name != "method" {
		t.Errorf("Name = %q, want method", m.Name)
	}
	if len(m.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(m.Params))
	}
	if m.Return == nil {
		t.Fatal("Return is nil, want non-nil for I")
	}
}

func TestParseMethodIDVoid(t *testing.T) {
	m, err := ParseMethodID("a.b.Class.method:()V")
	if err != nil {
		t.Fatalf("ParseMethodID error: %v", err)
	}
	if m.Return != nil {
		t.Fatalf("Return = %v, want nil for void", m.Return)
	}
}

func TestParseMethodIDMalformed(t *testing.T) {
	tests := []string{
		"",
		"noclass:()V",
		"a.b.Class.method",
		"a.b.Class.method:[II)I",
		"a.b.Class.method:(II",
	}
	for _, s := range tests {
		if _, err := ParseMethodID(s); err == nil {
			t.Errorf("ParseMethodID(%q) succeeded, want error", s)
		}
	}
}
