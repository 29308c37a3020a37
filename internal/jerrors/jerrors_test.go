package jerrors

import "testing"

func TestUsageError(t *testing.T) {
	err := NewUsageError("bad method id %q", "x")
	if err.Error() != `bad method id "x"` {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestImplementationBug(t *testing.T) {
	err := NewImplementationBug("a.B.m:()V", 12, "stack underflow on pop")
	if err.Method != "a.B.m:()V" || err.Offset != 12 {
		t.Fatalf("unexpected context: %+v", err)
	}
	if err.StackTrace() == nil {
		t.Fatal("StackTrace() = nil, want captured frames")
	}
}
