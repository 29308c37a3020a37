package decompiled

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fewrick/jpamb/internal/opcode"
)

func writeClass(t *testing.T, dir, class, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(class, ".", "/"))+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveDecodesInstructions(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "a.B", `{
		"methods": {
			"m:(II)I": [
				{"op": "load", "type": "I", "index": 0},
				{"op": "load", "type": "I", "index": 1},
				{"op": "binary", "type": "I", "binop": "div"},
				{"op": "return", "type": "I"}
			]
		}
	}`)
	l := New(dir)
	m, err := opcode.ParseMethodID("a.B.m:(II)I")
	if err != nil {
		t.Fatal(err)
	}
	code, err := l.Resolve(m)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(code) != 4 {
		t.Fatalf("len(code) = %d, want 4", len(code))
	}
	if code[2].Op != opcode.OpBinary || code[2].BinOp != opcode.Div {
		t.Fatalf("code[2] = %+v, want binary div", code[2])
	}
	if code[3].Op != opcode.OpReturn || code[3].Void {
		t.Fatalf("code[3] = %+v, want non-void return", code[3])
	}
}

func TestResolveMissingClassFails(t *testing.T) {
	l := New(t.TempDir())
	m, _ := opcode.ParseMethodID("a.B.m:(II)I")
	if _, err := l.Resolve(m); err == nil {
		t.Fatal("expected error for missing class file")
	}
}

func TestResolveMissingMethodFails(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "a.B", `{"methods": {}}`)
	l := New(dir)
	m, _ := opcode.ParseMethodID("a.B.m:(II)I")
	if _, err := l.Resolve(m); err == nil {
		t.Fatal("expected error for missing method")
	}
}

func TestResolveFallbackUsesSamePath(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "a.B", `{
		"methods": {"m:()V": [{"op": "return", "void": true}]}
	}`)
	l := New(dir)
	m, _ := opcode.ParseMethodID("a.B.m:()V")
	code, err := l.ResolveFallback(m)
	if err != nil {
		t.Fatalf("ResolveFallback: %v", err)
	}
	if len(code) != 1 || !code[0].Void {
		t.Fatalf("code = %+v, want one void return", code)
	}
}

func TestPushDecodesLiteralValue(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "a.B", `{
		"methods": {"k:()I": [
			{"op": "push", "type": "I", "value": "42"},
			{"op": "return", "type": "I"}
		]}
	}`)
	l := New(dir)
	m, _ := opcode.ParseMethodID("a.B.k:()I")
	code, err := l.Resolve(m)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if code[0].Value.AsInt() != 42 {
		t.Fatalf("pushed value = %v, want 42", code[0].Value)
	}
}
