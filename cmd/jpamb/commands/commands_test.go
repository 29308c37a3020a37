package commands

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fewrick/jpamb/internal/decompiled"
	"github.com/fewrick/jpamb/internal/suite"
)

func testCache(t *testing.T) *suite.Cache {
	t.Helper()
	dir := t.TempDir()
	body := `{
		"methods": {
			"m:(II)I": [
				{"op": "load", "type": "I", "index": 0},
				{"op": "load", "type": "I", "index": 1},
				{"op": "binary", "type": "I", "binop": "div"},
				{"op": "return", "type": "I"}
			]
		}
	}`
	if err := os.MkdirAll(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "B.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return suite.New(decompiled.New(dir))
}

// captureStdout runs fn and returns what it printed to os.Stdout.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	runErr := fn()
	os.Stdout = orig
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out), runErr
}

func TestRunUsageErrorOnMissingArgs(t *testing.T) {
	if err := Run(testCache(t), nil); err == nil {
		t.Fatal("expected usage error for missing methodid")
	}
}

func TestRunDividesSuccessfully(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return Run(testCache(t), []string{"a.B.m:(II)I", "(10, 2)"})
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out, "ok\n") {
		t.Fatalf("Run printed %q, want outcome line \"ok\" first", out)
	}
}

func TestRunUsageErrorOnArityMismatch(t *testing.T) {
	err := Run(testCache(t), []string{"a.B.m:(II)I", "(10)"})
	if err == nil {
		t.Fatal("expected usage error for arity mismatch")
	}
}

func TestAbstractUsageErrorOnMissingArgs(t *testing.T) {
	if err := Abstract(testCache(t), nil); err == nil {
		t.Fatal("expected usage error for missing methodid")
	}
}

func TestAbstractReportsDivideByZero(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return Abstract(testCache(t), []string{"a.B.m:(II)I"})
	})
	if err != nil {
		t.Fatalf("Abstract: %v", err)
	}
	if !strings.Contains(out, "divide by zero") {
		t.Fatalf("Abstract printed %q, want a \"divide by zero\" outcome", out)
	}
}

func TestFuzzUsageErrorOnMissingArgs(t *testing.T) {
	if err := Fuzz(testCache(t), nil); err == nil {
		t.Fatal("expected usage error for missing methodid")
	}
}

func TestFuzzRunsToCompletion(t *testing.T) {
	if err := Fuzz(testCache(t), []string{"a.B.m:(II)I", "-max-iterations", "50"}); err != nil {
		t.Fatalf("Fuzz: %v", err)
	}
}
