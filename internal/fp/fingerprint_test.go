package fp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSumStable(t *testing.T) {
	a := Sum([]byte("content"))
	b := Sum([]byte("content"))
	if a != b {
		t.Fatalf("same bytes hashed differently: %s vs %s", a, b)
	}
	if a == Sum([]byte("other")) {
		t.Fatalf("different bytes produced equal digests")
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	if err := os.WriteFile(path, []byte(`{"k":"v"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := SumFile(path)
	if err != nil {
		t.Fatalf("SumFile: %v", err)
	}
	if want := Sum([]byte(`{"k":"v"}`)); got != want {
		t.Fatalf("SumFile = %s, want %s", got, want)
	}

	if _, err := SumFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error hashing missing file")
	}
}
