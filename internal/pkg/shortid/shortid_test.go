package shortid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := New(8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 8 {
			t.Fatalf("expected length 8, got %d", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("unexpected rune %q in %s", r, id)
			}
		}
		seen[id] = true
	}
	if len(seen) < 99 {
		t.Errorf("expected unique ids, got %d distinct of 100", len(seen))
	}
}

func TestPIN(t *testing.T) {
	for i := 0; i < 50; i++ {
		pin, err := PIN()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pin) != 6 || pin[0] == '0' {
			t.Fatalf("expected six-digit pin, got %s", pin)
		}
	}
}
