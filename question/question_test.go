package question

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Expected ErrEmptyPool, got %v", err)
	}

	if _, err := New([]Question{{Text: "ok"}, {Text: "   "}}); err == nil {
		t.Error("Expected an error for a blank question")
	}

	pool, err := New([]Question{{Text: "  trimmed  "}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := pool.Pick(fixedSource(0)).Text; got != "trimmed" {
		t.Errorf("Expected trimmed text, got %q", got)
	}
}

func TestPool_Pick(t *testing.T) {
	pool, err := New([]Question{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if err != nil {
		t.Fatal(err)
	}

	if got := pool.Pick(fixedSource(1)).Text; got != "b" {
		t.Errorf("Expected b, got %s", got)
	}
	if got := pool.Pick(fixedSource(5)).Text; got != "c" {
		t.Errorf("Expected c, got %s", got)
	}
}

func TestQuestion_Render(t *testing.T) {
	q := Question{Text: "Why does {player} hate Mondays? Ask {player}."}
	if !q.HasSubject() {
		t.Fatal("Expected HasSubject to be true")
	}

	want := "Why does Ana hate Mondays? Ask Ana."
	if got := q.Render("Ana"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	plain := Question{Text: "No subject here"}
	if plain.HasSubject() {
		t.Error("Expected HasSubject to be false")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`[{"text":"one"},{"text":"two {player}"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	pool, err := Load(good)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("Expected 2 questions, got %d", pool.Len())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"text":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Expected an error for malformed JSON")
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestDefault(t *testing.T) {
	pool, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	if pool.Len() == 0 {
		t.Error("Expected embedded questions")
	}
}
