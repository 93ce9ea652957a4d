package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWalker_DefaultInclude(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.jsonl", "nested/deep/b.jsonl", "notes.txt")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(root, "a.jsonl"),
		filepath.Join(root, "nested", "deep", "b.jsonl"),
	}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], files[i])
		}
	}
}

func TestWalker_Excludes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "keep.jsonl", "tmp/skip.jsonl", "old.bak.jsonl")

	files, err := NewWalker(nil, []string{"tmp/", "**/*.bak.jsonl"}).Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 1 || files[0] != filepath.Join(root, "keep.jsonl") {
		t.Errorf("expected only keep.jsonl, got %v", files)
	}
}

func TestWalker_CustomInclude(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.ndjson", "b.jsonl")

	files, err := NewWalker([]string{"*.ndjson"}, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 1 || filepath.Base(files[0]) != "a.ndjson" {
		t.Errorf("expected only a.ndjson, got %v", files)
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	if _, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}
