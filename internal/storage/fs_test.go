package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("start_date: 2025-08-04\n")
	if err := s.Write("counter.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("counter.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestAppendCreatesAndExtends(t *testing.T) {
	s := tempRoot(t)
	if err := s.Append("journal.txt", []byte("one\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("journal.txt", []byte("two\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := s.Read("journal.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "one\ntwo\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppendCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Append("a/b/journal.txt", []byte("deep\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	info, err := s.Stat("a/b/journal.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 5 {
		t.Errorf("size = %d, want 5", info.Size)
	}
}

func TestOpenMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Open("missing.txt")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open missing: err = %v, want os.ErrNotExist", err)
	}
}

func TestOpenStreamsContent(t *testing.T) {
	s := tempRoot(t)
	_ = s.Append("j.txt", []byte("hello"))
	rc, err := s.Open("j.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Append(p, []byte("x")); err == nil {
			t.Errorf("expected error for append to %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("counter.yaml", []byte("a"))
	if err := s.Write("counter.yaml", []byte("b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("counter.yaml")
	if string(got) != "b" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".daybook-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestAbsStaysUnderRoot(t *testing.T) {
	s := tempRoot(t)
	abs, err := s.Abs("journal.txt")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if abs != filepath.Join(s.Root(), "journal.txt") {
		t.Errorf("abs = %q", abs)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "daybook-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
