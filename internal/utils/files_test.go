package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyInto(t *testing.T) {
	src := filepath.Join(t.TempDir(), "protein.pdb")
	if err := os.WriteFile(src, []byte("ATOM 1\n"), 0640); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	dst, err := CopyInto(src, dir)
	if err != nil {
		t.Fatalf("CopyInto failed: %v", err)
	}
	if dst != filepath.Join(dir, "protein.pdb") {
		t.Errorf("dst = %s", dst)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ATOM 1\n" {
		t.Errorf("copied content = %q", data)
	}
	info, _ := os.Stat(dst)
	if info.Mode().Perm() != 0640 {
		t.Errorf("mode = %v; want 0640", info.Mode().Perm())
	}
}

func TestCopyFileRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(dir, filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error copying a directory")
	}
}

func TestTrimExt(t *testing.T) {
	tests := map[string]string{
		"/data/protein.pdb": "protein",
		"complex.v2.pdb":    "complex.v2",
		"noext":             "noext",
	}
	for in, want := range tests {
		if got := TrimExt(in); got != want {
			t.Errorf("TrimExt(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestExistenceChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, PermFile); err != nil {
		t.Fatal(err)
	}
	if !FileExists(file) || FileExists(dir) {
		t.Error("FileExists misreports")
	}
	if !DirExists(dir) || DirExists(file) {
		t.Error("DirExists misreports")
	}
	if !PathExists(file) || PathExists(filepath.Join(dir, "missing")) {
		t.Error("PathExists misreports")
	}
	nested := filepath.Join(dir, "a", "b")
	if err := EnsureDir(nested); err != nil || !DirExists(nested) {
		t.Errorf("EnsureDir failed: %v", err)
	}
}
