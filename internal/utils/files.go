package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Standard default permissions
// File: u=rw, g=rw, o=r
const PermFile os.FileMode = 0664

// Dir:  u=rwx, g=rwx, o=rx (Requires +x to traverse)
const PermDir os.FileMode = 0775

// Exec: u=rwx, g=rwx, o=rx
const PermExec os.FileMode = 0775

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// PathExists reports whether anything (file, dir, or symlink) exists at path.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// EnsureDir checks if a directory exists, and creates it if it doesn't.
func EnsureDir(path string) error {
	if DirExists(path) {
		return nil
	}
	return os.MkdirAll(path, PermDir)
}

// CopyFile copies src to dst, keeping the source file mode.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// CopyInto copies src into dir under its own base name and returns the new path.
func CopyInto(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))
	if err := CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// TrimExt returns the base name of path without its extension.
func TrimExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
