package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Backend defines the minimal persistence operations the store requires.
// Implementations are the external collaborator the core delegates durable
// IO to; the store itself stays oblivious to where bytes live.
type Backend interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	List(prefix string) ([]string, error)
	Delete(path string) error
}

// FileBackend stores records on the local filesystem under root. Writes go
// through a temp file and rename so readers never observe a partial record.
type FileBackend struct {
	root     string
	fileMode os.FileMode
}

// NewFileBackend creates a filesystem-backed Backend rooted at root.
func NewFileBackend(root string) (*FileBackend, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("memory: backend root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{
		root:     abs,
		fileMode: 0o600,
	}, nil
}

// Read loads file contents from disk.
func (f *FileBackend) Read(p string) ([]byte, error) {
	full, err := f.fullPath(p)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Write persists bytes atomically, creating parent directories as needed.
func (f *FileBackend) Write(p string, data []byte) error {
	full, err := f.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), filepath.Base(full)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), f.fileMode); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// List enumerates files contained within prefix.
func (f *FileBackend) List(prefix string) ([]string, error) {
	full, err := f.fullPath(prefix)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{normalizePath(prefix)}, nil
	}
	var paths []string
	err = filepath.WalkDir(full, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, normalizePath("/"+filepath.ToSlash(rel)))
		return nil
	})
	return paths, err
}

// Delete removes the file or directory at the provided path.
func (f *FileBackend) Delete(p string) error {
	full, err := f.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileBackend) fullPath(p string) (string, error) {
	norm := strings.TrimPrefix(normalizePath(p), "/")
	full := filepath.Join(f.root, filepath.FromSlash(norm))
	full = filepath.Clean(full)
	if !strings.HasPrefix(full, f.root) {
		return "", fmt.Errorf("memory: path %s escapes backend root", p)
	}
	return full, nil
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if clean == "." {
		return "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	return clean
}
