/*
MIT License

Copyright (c) 2025 Yuval Adar <adary@adary.org>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// PartSuffix marks files that are still being written by WriteStream
const PartSuffix = ".part"

// ErrNotFound is returned when a file the caller asked for does not exist
var ErrNotFound = errors.New("file not found")

// File is a readable, seekable handle returned by FileStore.Open
type File interface {
	io.Reader
	io.Seeker
	io.Closer
}

// FileStore is the byte-addressable file primitive the caches are built on.
// Journal files are plain text with one entry per line.
type FileStore interface {
	CreateFile(path string) error
	ReadLines(path string) ([]string, error)
	WriteLines(path string, lines []string) error
	PrependLine(path, line string) error
	RemoveLine(path, line string) error
	FileNames(dir string) ([]string, error)
	FileExists(path string) bool
	FileLength(path string) (int64, error)
	FileSizeSum(dir string) (int64, error)
	DeleteFile(path string) (bool, error)
	DeleteFiles(paths []string) error
	WriteStream(dir, name string, fn func(io.Writer) error) (int64, error)
	Open(path string) (File, error)
}

// BillyStore implements FileStore on top of a billy filesystem
type BillyStore struct {
	fs billy.Filesystem
}

// NewLocalStore returns a store backed by the local disk. Paths are absolute.
func NewLocalStore() *BillyStore {
	return &BillyStore{fs: osfs.New("/")}
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *BillyStore {
	return &BillyStore{fs: memfs.New()}
}

// NewBillyStore wraps an existing billy filesystem
func NewBillyStore(fs billy.Filesystem) *BillyStore {
	return &BillyStore{fs: fs}
}

// Unwrap returns the underlying billy filesystem
func (s *BillyStore) Unwrap() billy.Filesystem {
	return s.fs
}

func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// CreateFile creates an empty file if it does not already exist
func (s *BillyStore) CreateFile(path string) error {
	path = normalize(path)
	if s.FileExists(path) {
		return nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f.Close()
}

// ReadLines returns the non-empty lines of a text file. A missing file reads as empty.
func (s *BillyStore) ReadLines(path string) ([]string, error) {
	data, err := util.ReadFile(s.fs, normalize(path))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// WriteLines replaces the contents of a text file with lines
func (s *BillyStore) WriteLines(path string, lines []string) error {
	path = normalize(path)
	var buf bytes.Buffer
	for i, line := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}

	_, err := s.WriteStream(filepath.Dir(path), filepath.Base(path), func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	return err
}

// PrependLine inserts line at the top of a text file
func (s *BillyStore) PrependLine(path, line string) error {
	lines, err := s.ReadLines(path)
	if err != nil {
		return err
	}
	return s.WriteLines(path, append([]string{line}, lines...))
}

// RemoveLine drops every line exactly equal to line
func (s *BillyStore) RemoveLine(path, line string) error {
	lines, err := s.ReadLines(path)
	if err != nil {
		return err
	}

	kept := lines[:0]
	removed := false
	for _, l := range lines {
		if l == line {
			removed = true
			continue
		}
		kept = append(kept, l)
	}

	// Nothing to rewrite
	if !removed {
		return nil
	}
	return s.WriteLines(path, kept)
}

// FileNames lists the regular files directly under dir
func (s *BillyStore) FileNames(dir string) ([]string, error) {
	infos, err := s.fs.ReadDir(normalize(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// FileExists reports whether path exists
func (s *BillyStore) FileExists(path string) bool {
	_, err := s.fs.Stat(normalize(path))
	return err == nil
}

// FileLength returns the size of a file in bytes
func (s *BillyStore) FileLength(path string) (int64, error) {
	info, err := s.fs.Stat(normalize(path))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// FileSizeSum adds up the sizes of the regular files directly under dir
func (s *BillyStore) FileSizeSum(dir string) (int64, error) {
	infos, err := s.fs.ReadDir(normalize(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var sum int64
	for _, info := range infos {
		if info.Mode().IsRegular() {
			sum += info.Size()
		}
	}
	return sum, nil
}

// DeleteFile removes a file. It returns false without error when the file was already gone.
func (s *BillyStore) DeleteFile(path string) (bool, error) {
	if err := s.fs.Remove(normalize(path)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return true, nil
}

// DeleteFiles removes every path, returning the first error encountered
func (s *BillyStore) DeleteFiles(paths []string) error {
	var firstErr error
	for _, p := range paths {
		if _, err := s.DeleteFile(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteStream hands fn a writer for dir/name. Data goes to a .part file that is renamed
// into place only when fn succeeds, so readers never observe a half-written file.
func (s *BillyStore) WriteStream(dir, name string, fn func(io.Writer) error) (int64, error) {
	dir = normalize(dir)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	target := s.fs.Join(dir, name)
	part := target + PartSuffix

	f, err := s.fs.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	cw := &countingWriter{w: f}
	writeErr := fn(cw)
	closeErr := f.Close()

	if writeErr != nil || closeErr != nil {
		s.fs.Remove(part)
		if writeErr != nil {
			return 0, writeErr
		}
		return 0, fmt.Errorf("failed to close %s: %w", part, closeErr)
	}

	if err := s.fs.Rename(part, target); err != nil {
		s.fs.Remove(part)
		return 0, fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	return cw.n, nil
}

// Open opens a file for reading
func (s *BillyStore) Open(path string) (File, error) {
	f, err := s.fs.Open(normalize(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
