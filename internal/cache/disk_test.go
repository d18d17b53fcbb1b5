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

package cache

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaryorg/ngallery/internal/storage"
)

const (
	testCacheDir   = "/cache"
	testJournalDir = "/private"
)

func newTestDisk(t *testing.T, store storage.FileStore, maxBytes int64, opts ...DiskOption) *DiskCache {
	t.Helper()
	c, err := NewDiskCache(store, testCacheDir, testJournalDir, maxBytes, opts...)
	require.NoError(t, err)
	return c
}

// put writes size bytes for key and registers them, the way the fetch pipeline does
func put(t *testing.T, c *DiskCache, key string, size int) {
	t.Helper()
	n, err := c.WriteStream(key, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Repeat("x", size))
		return err
	})
	require.NoError(t, err)
	c.Touch(key, true, n)
}

func journal(t *testing.T, store storage.FileStore) []string {
	t.Helper()
	lines, err := store.ReadLines(filepath.Join(testJournalDir, JournalFileName))
	require.NoError(t, err)
	return lines
}

func sortedFiles(t *testing.T, store storage.FileStore) []string {
	t.Helper()
	names, err := store.FileNames(testCacheDir)
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

func TestDiskCache_NewCreatesJournal(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)

	assert.True(t, store.FileExists(c.JournalPath()))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestDiskCache_TouchMaintainsJournal(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)

	put(t, c, "a.jpg", 10)
	put(t, c, "b.jpg", 10)
	put(t, c, "c.jpg", 10)
	c.Touch("a.jpg", false, 0)

	expected := []string{"a.jpg", "c.jpg", "b.jpg"}
	assert.Equal(t, expected, c.Keys())
	assert.Equal(t, expected, journal(t, store))
	assert.Equal(t, int64(30), c.Size())
	assert.True(t, c.IsCached("b.jpg"))
}

func TestDiskCache_TouchSkipsMissingFile(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)

	put(t, c, "a.jpg", 10)
	_, err := store.DeleteFile(c.Path("a.jpg"))
	require.NoError(t, err)

	c.Touch("a.jpg", false, 0)

	assert.Empty(t, c.Keys())
	assert.Empty(t, journal(t, store))
}

// Budget 700 with 100 byte files: six fit, the seventh reaches the budget and
// evicts exactly the least recently touched file.
func TestDiskCache_EvictionScenario(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)

	for i := 0; i < 6; i++ {
		put(t, c, fmt.Sprintf("%d.jpg", i), 100)
	}
	assert.Equal(t, 6, c.Len())
	assert.Equal(t, int64(600), c.Size())

	// 0.jpg becomes most recent, so 1.jpg is now the tail
	c.Touch("0.jpg", false, 0)

	put(t, c, "6.jpg", 100)

	assert.Equal(t, 6, c.Len())
	assert.Equal(t, int64(600), c.Size())
	assert.False(t, c.IsCached("1.jpg"))
	assert.NotContains(t, journal(t, store), "1.jpg")
	assert.Equal(t, []string{"6.jpg", "0.jpg", "5.jpg", "4.jpg", "3.jpg", "2.jpg"}, c.Keys())
}

func TestDiskCache_SizeBound(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 1000)

	sizes := []int{300, 50, 700, 10, 999, 1, 450, 450, 450}
	for i, size := range sizes {
		put(t, c, fmt.Sprintf("%d.jpg", i), size)

		sum, err := store.FileSizeSum(testCacheDir)
		require.NoError(t, err)
		assert.Less(t, c.Size(), int64(1000))
		assert.Equal(t, sum, c.Size())
		assert.Equal(t, len(sortedFiles(t, store)), c.Len())
		assert.Equal(t, c.Keys(), journal(t, store))
	}
}

func TestDiskCache_ConcurrentTouch(t *testing.T) {
	tmpDir := t.TempDir()
	store := storage.NewLocalStore()
	c, err := NewDiskCache(store, filepath.Join(tmpDir, "cache"), filepath.Join(tmpDir, "private"), 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			put(t, c, fmt.Sprintf("%d.jpg", i), 100)
		}(i)
	}
	wg.Wait()

	names, err := store.FileNames(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)
	lines, err := store.ReadLines(c.JournalPath())
	require.NoError(t, err)

	assert.Equal(t, len(names), c.Len())
	assert.Equal(t, c.Keys(), lines)
	assert.Less(t, c.Size(), int64(1000))
}

func TestDiskCache_Reconcile(t *testing.T) {
	store := storage.NewMemoryStore()
	journalPath := filepath.Join(testJournalDir, JournalFileName)

	// stale.jpg is journaled without a file, orphan.jpg has a file without a line
	require.NoError(t, store.WriteLines(journalPath, []string{"b.jpg", "stale.jpg", "a.jpg"}))
	for _, name := range []string{"a.jpg", "b.jpg", "orphan.jpg", "half.jpg" + storage.PartSuffix} {
		_, err := store.WriteStream(testCacheDir, name, func(w io.Writer) error {
			_, err := io.WriteString(w, "12345")
			return err
		})
		require.NoError(t, err)
	}

	c := newTestDisk(t, store, 700)

	assert.Equal(t, []string{"b.jpg", "a.jpg"}, journal(t, store))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, sortedFiles(t, store))
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, c.Keys())
	assert.Equal(t, int64(10), c.Size())

	// A second pass changes nothing
	require.NoError(t, c.Reconcile())
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, journal(t, store))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, sortedFiles(t, store))
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, c.Keys())
	assert.Equal(t, int64(10), c.Size())
}

func TestDiskCache_ReconcileSurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)
	put(t, c, "a.jpg", 10)
	put(t, c, "b.jpg", 20)
	c.Touch("a.jpg", false, 0)

	reopened := newTestDisk(t, store, 700)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, reopened.Keys())
	assert.Equal(t, int64(30), reopened.Size())
}

func TestDiskCache_SharedJournalDirectory(t *testing.T) {
	store := storage.NewMemoryStore()
	c, err := NewDiskCache(store, testCacheDir, testCacheDir, 700)
	require.NoError(t, err)

	put(t, c, "a.jpg", 10)

	reopened, err := NewDiskCache(store, testCacheDir, testCacheDir, 700)
	require.NoError(t, err)

	assert.True(t, store.FileExists(reopened.JournalPath()), "journal must not be treated as an orphan")
	assert.Equal(t, []string{"a.jpg"}, reopened.Keys())
	assert.Equal(t, int64(10), reopened.Size())
}

func TestDiskCache_Clear(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)
	put(t, c, "a.jpg", 10)
	put(t, c, "b.jpg", 10)

	require.NoError(t, c.Clear())

	assert.Empty(t, sortedFiles(t, store))
	assert.Empty(t, journal(t, store))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestDiskCache_OpenAndLength(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newTestDisk(t, store, 700)
	put(t, c, "a.jpg", 42)

	n, err := c.Length("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	f, err := c.Open("a.jpg")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Len(t, data, 42)

	_, err = c.Open("missing.jpg")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// stuckStore refuses to delete files whose names start with "stuck"
type stuckStore struct {
	*storage.BillyStore
}

func (s stuckStore) DeleteFile(path string) (bool, error) {
	if strings.HasPrefix(filepath.Base(path), "stuck") {
		return false, errors.New("permission denied")
	}
	return s.BillyStore.DeleteFile(path)
}

func TestDiskCache_FailedEvictionsResync(t *testing.T) {
	store := stuckStore{storage.NewMemoryStore()}
	c := newTestDisk(t, store, 1000, WithResyncAfterFailures(2))

	put(t, c, "stuck-0.jpg", 100)
	put(t, c, "stuck-1.jpg", 100)
	put(t, c, "a.jpg", 100)

	// Both stuck files fail to delete, then two failures trigger a recount that
	// still sees them on disk; a.jpg is evicted normally.
	put(t, c, "big.jpg", 800)

	sum, err := store.FileSizeSum(testCacheDir)
	require.NoError(t, err)
	assert.Equal(t, sum, c.Size())
	assert.Equal(t, []string{"big.jpg"}, c.Keys())
	assert.True(t, store.FileExists(c.Path("stuck-0.jpg")))
	assert.False(t, store.FileExists(c.Path("a.jpg")))
}

func TestDiskCache_FailedEvictionsWithoutResync(t *testing.T) {
	store := stuckStore{storage.NewMemoryStore()}
	c := newTestDisk(t, store, 1000, WithResyncAfterFailures(0))

	put(t, c, "stuck-0.jpg", 300)
	put(t, c, "a.jpg", 300)
	put(t, c, "b.jpg", 500)

	// stuck-0 could not be deleted so its bytes are still counted
	assert.Equal(t, []string{"b.jpg"}, c.Keys())
	assert.Equal(t, int64(800), c.Size())
	assert.True(t, store.FileExists(c.Path("stuck-0.jpg")))
}
