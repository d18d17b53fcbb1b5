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
	"container/list"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/storage"
)

// JournalFileName is the recency journal kept in the journal directory
const JournalFileName = "journal.txt"

// DefaultResyncAfterFailures is how many failed eviction deletes in a row are
// tolerated before the running total is recomputed from the directory
const DefaultResyncAfterFailures = 3

// DiskCache bounds the total size of cached files under one directory and keeps
// their recency order in a journal, one key per line, most recent first.
// Keys are file names.
type DiskCache struct {
	store       storage.FileStore
	cacheDir    string
	journalPath string
	maxBytes    int64
	total       int64

	order *list.List               // front is most recent
	elems map[string]*list.Element // key -> element in order

	resyncAfter     int
	failedEvictions int

	mu sync.Mutex
}

var _ Cache = (*DiskCache)(nil)

// DiskOption customizes a DiskCache
type DiskOption func(*DiskCache)

// WithResyncAfterFailures sets how many consecutive failed eviction deletes
// trigger a recount of the directory. Zero or less disables the recount.
func WithResyncAfterFailures(n int) DiskOption {
	return func(c *DiskCache) {
		c.resyncAfter = n
	}
}

// NewDiskCache opens the disk tier rooted at cacheDir and reconciles the journal
// in journalDir against the files present.
func NewDiskCache(store storage.FileStore, cacheDir, journalDir string, maxBytes int64, opts ...DiskOption) (*DiskCache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultDiskMaxBytes
	}

	c := &DiskCache{
		store:       store,
		cacheDir:    cacheDir,
		journalPath: filepath.Join(journalDir, JournalFileName),
		maxBytes:    maxBytes,
		order:       list.New(),
		elems:       make(map[string]*list.Element),
		resyncAfter: DefaultResyncAfterFailures,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Reconcile(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconcile makes the journal match the directory: journal lines without a file
// are dropped and files without a journal line are deleted. The running total is
// recomputed. Running it twice in a row changes nothing the second time.
func (c *DiskCache) Reconcile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.CreateFile(c.journalPath); err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}

	lines, err := c.store.ReadLines(c.journalPath)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	names, err := c.fileNames()
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	// Keep the first (most recent) occurrence of every key that still has a file
	kept := make([]string, 0, len(lines))
	journaled := make(map[string]bool, len(lines))
	for _, line := range lines {
		if !present[line] || journaled[line] {
			continue
		}
		journaled[line] = true
		kept = append(kept, line)
	}

	var orphans []string
	for _, name := range names {
		if !journaled[name] {
			orphans = append(orphans, c.Path(name))
		}
	}
	if len(orphans) > 0 {
		logging.Info("disk cache deleting %d orphan files", len(orphans))
		if err := c.store.DeleteFiles(orphans); err != nil {
			logging.Warn("disk cache failed to delete orphan files: %v", err)
		}
	}

	if len(kept) != len(lines) {
		logging.Info("disk cache dropping %d stale journal entries", len(lines)-len(kept))
		if err := c.store.WriteLines(c.journalPath, kept); err != nil {
			return fmt.Errorf("failed to rewrite journal: %w", err)
		}
	}

	c.order.Init()
	c.elems = make(map[string]*list.Element, len(kept))
	for _, key := range kept {
		c.elems[key] = c.order.PushBack(key)
	}

	total, err := c.usage()
	if err != nil {
		return fmt.Errorf("failed to size cache directory: %w", err)
	}
	c.total = total
	c.failedEvictions = 0

	logging.Debug("disk cache reconciled: %d entries, %d bytes", c.order.Len(), c.total)
	return nil
}

// fileNames lists the cache directory, hiding the journal when both share a directory
func (c *DiskCache) fileNames() ([]string, error) {
	names, err := c.store.FileNames(c.cacheDir)
	if err != nil {
		return nil, err
	}
	if !c.sharesJournalDir() {
		return names, nil
	}

	journal := filepath.Base(c.journalPath)
	filtered := names[:0]
	for _, name := range names {
		if name == journal || name == journal+storage.PartSuffix {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered, nil
}

func (c *DiskCache) sharesJournalDir() bool {
	return filepath.Clean(filepath.Dir(c.journalPath)) == filepath.Clean(c.cacheDir)
}

// usage returns the bytes used by cached files
func (c *DiskCache) usage() (int64, error) {
	sum, err := c.store.FileSizeSum(c.cacheDir)
	if err != nil {
		return 0, err
	}
	if c.sharesJournalDir() {
		if n, err := c.store.FileLength(c.journalPath); err == nil {
			sum -= n
		}
	}
	return sum, nil
}

// resync recomputes the running total from the directory
func (c *DiskCache) resync() {
	total, err := c.usage()
	if err != nil {
		logging.Warn("disk cache failed to recount %s: %v", c.cacheDir, err)
		return
	}
	if total != c.total {
		logging.Info("disk cache total corrected from %d to %d bytes", c.total, total)
	}
	c.total = total
	c.failedEvictions = 0
}

// Path returns where the file for key lives
func (c *DiskCache) Path(key string) string {
	return filepath.Join(c.cacheDir, key)
}

// IsCached reports whether the file for key exists
func (c *DiskCache) IsCached(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.FileExists(c.Path(key))
}

func (c *DiskCache) Touch(key string, isNew bool, addedBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isNew {
		c.total += addedBytes
		for c.total >= c.maxBytes {
			if c.order.Len() == 0 {
				// Whatever is left is not tracked by the journal
				c.resync()
				break
			}
			c.evictOldestLocked()
		}
	}

	if elem, ok := c.elems[key]; ok {
		c.order.Remove(elem)
		delete(c.elems, key)
	}
	if err := c.store.RemoveLine(c.journalPath, key); err != nil {
		logging.Warn("disk cache failed to remove %s from journal: %v", key, err)
	}

	// The file may have been deleted between the caller's write and now
	if !c.store.FileExists(c.Path(key)) {
		return
	}

	c.elems[key] = c.order.PushFront(key)
	if err := c.store.PrependLine(c.journalPath, key); err != nil {
		logging.Warn("disk cache failed to journal %s: %v", key, err)
	}
}

// EvictOldest deletes the least recently touched file
func (c *DiskCache) EvictOldest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictOldestLocked()
}

func (c *DiskCache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	path := c.Path(key)

	c.order.Remove(back)
	delete(c.elems, key)

	if c.store.FileExists(path) {
		size, err := c.store.FileLength(path)
		if err != nil {
			logging.Warn("disk cache failed to size %s: %v", key, err)
		}
		if _, err := c.store.DeleteFile(path); err != nil {
			logging.Warn("disk cache failed to evict %s: %v", key, err)
			c.failedEvictions++
			if c.resyncAfter > 0 && c.failedEvictions >= c.resyncAfter {
				c.resync()
			}
		} else {
			c.total -= size
			c.failedEvictions = 0
			logging.Debug("disk cache evicted %s (total %d/%d bytes)", key, c.total, c.maxBytes)
		}
	}

	if err := c.store.RemoveLine(c.journalPath, key); err != nil {
		logging.Warn("disk cache failed to remove %s from journal: %v", key, err)
	}
}

// WriteStream hands fn a writer for the file of key and returns the bytes written.
// The file only appears once fn returns without error. The lock is not held while
// fn runs, so a slow download does not stall the other keys.
func (c *DiskCache) WriteStream(key string, fn func(io.Writer) error) (int64, error) {
	return c.store.WriteStream(c.cacheDir, key, fn)
}

// Open opens the file of key for reading
func (c *DiskCache) Open(key string) (storage.File, error) {
	return c.store.Open(c.Path(key))
}

// Length returns the size of the file of key
func (c *DiskCache) Length(key string) (int64, error) {
	return c.store.FileLength(c.Path(key))
}

func (c *DiskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Size returns the running byte total
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// MaxBytes returns the configured budget
func (c *DiskCache) MaxBytes() int64 {
	return c.maxBytes
}

// Keys returns tracked keys, most recently touched first
func (c *DiskCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(string))
	}
	return keys
}

// JournalPath returns the location of the recency journal
func (c *DiskCache) JournalPath() string {
	return c.journalPath
}

// Clear deletes every cached file and empties the journal
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.fileNames()
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = c.Path(name)
	}
	if err := c.store.DeleteFiles(paths); err != nil {
		return fmt.Errorf("failed to delete cached files: %w", err)
	}
	if err := c.store.WriteLines(c.journalPath, nil); err != nil {
		return fmt.Errorf("failed to empty journal: %w", err)
	}

	c.order.Init()
	c.elems = make(map[string]*list.Element)
	c.total = 0
	c.failedEvictions = 0
	return nil
}
