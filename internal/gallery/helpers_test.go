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

package gallery

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adaryorg/ngallery/internal/cache"
	"github.com/adaryorg/ngallery/internal/storage"
)

const testURL = "https://picsum.photos/id/10/400/300"

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// fakeDownloader serves data for every URL. While gate is set downloads block
// until it is closed or their context ends.
type fakeDownloader struct {
	mu    sync.Mutex
	data  []byte
	err   error
	gate  chan struct{}
	calls map[string]int
}

func newFakeDownloader(data []byte) *fakeDownloader {
	return &fakeDownloader{data: data, calls: make(map[string]int)}
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[url]++
	gate, data, err := f.gate, f.data, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeDownloader) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeDownloader) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeDownloader) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDownloader) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// countingStore records how many files were streamed under each name
type countingStore struct {
	*storage.BillyStore

	mu     sync.Mutex
	writes map[string]int
}

func (s *countingStore) WriteStream(dir, name string, fn func(io.Writer) error) (int64, error) {
	n, err := s.BillyStore.WriteStream(dir, name, fn)
	if err == nil {
		s.mu.Lock()
		s.writes[name]++
		s.mu.Unlock()
	}
	return n, err
}

func (s *countingStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[name]
}

type testEnv struct {
	repo   *Repository
	memory *cache.MemoryCache
	disk   *cache.DiskCache
	store  *countingStore
	dl     *fakeDownloader
}

func newTestEnv(t *testing.T, data []byte) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store := &countingStore{BillyStore: storage.NewLocalStore(), writes: make(map[string]int)}
	disk, err := cache.NewDiskCache(store, filepath.Join(dir, "cache"), filepath.Join(dir, "journal"), cache.DefaultDiskMaxBytes)
	require.NoError(t, err)

	memory := cache.NewMemoryCache(cache.DefaultMemoryMaxBytes)
	dl := newFakeDownloader(data)

	return &testEnv{
		repo:   NewRepository(memory, disk, dl, 90),
		memory: memory,
		disk:   disk,
		store:  store,
		dl:     dl,
	}
}

// recorder collects emitted states
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) emit(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func (r *recorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}
