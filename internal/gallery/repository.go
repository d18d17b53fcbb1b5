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
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/singleflight"

	"github.com/adaryorg/ngallery/internal/bitmap"
	"github.com/adaryorg/ngallery/internal/cache"
	"github.com/adaryorg/ngallery/internal/key"
	"github.com/adaryorg/ngallery/internal/logging"
)

// ErrEmptyDownload is returned when the server answers with no bytes
var ErrEmptyDownload = errors.New("empty download")

// Downloader opens a byte stream for a URL
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Emit receives the states produced by one fetch, in order
type Emit func(State)

// ThumbnailFetcher produces a downsampled image for a URL
type ThumbnailFetcher interface {
	Thumbnail(ctx context.Context, url string, width, height int, emit Emit)
}

// OriginalFetcher produces a full-size image for a URL
type OriginalFetcher interface {
	Original(ctx context.Context, thumbnailKey, url string, emit Emit)
}

// Repository runs the fetch pipeline: memory, then disk, then network.
type Repository struct {
	memory      *cache.MemoryCache
	disk        *cache.DiskCache
	downloader  Downloader
	jpegQuality int

	// Coalesces downloads of the same original
	downloads singleflight.Group
}

var (
	_ ThumbnailFetcher = (*Repository)(nil)
	_ OriginalFetcher  = (*Repository)(nil)
)

// NewRepository wires the tiers together. jpegQuality applies to re-encoded thumbnails.
func NewRepository(memory *cache.MemoryCache, disk *cache.DiskCache, downloader Downloader, jpegQuality int) *Repository {
	return &Repository{
		memory:      memory,
		disk:        disk,
		downloader:  downloader,
		jpegQuality: jpegQuality,
	}
}

// Thumbnail emits Loading and then Success or Failure for url scaled to fit
// width x height. Nothing is emitted once ctx is cancelled, and a cancelled fetch
// leaves no partial file behind.
func (r *Repository) Thumbnail(ctx context.Context, url string, width, height int, emit Emit) {
	emit(Loading{})

	originalKey := key.Original(url)
	scaledKey := key.For(url, width, height)

	// Memory hit
	if obj, ok := r.memory.CachedObject(scaledKey); ok {
		if b, ok := obj.(*bitmap.Bitmap); ok {
			logging.Debug("memory hit %s", scaledKey)
			emit(Success{Bitmap: b})
			r.memory.Touch(scaledKey, false, 0)
			r.disk.Touch(scaledKey, false, 0)
			return
		}
	}

	// Scaled file on disk
	if r.disk.IsCached(scaledKey) {
		logging.Debug("disk hit %s", scaledKey)
		b, err := r.decodeFile(scaledKey, 0, 0)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.fail(emit, scaledKey, err)
			return
		}
		emit(Success{Bitmap: b})
		r.remember(scaledKey, b)
		r.disk.Touch(scaledKey, false, 0)
		return
	}

	if r.disk.IsCached(originalKey) {
		logging.Debug("disk hit %s, downsampling for %s", originalKey, scaledKey)
		r.disk.Touch(originalKey, false, 0)
	} else {
		logging.Debug("cache miss %s", scaledKey)
		if err := r.fetchOriginal(ctx, url, originalKey); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.fail(emit, scaledKey, err)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	b, err := r.decodeFile(originalKey, width, height)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.fail(emit, scaledKey, err)
		return
	}

	emit(Success{Bitmap: b})
	r.remember(scaledKey, b)

	// Unscaled requests are served straight from the original file
	if scaledKey == originalKey {
		return
	}
	if ctx.Err() != nil {
		return
	}

	n, err := r.disk.WriteStream(scaledKey, func(w io.Writer) error {
		return bitmap.EncodeJPEG(w, b, r.jpegQuality)
	})
	if err != nil {
		// The decoded image is already delivered and resident in memory
		logging.Warn("failed to write thumbnail %s: %v", scaledKey, err)
		return
	}
	r.disk.Touch(scaledKey, true, n)
}

// Original emits Loading, the resident thumbnail as a preview when there is one,
// and then the full-size image or a Failure.
func (r *Repository) Original(ctx context.Context, thumbnailKey, url string, emit Emit) {
	emit(Loading{})

	if obj, ok := r.memory.CachedObject(thumbnailKey); ok {
		if b, ok := obj.(*bitmap.Bitmap); ok {
			emit(Success{Bitmap: b})
		}
	}

	originalKey := key.Original(url)

	if r.disk.IsCached(originalKey) {
		r.disk.Touch(originalKey, false, 0)
	} else if err := r.fetchOriginal(ctx, url, originalKey); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.fail(emit, originalKey, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	b, err := r.decodeFile(originalKey, 0, 0)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		r.fail(emit, originalKey, err)
		return
	}
	emit(Success{Bitmap: b})
}

// Download streams url into the disk cache under name and registers its size.
// It returns the number of bytes written.
func (r *Repository) Download(ctx context.Context, url, name string) (int64, error) {
	body, err := r.downloader.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n, err := r.disk.WriteStream(name, func(w io.Writer) error {
		copied, err := io.Copy(w, body)
		if err != nil {
			return err
		}
		if copied == 0 {
			return ErrEmptyDownload
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", name, err)
	}

	r.disk.Touch(name, true, n)
	logging.Debug("downloaded %s (%d bytes)", name, n)
	return n, nil
}

// fetchOriginal downloads the original for url once, however many callers ask
// for it at the same time.
func (r *Repository) fetchOriginal(ctx context.Context, url, originalKey string) error {
	const attempts = 3

	var err error
	for i := 0; i < attempts; i++ {
		_, err, _ = r.downloads.Do(originalKey, func() (interface{}, error) {
			// A previous leader may have finished between our check and now
			if r.disk.IsCached(originalKey) {
				return nil, nil
			}
			n, err := r.Download(ctx, url, originalKey)
			return n, err
		})

		// The shared download ran under another caller's context. If that caller
		// went away and we did not, try again as the leader.
		if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil {
			continue
		}
		return err
	}
	return err
}

func (r *Repository) decodeFile(name string, width, height int) (*bitmap.Bitmap, error) {
	f, err := r.disk.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if width > 0 && height > 0 {
		return bitmap.DecodeDownsampled(f, width, height)
	}
	return bitmap.Decode(f)
}

// remember puts b in the memory tier and charges it when it was not already there
func (r *Repository) remember(name string, b *bitmap.Bitmap) {
	if r.memory.Insert(name, b) {
		r.memory.Touch(name, true, b.Size())
		return
	}
	r.memory.Touch(name, false, 0)
}

func (r *Repository) fail(emit Emit, name string, err error) {
	logging.Error("failed to load %s: %v", name, err)
	emit(NewFailure(err))
}
