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
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/storage"
)

// WarmResult counts the outcome of a Warm batch
type WarmResult struct {
	Fetched int
	Failed  int
}

// Warm fetches thumbnails for images with at most concurrency fetches at once.
// A failed image is logged and counted; it does not stop the batch. The only
// error returned is ctx's.
func Warm(ctx context.Context, fetcher ThumbnailFetcher, images []storage.Image, width, height, concurrency int) (WarmResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultMaxConcurrentFetches
	}

	var fetched, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, img := range images {
		if gctx.Err() != nil {
			break
		}
		img := img
		g.Go(func() error {
			var last State
			fetcher.Thumbnail(gctx, img.DownloadURL, width, height, func(s State) {
				last = s
			})

			Match(last,
				func() struct{} { return struct{}{} },
				func() struct{} { return struct{}{} },
				func() struct{} { return struct{}{} },
				func(Success) struct{} {
					fetched.Add(1)
					return struct{}{}
				},
				func(f Failure) struct{} {
					failed.Add(1)
					logging.Warn("failed to warm image %s: %v", img.ID, f.Err)
					return struct{}{}
				},
			)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	return WarmResult{Fetched: int(fetched.Load()), Failed: int(failed.Load())}, err
}
