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
	"sync"
)

// Detail holds the state of the single full-size image being viewed. A new
// Request replaces the previous one.
type Detail struct {
	fetcher OriginalFetcher

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	jobCancel context.CancelFunc
	onUpdate  func(State)

	wg sync.WaitGroup
}

func NewDetail(fetcher OriginalFetcher) *Detail {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detail{
		fetcher: fetcher,
		ctx:     ctx,
		cancel:  cancel,
		state:   Unknown{},
	}
}

// OnUpdate registers fn to be called with every new state, outside the lock
func (d *Detail) OnUpdate(fn func(State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUpdate = fn
}

// Request loads the original image for url, previewing the thumbnail stored
// under thumbnailKey while it loads
func (d *Detail) Request(thumbnailKey, url string) {
	ctx, cancel := context.WithCancel(d.ctx)

	d.mu.Lock()
	if d.jobCancel != nil {
		d.jobCancel()
	}
	d.jobCancel = cancel
	d.state = Waiting{}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.fetcher.Original(ctx, thumbnailKey, url, func(s State) {
			d.update(ctx, s)
		})
	}()
}

func (d *Detail) update(ctx context.Context, s State) {
	d.mu.Lock()
	if ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.state = s
	hook := d.onUpdate
	d.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}

// State returns the current state
func (d *Detail) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Cancel stops the running request and resets the state to Unknown
func (d *Detail) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.jobCancel != nil {
		d.jobCancel()
		d.jobCancel = nil
	}
	d.state = Unknown{}
}

// Wait blocks until every started request has returned
func (d *Detail) Wait() {
	d.wg.Wait()
}

// Close cancels the running request and waits for it
func (d *Detail) Close() {
	d.cancel()
	d.wg.Wait()
}
