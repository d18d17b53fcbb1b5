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

	"golang.org/x/sync/semaphore"

	"github.com/adaryorg/ngallery/internal/key"
	"github.com/adaryorg/ngallery/internal/logging"
)

// DefaultMaxConcurrentFetches bounds the worker pool when no limit is given
const DefaultMaxConcurrentFetches = 8

// SlotUpdate reports that a slot now shows State
type SlotUpdate struct {
	Slot  int
	Key   string
	State State
}

// Loader deduplicates thumbnail requests and fans their states out to the UI
// slots observing each key. Slots are list positions; one key may back several.
type Loader struct {
	fetcher ThumbnailFetcher
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	// Guards jobs, notifier, slots and onUpdate
	mu       sync.Mutex
	jobs     map[string]*job
	notifier *notifier
	slots    []State
	onUpdate func(SlotUpdate)

	wg sync.WaitGroup
}

type job struct {
	cancel context.CancelFunc
}

// NewLoader creates a loader that runs at most maxConcurrent fetches at once
func NewLoader(fetcher ThumbnailFetcher, maxConcurrent int) *Loader {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFetches
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		fetcher:  fetcher,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*job),
		notifier: newNotifier(),
	}
}

// OnUpdate registers fn to be called for every slot whose state changes. It is
// called without the loader's lock held, possibly from several goroutines; Slot
// is authoritative when updates race.
func (l *Loader) OnUpdate(fn func(SlotUpdate)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpdate = fn
}

// RequestThumbnail starts a fetch for url at width x height unless one is
// running or the key is already Loading or Success. A Failure allows a retry.
func (l *Loader) RequestThumbnail(url string, width, height int) {
	k := key.For(url, width, height)

	l.mu.Lock()
	if _, running := l.jobs[k]; running {
		l.mu.Unlock()
		return
	}
	if s, ok := l.notifier.state(k); ok && resolved(s) {
		l.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(l.ctx)
	j := &job{cancel: cancel}
	l.jobs[k] = j
	l.wg.Add(1)
	l.mu.Unlock()

	go l.run(ctx, j, k, url, width, height)
}

func (l *Loader) run(ctx context.Context, j *job, k, url string, width, height int) {
	defer l.wg.Done()
	defer l.finish(k, j)

	if err := l.sem.Acquire(ctx, 1); err != nil {
		// Cancelled while queued
		return
	}
	defer l.sem.Release(1)

	l.fetcher.Thumbnail(ctx, url, width, height, func(s State) {
		l.update(ctx, k, s)
	})
}

func (l *Loader) finish(k string, j *job) {
	l.mu.Lock()
	if l.jobs[k] == j {
		delete(l.jobs, k)
	}
	l.mu.Unlock()
	j.cancel()
}

// update publishes s for k unless the job producing it has been cancelled
func (l *Loader) update(ctx context.Context, k string, s State) {
	l.mu.Lock()
	if ctx.Err() != nil {
		l.mu.Unlock()
		return
	}

	var updates []SlotUpdate
	l.notifier.update(k, s, func(slot int) {
		l.setSlotLocked(slot, s)
		updates = append(updates, SlotUpdate{Slot: slot, Key: k, State: s})
	})
	hook := l.onUpdate
	l.mu.Unlock()

	if hook == nil {
		return
	}
	for _, u := range updates {
		hook(u)
	}
}

// Observe attaches slot to the key for url and returns the key. The slot shows
// the key's current state immediately.
func (l *Loader) Observe(slot int, url string, width, height int) string {
	k := key.For(url, width, height)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.notifier.observe(k, slot)
	s, _ := l.notifier.state(k)
	l.setSlotLocked(slot, s)
	return k
}

// Dispose detaches slot from k. When no active observer is left the fetch for k
// is cancelled and its state dropped. The slot goes back to Unknown either way.
func (l *Loader) Dispose(slot int, k string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.notifier.dispose(k, slot)
	if l.notifier.hasNoObserver(k) {
		if j, ok := l.jobs[k]; ok {
			logging.Debug("cancelling fetch of %s", k)
			j.cancel()
			delete(l.jobs, k)
		}
	}

	if slot >= 0 && slot < len(l.slots) {
		l.slots[slot] = Unknown{}
	}
}

// setSlotLocked writes s at slot, padding the list with Unknown as needed
func (l *Loader) setSlotLocked(slot int, s State) {
	if slot < 0 {
		return
	}
	for len(l.slots) <= slot {
		l.slots = append(l.slots, Unknown{})
	}
	l.slots[slot] = s
}

// Slot returns what slot i currently shows
func (l *Loader) Slot(i int) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.slots) {
		return Unknown{}
	}
	return l.slots[i]
}

// Slots returns a copy of every slot's state
func (l *Loader) Slots() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.slots))
	copy(out, l.slots)
	return out
}

// State returns the shared state of k while it is observed
func (l *Loader) State(k string) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifier.state(k)
}

// Active reports whether a fetch for k is running
func (l *Loader) Active(k string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.jobs[k]
	return ok
}

// Wait blocks until every started fetch has returned
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels every fetch and waits for them to return
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}
