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

// Package cache implements the size-bounded LRU tiers of the image cache: decoded
// bitmaps in memory and encoded files on disk.
package cache

// Object is anything the memory tier can hold. Size is the number of bytes the
// object keeps resident, not the size of the file it came from.
type Object interface {
	Size() int64
}

// Cache is the recency bookkeeping shared by both tiers
type Cache interface {
	IsCached(key string) bool
	// Touch moves key to the head of the recency order. When isNew is set,
	// addedBytes is charged to the budget first and the tail is evicted while
	// the budget is exhausted.
	Touch(key string, isNew bool, addedBytes int64)
	EvictOldest()
	Len() int
	Size() int64
}

const mib = 1024 * 1024

// Default budgets
const (
	DefaultMemoryMaxBytes int64 = 40 * mib
	DefaultDiskMaxBytes   int64 = 700 * mib
)
