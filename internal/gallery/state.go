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

// Package gallery coordinates image fetches across the memory, disk and network
// tiers and fans the resulting states out to the UI slots observing them.
package gallery

import (
	"errors"
	"fmt"

	"github.com/adaryorg/ngallery/internal/bitmap"
)

// ErrUnknownFailure stands in for a failure that carried no cause
var ErrUnknownFailure = errors.New("unknown failure")

// State is the load state of one cache key. The set of states is closed:
// Unknown, Waiting, Loading, Success and Failure.
type State interface {
	state()
}

// Unknown fills UI slots that are not observing anything
type Unknown struct{}

// Waiting is a key being observed but not yet requested
type Waiting struct{}

// Loading is a key with a fetch in progress
type Loading struct{}

// Success carries the decoded image
type Success struct {
	Bitmap *bitmap.Bitmap
}

// Failure carries the error that ended the fetch. Err is never nil.
type Failure struct {
	Err error
}

func (Unknown) state() {}
func (Waiting) state() {}
func (Loading) state() {}
func (Success) state() {}
func (Failure) state() {}

// NewFailure wraps err, substituting ErrUnknownFailure for nil
func NewFailure(err error) Failure {
	if err == nil {
		err = ErrUnknownFailure
	}
	return Failure{Err: err}
}

// Match calls the handler for the concrete type of s. Every handler is required.
// A nil state is treated as Unknown.
func Match[T any](
	s State,
	onUnknown func() T,
	onWaiting func() T,
	onLoading func() T,
	onSuccess func(Success) T,
	onFailure func(Failure) T,
) T {
	switch v := s.(type) {
	case Waiting:
		return onWaiting()
	case Loading:
		return onLoading()
	case Success:
		return onSuccess(v)
	case Failure:
		if v.Err == nil {
			v.Err = ErrUnknownFailure
		}
		return onFailure(v)
	default:
		return onUnknown()
	}
}

// Describe returns a short human readable form of s
func Describe(s State) string {
	return Match(s,
		func() string { return "unknown" },
		func() string { return "waiting" },
		func() string { return "loading" },
		func(v Success) string {
			if v.Bitmap == nil {
				return "loaded"
			}
			return fmt.Sprintf("%dx%d", v.Bitmap.Width(), v.Bitmap.Height())
		},
		func(v Failure) string { return v.Err.Error() },
	)
}

// resolved reports whether s makes a new fetch pointless
func resolved(s State) bool {
	return Match(s,
		func() bool { return false },
		func() bool { return false },
		func() bool { return true },
		func(Success) bool { return true },
		func(Failure) bool { return false },
	)
}
