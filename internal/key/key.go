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

package key

import (
	"fmt"
	"net/url"
)

// Extension is appended to every key; disk cache keys double as file names
const Extension = ".jpg"

// Original returns the cache key of the full-size image behind url
func Original(rawURL string) string {
	return url.QueryEscape(rawURL) + Extension
}

// Scaled returns the cache key of url downsampled to fit width x height
func Scaled(rawURL string, width, height int) string {
	return fmt.Sprintf("%s_%d_%d%s", url.QueryEscape(rawURL), width, height, Extension)
}

// For picks Scaled when both dimensions are positive and Original otherwise
func For(rawURL string, width, height int) string {
	if width > 0 && height > 0 {
		return Scaled(rawURL, width, height)
	}
	return Original(rawURL)
}
