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

package version

import "testing"

func TestString(t *testing.T) {
	origVersion, origCommit := Version, CommitHash
	defer func() {
		Version, CommitHash = origVersion, origCommit
	}()

	tests := []struct {
		version  string
		commit   string
		expected string
	}{
		{"dev", "unknown", "dev"},
		{"v1.2.0", "", "v1.2.0"},
		{"v1.2.0", "091fa6d3c2", "v1.2.0-091fa6d"},
		{"v1.2.0", "abc", "v1.2.0-abc"},
	}

	for _, test := range tests {
		Version, CommitHash = test.version, test.commit
		if got := String(); got != test.expected {
			t.Errorf("String() with %q/%q = %q, expected %q", test.version, test.commit, got, test.expected)
		}
	}

	Version, CommitHash = "v2.0.0", "unknown"
	if got := UserAgent(); got != "ngallery/v2.0.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}
