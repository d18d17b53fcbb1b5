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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	return tmpDir
}

func TestConfig_DefaultValues(t *testing.T) {
	tmpDir := withHome(t)

	// Load config (should create default)
	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cache.MemoryMaxMB != 40 {
		t.Errorf("Expected MemoryMaxMB to be 40, got %d", config.Cache.MemoryMaxMB)
	}
	if config.Cache.DiskMaxMB != 700 {
		t.Errorf("Expected DiskMaxMB to be 700, got %d", config.Cache.DiskMaxMB)
	}
	if config.Cache.MemoryMaxBytes() != 40*1024*1024 {
		t.Errorf("Unexpected memory budget %d", config.Cache.MemoryMaxBytes())
	}
	if config.Cache.ResyncAfterFailures != 3 {
		t.Errorf("Expected ResyncAfterFailures to be 3, got %d", config.Cache.ResyncAfterFailures)
	}

	wantCache := filepath.Join(tmpDir, ".cache", "ngallery")
	if config.Cache.CacheDir != wantCache {
		t.Errorf("Expected CacheDir %s, got %s", wantCache, config.Cache.CacheDir)
	}
	wantJournal := filepath.Join(tmpDir, ".config", "ngallery")
	if config.Cache.JournalDir != wantJournal {
		t.Errorf("Expected JournalDir %s, got %s", wantJournal, config.Cache.JournalDir)
	}
	if config.CatalogPath() != filepath.Join(wantJournal, "catalog.db") {
		t.Errorf("Unexpected catalog path %s", config.CatalogPath())
	}

	if config.Network.BaseURL != "https://picsum.photos" {
		t.Errorf("Expected default base URL, got %s", config.Network.BaseURL)
	}
	if config.Network.PageSize != 30 {
		t.Errorf("Expected PageSize to be 30, got %d", config.Network.PageSize)
	}
	if config.Thumbnail.Width != 200 || config.Thumbnail.Height != 200 {
		t.Errorf("Expected 200x200 thumbnails, got %dx%d", config.Thumbnail.Width, config.Thumbnail.Height)
	}
	if config.Thumbnail.MaxConcurrentFetches != 8 {
		t.Errorf("Expected MaxConcurrentFetches to be 8, got %d", config.Thumbnail.MaxConcurrentFetches)
	}
	if config.Sync.WarmPages != 2 {
		t.Errorf("Expected WarmPages to be 2, got %d", config.Sync.WarmPages)
	}

	// Test default theme values
	if config.Theme.Header.Foreground != "13" {
		t.Errorf("Expected Header.Foreground to be '13', got '%s'", config.Theme.Header.Foreground)
	}
	if !config.Theme.Header.Bold {
		t.Error("Expected Header.Bold to be true")
	}
	if config.Theme.Selected.Background != "55" {
		t.Errorf("Expected Selected.Background to be '55', got '%s'", config.Theme.Selected.Background)
	}
	if !config.Theme.Error.Bold {
		t.Error("Expected Error.Bold to be true")
	}

	// Config file should exist now
	configPath := filepath.Join(tmpDir, ".config", "ngallery", "config.toml")
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Expected default config at %s: %v", configPath, err)
	}
}

func TestConfig_CustomValues(t *testing.T) {
	tmpDir := withHome(t)

	configPath := filepath.Join(tmpDir, "custom.toml")
	customConfig := `[cache]
memory_max_mb = 8
disk_max_mb = 64
cache_dir = "/var/tmp/gallery"

[network]
base_url = "http://localhost:8080"
page_size = 10

[thumbnail]
jpeg_quality = 250

[theme.header]
foreground = "red"
bold = false
`
	if err := os.WriteFile(configPath, []byte(customConfig), 0644); err != nil {
		t.Fatalf("Failed to write custom config: %v", err)
	}

	config, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cache.MemoryMaxMB != 8 {
		t.Errorf("Expected MemoryMaxMB to be 8, got %d", config.Cache.MemoryMaxMB)
	}
	if config.Cache.DiskMaxBytes() != 64*1024*1024 {
		t.Errorf("Unexpected disk budget %d", config.Cache.DiskMaxBytes())
	}
	if config.Cache.CacheDir != "/var/tmp/gallery" {
		t.Errorf("Absolute cache dir should be kept, got %s", config.Cache.CacheDir)
	}
	if config.Network.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected custom base URL, got %s", config.Network.BaseURL)
	}
	if config.Network.PageSize != 10 {
		t.Errorf("Expected PageSize to be 10, got %d", config.Network.PageSize)
	}

	// Out of range quality falls back to the default
	if config.Thumbnail.JPEGQuality != 90 {
		t.Errorf("Expected JPEGQuality to be 90, got %d", config.Thumbnail.JPEGQuality)
	}

	if config.Theme.Header.Foreground != "red" {
		t.Errorf("Expected Header.Foreground to be 'red', got '%s'", config.Theme.Header.Foreground)
	}
	if config.Theme.Header.Bold {
		t.Error("Expected Header.Bold to be false")
	}

	// Unset sections still receive defaults
	if config.Theme.Status.Foreground != "8" {
		t.Errorf("Expected Status.Foreground default, got '%s'", config.Theme.Status.Foreground)
	}
	if config.Thumbnail.Width != 200 {
		t.Errorf("Expected default width, got %d", config.Thumbnail.Width)
	}
}

func TestConfig_InvalidFile(t *testing.T) {
	tmpDir := withHome(t)

	configPath := filepath.Join(tmpDir, "broken.toml")
	if err := os.WriteFile(configPath, []byte("[cache\nmemory_max_mb = "), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Fatal("Expected an error for malformed TOML")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("Expected decode error, got: %v", err)
	}
}

func TestConfig_NegativeResyncDisables(t *testing.T) {
	tmpDir := withHome(t)

	configPath := filepath.Join(tmpDir, "resync.toml")
	if err := os.WriteFile(configPath, []byte("[cache]\nresync_after_failures = -1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Cache.ResyncAfterFailures != -1 {
		t.Errorf("Expected ResyncAfterFailures to stay -1, got %d", config.Cache.ResyncAfterFailures)
	}
}

func TestExpandPath(t *testing.T) {
	tmpDir := withHome(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"~", tmpDir},
		{"~/cache", filepath.Join(tmpDir, "cache")},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
		{"~user/path", "~user/path"},
	}

	for _, test := range tests {
		got, err := ExpandPath(test.input)
		if err != nil {
			t.Fatalf("ExpandPath(%q) failed: %v", test.input, err)
		}
		if got != test.expected {
			t.Errorf("ExpandPath(%q): expected %q, got %q", test.input, test.expected, got)
		}
	}
}
