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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Cache     CacheConfig     `toml:"cache"`
	Network   NetworkConfig   `toml:"network"`
	Thumbnail ThumbnailConfig `toml:"thumbnail"`
	Logging   LoggingConfig   `toml:"logging"`
	Sync      SyncConfig      `toml:"sync"`
	Theme     ThemeConfig     `toml:"theme"`
}

type CacheConfig struct {
	MemoryMaxMB         int    `toml:"memory_max_mb"`
	DiskMaxMB           int    `toml:"disk_max_mb"`
	CacheDir            string `toml:"cache_dir"`
	JournalDir          string `toml:"journal_dir"`
	ResyncAfterFailures int    `toml:"resync_after_failures"`
}

type NetworkConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PageSize       int    `toml:"page_size"`
	UserAgent      string `toml:"user_agent"`
}

type ThumbnailConfig struct {
	Width                int `toml:"width"`
	Height               int `toml:"height"`
	JPEGQuality          int `toml:"jpeg_quality"`
	MaxConcurrentFetches int `toml:"max_concurrent_fetches"`
}

type LoggingConfig struct {
	LogFile    string `toml:"log_file"`
	Level      string `toml:"level"`
	MaxAge     int    `toml:"max_age"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

type SyncConfig struct {
	IntervalMinutes int `toml:"interval_minutes"`
	WarmPages       int `toml:"warm_pages"`
}

type ThemeConfig struct {
	Header   ColorConfig `toml:"header"`
	Status   ColorConfig `toml:"status"`
	Search   ColorConfig `toml:"search"`
	Selected ColorConfig `toml:"selected"`
	Error    ColorConfig `toml:"error"`
	Pending  ColorConfig `toml:"pending"`
	Frame    ColorConfig `toml:"frame"`
}

type ColorConfig struct {
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
	Bold       bool   `toml:"bold"`
}

// MemoryMaxBytes returns the memory budget in bytes
func (c CacheConfig) MemoryMaxBytes() int64 {
	return int64(c.MemoryMaxMB) * 1024 * 1024
}

// DiskMaxBytes returns the disk budget in bytes
func (c CacheConfig) DiskMaxBytes() int64 {
	return int64(c.DiskMaxMB) * 1024 * 1024
}

// DefaultPath returns ~/.config/ngallery/config.toml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ngallery", "config.toml"), nil
}

// Load reads the config from the default location, creating it if missing
func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at configPath, creating a default file if missing.
// Unset values are filled with defaults and paths are expanded.
func LoadFrom(configPath string) (*Config, error) {
	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() error {
	// Cache budgets
	if c.Cache.MemoryMaxMB <= 0 {
		c.Cache.MemoryMaxMB = 40
	}
	if c.Cache.DiskMaxMB <= 0 {
		c.Cache.DiskMaxMB = 700
	}
	if c.Cache.CacheDir == "" {
		c.Cache.CacheDir = "~/.cache/ngallery"
	}
	if c.Cache.JournalDir == "" {
		c.Cache.JournalDir = "~/.config/ngallery"
	}
	if c.Cache.ResyncAfterFailures == 0 {
		c.Cache.ResyncAfterFailures = 3
	}

	if c.Network.BaseURL == "" {
		c.Network.BaseURL = "https://picsum.photos"
	}
	if c.Network.TimeoutSeconds <= 0 {
		c.Network.TimeoutSeconds = 15
	}
	if c.Network.PageSize <= 0 {
		c.Network.PageSize = 30
	}

	if c.Thumbnail.Width <= 0 {
		c.Thumbnail.Width = 200
	}
	if c.Thumbnail.Height <= 0 {
		c.Thumbnail.Height = 200
	}
	if c.Thumbnail.JPEGQuality <= 0 || c.Thumbnail.JPEGQuality > 100 {
		c.Thumbnail.JPEGQuality = 90
	}
	if c.Thumbnail.MaxConcurrentFetches <= 0 {
		c.Thumbnail.MaxConcurrentFetches = 8
	}

	if c.Logging.LogFile == "" {
		c.Logging.LogFile = "~/.config/ngallery/ngallery.log"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxAge <= 0 {
		c.Logging.MaxAge = 7
	}
	if c.Logging.MaxSize <= 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}

	if c.Sync.IntervalMinutes <= 0 {
		c.Sync.IntervalMinutes = 30
	}
	if c.Sync.WarmPages < 0 {
		c.Sync.WarmPages = 0
	}

	// Set default theme values if not specified
	if c.Theme.Header.Foreground == "" {
		c.Theme.Header.Foreground = "13" // bright magenta/purple
		c.Theme.Header.Bold = true
	}
	if c.Theme.Status.Foreground == "" {
		c.Theme.Status.Foreground = "8"
	}
	if c.Theme.Search.Foreground == "" {
		c.Theme.Search.Foreground = "141" // light purple
		c.Theme.Search.Bold = true
	}
	if c.Theme.Selected.Foreground == "" {
		c.Theme.Selected.Foreground = "15" // bright white
		c.Theme.Selected.Background = "55" // darker purple
	}
	if c.Theme.Error.Foreground == "" {
		c.Theme.Error.Foreground = "9"
		c.Theme.Error.Bold = true
	}
	if c.Theme.Pending.Foreground == "" {
		c.Theme.Pending.Foreground = "240"
	}
	if c.Theme.Frame.Foreground == "" {
		c.Theme.Frame.Foreground = "39" // blue
	}

	for _, p := range []*string{&c.Cache.CacheDir, &c.Cache.JournalDir, &c.Logging.LogFile} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ExpandPath replaces a leading ~/ with the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// CatalogPath returns where the image catalog database lives
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Cache.JournalDir, "catalog.db")
}

func createDefaultConfig(configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(`[cache]
memory_max_mb = 40
disk_max_mb = 700
cache_dir = "~/.cache/ngallery"
journal_dir = "~/.config/ngallery"
resync_after_failures = 3

[network]
base_url = "https://picsum.photos"
timeout_seconds = 15
page_size = 30

[thumbnail]
width = 200
height = 200
jpeg_quality = 90
max_concurrent_fetches = 8

[logging]
log_file = "~/.config/ngallery/ngallery.log"
level = "info"
max_age = 7
max_size = 10
max_backups = 3

[sync]
interval_minutes = 30
warm_pages = 2

[theme.header]
foreground = "13"
background = ""
bold = true

[theme.status]
foreground = "8"
background = ""
bold = false

[theme.search]
foreground = "141"
background = ""
bold = true

[theme.selected]
foreground = "15"
background = "55"
bold = false

[theme.error]
foreground = "9"
background = ""
bold = true

[theme.pending]
foreground = "240"
background = ""
bold = false

[theme.frame]
foreground = "39"
background = ""
bold = false
`)

	return err
}
