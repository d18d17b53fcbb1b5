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

// Package app wires the caches, network client and catalog from a Config.
// Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/adaryorg/ngallery/internal/cache"
	"github.com/adaryorg/ngallery/internal/config"
	"github.com/adaryorg/ngallery/internal/gallery"
	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/network"
	"github.com/adaryorg/ngallery/internal/storage"
	"github.com/adaryorg/ngallery/internal/version"
)

type App struct {
	Config   *config.Config
	Memory   *cache.MemoryCache
	Disk     *cache.DiskCache
	Client   *network.Client
	Catalog  *storage.Catalog
	Repo     *gallery.Repository
	Mediator *gallery.Mediator
}

// Stats is a snapshot of cache and catalog usage
type Stats struct {
	CatalogImages  int
	MemoryEntries  int
	MemoryBytes    int64
	MemoryMaxBytes int64
	DiskFiles      int
	DiskBytes      int64
	DiskMaxBytes   int64
	CacheDir       string
	JournalPath    string
}

// SyncResult reports one catalog refresh and warm pass
type SyncResult struct {
	EndOfPagination bool
	Warmed          gallery.WarmResult
}

// Open builds an App on the local filesystem
func Open(cfg *config.Config) (*App, error) {
	return New(cfg, storage.NewLocalStore())
}

// New builds an App whose disk cache lives on store
func New(cfg *config.Config, store storage.FileStore) (*App, error) {
	disk, err := cache.NewDiskCache(store, cfg.Cache.CacheDir, cfg.Cache.JournalDir, cfg.Cache.DiskMaxBytes(),
		cache.WithResyncAfterFailures(cfg.Cache.ResyncAfterFailures))
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}

	catalog, err := storage.NewCatalog(cfg.CatalogPath())
	if err != nil {
		return nil, err
	}

	userAgent := cfg.Network.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	client := network.NewClient(cfg.Network.BaseURL, userAgent, time.Duration(cfg.Network.TimeoutSeconds)*time.Second)

	memory := cache.NewMemoryCache(cfg.Cache.MemoryMaxBytes())

	return &App{
		Config:   cfg,
		Memory:   memory,
		Disk:     disk,
		Client:   client,
		Catalog:  catalog,
		Repo:     gallery.NewRepository(memory, disk, client, cfg.Thumbnail.JPEGQuality),
		Mediator: gallery.NewMediator(client, catalog, cfg.Network.PageSize),
	}, nil
}

// NewLoader returns a list loader backed by the repository
func (a *App) NewLoader() *gallery.Loader {
	return gallery.NewLoader(a.Repo, a.Config.Thumbnail.MaxConcurrentFetches)
}

// NewDetail returns a full-size image loader backed by the repository
func (a *App) NewDetail() *gallery.Detail {
	return gallery.NewDetail(a.Repo)
}

func (a *App) Stats() Stats {
	return Stats{
		CatalogImages:  a.Catalog.Count(),
		MemoryEntries:  a.Memory.Len(),
		MemoryBytes:    a.Memory.Size(),
		MemoryMaxBytes: a.Memory.MaxBytes(),
		DiskFiles:      a.Disk.Len(),
		DiskBytes:      a.Disk.Size(),
		DiskMaxBytes:   a.Disk.MaxBytes(),
		CacheDir:       a.Config.Cache.CacheDir,
		JournalPath:    a.Disk.JournalPath(),
	}
}

// ClearCache empties both cache tiers. The catalog is kept.
func (a *App) ClearCache() error {
	a.Memory.Clear()
	if err := a.Disk.Clear(); err != nil {
		return fmt.Errorf("failed to clear disk cache: %w", err)
	}
	return nil
}

// Reconcile brings the journal and the cache directory back in line
func (a *App) Reconcile() error {
	return a.Disk.Reconcile()
}

// Sync refreshes the catalog from the first page and warms the thumbnails of
// the first warm_pages pages
func (a *App) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	end, err := a.Mediator.Refresh(ctx)
	if err != nil {
		return result, err
	}
	result.EndOfPagination = end

	for page := 1; page < a.Config.Sync.WarmPages && !end; page++ {
		if end, err = a.Mediator.Append(ctx); err != nil {
			return result, err
		}
		result.EndOfPagination = end
	}

	limit := a.Mediator.PageSize() * a.Config.Sync.WarmPages
	if limit == 0 {
		return result, nil
	}
	images, err := a.Catalog.GetPage(0, limit)
	if err != nil {
		return result, fmt.Errorf("failed to read catalog: %w", err)
	}

	result.Warmed, err = gallery.Warm(ctx, a.Repo, images,
		a.Config.Thumbnail.Width, a.Config.Thumbnail.Height, a.Config.Thumbnail.MaxConcurrentFetches)
	logging.Info("warmed %d thumbnails, %d failed", result.Warmed.Fetched, result.Warmed.Failed)
	return result, err
}

func (a *App) Close() error {
	return a.Catalog.Close()
}
