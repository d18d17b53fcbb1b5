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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adaryorg/ngallery/internal/app"
	"github.com/adaryorg/ngallery/internal/config"
	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/version"
)

func main() {
	// Define command line flags
	configFile := flag.String("config", "", "Use this config file instead of ~/.config/ngallery/config.toml")
	once := flag.Bool("once", false, "Run a single sync pass and exit")
	versionFlag := flag.Bool("version", false, "Display version and build information")
	versionShort := flag.Bool("v", false, "Display version and build information")
	flag.Parse()

	// Show version if requested
	if *versionFlag || *versionShort {
		fmt.Printf("ngallery-sync version %s | %s (%s)\n",
			version.Version,
			version.BuildTime,
			version.CommitHash,
		)
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFrom(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging with file rotation and configured level
	err = logging.InitLogger(logging.Options{
		LogFile:    cfg.Logging.LogFile,
		Level:      cfg.Logging.Level,
		MaxAge:     cfg.Logging.MaxAge,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    true,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	logging.Info("Starting ngallery sync with log level: %s", cfg.Logging.Level)
	logging.Info("Log file: %s", cfg.Logging.LogFile)

	a, err := app.Open(cfg)
	if err != nil {
		logging.Error("Failed to initialize storage: %v", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	if *once {
		syncOnce(ctx, a)
		return
	}

	runSyncLoop(ctx, a, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute)
}

// runSyncLoop syncs immediately and then at every interval until ctx ends
func runSyncLoop(ctx context.Context, a *app.App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("Starting catalog sync (every %v)", interval)
	syncOnce(ctx, a)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Stopping catalog sync")
			return
		case <-ticker.C:
			syncOnce(ctx, a)
		}
	}
}

func syncOnce(ctx context.Context, a *app.App) {
	start := time.Now()
	result, err := a.Sync(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.Error("Sync failed: %v", err)
		return
	}

	stats := a.Stats()
	logging.Info("Sync finished in %v: %d images, %d thumbnails warmed, %d failed, disk %d files / %d bytes",
		time.Since(start).Round(time.Millisecond), stats.CatalogImages,
		result.Warmed.Fetched, result.Warmed.Failed, stats.DiskFiles, stats.DiskBytes)
}
