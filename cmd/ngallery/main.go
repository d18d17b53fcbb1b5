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
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/adaryorg/ngallery/internal/app"
	"github.com/adaryorg/ngallery/internal/config"
	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/version"
)

func main() {
	// Define command line flags
	configFile := flag.String("config", "", "Use this config file instead of ~/.config/ngallery/config.toml")
	clearCache := flag.Bool("clear-cache", false, "Delete every cached image and exit")
	reconcile := flag.Bool("reconcile", false, "Repair the cache journal against the cache directory and exit")
	stats := flag.Bool("stats", false, "Show cache and catalog statistics")
	statsShort := flag.Bool("s", false, "Show cache and catalog statistics")
	help := flag.Bool("help", false, "Show help information")
	helpShort := flag.Bool("h", false, "Show help information")
	versionFlag := flag.Bool("version", false, "Display version and build information")
	versionShort := flag.Bool("v", false, "Display version and build information")
	flag.Parse()

	// Show version if requested
	if *versionFlag || *versionShort {
		fmt.Printf("ngallery version %s | %s (%s)\n",
			version.Version,
			version.BuildTime,
			version.CommitHash,
		)
		os.Exit(0)
	}

	// Show help if requested
	if *help || *helpShort {
		showHelp()
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The TUI owns the terminal, so log lines only go to the file
	err = logging.InitLogger(logging.Options{
		LogFile:    cfg.Logging.LogFile,
		Level:      cfg.Logging.Level,
		MaxAge:     cfg.Logging.MaxAge,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	a, err := app.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer a.Close()

	switch {
	case *clearCache:
		before := a.Stats()
		if err := a.ClearCache(); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		fmt.Printf("[OK] Removed %d cached files (%s)\n", before.DiskFiles, formatBytes(before.DiskBytes))
	case *reconcile:
		if err := a.Reconcile(); err != nil {
			log.Fatalf("Failed to reconcile cache: %v", err)
		}
		fmt.Println("[OK] Cache journal reconciled")
		printStats(a.Stats())
	case *stats || *statsShort:
		printStats(a.Stats())
	default:
		startTUI(a)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func printStats(s app.Stats) {
	fmt.Println("=== NGALLERY STATISTICS ===")
	fmt.Printf("Catalog images:  %d\n", s.CatalogImages)
	fmt.Printf("Disk cache:      %d files, %s of %s\n", s.DiskFiles, formatBytes(s.DiskBytes), formatBytes(s.DiskMaxBytes))
	fmt.Printf("Cache directory: %s\n", s.CacheDir)
	fmt.Printf("Journal:         %s\n", s.JournalPath)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func showHelp() {
	fmt.Println("NGallery - Terminal Image Gallery")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ngallery                           Start the gallery browser")
	fmt.Println("  ngallery --config FILE             Use a custom config file")
	fmt.Println("  ngallery --clear-cache             Delete every cached image")
	fmt.Println("  ngallery --reconcile               Repair the cache journal")
	fmt.Println("  ngallery --stats, -s               Show cache and catalog statistics")
	fmt.Println("  ngallery --version, -v             Display version and build information")
	fmt.Println("  ngallery --help, -h                Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --clear-cache                      Removes downloaded originals and thumbnails")
	fmt.Println("                                     from the disk cache and empties the journal.")
	fmt.Println("                                     The image catalog is kept.")
	fmt.Println()
	fmt.Println("  --reconcile                        Drops journal entries whose files are gone,")
	fmt.Println("                                     deletes files the journal does not know")
	fmt.Println("                                     about and recomputes the cache size. This")
	fmt.Println("                                     also runs on every start.")
	fmt.Println()
	fmt.Println("Keys:")
	fmt.Println("  up/down, pgup/pgdown               Move through the list")
	fmt.Println("  /                                  Search by author")
	fmt.Println("  enter                              View the full-size image")
	fmt.Println("  y                                  Copy the image download URL")
	fmt.Println("  r                                  Refresh the catalog")
	fmt.Println("  q                                  Quit")
}
