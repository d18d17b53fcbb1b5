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

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Image is one entry of the gallery list as stored locally
type Image struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Author      string `json:"author"`
}

// RemoteKey records which pages surround the last page that was saved
type RemoteKey struct {
	ID       int64
	PrevPage *int
	NextPage *int
}

// Catalog persists the paged image list so the gallery can be browsed offline
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens (or creates) the catalog database at dbPath
func NewCatalog(dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	c := &Catalog{db: db}

	if err := c.createTables(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create catalog tables: %w", err)
	}

	return c, nil
}

func (c *Catalog) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		download_url TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		author TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_position ON images(position);

	CREATE TABLE IF NOT EXISTS image_remote_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prev_page INTEGER,
		next_page INTEGER
	);
	`

	_, err := c.db.Exec(query)
	return err
}

// SaveImagesAndRemoteKey appends a page of images and its remote key in one transaction
func (c *Catalog) SaveImagesAndRemoteKey(images []Image, key RemoteKey) error {
	return c.withTx(func(tx *sql.Tx) error {
		return saveImagesAndKey(tx, images, key)
	})
}

// ClearAndSaveImagesAndRemoteKey replaces the whole catalog with one page of images
func (c *Catalog) ClearAndSaveImagesAndRemoteKey(images []Image, key RemoteKey) error {
	return c.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM images"); err != nil {
			return fmt.Errorf("failed to clear images: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM image_remote_keys"); err != nil {
			return fmt.Errorf("failed to clear remote keys: %w", err)
		}
		return saveImagesAndKey(tx, images, key)
	})
}

func saveImagesAndKey(tx *sql.Tx, images []Image, key RemoteKey) error {
	// New rows go after everything already stored, keeping server order
	var next int
	if err := tx.QueryRow("SELECT COALESCE(MAX(position) + 1, 0) FROM images").Scan(&next); err != nil {
		return fmt.Errorf("failed to read next position: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO images (id, url, download_url, width, height, author, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			download_url = excluded.download_url,
			width = excluded.width,
			height = excluded.height,
			author = excluded.author
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare image insert: %w", err)
	}
	defer stmt.Close()

	for i, img := range images {
		if _, err := stmt.Exec(img.ID, img.URL, img.DownloadURL, img.Width, img.Height, img.Author, next+i); err != nil {
			return fmt.Errorf("failed to save image %s: %w", img.ID, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO image_remote_keys (prev_page, next_page) VALUES (?, ?)", key.PrevPage, key.NextPage); err != nil {
		return fmt.Errorf("failed to save remote key: %w", err)
	}
	return nil
}

func (c *Catalog) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetPage returns images in list order
func (c *Catalog) GetPage(offset, limit int) ([]Image, error) {
	rows, err := c.db.Query(`
		SELECT id, url, download_url, width, height, author
		FROM images ORDER BY position LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.URL, &img.DownloadURL, &img.Width, &img.Height, &img.Author); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetAll returns every image in list order
func (c *Catalog) GetAll() ([]Image, error) {
	return c.GetPage(0, -1)
}

// Count returns the number of stored images
func (c *Catalog) Count() int {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&count); err != nil {
		return 0
	}
	return count
}

// LastRemoteKey returns the most recently saved remote key, or nil when there is none
func (c *Catalog) LastRemoteKey() (*RemoteKey, error) {
	var key RemoteKey
	var prev, next sql.NullInt64
	err := c.db.QueryRow(`
		SELECT id, prev_page, next_page FROM image_remote_keys
		WHERE id = (SELECT MAX(id) FROM image_remote_keys)
	`).Scan(&key.ID, &prev, &next)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last remote key: %w", err)
	}

	if prev.Valid {
		p := int(prev.Int64)
		key.PrevPage = &p
	}
	if next.Valid {
		n := int(next.Int64)
		key.NextPage = &n
	}
	return &key, nil
}

// Authors returns the distinct authors in the catalog
func (c *Catalog) Authors() ([]string, error) {
	rows, err := c.db.Query("SELECT DISTINCT author FROM images ORDER BY author")
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
