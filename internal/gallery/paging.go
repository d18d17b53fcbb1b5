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

package gallery

import (
	"context"
	"fmt"

	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/network"
	"github.com/adaryorg/ngallery/internal/storage"
)

// DefaultPageSize is the number of images requested per page
const DefaultPageSize = 30

// ImageLister is the remote paged list
type ImageLister interface {
	ListImages(ctx context.Context, page, limit int) ([]network.ImageResponse, error)
}

// Catalog is the local copy of the list
type Catalog interface {
	SaveImagesAndRemoteKey(images []storage.Image, key storage.RemoteKey) error
	ClearAndSaveImagesAndRemoteKey(images []storage.Image, key storage.RemoteKey) error
	LastRemoteKey() (*storage.RemoteKey, error)
}

// Mediator fills the local catalog from the remote list one page at a time
type Mediator struct {
	lister   ImageLister
	catalog  Catalog
	pageSize int
}

func NewMediator(lister ImageLister, catalog Catalog, pageSize int) *Mediator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Mediator{
		lister:   lister,
		catalog:  catalog,
		pageSize: pageSize,
	}
}

// PageSize returns the number of images requested per page
func (m *Mediator) PageSize() int {
	return m.pageSize
}

// Refresh replaces the catalog with the first page. It reports whether the
// end of the list was reached.
func (m *Mediator) Refresh(ctx context.Context) (bool, error) {
	return m.load(ctx, 1, true)
}

// Append loads the page after the last one saved
func (m *Mediator) Append(ctx context.Context) (bool, error) {
	last, err := m.catalog.LastRemoteKey()
	if err != nil {
		return false, fmt.Errorf("failed to read remote key: %w", err)
	}
	if last == nil || last.NextPage == nil {
		return true, nil
	}
	return m.load(ctx, *last.NextPage, false)
}

// Prepend never loads anything; the list only grows at the end
func (m *Mediator) Prepend(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *Mediator) load(ctx context.Context, page int, refresh bool) (bool, error) {
	responses, err := m.lister.ListImages(ctx, page, m.pageSize)
	if err != nil {
		return false, fmt.Errorf("failed to load page %d: %w", page, err)
	}

	end := len(responses) < m.pageSize

	var remoteKey storage.RemoteKey
	if page > 1 {
		prev := page - 1
		remoteKey.PrevPage = &prev
	}
	if !end {
		next := page + 1
		remoteKey.NextPage = &next
	}

	images := network.ToImages(responses)
	if refresh {
		err = m.catalog.ClearAndSaveImagesAndRemoteKey(images, remoteKey)
	} else {
		err = m.catalog.SaveImagesAndRemoteKey(images, remoteKey)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save page %d: %w", page, err)
	}

	logging.Debug("saved page %d (%d images, end=%v)", page, len(images), end)
	return end, nil
}
