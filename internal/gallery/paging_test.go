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
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaryorg/ngallery/internal/network"
	"github.com/adaryorg/ngallery/internal/storage"
)

// fakeLister serves total images split into pages
type fakeLister struct {
	total int
	err   error
	pages []int
}

func (f *fakeLister) ListImages(ctx context.Context, page, limit int) ([]network.ImageResponse, error) {
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}

	var out []network.ImageResponse
	for i := (page - 1) * limit; i < page*limit && i < f.total; i++ {
		id := fmt.Sprintf("%d", i)
		out = append(out, network.ImageResponse{
			ID:          id,
			Author:      "Author " + id,
			Width:       400,
			Height:      300,
			DownloadURL: "https://picsum.photos/id/" + id + "/400/300",
		})
	}
	return out, nil
}

func newTestCatalog(t *testing.T) *storage.Catalog {
	t.Helper()
	catalog, err := storage.NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestMediator_RefreshAndAppend(t *testing.T) {
	catalog := newTestCatalog(t)
	lister := &fakeLister{total: 25}
	m := NewMediator(lister, catalog, 10)

	end, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, end)
	assert.Equal(t, 10, catalog.Count())

	key, err := catalog.LastRemoteKey()
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Nil(t, key.PrevPage)
	require.NotNil(t, key.NextPage)
	assert.Equal(t, 2, *key.NextPage)

	end, err = m.Append(context.Background())
	require.NoError(t, err)
	assert.False(t, end)

	// Last page is short
	end, err = m.Append(context.Background())
	require.NoError(t, err)
	assert.True(t, end)
	assert.Equal(t, 25, catalog.Count())

	key, err = catalog.LastRemoteKey()
	require.NoError(t, err)
	assert.Nil(t, key.NextPage)
	assert.Equal(t, 2, *key.PrevPage)

	// Nothing left to load
	end, err = m.Append(context.Background())
	require.NoError(t, err)
	assert.True(t, end)
	assert.Equal(t, []int{1, 2, 3}, lister.pages)

	all, err := catalog.GetAll()
	require.NoError(t, err)
	for i, img := range all {
		assert.Equal(t, fmt.Sprintf("%d", i), img.ID)
	}
}

func TestMediator_RefreshReplacesCatalog(t *testing.T) {
	catalog := newTestCatalog(t)
	m := NewMediator(&fakeLister{total: 100}, catalog, 10)

	_, err := m.Refresh(context.Background())
	require.NoError(t, err)
	_, err = m.Append(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, catalog.Count())

	_, err = m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, catalog.Count())
}

func TestMediator_AppendWithoutRefresh(t *testing.T) {
	catalog := newTestCatalog(t)
	lister := &fakeLister{total: 100}
	m := NewMediator(lister, catalog, 10)

	end, err := m.Append(context.Background())
	require.NoError(t, err)
	assert.True(t, end)
	assert.Empty(t, lister.pages)
}

func TestMediator_Prepend(t *testing.T) {
	m := NewMediator(&fakeLister{}, newTestCatalog(t), 0)
	assert.Equal(t, DefaultPageSize, m.PageSize())

	end, err := m.Prepend(context.Background())
	require.NoError(t, err)
	assert.True(t, end)
}

func TestMediator_ListError(t *testing.T) {
	catalog := newTestCatalog(t)
	boom := errors.New("offline")
	m := NewMediator(&fakeLister{err: boom}, catalog, 10)

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, catalog.Count())
}
