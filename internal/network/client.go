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

// Package network talks to the picsum-style image API: a paged JSON list and
// raw image downloads.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adaryorg/ngallery/internal/storage"
)

// ErrStatus is wrapped by every error caused by a non-2xx response
var ErrStatus = errors.New("unexpected response status")

// DefaultBaseURL is the public picsum endpoint
const DefaultBaseURL = "https://picsum.photos"

// ImageResponse is one element of the /v2/list array
type ImageResponse struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

// ToImage converts the wire type to the catalog type
func (r ImageResponse) ToImage() storage.Image {
	return storage.Image{
		ID:          r.ID,
		URL:         r.URL,
		DownloadURL: r.DownloadURL,
		Width:       r.Width,
		Height:      r.Height,
		Author:      r.Author,
	}
}

// ToImages converts a page of responses
func ToImages(responses []ImageResponse) []storage.Image {
	images := make([]storage.Image, len(responses))
	for i, r := range responses {
		images[i] = r.ToImage()
	}
	return images
}

// Client is an HTTP client for the image API
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a client. A zero timeout leaves the http.Client without one.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// ListImages fetches one page of the image list. Pages start at 1.
func (c *Client) ListImages(ctx context.Context, page, limit int) ([]ImageResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	listURL := c.baseURL + "/v2/list?" + query.Encode()

	body, err := c.get(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer body.Close()

	var images []ImageResponse
	if err := json.NewDecoder(body).Decode(&images); err != nil {
		return nil, fmt.Errorf("failed to decode image list: %w", err)
	}
	return images, nil
}

// Download opens a streaming body for rawURL. The caller must close it.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return resp.Body, nil
}
