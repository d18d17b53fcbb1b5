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

// Package bitmap decodes cached image files into in-memory rasters and encodes
// downsampled rasters back to disk.
package bitmap

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	// Additional image format support
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

// ErrDecode wraps every failure to turn bytes into a raster
var ErrDecode = errors.New("failed to decode image")

// Bitmap is a decoded raster held by the memory cache
type Bitmap struct {
	img image.Image
}

// New wraps an already decoded image
func New(img image.Image) *Bitmap {
	return &Bitmap{img: img}
}

// Image returns the underlying raster
func (b *Bitmap) Image() image.Image {
	return b.img
}

func (b *Bitmap) Width() int {
	return b.img.Bounds().Dx()
}

func (b *Bitmap) Height() int {
	return b.img.Bounds().Dy()
}

// Size returns the bytes allocated for the pixel buffer
func (b *Bitmap) Size() int64 {
	switch img := b.img.(type) {
	case *image.RGBA:
		return int64(len(img.Pix))
	case *image.NRGBA:
		return int64(len(img.Pix))
	case *image.RGBA64:
		return int64(len(img.Pix))
	case *image.NRGBA64:
		return int64(len(img.Pix))
	case *image.Gray:
		return int64(len(img.Pix))
	case *image.Gray16:
		return int64(len(img.Pix))
	case *image.CMYK:
		return int64(len(img.Pix))
	case *image.Paletted:
		return int64(len(img.Pix) + len(img.Palette)*4)
	case *image.YCbCr:
		return int64(len(img.Y) + len(img.Cb) + len(img.Cr))
	case *image.NYCbCrA:
		return int64(len(img.Y) + len(img.Cb) + len(img.Cr) + len(img.A))
	default:
		// Assume 4 bytes per pixel for formats we don't know about
		return int64(b.Width()) * int64(b.Height()) * 4
	}
}

// Decode reads a full-size image
func Decode(r io.Reader) (*Bitmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return New(img), nil
}

// SampleFactor returns the power-of-two divisor that brings raw dimensions within target
func SampleFactor(rawWidth, rawHeight, targetWidth, targetHeight int) int {
	factor := 1
	if targetWidth <= 0 || targetHeight <= 0 {
		return factor
	}
	for rawWidth/factor > targetWidth || rawHeight/factor > targetHeight {
		factor *= 2
	}
	return factor
}

// DecodeDownsampled decodes r at 1/factor of its size, where factor is chosen by SampleFactor
func DecodeDownsampled(r io.ReadSeeker, targetWidth, targetHeight int) (*Bitmap, error) {
	// Read only the header first to pick the factor
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind image: %w", err)
	}

	src, err := Decode(r)
	if err != nil {
		return nil, err
	}

	factor := SampleFactor(cfg.Width, cfg.Height, targetWidth, targetHeight)
	if factor == 1 {
		return src, nil
	}

	width := max(cfg.Width/factor, 1)
	height := max(cfg.Height/factor, 1)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src.img, src.img.Bounds(), draw.Src, nil)

	return New(dst), nil
}

// EncodeJPEG writes b as a JPEG with the given quality (1-100)
func EncodeJPEG(w io.Writer, b *Bitmap, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(w, b.img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

// EncodePNG writes b as a PNG
func EncodePNG(w io.Writer, b *Bitmap) error {
	if err := png.Encode(w, b.img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
