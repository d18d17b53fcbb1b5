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

package bitmap

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestSampleFactor(t *testing.T) {
	tests := []struct {
		rawW, rawH       int
		targetW, targetH int
		expected         int
	}{
		{100, 100, 100, 100, 1},
		{50, 50, 100, 100, 1},
		{200, 200, 100, 100, 2},
		{201, 100, 100, 100, 4},
		{5000, 3333, 200, 200, 32},
		{400, 100, 100, 100, 4},
		{100, 800, 100, 100, 8},
		{1000, 1000, 0, 100, 1},
	}

	for _, test := range tests {
		got := SampleFactor(test.rawW, test.rawH, test.targetW, test.targetH)
		if got != test.expected {
			t.Errorf("SampleFactor(%d, %d, %d, %d) = %d, expected %d",
				test.rawW, test.rawH, test.targetW, test.targetH, got, test.expected)
		}
		if test.targetW > 0 && test.targetH > 0 {
			if test.rawW/got > test.targetW || test.rawH/got > test.targetH {
				t.Errorf("factor %d does not fit %dx%d into %dx%d", got, test.rawW, test.rawH, test.targetW, test.targetH)
			}
		}
	}
}

func TestDecode(t *testing.T) {
	b, err := Decode(bytes.NewReader(testPNG(t, 40, 30)))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if b.Width() != 40 || b.Height() != 30 {
		t.Errorf("Expected 40x30, got %dx%d", b.Width(), b.Height())
	}
	if b.Size() != 40*30*4 {
		t.Errorf("Expected pixel buffer of %d bytes, got %d", 40*30*4, b.Size())
	}
}

func TestDecodeDownsampled(t *testing.T) {
	b, err := DecodeDownsampled(bytes.NewReader(testPNG(t, 160, 80)), 50, 50)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	// factor 4: 160/4 = 40, 80/4 = 20
	if b.Width() != 40 || b.Height() != 20 {
		t.Errorf("Expected 40x20, got %dx%d", b.Width(), b.Height())
	}
	if b.Size() != 40*20*4 {
		t.Errorf("Expected %d bytes, got %d", 40*20*4, b.Size())
	}
}

func TestDecodeDownsampledNoScaling(t *testing.T) {
	b, err := DecodeDownsampled(bytes.NewReader(testPNG(t, 20, 20)), 50, 50)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if b.Width() != 20 || b.Height() != 20 {
		t.Errorf("Expected original size 20x20, got %dx%d", b.Width(), b.Height())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"garbage", []byte("definitely not an image")},
	}

	for _, test := range tests {
		if _, err := Decode(bytes.NewReader(test.data)); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: Decode error = %v, expected ErrDecode", test.name, err)
		}
		if _, err := DecodeDownsampled(bytes.NewReader(test.data), 10, 10); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: DecodeDownsampled error = %v, expected ErrDecode", test.name, err)
		}
	}
}

func TestEncodeJPEG(t *testing.T) {
	b, err := Decode(bytes.NewReader(testPNG(t, 32, 16)))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, b, 90); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Output is not a JPEG: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 16 {
		t.Errorf("Expected 32x16 JPEG, got %dx%d", cfg.Width, cfg.Height)
	}

	// Re-decoded JPEGs are YCbCr; size must follow the planes
	again, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Failed to decode JPEG: %v", err)
	}
	if again.Size() <= 0 {
		t.Errorf("Expected positive size for YCbCr image, got %d", again.Size())
	}
}

func TestEncodePNG(t *testing.T) {
	b := New(image.NewGray(image.Rect(0, 0, 8, 8)))

	var buf bytes.Buffer
	if err := EncodePNG(&buf, b); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("Output is not a PNG: %v", err)
	}
	if b.Size() != 64 {
		t.Errorf("Expected gray image size 64, got %d", b.Size())
	}
}
