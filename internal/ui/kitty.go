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

package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/draw"

	"github.com/adaryorg/ngallery/internal/bitmap"
)

const (
	kittyChunkSize = 4096

	// Rough cell size used to bound the pixels we send
	cellPixelWidth  = 10
	cellPixelHeight = 18

	// Deletes every image placed by this program
	kittyDeleteAll = "\x1b_Ga=d\x1b\\"
)

// detectKittySupport checks if the terminal supports Kitty image protocol
func detectKittySupport() bool {
	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram == "kitty" || termProgram == "ghostty" || termProgram == "WezTerm" ||
		termProgram == "Konsole" {
		return true
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" ||
		os.Getenv("WEZTERM_PANE") != "" ||
		os.Getenv("KONSOLE_VERSION") != "" {
		return true
	}

	term := os.Getenv("TERM")
	return strings.Contains(term, "kitty") || strings.Contains(term, "wezterm") ||
		strings.Contains(term, "konsole")
}

// fitImage scales img down to fit maxWidth x maxHeight, keeping its aspect ratio
func fitImage(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return img
	}

	scale := float64(maxWidth) / float64(width)
	if s := float64(maxHeight) / float64(height); s < scale {
		scale = s
	}

	newWidth := max(int(float64(width)*scale), 1)
	newHeight := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// renderBitmap encodes b as PNG sized for a cols x rows cell area and wraps it
// in Kitty escape sequences
func renderBitmap(b *bitmap.Bitmap, cols, rows int) (string, error) {
	cols = max(cols, 10)
	rows = max(rows, 5)

	img := fitImage(b.Image(), cols*cellPixelWidth, rows*cellPixelHeight)

	var buf bytes.Buffer
	if err := bitmap.EncodePNG(&buf, bitmap.New(img)); err != nil {
		return "", err
	}
	return renderKittyImageDirect(buf.Bytes(), cols, rows), nil
}

// renderKittyImageDirect renders PNG data with the Kitty protocol, scaled by the
// terminal to fit displayCols x displayRows cells
func renderKittyImageDirect(imageData []byte, displayCols, displayRows int) string {
	if len(imageData) == 0 {
		return ""
	}

	encoded := base64.StdEncoding.EncodeToString(imageData)

	// a=T: transmit and display, f=100: PNG, c/r: cell box to fit into
	control := fmt.Sprintf("a=T,f=100,c=%d,r=%d", displayCols, displayRows)

	if len(encoded) <= kittyChunkSize {
		return fmt.Sprintf("\x1b_G%s;%s\x1b\\", control, encoded)
	}

	var result strings.Builder
	for i := 0; i < len(encoded); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(encoded))
		more := 1
		if end == len(encoded) {
			more = 0 // final chunk triggers the display
		}
		if i == 0 {
			fmt.Fprintf(&result, "\x1b_G%s,m=1;%s\x1b\\", control, encoded[i:end])
			continue
		}
		fmt.Fprintf(&result, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
	}
	return result.String()
}

// kittyCache keeps the last encoded image so redraws don't re-encode it
type kittyCache struct {
	mu   sync.Mutex
	bmp  *bitmap.Bitmap
	cols int
	rows int
	seq  string
}

func (c *kittyCache) render(b *bitmap.Bitmap, cols, rows int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bmp == b && c.cols == cols && c.rows == rows {
		return c.seq, nil
	}
	seq, err := renderBitmap(b, cols, rows)
	if err != nil {
		return "", err
	}
	c.bmp, c.cols, c.rows, c.seq = b, cols, rows, seq
	return seq, nil
}
