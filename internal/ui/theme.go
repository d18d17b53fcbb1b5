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
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/adaryorg/ngallery/internal/config"
)

// Styles holds the rendered theme for every part of the gallery view
type Styles struct {
	Header   lipgloss.Style
	Status   lipgloss.Style
	Search   lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Pending  lipgloss.Style
	Frame    lipgloss.Style
}

// NewStyles builds the styles for a theme
func NewStyles(theme config.ThemeConfig) Styles {
	return Styles{
		Header:   colorConfigToStyle(theme.Header),
		Status:   colorConfigToStyle(theme.Status),
		Search:   colorConfigToStyle(theme.Search),
		Selected: colorConfigToStyle(theme.Selected),
		Error:    colorConfigToStyle(theme.Error),
		Pending:  colorConfigToStyle(theme.Pending),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(parseColor(theme.Frame.Foreground)).
			Padding(0, 1),
	}
}

var cssColors = map[string]string{
	"black":     "#000000",
	"red":       "#FF0000",
	"green":     "#008000",
	"yellow":    "#FFFF00",
	"blue":      "#0000FF",
	"magenta":   "#FF00FF",
	"cyan":      "#00FFFF",
	"white":     "#FFFFFF",
	"gray":      "#808080",
	"grey":      "#808080",
	"darkred":   "#8B0000",
	"darkgreen": "#006400",
	"darkblue":  "#00008B",
	"orange":    "#FFA500",
	"purple":    "#800080",
	"pink":      "#FFC0CB",
	"brown":     "#A52A2A",
	"navy":      "#000080",
	"teal":      "#008080",
	"silver":    "#C0C0C0",
	"gold":      "#FFD700",
	"coral":     "#FF7F50",
	"lavender":  "#E6E6FA",
}

// parseColor converts hex, CSS names and ANSI codes to lipgloss.Color
func parseColor(colorStr string) lipgloss.Color {
	if colorStr == "" || strings.HasPrefix(colorStr, "#") {
		return lipgloss.Color(colorStr)
	}

	if hexColor, exists := cssColors[strings.ToLower(colorStr)]; exists {
		return lipgloss.Color(hexColor)
	}

	// Otherwise, treat as ANSI color code
	return lipgloss.Color(colorStr)
}

func colorConfigToStyle(cc config.ColorConfig) lipgloss.Style {
	style := lipgloss.NewStyle()
	if cc.Foreground != "" {
		style = style.Foreground(parseColor(cc.Foreground))
	}
	if cc.Background != "" {
		style = style.Background(parseColor(cc.Background))
	}
	if cc.Bold {
		style = style.Bold(true)
	}
	return style
}
