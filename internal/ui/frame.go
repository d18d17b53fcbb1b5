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
)

// frameChrome is the number of rows the frame takes around the content:
// border, header and its separator, footer and its separator, outer padding
const frameChrome = 8

// contentWidth is the usable width inside the frame
func (m Model) contentWidth() int {
	return max(m.width-6, 10)
}

// contentHeight is the number of content rows inside the frame
func (m Model) contentHeight() int {
	return max(m.height-frameChrome, 0)
}

// createMainFrameDialog wraps content in the full-screen frame
func (m Model) createMainFrameDialog(content string) string {
	dialog := m.styles.Frame.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

// buildFrameContent lays out a header, exactly contentHeight rows of content and a footer
func (m Model) buildFrameContent(headerText string, lines []string, footerText string) string {
	width := m.contentWidth()
	height := m.contentHeight()

	var content strings.Builder

	content.WriteString(m.styles.Header.Render(truncate(headerText, width)))
	content.WriteString("\n")
	content.WriteString(strings.Repeat("─", width))
	content.WriteString("\n")

	for i := 0; i < height; i++ {
		if i < len(lines) {
			content.WriteString(lines[i])
		}
		content.WriteString("\n")
	}

	content.WriteString(strings.Repeat("─", width))
	content.WriteString("\n")
	content.WriteString(m.styles.Status.Render(truncate(footerText, width)))

	return content.String()
}

// truncate shortens s to at most width cells, marking the cut with "..."
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:min(width, len(runes))])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
