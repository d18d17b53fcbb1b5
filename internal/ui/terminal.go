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
	"os"
	"strings"
)

// TerminalCapabilities holds information about what the terminal can display
type TerminalCapabilities struct {
	SupportsUnicode bool
	SupportsColor   bool
	SupportsKitty   bool
}

// DetectTerminalCapabilities analyzes the current terminal's capabilities
func DetectTerminalCapabilities() TerminalCapabilities {
	term := strings.ToLower(os.Getenv("TERM"))
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))

	return TerminalCapabilities{
		SupportsUnicode: detectUnicodeSupport(term, termProgram),
		SupportsColor:   detectColorSupport(term),
		SupportsKitty:   detectKittySupport(),
	}
}

func detectUnicodeSupport(term, termProgram string) bool {
	// Terminals known to support Unicode well
	unicodeTerminals := []string{
		"xterm-256color", "screen-256color", "tmux-256color",
		"alacritty", "kitty", "iterm2", "vscode",
		"gnome-terminal", "konsole", "wezterm", "ghostty",
	}
	for _, supportedTerm := range unicodeTerminals {
		if strings.Contains(term, supportedTerm) || strings.Contains(termProgram, supportedTerm) {
			return true
		}
	}

	// Check for UTF-8 locale
	if strings.Contains(strings.ToUpper(os.Getenv("LANG")), "UTF-8") ||
		strings.Contains(strings.ToUpper(os.Getenv("LC_ALL")), "UTF-8") {
		return true
	}

	// Conservative fallback for unknown terminals
	if term == "" || strings.Contains(term, "dumb") || strings.Contains(term, "linux") {
		return false
	}
	return true
}

func detectColorSupport(term string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.Contains(term, "dumb") || strings.Contains(term, "unknown") {
		return false
	}
	return true
}

// StateGlyphs are the row markers for each load state
type StateGlyphs struct {
	Waiting string
	Loading string
	Ready   string
	Failed  string
}

// GlyphsFor picks markers the terminal can draw
func GlyphsFor(caps TerminalCapabilities) StateGlyphs {
	if caps.SupportsUnicode {
		return StateGlyphs{Waiting: "○", Loading: "◐", Ready: "●", Failed: "✕"}
	}
	return StateGlyphs{Waiting: ".", Loading: "~", Ready: "*", Failed: "!"}
}
