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
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/adaryorg/ngallery/internal/config"
	"github.com/adaryorg/ngallery/internal/gallery"
	"github.com/adaryorg/ngallery/internal/key"
	"github.com/adaryorg/ngallery/internal/logging"
	"github.com/adaryorg/ngallery/internal/storage"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
)

// appendThreshold is how close to the last row the cursor gets before the
// next page is requested
const appendThreshold = 5

const listHint = "↑/↓: move • /: search • enter: view • y: copy url • r: refresh • q: quit"

// Pager loads pages of the remote list into the catalog
type Pager interface {
	Refresh(ctx context.Context) (bool, error)
	Append(ctx context.Context) (bool, error)
}

// ImageSource reads the catalog
type ImageSource interface {
	GetAll() ([]storage.Image, error)
}

type Model struct {
	config *config.Config
	source ImageSource
	pager  Pager
	loader *gallery.Loader
	detail *gallery.Detail

	// Signalled by the loaders whenever a slot or the detail image changes
	changed chan struct{}

	images   []storage.Image
	rows     []int          // indices into images, in display order
	observed map[int]string // slot -> key it observes

	cursor       int
	visibleStart int
	width        int
	height       int
	currentMode  mode
	searchQuery  string

	status          string
	statusIsError   bool
	endOfPagination bool
	pageLoading     bool

	styles  Styles
	caps    TerminalCapabilities
	glyphs  StateGlyphs
	kitty   *kittyCache
	viewing *storage.Image

	copyToClipboard func(string) error
}

type slotsChangedMsg struct{}

type pageLoadedMsg struct {
	images  []storage.Image
	refresh bool
	end     bool
	err     error
}

type copiedMsg struct {
	url string
	err error
}

// NewModel builds the gallery view over the catalog. Slots handed to loader are
// positions in the catalog.
func NewModel(cfg *config.Config, source ImageSource, pager Pager, loader *gallery.Loader, detail *gallery.Detail) Model {
	images, err := source.GetAll()
	if err != nil {
		logging.Error("failed to read catalog: %v", err)
	}

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	loader.OnUpdate(func(gallery.SlotUpdate) { notify() })
	detail.OnUpdate(func(gallery.State) { notify() })

	caps := DetectTerminalCapabilities()

	m := Model{
		config:          cfg,
		source:          source,
		pager:           pager,
		loader:          loader,
		detail:          detail,
		changed:         changed,
		images:          images,
		observed:        make(map[int]string),
		currentMode:     modeList,
		styles:          NewStyles(cfg.Theme),
		caps:            caps,
		glyphs:          GlyphsFor(caps),
		kitty:           &kittyCache{},
		copyToClipboard: clipboard.WriteAll,
	}
	m.applyFilter()

	// An empty catalog is filled on start
	m.pageLoading = len(images) == 0
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.changed)}
	if m.pageLoading {
		cmds = append(cmds, m.loadPage(true))
	}
	return tea.Batch(cmds...)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return slotsChangedMsg{}
	}
}

func (m Model) loadPage(refresh bool) tea.Cmd {
	pager, source := m.pager, m.source
	return func() tea.Msg {
		ctx := context.Background()

		var end bool
		var err error
		if refresh {
			end, err = pager.Refresh(ctx)
		} else {
			end, err = pager.Append(ctx)
		}
		if err != nil {
			return pageLoadedMsg{refresh: refresh, err: err}
		}

		images, err := source.GetAll()
		return pageLoadedMsg{images: images, refresh: refresh, end: end, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncWindow()
		return m, nil

	case slotsChangedMsg:
		// Slot states are read from the loader when rendering
		return m, waitForChange(m.changed)

	case pageLoadedMsg:
		m.pageLoading = false
		if msg.err != nil {
			logging.Error("failed to load images: %v", msg.err)
			m.setStatus(fmt.Sprintf("Load failed: %v", msg.err), true)
			return m, nil
		}
		if msg.refresh {
			m.releaseAll()
			m.cursor = 0
			m.visibleStart = 0
		}
		m.images = msg.images
		m.endOfPagination = msg.end
		m.applyFilter()
		m.syncWindow()
		m.setStatus(fmt.Sprintf("%d images", len(m.images)), false)
		return m, m.maybeAppend()

	case copiedMsg:
		if msg.err != nil {
			logging.Warn("failed to copy %s: %v", msg.url, msg.err)
			m.setStatus(fmt.Sprintf("Copy failed: %v", msg.err), true)
		} else {
			m.setStatus("Copied "+msg.url, false)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.currentMode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor--
	case "down", "j":
		m.cursor++
	case "pgup":
		m.cursor -= max(m.contentHeight(), 1)
	case "pgdown":
		m.cursor += max(m.contentHeight(), 1)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.rows) - 1
	case "/":
		m.currentMode = modeSearch
		return m, nil
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.applyFilter()
		}
	case "enter":
		m.openDetail()
		return m, nil
	case "y":
		return m, m.copyCurrent()
	case "r":
		if m.pageLoading {
			return m, nil
		}
		m.pageLoading = true
		m.setStatus("Refreshing...", false)
		return m, m.loadPage(true)
	default:
		return m, nil
	}

	m.clampCursor()
	m.syncWindow()
	return m, m.maybeAppend()
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searchQuery = ""
		m.currentMode = modeList
	case tea.KeyEnter:
		m.currentMode = modeList
		return m, nil
	case tea.KeyBackspace:
		if runes := []rune(m.searchQuery); len(runes) > 0 {
			m.searchQuery = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	default:
		return m, nil
	}

	m.cursor = 0
	m.visibleStart = 0
	m.applyFilter()
	m.syncWindow()
	return m, m.maybeAppend()
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y":
		if m.viewing != nil {
			return m, m.copyURL(m.viewing.DownloadURL)
		}
	case "esc", "q", "backspace", "enter":
		m.detail.Cancel()
		m.viewing = nil
		m.currentMode = modeList
	}
	return m, nil
}

func (m *Model) setStatus(text string, isError bool) {
	m.status = text
	m.statusIsError = isError
}

type authorSource []storage.Image

func (a authorSource) String(i int) string { return a[i].Author }
func (a authorSource) Len() int            { return len(a) }

// applyFilter rebuilds the displayed rows from the search query, best match first
func (m *Model) applyFilter() {
	rows := make([]int, 0, len(m.images))
	if strings.TrimSpace(m.searchQuery) == "" {
		for i := range m.images {
			rows = append(rows, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(m.searchQuery, authorSource(m.images)) {
			rows = append(rows, match.Index)
		}
	}
	m.rows = rows
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// syncWindow scrolls so the cursor is visible, observes the rows now on screen
// and disposes the ones that left it
func (m *Model) syncWindow() {
	height := m.contentHeight()
	if m.cursor < m.visibleStart {
		m.visibleStart = m.cursor
	}
	if height > 0 && m.cursor >= m.visibleStart+height {
		m.visibleStart = m.cursor - height + 1
	}
	if m.visibleStart < 0 {
		m.visibleStart = 0
	}

	visible := make(map[int]bool)
	var order []int
	for i := m.visibleStart; i < len(m.rows) && i < m.visibleStart+height; i++ {
		visible[m.rows[i]] = true
		order = append(order, m.rows[i])
	}

	for slot, k := range m.observed {
		if !visible[slot] {
			m.loader.Dispose(slot, k)
			delete(m.observed, slot)
		}
	}

	width, thumbHeight := m.config.Thumbnail.Width, m.config.Thumbnail.Height
	for _, slot := range order {
		if _, ok := m.observed[slot]; ok {
			continue
		}
		url := m.images[slot].DownloadURL
		m.observed[slot] = m.loader.Observe(slot, url, width, thumbHeight)
		m.loader.RequestThumbnail(url, width, thumbHeight)
	}
}

func (m *Model) releaseAll() {
	for slot, k := range m.observed {
		m.loader.Dispose(slot, k)
		delete(m.observed, slot)
	}
}

// maybeAppend requests the next page when the cursor nears the end of an
// unfiltered list
func (m *Model) maybeAppend() tea.Cmd {
	if m.pageLoading || m.endOfPagination || m.searchQuery != "" {
		return nil
	}
	if m.cursor < len(m.rows)-appendThreshold {
		return nil
	}
	m.pageLoading = true
	return m.loadPage(false)
}

func (m Model) currentImage() *storage.Image {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	img := m.images[m.rows[m.cursor]]
	return &img
}

func (m *Model) openDetail() {
	img := m.currentImage()
	if img == nil {
		return
	}
	thumbnailKey := key.For(img.DownloadURL, m.config.Thumbnail.Width, m.config.Thumbnail.Height)
	m.detail.Request(thumbnailKey, img.DownloadURL)
	m.viewing = img
	m.currentMode = modeDetail
}

func (m Model) copyCurrent() tea.Cmd {
	img := m.currentImage()
	if img == nil {
		return nil
	}
	return m.copyURL(img.DownloadURL)
}

func (m Model) copyURL(url string) tea.Cmd {
	copyFn := m.copyToClipboard
	return func() tea.Msg {
		return copiedMsg{url: url, err: copyFn(url)}
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.currentMode == modeDetail {
		return m.renderDetail()
	}
	return m.renderList()
}

func (m Model) renderList() string {
	header := fmt.Sprintf("ngallery • %d images", len(m.images))
	if m.searchQuery != "" {
		header += fmt.Sprintf(" • %d matching", len(m.rows))
	}
	if m.endOfPagination {
		header += " (end)"
	}
	if m.pageLoading {
		header += " • loading..."
	}

	var lines []string
	if len(m.rows) == 0 {
		msg := "No images yet"
		if m.searchQuery != "" {
			msg = fmt.Sprintf("No authors match %q", m.searchQuery)
		}
		lines = append(lines, m.styles.Pending.Render(msg))
	}
	for i := m.visibleStart; i < len(m.rows) && i < m.visibleStart+m.contentHeight(); i++ {
		lines = append(lines, m.renderRow(i))
	}

	var footer string
	switch {
	case m.currentMode == modeSearch:
		footer = m.styles.Search.Render("/" + m.searchQuery + "_")
	case m.status != "" && m.statusIsError:
		footer = m.styles.Error.Render(m.status)
	case m.status != "":
		footer = m.status + " • " + listHint
	default:
		footer = listHint
	}

	view := m.createMainFrameDialog(m.buildFrameContent(header, lines, footer))
	if m.caps.SupportsKitty {
		// Clear any full-size image left over from the detail view
		view = kittyDeleteAll + view
	}
	return view
}

type rowState struct {
	glyph string
	text  string
	style lipgloss.Style
}

func (m Model) rowState(s gallery.State) rowState {
	return gallery.Match(s,
		func() rowState { return rowState{glyph: " ", style: m.styles.Pending} },
		func() rowState { return rowState{glyph: m.glyphs.Waiting, text: "waiting", style: m.styles.Pending} },
		func() rowState { return rowState{glyph: m.glyphs.Loading, text: "loading", style: m.styles.Pending} },
		func(v gallery.Success) rowState {
			return rowState{glyph: m.glyphs.Ready, text: "thumb " + gallery.Describe(v), style: lipgloss.NewStyle()}
		},
		func(v gallery.Failure) rowState {
			return rowState{glyph: m.glyphs.Failed, text: v.Err.Error(), style: m.styles.Error}
		},
	)
}

func (m Model) renderRow(i int) string {
	slot := m.rows[i]
	img := m.images[slot]
	rs := m.rowState(m.loader.Slot(slot))

	author := truncate(img.Author, 24)
	text := fmt.Sprintf("%s %-24s %5dx%-5d %s", rs.glyph, author, img.Width, img.Height, rs.text)
	text = truncate(text, m.contentWidth())

	if i == m.cursor {
		return m.styles.Selected.Width(m.contentWidth()).Render(text)
	}
	return rs.style.Render(text)
}

func (m Model) renderDetail() string {
	if m.viewing == nil {
		return m.renderList()
	}

	header := fmt.Sprintf("%s • %dx%d", m.viewing.Author, m.viewing.Width, m.viewing.Height)
	footer := "esc: back • y: copy url"

	var lines []string
	var image string
	gallery.Match(m.detail.State(),
		func() struct{} { return struct{}{} },
		func() struct{} {
			lines = append(lines, m.styles.Pending.Render("Waiting..."))
			return struct{}{}
		},
		func() struct{} {
			lines = append(lines, m.styles.Pending.Render("Loading..."))
			return struct{}{}
		},
		func(v gallery.Success) struct{} {
			if m.caps.SupportsKitty {
				seq, err := m.kitty.render(v.Bitmap, m.contentWidth(), m.contentHeight())
				if err == nil {
					image = seq
					return struct{}{}
				}
				logging.Warn("failed to render image: %v", err)
			}
			lines = append(lines, "Loaded "+gallery.Describe(v))
			return struct{}{}
		},
		func(v gallery.Failure) struct{} {
			lines = append(lines, m.styles.Error.Render(v.Err.Error()))
			return struct{}{}
		},
	)

	view := m.createMainFrameDialog(m.buildFrameContent(header, lines, footer))
	if image == "" {
		return view
	}

	// First content cell: below the border, header and separator, right of the
	// border and padding
	const imageRow, imageCol = 4, 3
	return kittyDeleteAll + view + fmt.Sprintf("\x1b[%d;%dH", imageRow, imageCol) + image
}
