package canvas

import (
	"strings"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// PaletteEntry describes one creatable node type
type PaletteEntry struct {
	Type        workflow.NodeType
	Label       string
	Icon        string
	Description string
}

// PaletteMode says where an entry chosen from the palette is placed
type PaletteMode int

const (
	// PaletteCenter adds at the viewport center with a cascade offset
	PaletteCenter PaletteMode = iota
	// PaletteContextMenu adds at the last right-click location
	PaletteContextMenu
)

var paletteEntries = []PaletteEntry{
	{Type: workflow.NodeTypeInput, Label: "Input", Icon: "▶", Description: "Entry point receiving the user's text"},
	{Type: workflow.NodeTypeAgent, Label: "Agent", Icon: "✦", Description: "Call a configured backend agent"},
	{Type: workflow.NodeTypeTransform, Label: "Transform", Icon: "ƒ", Description: "Reshape data with code"},
	{Type: workflow.NodeTypeAPI, Label: "API Call", Icon: "⇄", Description: "Call an external HTTP endpoint"},
	{Type: workflow.NodeTypeCondition, Label: "Condition", Icon: "◇", Description: "Branch on a comparison or logical test"},
	{Type: workflow.NodeTypeOutput, Label: "Output", Icon: "■", Description: "Exit point with the result"},
}

// EntryFor returns the palette entry of node type t
func EntryFor(t workflow.NodeType) PaletteEntry {
	for _, e := range paletteEntries {
		if e.Type == t {
			return e
		}
	}
	return PaletteEntry{Type: t, Label: t.DefaultName(), Icon: "•"}
}

// Palette manages node type selection with search filtering
type Palette struct {
	entries       []PaletteEntry
	selectedIndex int
	filterText    string
	visible       bool
	mode          PaletteMode
}

// NewPalette creates a palette listing every node type
func NewPalette() *Palette {
	entries := make([]PaletteEntry, len(paletteEntries))
	copy(entries, paletteEntries)
	return &Palette{entries: entries}
}

// Show opens the palette in the given mode with a fresh filter
func (p *Palette) Show(mode PaletteMode) {
	p.visible = true
	p.mode = mode
	p.selectedIndex = 0
	p.filterText = ""
}

// Hide closes the palette
func (p *Palette) Hide() {
	p.visible = false
}

// IsVisible returns whether the palette is open
func (p *Palette) IsVisible() bool {
	return p.visible
}

// Mode returns how the chosen entry will be placed
func (p *Palette) Mode() PaletteMode {
	return p.mode
}

// SetFilter replaces the search filter
func (p *Palette) SetFilter(text string) {
	p.filterText = text
	if p.selectedIndex >= len(p.Visible()) {
		p.selectedIndex = 0
	}
}

// FilterText returns the current search filter
func (p *Palette) FilterText() string {
	return p.filterText
}

// Visible returns the entries matching the filter. Matching is a
// case-insensitive substring test on label and type name.
func (p *Palette) Visible() []PaletteEntry {
	if p.filterText == "" {
		return p.entries
	}

	lowerFilter := strings.ToLower(p.filterText)
	filtered := []PaletteEntry{}
	for _, e := range p.entries {
		if strings.Contains(strings.ToLower(e.Label), lowerFilter) ||
			strings.Contains(string(e.Type), lowerFilter) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Next moves the cursor to the next visible entry (with wrap-around)
func (p *Palette) Next() {
	n := len(p.Visible())
	if n == 0 {
		return
	}
	p.selectedIndex = (p.selectedIndex + 1) % n
}

// Previous moves the cursor to the previous visible entry (with wrap-around)
func (p *Palette) Previous() {
	n := len(p.Visible())
	if n == 0 {
		return
	}
	p.selectedIndex--
	if p.selectedIndex < 0 {
		p.selectedIndex = n - 1
	}
}

// SelectedIndex returns the cursor position within Visible()
func (p *Palette) SelectedIndex() int {
	return p.selectedIndex
}

// Selected returns the entry under the cursor
func (p *Palette) Selected() (PaletteEntry, bool) {
	visible := p.Visible()
	if len(visible) == 0 {
		return PaletteEntry{}, false
	}
	if p.selectedIndex >= len(visible) {
		p.selectedIndex = 0
	}
	return visible[p.selectedIndex], true
}
