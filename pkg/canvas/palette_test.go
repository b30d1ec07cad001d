package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

func TestPalette_ListsEveryType(t *testing.T) {
	p := NewPalette()
	visible := p.Visible()
	require.Len(t, visible, len(workflow.NodeTypes()))
	for i, nt := range workflow.NodeTypes() {
		assert.Equal(t, nt, visible[i].Type)
		assert.NotEmpty(t, visible[i].Label)
		assert.NotEmpty(t, visible[i].Icon)
	}
}

func TestPalette_Filter(t *testing.T) {
	tests := []struct {
		filter string
		want   []workflow.NodeType
	}{
		{filter: "", want: workflow.NodeTypes()},
		{filter: "AGE", want: []workflow.NodeType{workflow.NodeTypeAgent}},
		{filter: "call", want: []workflow.NodeType{workflow.NodeTypeAPI}},
		{filter: "put", want: []workflow.NodeType{workflow.NodeTypeInput, workflow.NodeTypeOutput}},
		{filter: "zzz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			p := NewPalette()
			p.SetFilter(tt.filter)
			var got []workflow.NodeType
			for _, e := range p.Visible() {
				got = append(got, e.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPalette_CursorWraps(t *testing.T) {
	p := NewPalette()
	p.Show(PaletteCenter)
	assert.True(t, p.IsVisible())

	p.Previous()
	assert.Equal(t, len(workflow.NodeTypes())-1, p.SelectedIndex())
	p.Next()
	assert.Equal(t, 0, p.SelectedIndex())

	p.Next()
	e, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, workflow.NodeTypeAgent, e.Type)

	p.SetFilter("zzz")
	_, ok = p.Selected()
	assert.False(t, ok)
	p.Next()
	assert.Equal(t, 0, p.SelectedIndex())
}

func TestPalette_ShowResets(t *testing.T) {
	p := NewPalette()
	p.Show(PaletteCenter)
	p.SetFilter("cond")
	p.Hide()
	assert.False(t, p.IsVisible())

	p.Show(PaletteContextMenu)
	assert.Equal(t, PaletteContextMenu, p.Mode())
	assert.Empty(t, p.FilterText())
	assert.Equal(t, 0, p.SelectedIndex())
}

func TestEntryFor(t *testing.T) {
	assert.Equal(t, "Condition", EntryFor(workflow.NodeTypeCondition).Label)
	unknown := EntryFor(workflow.NodeType("mystery"))
	assert.Equal(t, "•", unknown.Icon)
}
