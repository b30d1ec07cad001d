package tui

import (
	"errors"
	"log"
	"unicode"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/storage"
)

// panStep is how far an arrow key pans, in screen units
const panStep = 4 * CellWidth

// HandleEvent applies one input event to the session
func (a *App) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventKey:
		a.handleKey(ev.Key)
	case EventMouse:
		a.handleMouse(ev.Mouse)
	}
	a.syncMode()
}

// syncMode follows palette visibility changes made by the session
func (a *App) syncMode() {
	switch {
	case a.mode == ModePrompt:
	case a.session.Palette().IsVisible():
		a.mode = ModePalette
	case a.mode == ModePalette:
		a.mode = ModeNormal
	case a.mode == ModeInspector && len(a.session.Fields()) == 0:
		a.mode = ModeNormal
	}
	if n := len(a.session.Fields()); a.focus >= n {
		a.focus = max(n-1, 0)
	}
}

func (a *App) handleKey(k KeyEvent) {
	if k.Ctrl && k.Key == 'c' {
		a.Quit()
		return
	}
	switch a.mode {
	case ModePrompt:
		a.promptKey(k)
	case ModePalette:
		a.paletteKey(k)
	case ModeInspector:
		a.inspectorKey(k)
	default:
		a.normalKey(k)
	}
}

func (a *App) normalKey(k KeyEvent) {
	s := a.session
	switch k.Special {
	case "Escape":
		s.CancelConnect()
		s.Select(canvas.Selection{})
		return
	case "Delete", "Backspace":
		s.DeleteSelection()
		return
	case "Tab":
		if len(s.Fields()) > 0 {
			a.mode = ModeInspector
			a.focus = 0
		}
		return
	case "Up":
		s.PanBy(0, panStep)
		return
	case "Down":
		s.PanBy(0, -panStep)
		return
	case "Left":
		s.PanBy(panStep, 0)
		return
	case "Right":
		s.PanBy(-panStep, 0)
		return
	}

	switch k.Key {
	case 'q':
		a.Quit()
	case 'a':
		s.OpenPalette()
	case 'c':
		if id, ok := s.Selection().Node(); ok {
			s.BeginConnect(id)
		} else {
			s.Notify(canvas.LevelWarning, "Select a node to connect from")
		}
	case 'x':
		s.DeleteSelection()
	case '+', '=':
		s.ZoomIn()
	case '-':
		s.ZoomOut()
	case '0':
		s.ResetView()
	case 't':
		a.ask("Test input", "", a.testRun)
	case 's':
		if s.Meta().Name == "" {
			a.ask("Workflow name", "", func(name string) {
				s.SetName(name)
				a.save()
			})
			return
		}
		a.save()
	case 'n':
		a.ask("Workflow name", s.Meta().Name, s.SetName)
	case 'd':
		a.saveDraft()
	case 'u':
		if err := s.Undo(); err != nil && !errors.Is(err, canvas.ErrNothingToUndo) {
			log.Printf("tui: undo: %v", err)
		}
	case 'r':
		if err := s.Redo(); err != nil && !errors.Is(err, canvas.ErrNothingToRedo) {
			log.Printf("tui: redo: %v", err)
		}
	case 'D':
		if notes := s.Notifications(); len(notes) > 0 {
			s.Dismiss(len(notes) - 1)
		}
	}
}

func (a *App) paletteKey(k KeyEvent) {
	pal := a.session.Palette()
	switch k.Special {
	case "Escape":
		pal.Hide()
		return
	case "Enter":
		a.session.ChoosePaletteEntry()
		return
	case "Down", "Tab":
		pal.Next()
		return
	case "Up":
		pal.Previous()
		return
	case "Backspace":
		if f := []rune(pal.FilterText()); len(f) > 0 {
			pal.SetFilter(string(f[:len(f)-1]))
		}
		return
	}
	switch k.Key {
	case 'j':
		pal.Next()
	case 'k':
		pal.Previous()
	default:
		if !k.Ctrl && unicode.IsPrint(k.Key) && k.Key != 0 {
			pal.SetFilter(pal.FilterText() + string(k.Key))
		}
	}
}

func (a *App) inspectorKey(k KeyEvent) {
	fields := a.session.Fields()
	if len(fields) == 0 {
		a.mode = ModeNormal
		return
	}
	switch k.Special {
	case "Escape":
		a.mode = ModeNormal
		return
	case "Down", "Tab":
		a.focus = (a.focus + 1) % len(fields)
		return
	case "Up":
		a.focus = (a.focus - 1 + len(fields)) % len(fields)
		return
	case "Enter":
		a.editField(fields[a.focus])
		return
	}
	switch k.Key {
	case 'j':
		a.focus = (a.focus + 1) % len(fields)
	case 'k':
		a.focus = (a.focus - 1 + len(fields)) % len(fields)
	case ' ':
		if f := fields[a.focus]; f.Kind == canvas.FieldSelect {
			a.cycleOption(f)
		}
	case 'q':
		a.mode = ModeNormal
	}
}

// editField prompts for a text field and cycles a select field
func (a *App) editField(f canvas.Field) {
	if f.Kind == canvas.FieldSelect {
		a.cycleOption(f)
		return
	}
	a.ask(f.Label, f.Value, func(v string) { a.setField(f.Key, v) })
}

func (a *App) cycleOption(f canvas.Field) {
	if len(f.Options) == 0 {
		return
	}
	next := f.Options[0]
	for i, opt := range f.Options {
		if opt == f.Value {
			next = f.Options[(i+1)%len(f.Options)]
			break
		}
	}
	a.setField(f.Key, next)
}

func (a *App) setField(key, value string) {
	if err := a.session.SetField(key, value); err != nil {
		a.session.Notify(canvas.LevelWarning, err.Error())
	}
}

func (a *App) promptKey(k KeyEvent) {
	p := a.prompt
	switch k.Special {
	case "Escape":
		a.endPrompt()
		return
	case "Enter":
		a.endPrompt()
		p.submit(string(p.value))
		return
	case "Backspace":
		if len(p.value) > 0 {
			p.value = p.value[:len(p.value)-1]
		}
		return
	}
	if k.Key != 0 && !k.Ctrl && !k.IsSpecial() && unicode.IsPrint(k.Key) {
		p.value = append(p.value, k.Key)
	}
}

// ask opens a prompt; submit runs after the prompt closes
func (a *App) ask(label, initial string, submit func(string)) {
	if a.mode != ModeInspector {
		a.focus = -1
	}
	a.prompt = &prompt{label: label, value: []rune(initial), submit: submit}
	a.mode = ModePrompt
}

func (a *App) endPrompt() {
	a.prompt = nil
	if a.focus >= 0 {
		a.mode = ModeInspector
	} else {
		a.mode = ModeNormal
		a.focus = 0
	}
}

func (a *App) testRun(input string) {
	job, err := a.session.TestRunJob(input)
	if err != nil {
		// already reported by the session
		return
	}
	a.Start(job)
}

func (a *App) save() {
	job, err := a.session.SaveJob()
	if err != nil {
		return
	}
	a.Start(job)
}

func (a *App) saveDraft() {
	if a.drafts == nil {
		a.session.Notify(canvas.LevelWarning, "Drafts are not available")
		return
	}
	d := &storage.Draft{ID: a.draftID, Definition: a.session.Definition()}
	if d.Definition.Name == "" {
		d.Name = "untitled"
	}
	if err := a.drafts.Save(d); err != nil {
		log.Printf("tui: draft save failed: %v", err)
		a.session.Notify(canvas.LevelError, err.Error())
		return
	}
	a.draftID = d.ID
	a.session.Notify(canvas.LevelInfo, "Draft saved ("+shortID(d.ID)+")")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *App) handleMouse(m MouseEvent) {
	s := a.session
	inCanvas := a.layout.InCanvas(m.Col, m.Row)
	pos := CellCenter(m.Col, m.Row)
	ev := canvas.PointerEvent{Pos: pos, Button: m.Button, Mods: m.Mods}

	switch m.Action {
	case MouseWheel:
		if inCanvas {
			s.Wheel(pos, m.Wheel)
		}
	case MousePress:
		if a.prompt != nil {
			a.endPrompt()
		}
		if !inCanvas {
			return
		}
		if a.mode == ModeInspector {
			a.mode = ModeNormal
		}
		if m.Button == canvas.ButtonPrimary && a.choosePaletteAt(m.Col, m.Row) {
			return
		}
		a.dragging = true
		s.PointerDown(ev)
	case MouseMotion:
		if !a.dragging {
			return
		}
		if !inCanvas {
			a.dragging = false
			s.PointerLeave()
			return
		}
		s.PointerMove(ev)
	case MouseRelease:
		if a.dragging {
			a.dragging = false
			s.PointerUp(ev)
		}
	}
}

// choosePaletteAt adds the palette entry drawn at col,row, if any
func (a *App) choosePaletteAt(col, row int) bool {
	pal := a.session.Palette()
	if !pal.IsVisible() {
		return false
	}
	anchorCol, anchorRow := a.paletteAnchor()
	x0, y0, x1, _ := PaletteBox(pal, a.layout, anchorCol, anchorRow)
	i := row - (y0 + 2)
	if col <= x0 || col >= x1 || i < 0 || i >= len(pal.Visible()) {
		return false
	}
	for range pal.Visible() {
		if pal.SelectedIndex() == i {
			break
		}
		pal.Next()
	}
	a.session.ChoosePaletteEntry()
	return true
}
