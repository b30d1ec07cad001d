// Package tui is the terminal front end of the builder. It turns raw
// terminal input into session calls and draws session frames with goterm.
package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dshills/goterm"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/storage"
)

// Mode is what keyboard input currently drives
type Mode int

const (
	ModeNormal Mode = iota
	ModePalette
	ModeInspector
	ModePrompt
)

func (m Mode) String() string {
	switch m {
	case ModePalette:
		return "palette"
	case ModeInspector:
		return "inspector"
	case ModePrompt:
		return "prompt"
	default:
		return "normal"
	}
}

// DraftSaver persists local drafts
type DraftSaver interface {
	Save(d *storage.Draft) error
}

// Config wires an App
type Config struct {
	Session *canvas.Session
	Drafts  DraftSaver
	// DraftID is the draft being edited, empty for a new one
	DraftID string
	// Screen overrides terminal initialization; used by tests
	Screen Screen
	Theme  *Theme
}

// prompt is a one-line text input shown in the status line
type prompt struct {
	label  string
	value  []rune
	submit func(string)
}

// App represents the TUI application root
type App struct {
	screen  Screen
	closer  io.Closer
	term    io.Writer
	session *canvas.Session
	drafts  DraftSaver
	draftID string
	theme   Theme
	layout  Layout

	mode   Mode
	focus  int
	prompt *prompt

	// dragging is true between a mouse press and its release
	dragging bool

	ctx       context.Context
	cancel    context.CancelFunc
	inputChan chan []byte
	results   chan func()
	jobs      sync.WaitGroup

	// runJob starts a session job; tests replace it to run jobs inline
	runJob func(canvas.Job)
}

// NewApp creates the application. Without Config.Screen the terminal is
// initialized and mouse reporting enabled.
func NewApp(cfg Config) (*App, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("tui: session is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		screen:    cfg.Screen,
		session:   cfg.Session,
		drafts:    cfg.Drafts,
		draftID:   cfg.DraftID,
		theme:     DefaultTheme(),
		ctx:       ctx,
		cancel:    cancel,
		inputChan: make(chan []byte, 100),
		results:   make(chan func(), 16),
	}
	if cfg.Theme != nil {
		a.theme = *cfg.Theme
	}
	a.runJob = a.startJob

	if a.screen == nil {
		screen, err := goterm.Init()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize terminal: %w", err)
		}
		a.screen = screen
		a.closer = screen
		a.term = os.Stdout
		_, _ = io.WriteString(a.term, mouseOn)
	}

	a.resize()
	return a, nil
}

// Mode returns the current input mode
func (a *App) Mode() Mode { return a.mode }

// DraftID returns the id of the last saved draft
func (a *App) DraftID() string { return a.draftID }

// Run starts the TUI application main loop. It returns when the user
// quits or the process is interrupted.
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go a.readInput(os.Stdin)

	// Redraw periodically so terminal resizes are picked up
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	if err := a.Render(); err != nil {
		return fmt.Errorf("initial render failed: %w", err)
	}

	for {
		select {
		case <-a.ctx.Done():
			return nil

		case <-sigChan:
			a.cancel()
			return nil

		case buf := <-a.inputChan:
			for _, ev := range ParseInput(buf) {
				a.HandleEvent(ev)
			}
			if err := a.Render(); err != nil {
				return err
			}

		case apply := <-a.results:
			apply()
			if err := a.Render(); err != nil {
				return err
			}

		case <-ticker.C:
			if err := a.Render(); err != nil {
				return err
			}
		}
	}
}

// Quit stops the main loop
func (a *App) Quit() { a.cancel() }

// Done is closed when the app has been asked to quit
func (a *App) Done() <-chan struct{} { return a.ctx.Done() }

// readInput reads terminal input in a background goroutine
func (a *App) readInput(r io.Reader) {
	for {
		buf := make([]byte, 256)
		n, err := r.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("tui: input read failed: %v", err)
			}
			a.cancel()
			return
		}
		if n == 0 {
			continue
		}
		select {
		case a.inputChan <- buf[:n]:
		case <-a.ctx.Done():
			return
		}
	}
}

// startJob runs the network part of a job off the UI loop and hands its
// apply step back to Run
func (a *App) startJob(job canvas.Job) {
	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		apply := job(a.ctx)
		select {
		case a.results <- apply:
		case <-a.ctx.Done():
		}
	}()
}

// Start runs a session job the way the app runs its own
func (a *App) Start(job canvas.Job) {
	if job != nil {
		a.runJob(job)
	}
}

func (a *App) resize() {
	w, h := a.screen.Size()
	if w != a.layout.Width || h != a.layout.Height {
		a.layout = NewLayout(w, h)
		a.session.SetRect(a.layout.CanvasRect())
	}
}

// Render draws the whole screen
func (a *App) Render() error {
	a.resize()
	a.screen.Clear()

	DrawFrame(a.screen, a.session.Frame(), a.layout, a.theme)

	pal := a.session.Palette()
	if pal.IsVisible() {
		col, row := a.paletteAnchor()
		DrawPalette(a.screen, pal, a.layout, col, row, a.theme)
	}

	DrawPanel(a.screen, a.panelState(), a.layout, a.theme)

	left, fg := a.statusText()
	DrawStatus(a.screen, left, a.statusRight(), fg, a.layout, a.theme)

	if err := a.screen.Show(); err != nil {
		return fmt.Errorf("screen show failed: %w", err)
	}
	return nil
}

// paletteAnchor is the cell of the last right-click
func (a *App) paletteAnchor() (col, row int) {
	return CellOf(canvas.CanvasToScreen(a.session.ContextMenuPoint(), a.session.Rect(), a.session.Viewport()))
}

func (a *App) panelState() PanelState {
	g := a.session.Graph()
	st := PanelState{
		Fields:   a.session.Fields(),
		Focus:    -1,
		Agents:   len(a.session.Agents()),
		Nodes:    g.Len(),
		Edges:    len(g.Edges()),
		Workflow: a.session.Meta(),
		Dirty:    a.session.Dirty(),
	}
	if a.mode == ModeInspector || (a.mode == ModePrompt && a.focus >= 0) {
		st.Focus = a.focus
	}

	sel := a.session.Selection()
	if id, ok := sel.Node(); ok {
		if n := g.Node(id); n != nil {
			st.Title = canvas.EntryFor(n.Type).Label + " step"
		}
	} else if id, ok := sel.Edge(); ok {
		if e := g.Edge(id); e != nil {
			st.Title = "Connection " + e.From.String() + " → " + e.To.String()
		}
	}
	if res, ok := a.session.LastResult(); ok {
		st.Result = &res
	}
	return st
}

func (a *App) statusText() (string, goterm.Color) {
	if a.prompt != nil {
		return a.prompt.label + ": " + string(a.prompt.value) + "_", a.theme.Fg
	}
	if from, ok := a.session.Connecting(); ok {
		name := from.String()
		if n := a.session.Graph().Node(from); n != nil {
			name = n.Name
		}
		return "Connecting from " + name + ": click the target node, Esc cancels", a.theme.Highlight
	}
	if n, ok := a.session.Latest(); ok {
		return n.Message, a.theme.levelColor(n.Level)
	}
	return "a add  c connect  x delete  t test  s save  d draft  u/r undo/redo  q quit", a.theme.Dim
}

func (a *App) statusRight() string {
	return fmt.Sprintf("%s  %d%%", a.mode, int(a.session.Viewport().Zoom*100+0.5))
}

// Close stops the loop, discards pending job results, and restores the
// terminal
func (a *App) Close() error {
	a.cancel()
	a.session.Close()
	a.jobs.Wait()

	if a.term != nil {
		_, _ = io.WriteString(a.term, mouseOff)
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			return fmt.Errorf("failed to close screen: %w", err)
		}
	}
	return nil
}
