// Package tui is the terminal front end: a bubbletea program whose
// mouse and key events drive the canvas store, with cards rendered as
// bordered boxes on a cell grid.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/rs/zerolog"

	"mural/internal/ai"
	"mural/internal/canvas"
	"mural/internal/config"
	"mural/internal/doc"
)

// Mode is the modal input state, separate from the pointer gesture
// machine: modes gate which keys mean what, gestures track the mouse.
type Mode int

const (
	ModeCanvas Mode = iota
	ModeEditing
	ModeFilePrompt
	ModeFileOpen
	ModeAIPrompt
	ModeConfirmQuit
	ModeHelp
)

// FileOp distinguishes what the file prompt is for.
type FileOp int

const (
	FileOpSave FileOp = iota
	FileOpExportPNG
)

// Model is the bubbletea model. All document state lives in the
// store; the model owns only presentation and modal input state.
type Model struct {
	store  *canvas.Store
	runner *ai.Runner
	cfg    config.Config
	log    zerolog.Logger

	mode   Mode
	fileOp FileOp

	width  int
	height int

	input        textinput.Model
	editingCard  string
	fileList     []string
	fileSelected int

	filename     string
	savedVersion int
	status       string
	spaceToggle  bool

	streaming map[string]uint64 // card id -> accepted ticket
}

// New assembles the model around a fresh or loaded document. filename
// may be empty for an unsaved document.
func New(d doc.Document, filename string, runner *ai.Runner, cfg config.Config, log zerolog.Logger) Model {
	ti := textinput.New()
	ti.CharLimit = 512
	return Model{
		store:        canvas.NewStore(d, log),
		runner:       runner,
		cfg:          cfg,
		log:          log,
		input:        ti,
		filename:     filename,
		savedVersion: d.Version,
		streaming:    make(map[string]uint64),
		status:       "ready",
	}
}

// Store exposes the canvas store, mainly for tests.
func (m Model) Store() *canvas.Store { return m.store }

// Init enables mouse reporting and starts draining AI events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnableMouseCellMotion, m.waitForAI())
}

type aiEventMsg struct {
	ev ai.Event
	ok bool
}

// waitForAI blocks on the runner's event channel and re-arms itself
// after every message, the standard bubbletea channel-pump shape.
func (m Model) waitForAI() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.runner.Events()
		return aiEventMsg{ev: ev, ok: ok}
	}
}

// Dirty reports whether the document changed since the last save.
func (m Model) Dirty() bool {
	return m.store.Document().Version != m.savedVersion
}
