package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"mural/internal/ai"
	"mural/internal/canvas"
	"mural/internal/doc"
	"mural/internal/geo"
)

// Update is the single event loop: every document mutation and
// gesture transition happens here, synchronously.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.viewportPx()
		m.store.SetViewport(w, h)
		return m, nil

	case tea.MouseMsg:
		if m.mode == ModeCanvas {
			return m.updateMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeCanvas:
			return m.updateCanvasKey(msg)
		case ModeEditing:
			return m.updateEditingKey(msg)
		case ModeFilePrompt:
			return m.updateFilePromptKey(msg)
		case ModeFileOpen:
			return m.updateFileOpenKey(msg)
		case ModeAIPrompt:
			return m.updateAIPromptKey(msg)
		case ModeConfirmQuit:
			return m.updateConfirmKey(msg)
		case ModeHelp:
			m.mode = ModeCanvas
			return m, nil
		}

	case aiEventMsg:
		return m.updateAIEvent(msg)
	}
	return m, nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	screen := cellToScreen(msg.X, msg.Y)
	mods := canvas.Modifiers{Shift: msg.Shift, Ctrl: msg.Ctrl, Alt: msg.Alt}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.store.Wheel(screen, 0, -wheelStepPx, msg.Ctrl)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.store.Wheel(screen, 0, wheelStepPx, msg.Ctrl)
		return m, nil
	case tea.MouseButtonWheelLeft:
		m.store.Wheel(screen, -wheelStepPx, 0, false)
		return m, nil
	case tea.MouseButtonWheelRight:
		m.store.Wheel(screen, wheelStepPx, 0, false)
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			if id, handle := m.hitHandle(screen); handle != canvas.HandleNone {
				m.store.BeginResize(id, handle, screen, canvas.ResizeHandles)
				return m, nil
			}
		}
		button := canvas.ButtonLeft
		switch msg.Button {
		case tea.MouseButtonMiddle:
			button = canvas.ButtonMiddle
		case tea.MouseButtonRight:
			button = canvas.ButtonRight
		}
		m.store.PointerDown(screen, button, mods)
	case tea.MouseActionMotion:
		m.store.PointerMove(screen)
	case tea.MouseActionRelease:
		m.store.PointerUp(screen)
	}
	return m, nil
}

const wheelStepPx = 40.0

// hitHandle checks whether a screen point lands on a resize handle of
// a selected card. Corners win over edges.
func (m Model) hitHandle(screen geo.Point) (string, canvas.Handle) {
	const grab = cellHeightPx / 2
	for _, id := range m.store.SelectedIDs() {
		c, ok := m.store.Document().FindCard(id)
		if !ok {
			continue
		}
		b := geo.WorldBoundsToScreen(c.Bounds(), m.store.Camera())
		onLeft := abs(screen.X-b.X) <= grab
		onRight := abs(screen.X-(b.X+b.Width)) <= grab
		onTop := abs(screen.Y-b.Y) <= grab
		onBottom := abs(screen.Y-(b.Y+b.Height)) <= grab
		withinX := screen.X >= b.X-grab && screen.X <= b.X+b.Width+grab
		withinY := screen.Y >= b.Y-grab && screen.Y <= b.Y+b.Height+grab

		switch {
		case onTop && onLeft:
			return id, canvas.HandleNW
		case onTop && onRight:
			return id, canvas.HandleNE
		case onBottom && onLeft:
			return id, canvas.HandleSW
		case onBottom && onRight:
			return id, canvas.HandleSE
		case onTop && withinX:
			return id, canvas.HandleN
		case onBottom && withinX:
			return id, canvas.HandleS
		case onLeft && withinY:
			return id, canvas.HandleW
		case onRight && withinY:
			return id, canvas.HandleE
		}
	}
	return "", canvas.HandleNone
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (m Model) updateCanvasKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// a held space cannot be observed in a terminal, so space toggles
	// pan-on-drag instead
	if key == " " {
		m.spaceToggle = !m.spaceToggle
		m.store.SetSpaceHeld(m.spaceToggle)
		if m.spaceToggle {
			m.status = "pan mode: drag to pan, space to exit"
		} else {
			m.status = "ready"
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		if m.Dirty() {
			m.mode = ModeConfirmQuit
			return m, nil
		}
		m.runner.CancelAll()
		return m, tea.Quit

	case "esc":
		if m.store.Captured() {
			m.store.Cancel()
		} else {
			m.store.ClearSelection()
		}
		return m, nil

	case "u", "ctrl+z":
		if m.store.Undo() {
			m.status = "undo"
		}
		return m, nil
	case "ctrl+y", "U":
		if m.store.Redo() {
			m.status = "redo"
		}
		return m, nil

	case "t":
		m.store.SetTool(canvas.ToolText)
		m.status = "text tool: click to place"
		return m, nil
	case "T":
		m.store.SetTool(canvas.ToolRichCard)
		m.status = "card tool: click to place"
		return m, nil
	case "i":
		m.store.SetTool(canvas.ToolFigureCard)
		m.status = "figure tool: click to place"
		return m, nil
	case "D":
		m.store.SetTool(canvas.ToolPDFCard)
		m.status = "pdf tool: click to place"
		return m, nil
	case "v":
		m.store.SetTool(canvas.ToolVideoCard)
		m.status = "video tool: click to place"
		return m, nil

	case "x", "delete", "backspace":
		for _, id := range m.store.SelectedIDs() {
			m.runner.Forget(id)
		}
		m.store.DeleteSelected()
		return m, nil
	case "d":
		for _, id := range m.store.SelectedIDs() {
			m.store.DuplicateCard(id)
		}
		return m, nil
	case "a":
		m.store.SelectAll()
		return m, nil

	case "y":
		m.copySelection()
		return m, nil
	case "p":
		m.store.Paste(nil)
		return m, nil
	case "P":
		m.pasteFromSystem()
		return m, nil

	case "g":
		m.store.SetSnapToGrid(!m.store.SnapToGrid())
		if m.store.SnapToGrid() {
			m.status = "grid snap on"
		} else {
			m.status = "grid snap off"
		}
		return m, nil

	case "left", "h":
		m.store.Pan(panStepPx, 0)
		return m, nil
	case "right", "l":
		m.store.Pan(-panStepPx, 0)
		return m, nil
	case "up", "k":
		m.store.Pan(0, panStepPx)
		return m, nil
	case "down", "j":
		m.store.Pan(0, -panStepPx)
		return m, nil

	case "+", "=":
		m.store.ZoomAt(m.viewportCenter(), 1.1)
		return m, nil
	case "-", "_":
		m.store.ZoomAt(m.viewportCenter(), 0.9)
		return m, nil
	case "0":
		m.store.ResetZoom()
		return m, nil
	case "z":
		m.store.ZoomToFit()
		return m, nil
	case "Z":
		m.store.ZoomToSelection()
		return m, nil

	case "1":
		m.store.AlignSelected(canvas.AlignLeft)
		return m, nil
	case "2":
		m.store.AlignSelected(canvas.AlignRight)
		return m, nil
	case "3":
		m.store.AlignSelected(canvas.AlignTop)
		return m, nil
	case "4":
		m.store.AlignSelected(canvas.AlignBottom)
		return m, nil
	case "5":
		m.store.AlignSelected(canvas.AlignCenterX)
		return m, nil
	case "6":
		m.store.AlignSelected(canvas.AlignCenterY)
		return m, nil
	case "7":
		m.store.DistributeSelected(canvas.Horizontal)
		return m, nil
	case "8":
		m.store.DistributeSelected(canvas.Vertical)
		return m, nil
	case "9":
		m.store.ArrangeSelected(canvas.ArrangeGrid)
		return m, nil

	case "e", "enter":
		return m.beginEditing()

	case "A":
		m.mode = ModeAIPrompt
		m.input.Placeholder = "ask the model..."
		m.input.SetValue("")
		m.input.Focus()
		return m, nil
	case "R":
		return m.beginResearch()
	case "ctrl+x":
		for _, id := range m.store.SelectedIDs() {
			if m.runner.CancelCard(id) {
				m.status = "cancelled"
			}
		}
		return m, nil

	case "s", "ctrl+s":
		if m.filename != "" {
			return m.saveTo(m.filename)
		}
		m.mode = ModeFilePrompt
		m.fileOp = FileOpSave
		m.input.Placeholder = "filename"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil
	case "o":
		return m.beginFileOpen()
	case "E":
		m.mode = ModeFilePrompt
		m.fileOp = FileOpExportPNG
		m.input.Placeholder = "export.png"
		m.input.SetValue("")
		m.input.Focus()
		return m, nil

	case "?":
		m.mode = ModeHelp
		return m, nil
	}
	return m, nil
}

const panStepPx = 40.0

func (m Model) viewportCenter() geo.Point {
	w, h := m.viewportPx()
	return geo.Point{X: w / 2, Y: h / 2}
}

func (m Model) beginEditing() (tea.Model, tea.Cmd) {
	ids := m.store.SelectedIDs()
	if len(ids) != 1 {
		return m, nil
	}
	c, ok := m.store.Document().FindCard(ids[0])
	if !ok {
		return m, nil
	}
	m.mode = ModeEditing
	m.editingCard = c.ID
	switch {
	case c.Text != nil:
		m.input.SetValue(c.Text.Content)
	case c.Rich != nil:
		m.input.SetValue(c.Rich.Title)
	case c.AI != nil:
		m.input.SetValue(c.AI.Title)
	case c.Figure != nil:
		m.input.SetValue(c.Figure.Src)
	case c.File != nil:
		m.input.SetValue(c.File.Src)
	}
	m.input.CursorEnd()
	m.input.Focus()
	return m, nil
}

func (m Model) updateEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeCanvas
		m.input.Blur()
		return m, nil
	case "enter":
		c, ok := m.store.Document().FindCard(m.editingCard)
		if ok {
			value := m.input.Value()
			var patch doc.CardPatch
			switch {
			case c.Text != nil:
				patch.Content = &value
			case c.Rich != nil, c.AI != nil:
				patch.Title = &value
			case c.Figure != nil, c.File != nil:
				patch.Src = &value
			}
			m.store.UpdateCard(c.ID, patch)
			if patch.Src != nil {
				if sizePatch, ok := sizeFromSrc(c, value); ok {
					m.store.UpdateCard(c.ID, sizePatch)
				}
			}
			m.store.PushHistory()
		}
		m.mode = ModeCanvas
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFilePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeCanvas
		m.input.Blur()
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.mode = ModeCanvas
		m.input.Blur()
		if name == "" {
			return m, nil
		}
		if m.fileOp == FileOpExportPNG {
			return m.exportTo(name)
		}
		return m.saveTo(doc.NormalizeFilename(name))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) beginFileOpen() (tea.Model, tea.Cmd) {
	files, err := doc.ListDocuments(m.cfg.DocumentsDir)
	if err != nil && !os.IsNotExist(err) {
		m.status = fmt.Sprintf("open failed: %v", err)
		return m, nil
	}
	if len(files) == 0 {
		m.status = "no documents found"
		return m, nil
	}
	m.mode = ModeFileOpen
	m.fileList = files
	m.fileSelected = 0
	return m, nil
}

func (m Model) updateFileOpenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeCanvas
		return m, nil
	case "up", "k":
		if m.fileSelected > 0 {
			m.fileSelected--
		}
		return m, nil
	case "down", "j":
		if m.fileSelected < len(m.fileList)-1 {
			m.fileSelected++
		}
		return m, nil
	case "enter":
		name := m.fileList[m.fileSelected]
		path := filepath.Join(m.cfg.DocumentsDir, name)
		d, err := doc.Load(path)
		if err != nil {
			m.status = fmt.Sprintf("open failed: %v", err)
			m.mode = ModeCanvas
			return m, nil
		}
		m.store.LoadDocument(d)
		m.filename = path
		m.savedVersion = d.Version
		m.status = fmt.Sprintf("opened %s", name)
		m.mode = ModeCanvas
		return m, nil
	}
	return m, nil
}

func (m Model) updateAIPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeCanvas
		m.input.Blur()
		return m, nil
	case "enter":
		prompt := strings.TrimSpace(m.input.Value())
		m.mode = ModeCanvas
		m.input.Blur()
		if prompt == "" {
			return m, nil
		}
		// placeholder first, synchronously; deltas stream into it
		center := geo.ScreenToWorld(m.viewportCenter(), m.store.Camera())
		card := doc.Card{
			Type: doc.TypeAI, Width: 360, Height: 240,
			X: center.X - 180, Y: center.Y - 120,
			SnapToGrid: m.store.SnapToGrid(),
			AI:         &doc.AIPayload{Title: prompt},
		}
		id := m.store.AddCard(card)
		ticket := m.runner.Generate(id, []ai.Message{{Role: "user", Content: prompt}})
		m.streaming[id] = ticket
		m.status = "generating..."
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) beginResearch() (tea.Model, tea.Cmd) {
	ids := m.store.SelectedIDs()
	if len(ids) != 1 {
		m.status = "select one card to research"
		return m, nil
	}
	c, ok := m.store.Document().FindCard(ids[0])
	if !ok || c.AI == nil || c.AI.Title == "" {
		m.status = "research needs an ai card with a title"
		return m, nil
	}
	empty := ""
	m.store.UpdateCard(c.ID, doc.CardPatch{BodyMarkdown: &empty})
	ticket := m.runner.Research(c.ID, c.AI.Title)
	m.streaming[c.ID] = ticket
	m.status = "researching..."
	return m, nil
}

func (m Model) updateConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.runner.CancelAll()
		return m, tea.Quit
	default:
		m.mode = ModeCanvas
		return m, nil
	}
}

func (m Model) updateAIEvent(msg aiEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		return m, nil
	}
	ev := msg.ev
	switch {
	case ev.Done && ev.Cancelled && ev.Kind == ai.KindResearch:
		// research cancel discards partial output on purpose
		marker := ai.CancelledMarker
		m.store.UpdateCard(ev.CardID, doc.CardPatch{BodyMarkdown: &marker})
		delete(m.streaming, ev.CardID)
		m.status = "research cancelled"
	case ev.Done && ev.Cancelled:
		// generation keeps whatever streamed in before the cancel
		delete(m.streaming, ev.CardID)
		m.status = "generation cancelled"
	case ev.Done && ev.Err != nil:
		failure := fmt.Sprintf("\n\n_Generation failed: %v_", ev.Err)
		m.store.UpdateCard(ev.CardID, doc.CardPatch{AppendBody: &failure})
		delete(m.streaming, ev.CardID)
		m.status = "generation failed"
	case ev.Done:
		delete(m.streaming, ev.CardID)
		m.store.PushHistory()
		m.status = "done"
	default:
		m.store.UpdateCard(ev.CardID, doc.CardPatch{AppendBody: &ev.Delta})
	}
	return m, m.waitForAI()
}

func (m *Model) copySelection() {
	m.store.Copy()
	// mirror plain text onto the system clipboard when a single text
	// card is selected
	ids := m.store.SelectedIDs()
	if len(ids) == 1 {
		if c, ok := m.store.Document().FindCard(ids[0]); ok {
			switch {
			case c.Text != nil:
				_ = clipboard.WriteAll(c.Text.Content)
			case c.AI != nil:
				_ = clipboard.WriteAll(c.AI.BodyMarkdown)
			}
		}
	}
	m.status = fmt.Sprintf("copied %d card(s)", m.store.ClipboardLen())
}

func (m *Model) pasteFromSystem() {
	text, err := clipboard.ReadAll()
	if err != nil || strings.TrimSpace(text) == "" {
		m.status = "system clipboard empty"
		return
	}
	center := geo.ScreenToWorld(m.viewportCenter(), m.store.Camera())
	m.store.AddCard(doc.Card{
		Type: doc.TypeText, Width: 220, Height: 120,
		X: center.X - 110, Y: center.Y - 60,
		SnapToGrid: m.store.SnapToGrid(),
		Text:       &doc.TextPayload{Content: text},
	})
	m.status = "pasted from system clipboard"
}

func (m Model) saveTo(path string) (tea.Model, tea.Cmd) {
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(m.cfg.DocumentsDir, path)
	}
	if err := doc.Save(m.store.Document(), path); err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}
	m.filename = path
	m.savedVersion = m.store.Document().Version
	m.status = fmt.Sprintf("saved %s", filepath.Base(path))
	return m, nil
}

func (m Model) exportTo(path string) (tea.Model, tea.Cmd) {
	if !strings.HasSuffix(strings.ToLower(path), ".png") {
		path += ".png"
	}
	if err := ExportPNG(m.store.Document(), path); err != nil {
		m.status = fmt.Sprintf("export failed: %v", err)
		return m, nil
	}
	m.status = fmt.Sprintf("exported %s", filepath.Base(path))
	return m, nil
}
