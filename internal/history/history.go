// Package history keeps linear undo/redo over whole-document
// snapshots. A snapshot is pushed once per completed discrete action
// (pointer-up after a drag, a finished resize, an add/delete), never
// on intermediate gesture frames.
package history

import "mural/internal/doc"

// History holds the past/present/future buffers. Present always
// equals the live document as of the last Push; past and future are
// mutually exclusive timelines.
type History struct {
	past    []doc.Document
	present doc.Document
	future  []doc.Document
}

// New starts history at the given present with empty past and future.
func New(present doc.Document) History {
	return History{present: present}
}

// Reset discards both timelines, used when a document is loaded.
func (h *History) Reset(present doc.Document) {
	h.past = nil
	h.future = nil
	h.present = present
}

// Push records the current live document as the new present. Any
// redo timeline is discarded.
func (h *History) Push(current doc.Document) {
	h.past = append(h.past, h.present)
	h.present = current
	h.future = nil
}

// Undo steps back one snapshot. The second return is false when there
// is nothing to undo; stepping past the buffer is a no-op, not an
// error.
func (h *History) Undo() (doc.Document, bool) {
	if len(h.past) == 0 {
		return h.present, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]doc.Document{h.present}, h.future...)
	h.present = prev
	return prev, true
}

// Redo steps forward one snapshot, symmetric to Undo.
func (h *History) Redo() (doc.Document, bool) {
	if len(h.future) == 0 {
		return h.present, false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return next, true
}

// CanUndo reports whether an undo step exists.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether a redo step exists.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Present returns the last pushed snapshot.
func (h *History) Present() doc.Document { return h.present }
