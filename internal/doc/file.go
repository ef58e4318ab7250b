package doc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the document file extension.
const Ext = ".json"

// NormalizeFilename appends the document extension when missing.
func NormalizeFilename(name string) string {
	if !strings.HasSuffix(strings.ToLower(name), Ext) {
		return name + Ext
	}
	return name
}

// Save writes the document as indented JSON. Every card field is
// plain data, so the whole document round-trips through encoding/json.
func Save(d Document, filename string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Load reads a document back from disk. Zoom and grid settings are
// clamped to sane values so a hand-edited file cannot produce
// degenerate geometry.
func Load(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	if d.Camera.Zoom <= 0 {
		d.Camera.Zoom = 1
	}
	if d.GridSize <= 0 {
		d.GridSize = 20
	}
	if d.Cards == nil {
		d.Cards = []Card{}
	}
	if d.Edges == nil {
		d.Edges = []Edge{}
	}
	for i := range d.Cards {
		if d.Cards[i].Width < MinCardSize {
			d.Cards[i].Width = MinCardSize
		}
		if d.Cards[i].Height < MinCardSize {
			d.Cards[i].Height = MinCardSize
		}
	}
	return d, nil
}

// ListDocuments returns the document files in a directory, sorted by
// name.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), Ext) {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
