package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mural/internal/ai"
	"mural/internal/config"
	"mural/internal/doc"
	"mural/internal/logging"
	"mural/internal/tui"
)

func main() {
	logFile := flag.String("log", "", "log file path (default: per-user state dir)")
	logLevel := flag.String("log-level", "", "log level override")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mural: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	file := cfg.Logging.File
	if *logFile != "" {
		file = *logFile
	}
	if file == "" {
		file = logging.DefaultFile("mural")
	}
	log := logging.New(logging.Options{Level: cfg.Logging.Level, File: file})

	d := doc.New()
	d.GridSize = cfg.Canvas.GridSize
	d.SnapToGrid = cfg.Canvas.SnapToGrid
	filename := ""
	if flag.NArg() > 0 {
		filename = doc.NormalizeFilename(flag.Arg(0))
		if loaded, err := doc.Load(filename); err == nil {
			d = loaded
		} else if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "mural: %v\n", err)
			os.Exit(1)
		}
	}

	runner := ai.NewRunner(ai.New(cfg.AI, logging.Component(log, "ai")), logging.Component(log, "ai"))

	model := tui.New(d, filename, runner, cfg, logging.Component(log, "tui"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mural: %v\n", err)
		os.Exit(1)
	}
}
