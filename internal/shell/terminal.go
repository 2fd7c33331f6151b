package shell

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
)

// Terminal is a LineReader backed by liner with on-disk history.
type Terminal struct {
	line        *liner.State
	historyFile string
}

// OpenTerminal puts the terminal in raw mode and loads history from
// historyFile. An empty historyFile disables persistence.
func OpenTerminal(historyFile string) *Terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	t := &Terminal{line: line, historyFile: historyFile}
	t.loadHistory()
	return t
}

func (t *Terminal) Prompt(prompt string) (string, error) {
	return t.line.Prompt(prompt)
}

func (t *Terminal) AppendHistory(item string) {
	t.line.AppendHistory(item)
}

// Close saves history and restores the terminal.
func (t *Terminal) Close() error {
	saveErr := t.saveHistory()
	if err := t.line.Close(); err != nil {
		return fmt.Errorf("restoring terminal: %w", err)
	}
	return saveErr
}

func (t *Terminal) loadHistory() {
	if t.historyFile == "" {
		return
	}
	f, err := os.Open(t.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	t.line.ReadHistory(f)
}

func (t *Terminal) saveHistory() error {
	if t.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("creating history dir: %w", err)
	}
	f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
