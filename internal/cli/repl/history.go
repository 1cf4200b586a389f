package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultHistorySize bounds the saved history.
const DefaultHistorySize = 1000

// History keeps previous shell lines, optionally persisted to a file.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a history saved to file. An empty file keeps it in
// memory only.
func NewHistory(file string) *History {
	return &History{maxSize: DefaultHistorySize, file: file}
}

// DefaultHistoryFile returns ~/.devmesh/history.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".devmesh", "history")
}

// Add appends a line, dropping the oldest beyond the size limit.
func (h *History) Add(line string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Entries returns the lines oldest first.
func (h *History) Entries() []string {
	return h.entries
}

// Load reads the history file if it exists.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	f, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		h.Add(sc.Text())
	}
	return sc.Err()
}

// Save writes the history file.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(h.file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range h.entries {
		w.WriteString(e + "\n")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
