package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JsonlWriter appends JSON documents to a file, one per line.
type JsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// NewJsonlWriter opens (and truncates) the target file, creating parent
// directories as needed.
func NewJsonlWriter(path string) (*JsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	return &JsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write marshals one value and appends it as a JSON line.
func (w *JsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *JsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
