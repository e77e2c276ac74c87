package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LogRotator is a file writer that keeps a log file bounded to the most recent lines.
// Once twice the line limit has been written, the file is compacted down to the
// last maxLines lines.
type LogRotator struct {
	file     *os.File
	filePath string
	maxLines int
	tail     [][]byte
	written  int
	mu       sync.Mutex
}

// NewLogRotator opens (or creates) filePath for appending.
func NewLogRotator(filePath string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", filePath, err)
	}

	return &LogRotator{
		file:     file,
		filePath: filePath,
		maxLines: max(maxLines, 1),
		tail:     make([][]byte, 0, maxLines),
	}, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range bytes.SplitSeq(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		if len(w.tail) == w.maxLines {
			w.tail = append(w.tail[:0], w.tail[1:]...)
		}
		w.tail = append(w.tail, bytes.Clone(line))
		w.written++

		if w.written >= w.maxLines*2 {
			if err := w.compact(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}
			w.written = len(w.tail)
		}
	}

	return n, nil
}

// Sync flushes the underlying file.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// compact replaces the log file with the retained tail.
func (w *LogRotator) compact() error {
	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	content := append(bytes.Join(w.tail, []byte("\n")), '\n')
	if _, err := temp.Write(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	w.file.Close()

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file

	return nil
}

var _ io.Writer = (*LogRotator)(nil)
