package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

// TextSink appends bursts to a human-readable log file, one line per burst.
type TextSink struct {
	file   *os.File
	writer *bufio.Writer
}

// NewTextSink creates the output directory if needed and opens a new log
// file named by start time.
func NewTextSink(cfg config.TextSinkConfig) (*TextSink, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create text sink directory: %w", err)
	}

	fileName := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(cfg.Path, fileName), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create text sink file: %w", err)
	}

	return &TextSink{file: file, writer: bufio.NewWriter(file)}, nil
}

func (s *TextSink) Name() string {
	return "text"
}

// WriteBursts appends one formatted line per burst.
func (s *TextSink) WriteBursts(_ context.Context, bursts []model.Burst) error {
	for _, b := range bursts {
		line := fmt.Sprintf("%.6f - %s -> %s, start: %.6f, end: %.6f, packets: %d, bytes: %d\n",
			b.CompletionTime,
			b.SrcEndpoint(),
			b.DstEndpoint(),
			b.Start,
			b.End,
			b.NumPackets,
			b.Size,
		)
		if _, err := s.writer.WriteString(line); err != nil {
			return fmt.Errorf("failed to write burst line: %w", err)
		}
	}
	return s.writer.Flush()
}

// Close flushes and closes the log file.
func (s *TextSink) Close(_ context.Context) error {
	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
