package sink

import (
	"context"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

// GobSink archives bursts as a gob stream. The files are the replay format
// for offline analysis; burstcat dumps them back to text.
type GobSink struct {
	file    *os.File
	encoder *gob.Encoder
	written int
}

// NewGobSink creates the archive directory if needed and opens a new archive
// file named by start time.
func NewGobSink(cfg config.GobSinkConfig) (*GobSink, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gob sink directory: %w", err)
	}

	fileName := fmt.Sprintf("%s.gob", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(cfg.Path, fileName), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create gob sink file: %w", err)
	}

	return &GobSink{file: file, encoder: gob.NewEncoder(file)}, nil
}

func (s *GobSink) Name() string {
	return "gob"
}

// WriteBursts encodes each burst onto the stream.
func (s *GobSink) WriteBursts(_ context.Context, bursts []model.Burst) error {
	for _, b := range bursts {
		if err := s.encoder.Encode(b); err != nil {
			return fmt.Errorf("failed to encode burst: %w", err)
		}
		s.written++
	}
	return nil
}

// Close closes the archive file.
func (s *GobSink) Close(_ context.Context) error {
	log.Printf("Gob sink archived %d bursts to %s", s.written, s.file.Name())
	return s.file.Close()
}
