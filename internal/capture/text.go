package capture

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"

	"NetBurst/internal/model"
)

// TextSource replays a recorded capture line file, such as the ones the
// Recorder writes. Timestamps come from the lines, so replay order and burst
// boundaries match the original capture.
type TextSource struct {
	file *os.File
}

// OpenText opens a capture line file for replay.
func OpenText(path string) (*TextSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}
	return &TextSource{file: file}, nil
}

// Close stops the replay. A blocked read loop returns after Close.
func (s *TextSource) Close() error {
	return s.file.Close()
}

// ReadIPPackets parses wired lines and sends them to out until the file ends.
// Malformed lines are skipped. The out channel is left open for the caller to
// close.
func (s *TextSource) ReadIPPackets(out chan<- model.IPPacket) error {
	dropped := 0
	scanner := bufio.NewScanner(s.file)
	for scanner.Scan() {
		pkt, err := ParseIPLine(scanner.Text())
		if err != nil {
			dropped++
			continue
		}
		out <- pkt
	}
	return s.finish(scanner.Err(), dropped)
}

// ReadWlanPackets is the wireless counterpart of ReadIPPackets.
func (s *TextSource) ReadWlanPackets(out chan<- model.WlanPacket) error {
	dropped := 0
	scanner := bufio.NewScanner(s.file)
	for scanner.Scan() {
		pkt, err := ParseWlanLine(scanner.Text())
		if err != nil {
			dropped++
			continue
		}
		out <- pkt
	}
	return s.finish(scanner.Err(), dropped)
}

func (s *TextSource) finish(scanErr error, dropped int) error {
	if dropped > 0 {
		log.Printf("text source: skipped %d unparsable lines", dropped)
	}
	// Close during replay surfaces as a read error on the closed file.
	if scanErr != nil && !errors.Is(scanErr, os.ErrClosed) {
		return fmt.Errorf("failed to read capture file: %w", scanErr)
	}
	return nil
}
