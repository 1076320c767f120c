package capture

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"NetBurst/internal/model"
)

// TsharkSource reads capture lines from a tshark subprocess. The caller
// supplies the full argument list, which must make tshark print one line per
// packet in the field order the parsers expect.
type TsharkSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewTsharkSource spawns tshark with the given arguments. tshark's stderr is
// passed through so capture warnings stay visible.
func NewTsharkSource(args []string) (*TsharkSource, error) {
	cmd := exec.Command("tshark", args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open tshark stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tshark: %w", err)
	}

	log.Printf("Started tshark (pid %d) with args %v", cmd.Process.Pid, args)
	return &TsharkSource{cmd: cmd, stdout: stdout}, nil
}

// Interrupt asks tshark to stop capturing. tshark flushes and exits on
// SIGINT, which ends the read loop.
func (s *TsharkSource) Interrupt() error {
	return s.cmd.Process.Signal(os.Interrupt)
}

// ReadIPPackets parses wired lines and sends them to out until tshark's
// stdout ends, then reaps the subprocess. Malformed lines are skipped. The
// out channel is left open for the caller to close.
func (s *TsharkSource) ReadIPPackets(out chan<- model.IPPacket) error {
	dropped := 0
	scanner := bufio.NewScanner(s.stdout)
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
func (s *TsharkSource) ReadWlanPackets(out chan<- model.WlanPacket) error {
	dropped := 0
	scanner := bufio.NewScanner(s.stdout)
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

func (s *TsharkSource) finish(scanErr error, dropped int) error {
	if dropped > 0 {
		log.Printf("tshark source: skipped %d unparsable lines", dropped)
	}
	if scanErr != nil {
		s.cmd.Wait()
		return fmt.Errorf("failed to read tshark output: %w", scanErr)
	}
	if err := s.cmd.Wait(); err != nil {
		// SIGINT is the normal way to stop a capture.
		if s.cmd.ProcessState != nil && s.cmd.ProcessState.ExitCode() == -1 {
			return nil
		}
		return fmt.Errorf("tshark exited abnormally: %w", err)
	}
	return nil
}
