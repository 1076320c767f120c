package capture

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"NetBurst/internal/model"
)

const defaultRecorderBuffer = 10000

// Recorder tees decoded capture events to a line file while the probe runs.
// The files parse back with ParseIPLine / ParseWlanLine, so a recorded
// session can be replayed through the probe later.
type Recorder struct {
	lineChan chan string
	stopChan chan struct{}
	doneChan chan struct{}
	wg       sync.WaitGroup
	file     *os.File
}

// NewRecorder creates the output directory if needed and starts the writer
// goroutine. Files are named by start time, one per probe run.
func NewRecorder(dir string, bufferSize int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = defaultRecorderBuffer
	}

	fileName := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(dir, fileName), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	r := &Recorder{
		lineChan: make(chan string, bufferSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		file:     file,
	}

	r.wg.Add(1)
	go r.run()
	go func() {
		<-r.stopChan
		close(r.lineChan)
		r.wg.Wait()
		if err := r.file.Close(); err != nil {
			log.Printf("Recorder: Error closing file: %v", err)
		}
		log.Println("Recorder stopped and file closed.")
		close(r.doneChan)
	}()

	log.Printf("Recorder started, writing to: %s", file.Name())
	return r, nil
}

func (r *Recorder) run() {
	defer r.wg.Done()
	writer := bufio.NewWriter(r.file)
	for line := range r.lineChan {
		if _, err := writer.WriteString(line + "\n"); err != nil {
			log.Printf("Recorder: Error writing line: %v", err)
		}
	}
	writer.Flush()
}

// RecordIP queues one wired event. Events are dropped when the writer falls
// behind so capture never blocks on disk.
func (r *Recorder) RecordIP(p model.IPPacket) {
	r.enqueue(FormatIPLine(p))
}

// RecordWlan queues one wireless event.
func (r *Recorder) RecordWlan(p model.WlanPacket) {
	r.enqueue(FormatWlanLine(p))
}

func (r *Recorder) enqueue(line string) {
	select {
	case r.lineChan <- line:
	default:
		log.Println("Recorder: Channel is full, dropping event.")
	}
}

// Stop flushes pending lines and closes the file. It returns once the file
// is on disk. No Record calls may run concurrently with or after Stop.
func (r *Recorder) Stop() {
	close(r.stopChan)
	<-r.doneChan
}
