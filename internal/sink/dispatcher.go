// Package sink persists finished bursts. A Dispatcher batches the burst
// stream and fans each batch out to the enabled storage backends.
package sink

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	flushTimeout         = 30 * time.Second
)

// Dispatcher reads bursts from an input channel and writes them to all sinks
// in batches. One slow sink delays a batch but cannot lose it.
type Dispatcher struct {
	sinks         []model.Sink
	in            <-chan model.Burst
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks. The input channel
// is owned by the caller and signals shutdown when closed.
func NewDispatcher(cfg config.SinkConfig, in <-chan model.Burst, sinks []model.Sink) (*Dispatcher, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	flushInterval := defaultFlushInterval
	if cfg.FlushInterval != "" {
		var err error
		flushInterval, err = time.ParseDuration(cfg.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid flush_interval for sinks: %w", err)
		}
		if flushInterval <= 0 {
			return nil, fmt.Errorf("sink flush_interval must be a positive duration")
		}
	}

	return &Dispatcher{
		sinks:         sinks,
		in:            in,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}, nil
}

// Start launches the batching loop.
func (d *Dispatcher) Start() {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	log.Printf("Burst dispatcher started with sinks %v, batch size %d, flush interval %s",
		names, d.batchSize, d.flushInterval)

	d.wg.Add(1)
	go d.run()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	batch := make([]model.Burst, 0, d.batchSize)
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case b, ok := <-d.in:
			if !ok {
				d.flush(batch)
				return
			}
			batch = append(batch, b)
			if len(batch) >= d.batchSize {
				d.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// flush writes one batch to every sink concurrently and returns when all of
// them finished. Sink errors are logged, not propagated; the other sinks
// still get the batch.
func (d *Dispatcher) flush(batch []model.Burst) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	var g errgroup.Group
	for _, s := range d.sinks {
		s := s
		g.Go(func() error {
			if err := s.WriteBursts(ctx, batch); err != nil {
				return fmt.Errorf("sink %s failed to write %d bursts: %w", s.Name(), len(batch), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("Error flushing bursts: %v", err)
	}
}

// Stop waits for the input channel to be drained, then closes all sinks.
// The caller must close the input channel first.
func (d *Dispatcher) Stop() {
	d.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for _, s := range d.sinks {
		if err := s.Close(ctx); err != nil {
			log.Printf("Error closing sink %s: %v", s.Name(), err)
		}
	}
	log.Println("Burst dispatcher stopped.")
}
