package alerter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

// Alerter evaluates finished bursts against configured rules and sends a
// consolidated notification per check interval. It plugs into the sink
// dispatcher like any other burst consumer.
type Alerter struct {
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration

	mu       sync.Mutex
	messages []string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewAlerter creates a new Alerter and starts its notification loop.
func NewAlerter(cfg config.AlerterConfig, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("alerter check_interval must be a positive duration")
	}

	a := &Alerter{
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}

	a.wg.Add(1)
	go a.run()
	log.Printf("Alerter started with %d rules, check interval %s", len(a.rules), interval)
	return a, nil
}

func (a *Alerter) Name() string {
	return "alerter"
}

// WriteBursts evaluates one batch against all rules. Triggered bursts are
// collected until the next notification tick.
func (a *Alerter) WriteBursts(_ context.Context, bursts []model.Burst) error {
	for _, b := range bursts {
		for _, rule := range a.rules {
			if triggered(rule, b) {
				a.record(rule, b)
			}
		}
	}
	return nil
}

// triggered reports whether the burst matches the rule's endpoints and
// exceeds at least one of its thresholds.
func triggered(rule config.AlerterRule, b model.Burst) bool {
	if rule.Src != "" && rule.Src != b.Src {
		return false
	}
	if rule.Dst != "" && rule.Dst != b.Dst {
		return false
	}
	if rule.MinSize > 0 && uint64(b.Size) >= rule.MinSize {
		return true
	}
	if rule.MinPackets > 0 && uint32(b.NumPackets) >= rule.MinPackets {
		return true
	}
	if rule.MinDuration > 0 && b.Duration() >= rule.MinDuration {
		return true
	}
	return false
}

func (a *Alerter) record(rule config.AlerterRule, b model.Burst) {
	msg := fmt.Sprintf("<p><b>Rule '%s'</b>: burst %s -> %s, %d packets, %d bytes, duration %.3fs, completed at %.3f</p>",
		rule.Name, b.SrcEndpoint(), b.DstEndpoint(), b.NumPackets, b.Size, b.Duration(), b.CompletionTime)

	a.mu.Lock()
	a.messages = append(a.messages, msg)
	a.mu.Unlock()
}

// run sends the collected alerts once per check interval.
func (a *Alerter) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.notify()
		case <-a.stopChan:
			return
		}
	}
}

// notify sends one consolidated notification for everything collected since
// the last tick.
func (a *Alerter) notify() {
	a.mu.Lock()
	messages := a.messages
	a.messages = nil
	a.mu.Unlock()

	if len(messages) == 0 {
		return
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(messages))

	body := "<h1>NetBurst Alert Summary</h1>" +
		"<p>The following bursts triggered alert rules during the last check:</p><hr>" +
		strings.Join(messages, "\n")

	subject := fmt.Sprintf("NetBurst Alert Summary (%d Triggered)", len(messages))
	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
	} else {
		log.Printf("INFO: Consolidated alert notification sent successfully.")
	}
}

// Close stops the notification loop and sends any remaining alerts.
func (a *Alerter) Close(_ context.Context) error {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.notify()
	return nil
}
