package alerter

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) Send(subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeNotifier) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

func (f *fakeNotifier) last() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.subjects)
	return f.subjects[n-1], f.bodies[n-1]
}

func TestTriggered(t *testing.T) {
	burst := model.Burst{
		Src:        "10.0.0.1",
		Dst:        "10.0.0.2",
		Start:      0.0,
		End:        2.0,
		NumPackets: 50,
		Size:       5000,
	}

	cases := []struct {
		name string
		rule config.AlerterRule
		want bool
	}{
		{"size met", config.AlerterRule{MinSize: 5000}, true},
		{"size not met", config.AlerterRule{MinSize: 5001}, false},
		{"packets met", config.AlerterRule{MinPackets: 50}, true},
		{"packets not met", config.AlerterRule{MinPackets: 51}, false},
		{"duration met", config.AlerterRule{MinDuration: 1.5}, true},
		{"duration not met", config.AlerterRule{MinDuration: 2.5}, false},
		{"any threshold suffices", config.AlerterRule{MinSize: 999999, MinPackets: 10}, true},
		{"src mismatch blocks", config.AlerterRule{Src: "10.9.9.9", MinSize: 1}, false},
		{"src match", config.AlerterRule{Src: "10.0.0.1", MinSize: 1}, true},
		{"dst mismatch blocks", config.AlerterRule{Dst: "10.9.9.9", MinPackets: 1}, false},
		{"no thresholds never triggers", config.AlerterRule{Src: "10.0.0.1"}, false},
	}

	for _, tc := range cases {
		if got := triggered(tc.rule, burst); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestAlerterSendsConsolidatedNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	cfg := config.AlerterConfig{
		CheckInterval: "50ms",
		Rules:         []config.AlerterRule{{Name: "big-burst", MinSize: 1000}},
	}
	a, err := NewAlerter(cfg, notifier)
	if err != nil {
		t.Fatalf("Failed to create alerter: %v", err)
	}

	bursts := []model.Burst{
		{Src: "10.0.0.1", Dst: "10.0.0.2", Size: 2000, NumPackets: 10},
		{Src: "10.0.0.1", Dst: "10.0.0.2", Size: 10, NumPackets: 1},
		{Src: "10.0.0.3", Dst: "10.0.0.4", Size: 5000, NumPackets: 20},
	}
	if err := a.WriteBursts(context.Background(), bursts); err != nil {
		t.Fatalf("Failed to evaluate bursts: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for notifier.sent() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if notifier.sent() != 1 {
		t.Fatalf("Expected 1 consolidated notification, got %d", notifier.sent())
	}

	subject, body := notifier.last()
	if !strings.Contains(subject, "(2 Triggered)") {
		t.Errorf("Unexpected subject %q", subject)
	}
	if strings.Count(body, "Rule 'big-burst'") != 2 {
		t.Errorf("Expected 2 alerts in the body, got: %q", body)
	}

	a.Close(context.Background())
	if notifier.sent() != 1 {
		t.Errorf("Close should not resend delivered alerts, got %d notifications", notifier.sent())
	}
}

func TestAlerterFlushesOnClose(t *testing.T) {
	notifier := &fakeNotifier{}
	cfg := config.AlerterConfig{
		CheckInterval: "1h",
		Rules:         []config.AlerterRule{{Name: "chatty", MinPackets: 1}},
	}
	a, err := NewAlerter(cfg, notifier)
	if err != nil {
		t.Fatalf("Failed to create alerter: %v", err)
	}

	a.WriteBursts(context.Background(), []model.Burst{{Src: "a", Dst: "b", NumPackets: 3}})
	a.Close(context.Background())

	if notifier.sent() != 1 {
		t.Fatalf("Expected the pending alert to be sent on close, got %d notifications", notifier.sent())
	}
}

func TestNewAlerterRejectsBadInterval(t *testing.T) {
	if _, err := NewAlerter(config.AlerterConfig{CheckInterval: "often"}, &fakeNotifier{}); err == nil {
		t.Error("Expected an error for an unparsable check interval")
	}
	if _, err := NewAlerter(config.AlerterConfig{CheckInterval: "-1m"}, &fakeNotifier{}); err == nil {
		t.Error("Expected an error for a negative check interval")
	}
}
