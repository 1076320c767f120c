package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
	"NetBurst/internal/wire"
)

// Subject layout under the configured prefix. Capture events and finished
// bursts travel on separate subjects.
func IPSubject(prefix string) string    { return prefix + ".ip" }
func WlanSubject(prefix string) string  { return prefix + ".wlan" }
func BurstSubject(prefix string) string { return prefix + ".bursts" }

// Publisher is responsible for publishing capture events to NATS.
type Publisher struct {
	nc          *nats.Conn
	subjectIP   string
	subjectWlan string
	closed      chan struct{}
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL, nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{
		nc:          nc,
		subjectIP:   IPSubject(cfg.SubjectPrefix),
		subjectWlan: WlanSubject(cfg.SubjectPrefix),
		closed:      closed,
	}, nil
}

// PublishIP serializes a wired event and publishes it on the ip subject.
func (p *Publisher) PublishIP(pkt model.IPPacket) error {
	return p.nc.Publish(p.subjectIP, wire.MarshalIPPacket(pkt))
}

// PublishWlan serializes a wireless event and publishes it on the wlan subject.
func (p *Publisher) PublishWlan(pkt model.WlanPacket) error {
	return p.nc.Publish(p.subjectWlan, wire.MarshalWlanPacket(pkt))
}

// Close drains and closes the NATS connection. It returns after the last
// buffered event is on the wire, so callers may exit immediately.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Printf("Error draining NATS connection: %v", err)
		p.nc.Close()
	}
	<-p.closed
	log.Println("NATS connection drained and closed.")
}
