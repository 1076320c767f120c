package sink

import (
	"context"
	"log"

	"github.com/nats-io/nats.go"

	"NetBurst/internal/model"
	"NetBurst/internal/probe"
	"NetBurst/internal/wire"
)

// NATSSink republishes finished bursts on the bursts subject so downstream
// consumers, like the alerter, see them live.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	closed  chan struct{}
}

// NewNATSSink connects to the NATS server used by the probe transport.
func NewNATSSink(url, subjectPrefix string) (*NATSSink, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(url, nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, err
	}
	subject := probe.BurstSubject(subjectPrefix)
	log.Printf("NATS sink publishing bursts to '%s'", subject)
	return &NATSSink{nc: nc, subject: subject, closed: closed}, nil
}

func (s *NATSSink) Name() string {
	return "nats"
}

// WriteBursts publishes each burst as one message.
func (s *NATSSink) WriteBursts(_ context.Context, bursts []model.Burst) error {
	for _, b := range bursts {
		if err := s.nc.Publish(s.subject, wire.MarshalBurst(b)); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the NATS connection so buffered bursts reach the wire.
func (s *NATSSink) Close(_ context.Context) error {
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return err
	}
	<-s.closed
	return nil
}
