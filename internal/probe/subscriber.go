package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
	"NetBurst/internal/wire"
)

// IPHandler is a function that processes a received wired event.
type IPHandler func(pkt model.IPPacket)

// WlanHandler is a function that processes a received wireless event.
type WlanHandler func(pkt model.WlanPacket)

// Subscriber is responsible for subscribing to capture subjects and decoding
// messages. Undecodable messages are logged and dropped.
type Subscriber struct {
	nc     *nats.Conn
	prefix string
	closed chan struct{}
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL, nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, prefix: cfg.SubjectPrefix, closed: closed}, nil
}

// SubscribeIP starts processing wired events with the provided handler.
func (s *Subscriber) SubscribeIP(handler IPHandler) error {
	subject := IPSubject(s.prefix)
	_, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		pkt, err := wire.UnmarshalIPPacket(msg.Data)
		if err != nil {
			log.Printf("Error unmarshalling wired event: %v", err)
			return
		}
		handler(pkt)
	})
	if err != nil {
		return err
	}
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// SubscribeWlan starts processing wireless events with the provided handler.
func (s *Subscriber) SubscribeWlan(handler WlanHandler) error {
	subject := WlanSubject(s.prefix)
	_, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		pkt, err := wire.UnmarshalWlanPacket(msg.Data)
		if err != nil {
			log.Printf("Error unmarshalling wireless event: %v", err)
			return
		}
		handler(pkt)
	})
	if err != nil {
		return err
	}
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// Close drains the subscriptions so in-flight handlers finish first. No
// handler runs after Close returns, so the handlers' downstream channels are
// safe to close.
func (s *Subscriber) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		log.Printf("Error draining NATS connection: %v", err)
		s.nc.Close()
	}
	<-s.closed
	log.Println("NATS connection closed.")
}
