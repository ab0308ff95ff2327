package probe

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

// queueDepth bounds the per-queue backlog between the NATS callback and the
// workers. Overflow drops the frame; the engine measures live traffic and a
// late packet is worth less than a stalled subscription.
const queueDepth = 8192

// Subscriber receives frames from NATS and exposes them as a multi-queue
// packet source. Frames are partitioned by source address so every source
// lands on one worker, matching what hardware RSS guarantees on a NIC.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string

	queues  []chan model.PacketView
	dropped uint64
}

// NewSubscriber connects to NATS and prepares numQueues receive queues.
func NewSubscriber(cfg config.ProbeConfig, numQueues int) (*Subscriber, error) {
	if numQueues <= 0 {
		return nil, fmt.Errorf("subscriber needs at least one queue, got %d", numQueues)
	}
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)

	queues := make([]chan model.PacketView, numQueues)
	for i := range queues {
		queues[i] = make(chan model.PacketView, queueDepth)
	}
	return &Subscriber{nc: nc, subject: cfg.PacketSubject, queues: queues}, nil
}

// Start subscribes to the packet subject and begins dispatching frames.
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var env frameEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Printf("Error unmarshalling frame envelope: %v", err)
			return
		}
		view := model.PacketView{
			Data:      env.Data,
			Length:    env.Length,
			Timestamp: env.Timestamp,
		}
		select {
		case s.queues[s.queueOf(env.Data)] <- view:
		default:
			s.dropped++
		}
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for frames...", s.subject)
	return nil
}

// queueOf partitions by the IPv4 source address at its fixed Ethernet offset.
// Frames too short to carry one go to queue 0 and fail classification there.
func (s *Subscriber) queueOf(data []byte) int {
	if len(data) < 30 {
		return 0
	}
	src := binary.BigEndian.Uint32(data[26:30])
	return int(src % uint32(len(s.queues)))
}

// ReceiveBurst drains up to len(views) frames from the given queue without
// blocking.
func (s *Subscriber) ReceiveBurst(queue int, views []model.PacketView) int {
	q := s.queues[queue]
	n := 0
	for n < len(views) {
		select {
		case v := <-q:
			views[n] = v
			n++
		default:
			return n
		}
	}
	return n
}

// Queues returns the number of receive queues.
func (s *Subscriber) Queues() int {
	return len(s.queues)
}

// Dropped reports frames discarded on full queues.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
	return nil
}
