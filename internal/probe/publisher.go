// Package probe moves raw frames and alert events over NATS, decoupling
// capture hosts from the detection engine.
package probe

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

// frameEnvelope is the wire format for one captured frame. Data is the full
// Ethernet frame; JSON encodes it base64.
type frameEnvelope struct {
	Timestamp time.Time `json:"ts"`
	Length    int       `json:"len"`
	Data      []byte    `json:"data"`
}

// Publisher publishes captured frames and alert events to NATS.
type Publisher struct {
	nc            *nats.Conn
	packetSubject string
	alertSubject  string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{
		nc:            nc,
		packetSubject: cfg.PacketSubject,
		alertSubject:  cfg.AlertSubject,
	}, nil
}

// PublishFrame serializes one frame and publishes it to the packet subject.
func (p *Publisher) PublishFrame(view *model.PacketView) error {
	data, err := json.Marshal(frameEnvelope{
		Timestamp: view.Timestamp,
		Length:    view.Length,
		Data:      view.Data,
	})
	if err != nil {
		return err
	}
	return p.nc.Publish(p.packetSubject, data)
}

// PublishAlert publishes one alert state snapshot to the alert subject. It
// satisfies the coordinator's alert sink.
func (p *Publisher) PublishAlert(state *model.AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.alertSubject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
