// Package engine assembles the packet pipeline: one worker per RX queue, a
// shared per-source table, per-worker sketch engines and the detection
// coordinator, plus snapshot goroutines feeding the configured writers.
package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"FloodSight/internal/config"
	"FloodSight/internal/engine/coordinator"
	"FloodSight/internal/engine/protocol"
	"FloodSight/internal/engine/sketch"
	"FloodSight/internal/engine/stats"
	"FloodSight/internal/engine/worker"
	"FloodSight/internal/model"
)

// Manager owns the lifecycle of the whole engine.
type Manager struct {
	cfg    *config.Config
	source model.PacketSource

	workers []*worker.Worker
	coord   *coordinator.Coordinator
	table   *stats.Table
	writers []model.Writer

	firstAttackNanos atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager builds the pipeline over the given packet source. The source must
// expose at least cfg.Engine.NumQueues receive queues. Writers and the alert
// sink are optional.
func NewManager(cfg *config.Config, source model.PacketSource,
	writers []model.Writer, sink coordinator.AlertSink) (*Manager, error) {

	if source.Queues() < cfg.Engine.NumQueues {
		return nil, fmt.Errorf("source exposes %d queues, config wants %d",
			source.Queues(), cfg.Engine.NumQueues)
	}

	m := &Manager{
		cfg:     cfg,
		source:  source,
		table:   stats.NewTable(cfg.Table.Capacity, cfg.Table.NumShards),
		writers: writers,
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.Engine.NumQueues; i++ {
		cls, err := protocol.NewClassifier(cfg.Classifier)
		if err != nil {
			return nil, fmt.Errorf("failed to build classifier for queue %d: %w", i, err)
		}
		w := worker.New(i, source, cls, sketch.New(cfg.Sketch), m.table,
			cfg.Engine.BurstSize, cfg.Sketch.SampleRate,
			cfg.Classifier.SmallPacketBytes, &m.firstAttackNanos)
		m.workers = append(m.workers, w)
	}

	coord, err := coordinator.New(cfg, m.workers, m.table, &m.firstAttackNanos, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to build coordinator: %w", err)
	}
	m.coord = coord

	return m, nil
}

// Coordinator exposes the detection coordinator, mainly for the HTTP API.
func (m *Manager) Coordinator() *coordinator.Coordinator {
	return m.coord
}

// Workers returns the worker pool.
func (m *Manager) Workers() []*worker.Worker {
	return m.workers
}

// Table returns the shared per-source statistics table.
func (m *Manager) Table() *stats.Table {
	return m.table
}

// Start launches the workers, the coordinator and one snapshot goroutine per
// writer.
func (m *Manager) Start() {
	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w *worker.Worker) {
			defer m.wg.Done()
			w.Run(m.done)
		}(w)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.coord.Run(m.done)
	}()

	for _, wr := range m.writers {
		m.wg.Add(1)
		go func(wr model.Writer) {
			defer m.wg.Done()
			m.snapshotLoop(wr)
		}(wr)
	}

	log.Printf("Engine started: %d workers, burst %d, sample 1/%d",
		len(m.workers), m.cfg.Engine.BurstSize, m.cfg.Sketch.SampleRate)
}

// snapshotLoop periodically builds a report and hands it to one writer. A
// final report is written on shutdown so the last partial window is not lost.
func (m *Manager) snapshotLoop(wr model.Writer) {
	ticker := time.NewTicker(wr.GetInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := wr.Write(m.coord.BuildReport(time.Now())); err != nil {
				log.Printf("Failed to write report: %v", err)
			}
		case <-m.done:
			if err := wr.Write(m.coord.BuildReport(time.Now())); err != nil {
				log.Printf("Failed to write final report: %v", err)
			}
			return
		}
	}
}

// Stop shuts the pipeline down and closes the writers and the source.
func (m *Manager) Stop() {
	close(m.done)
	m.wg.Wait()

	for _, wr := range m.writers {
		if err := wr.Close(); err != nil {
			log.Printf("Failed to close writer: %v", err)
		}
	}
	if err := m.source.Close(); err != nil {
		log.Printf("Failed to close packet source: %v", err)
	}
	log.Println("Engine stopped.")
}
