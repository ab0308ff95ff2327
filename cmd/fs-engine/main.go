package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FloodSight/internal/api"
	"FloodSight/internal/config"
	"FloodSight/internal/engine"
	"FloodSight/internal/export"
	"FloodSight/internal/model"
	"FloodSight/internal/probe"
	"FloodSight/pkg/pcap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	replayPath := flag.String("replay", "", "Replay a capture file instead of subscribing to NATS.")
	flag.Parse()

	log.Println("Starting fs-engine...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	var (
		source model.PacketSource
		replay *pcap.Replay
	)
	if *replayPath != "" {
		replay, err = pcap.NewReplay(*replayPath, cfg.Engine.NumQueues)
		if err != nil {
			log.Fatalf("Failed to load capture: %v", err)
		}
		log.Printf("Loaded %d frames from %s", replay.Total(), *replayPath)
		source = replay
	} else {
		sub, err := probe.NewSubscriber(cfg.Probe, cfg.Engine.NumQueues)
		if err != nil {
			log.Fatalf("Failed to create subscriber: %v", err)
		}
		if err := sub.Start(); err != nil {
			log.Fatalf("Subscriber failed to start: %v", err)
		}
		source = sub
	}

	writers, err := export.BuildWriters(cfg.Writers)
	if err != nil {
		log.Fatalf("Failed to build writers: %v", err)
	}

	var sink *probe.Publisher
	if *replayPath == "" {
		sink, err = probe.NewPublisher(cfg.Probe)
		if err != nil {
			log.Fatalf("Failed to create alert publisher: %v", err)
		}
		defer sink.Close()
	}

	var mgr *engine.Manager
	if sink != nil {
		mgr, err = engine.NewManager(cfg, source, writers, sink)
	} else {
		mgr, err = engine.NewManager(cfg, source, writers, nil)
	}
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	mgr.Start()

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, mgr)
		go apiServer.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if replay != nil {
		// In replay mode, stop once the trace is fully consumed.
		go func() {
			for !replay.Exhausted() {
				time.Sleep(100 * time.Millisecond)
			}
			// One extra detection interval so the last window is evaluated.
			time.Sleep(time.Second)
			sigChan <- syscall.SIGTERM
		}()
	}

	<-sigChan
	log.Println("Shutdown signal received, stopping engine...")

	if apiServer != nil {
		if err := apiServer.Shutdown(); err != nil {
			log.Printf("API shutdown error: %v", err)
		}
	}
	mgr.Stop()
	log.Println("Shutdown complete.")
}
