package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket/pcap"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
	"FloodSight/internal/probe"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	iface := flag.String("iface", "", "Interface to capture frames from.")
	capture := flag.String("pcap", "", "Publish a capture file instead of live traffic.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *iface == "" && *capture == "" {
		log.Fatal("Either -iface or -pcap is required.")
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	var handle *pcap.Handle
	if *capture != "" {
		handle, err = pcap.OpenOffline(*capture)
	} else {
		handle, err = pcap.OpenLive(*iface, snapshotLen, promiscuous, pcap.BlockForever)
	}
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}
	defer handle.Close()

	log.Println("Capture started. Publishing frames to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		published := 0
		for {
			data, ci, err := handle.ReadPacketData()
			if err == io.EOF {
				log.Printf("Capture exhausted after %d frames.", published)
				sigChan <- syscall.SIGTERM
				return
			}
			if err != nil {
				log.Printf("Capture read error: %v", err)
				continue
			}
			view := model.PacketView{Data: data, Length: ci.Length, Timestamp: ci.Timestamp}
			if err := pub.PublishFrame(&view); err != nil {
				log.Printf("Failed to publish frame: %v", err)
			}
			published++
			if published%10000 == 0 {
				log.Printf("%d frames published...", published)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
