// Package api exposes the engine's live state over HTTP: current alert,
// aggregate statistics, per-source lookups and Prometheus metrics.
package api

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FloodSight/internal/config"
	"FloodSight/internal/engine"
	"FloodSight/internal/model"
)

// Server serves the read-only HTTP API over a running engine.
type Server struct {
	mgr  *engine.Manager
	http *http.Server
}

// NewServer builds the router and binds it to cfg.ListenAddr.
func NewServer(cfg config.APIConfig, mgr *engine.Manager) *Server {
	s := &Server{mgr: mgr}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/alert", s.handleAlert).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sources/{ip}", s.handleSource).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown. Errors other than a clean close are logged.
func (s *Server) Start() {
	log.Printf("API server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("API server error: %v", err)
	}
}

// Shutdown closes the listener and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.http.Close()
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Coordinator().Alert())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Coordinator().BuildReport(time.Now()))
}

// sourceView is the per-source lookup response.
type sourceView struct {
	IP             string    `json:"ip"`
	TotalPackets   uint64    `json:"total_packets"`
	TCPPackets     uint64    `json:"tcp_packets"`
	UDPPackets     uint64    `json:"udp_packets"`
	ICMPPackets    uint64    `json:"icmp_packets"`
	SYNPackets     uint64    `json:"syn_packets"`
	PureACKPackets uint64    `json:"pure_ack_packets"`
	HTTPRequests   uint64    `json:"http_requests"`
	DNSQueries     uint64    `json:"dns_queries"`
	NTPQueries     uint64    `json:"ntp_queries"`
	FragPackets    uint64    `json:"frag_packets"`
	BytesIn        uint64    `json:"bytes_in"`
	LastSeen       time.Time `json:"last_seen"`
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	ip := net.ParseIP(mux.Vars(r)["ip"])
	if ip == nil || ip.To4() == nil {
		http.Error(w, "not an IPv4 address", http.StatusBadRequest)
		return
	}

	entry := s.mgr.Table().Lookup(model.IPToAddr(ip))
	if entry == nil {
		http.Error(w, "source not tracked", http.StatusNotFound)
		return
	}

	writeJSON(w, sourceView{
		IP:             ip.String(),
		TotalPackets:   entry.TotalPackets,
		TCPPackets:     entry.TCPPackets,
		UDPPackets:     entry.UDPPackets,
		ICMPPackets:    entry.ICMPPackets,
		SYNPackets:     entry.SYNPackets,
		PureACKPackets: entry.PureACKPackets,
		HTTPRequests:   entry.HTTPRequests,
		DNSQueries:     entry.DNSQueries,
		NTPQueries:     entry.NTPQueries,
		FragPackets:    entry.FragPackets,
		BytesIn:        entry.BytesIn,
		LastSeen:       time.Unix(0, entry.LastSeenNanos),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
