// Package export contains the report writers: a plain text/CSV writer for
// local runs and a ClickHouse writer for long-term feature storage.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

var featureHeader = []string{
	"timestamp", "window_sec",
	"total_packets", "total_bytes", "baseline_packets", "attack_packets",
	"tcp_packets", "udp_packets", "icmp_packets",
	"syn_packets", "syn_ack_packets", "pure_ack_packets", "rst_packets", "fin_packets",
	"http_requests", "dns_queries", "ntp_queries", "frag_packets", "small_packets",
	"baseline_total_pps", "baseline_udp_pps", "baseline_syn_pps", "baseline_gbps",
	"attack_total_pps", "attack_udp_pps", "attack_syn_pps", "attack_http_pps",
	"attack_icmp_pps", "attack_dns_pps", "attack_ntp_pps", "attack_ack_pps",
	"attack_frag_pps", "attack_gbps",
	"unique_src_addrs", "unique_dst_ports", "tracked_sources",
	"alert_level",
}

// TextWriter appends each report as one feature-CSV row and logs detections to
// a plain text file next to it. Files are created lazily on the first write.
type TextWriter struct {
	rootPath string
	interval time.Duration

	features *os.File
	csv      *csv.Writer
	alerts   *os.File
}

// NewTextWriter creates a writer rooted at cfg.RootPath.
func NewTextWriter(cfg config.TextConfig, interval time.Duration) (*TextWriter, error) {
	if err := os.MkdirAll(cfg.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &TextWriter{rootPath: cfg.RootPath, interval: interval}, nil
}

// GetInterval returns the configured snapshot interval.
func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *TextWriter) open() error {
	f, err := os.OpenFile(filepath.Join(w.rootPath, "features.csv"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open feature file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.features = f
	w.csv = csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.csv.Write(featureHeader); err != nil {
			return err
		}
	}

	a, err := os.OpenFile(filepath.Join(w.rootPath, "detections.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open detection log: %w", err)
	}
	w.alerts = a
	return nil
}

// Write appends one feature row and, if the report carries an alert, the
// rendered detection reasons.
func (w *TextWriter) Write(report *model.Report) error {
	if w.features == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	row := []string{
		report.Alert.At.UTC().Format(time.RFC3339),
		f(report.WindowDuration),
		u(report.TotalPackets), u(report.TotalBytes),
		u(report.BaselinePackets), u(report.AttackPackets),
		u(report.TCPPackets), u(report.UDPPackets), u(report.ICMPPackets),
		u(report.SYNPackets), u(report.SYNACKPackets), u(report.PureACKPackets),
		u(report.RSTPackets), u(report.FINPackets),
		u(report.HTTPRequests), u(report.DNSQueries), u(report.NTPQueries),
		u(report.FragPackets), u(report.SmallPackets),
		f(report.Rates.Baseline.TotalPPS), f(report.Rates.Baseline.UDPPPS),
		f(report.Rates.Baseline.SYNPPS), f(report.Rates.Baseline.Gbps),
		f(report.Rates.Attack.TotalPPS), f(report.Rates.Attack.UDPPPS),
		f(report.Rates.Attack.SYNPPS), f(report.Rates.Attack.HTTPPPS),
		f(report.Rates.Attack.ICMPPPS), f(report.Rates.Attack.DNSPPS),
		f(report.Rates.Attack.NTPPPS), f(report.Rates.Attack.PureACKPPS),
		f(report.Rates.Attack.FragPPS), f(report.Rates.Attack.Gbps),
		u(report.UniqueSrcAddrs), u(report.UniqueDstPorts),
		strconv.Itoa(report.TrackedSources),
		report.Alert.Level.String(),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write feature row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}

	if report.Alert.Level == model.AlertNone {
		return nil
	}
	ts := report.Alert.At.UTC().Format("2006-01-02 15:04:05.000")
	for _, r := range report.Alert.Reasons {
		if _, err := fmt.Fprintf(w.alerts, "[%s] [%s] %s\n",
			ts, report.Alert.Level, r); err != nil {
			return fmt.Errorf("failed to write detection log: %w", err)
		}
	}
	for _, hh := range report.HeavyHitters {
		if _, err := fmt.Fprintf(w.alerts, "[%s]   heavy hitter %s: %d packets\n",
			ts, hh.IP, hh.Count); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the output files.
func (w *TextWriter) Close() error {
	if w.csv != nil {
		w.csv.Flush()
	}
	var first error
	if w.features != nil {
		if err := w.features.Close(); err != nil {
			first = err
		}
	}
	if w.alerts != nil {
		if err := w.alerts.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func u(v uint64) string  { return strconv.FormatUint(v, 10) }
func f(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
