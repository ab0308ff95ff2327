package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

func testReport(level model.AlertLevel) *model.Report {
	r := &model.Report{
		WindowDuration: 5,
		TotalPackets:   9000,
		AttackPackets:  9000,
		UDPPackets:     9000,
		Rates: model.WindowRates{
			WindowSec: 5,
			Attack:    model.ClassRates{TotalPPS: 1800, UDPPPS: 1800},
		},
		Alert: model.AlertState{Level: level, At: time.Now()},
	}
	if level != model.AlertNone {
		r.Alert.Reasons = []model.Reason{{
			Rule: model.RuleUDPFlood, Class: model.ClassAttack,
			Level: model.AlertHigh, Rate: 6000, Thresh: 5000,
		}}
		r.HeavyHitters = []model.HeavyHitter{{Addr: 0xac100001, IP: "172.16.0.1", Count: 4000}}
	}
	return r
}

func TestTextWriterFeatureRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTextWriter(config.TextConfig{RootPath: dir}, time.Second)
	if err != nil {
		t.Fatalf("NewTextWriter failed: %v", err)
	}

	if err := w.Write(testReport(model.AlertNone)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(testReport(model.AlertHigh)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "features.csv"))
	if err != nil {
		t.Fatalf("feature file missing: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse feature csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d csv rows, want header plus 2", len(rows))
	}
	if len(rows[1]) != len(featureHeader) {
		t.Errorf("row width %d, header width %d", len(rows[1]), len(featureHeader))
	}
	if rows[1][len(rows[1])-1] != "NONE" || rows[2][len(rows[2])-1] != "HIGH" {
		t.Errorf("alert levels = %q/%q, want NONE/HIGH",
			rows[1][len(rows[1])-1], rows[2][len(rows[2])-1])
	}
}

func TestTextWriterDetectionLog(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTextWriter(config.TextConfig{RootPath: dir}, time.Second)
	if err != nil {
		t.Fatalf("NewTextWriter failed: %v", err)
	}

	if err := w.Write(testReport(model.AlertNone)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(testReport(model.AlertHigh)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "detections.log"))
	if err != nil {
		t.Fatalf("detection log missing: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "UDP FLOOD") {
		t.Errorf("detection log %q does not name UDP FLOOD", text)
	}
	if !strings.Contains(text, "172.16.0.1") {
		t.Errorf("detection log %q does not list the heavy hitter", text)
	}
	// The quiet report must not have logged anything.
	if got := strings.Count(text, "[HIGH]"); got != 1 {
		t.Errorf("detection log has %d HIGH lines, want 1", got)
	}
}

func TestBuildWritersSkipsDisabled(t *testing.T) {
	writers, err := BuildWriters([]config.WriterDef{
		{Type: "clickhouse", Enabled: false},
		{Type: "text", Enabled: true, Interval: "5s", Text: config.TextConfig{RootPath: t.TempDir()}},
	})
	if err != nil {
		t.Fatalf("BuildWriters failed: %v", err)
	}
	if len(writers) != 1 {
		t.Fatalf("got %d writers, want 1", len(writers))
	}
	if writers[0].GetInterval() != 5*time.Second {
		t.Errorf("interval = %v, want 5s", writers[0].GetInterval())
	}
	for _, w := range writers {
		w.Close()
	}
}

func TestBuildWritersRejectsUnknownType(t *testing.T) {
	_, err := BuildWriters([]config.WriterDef{{Type: "bogus", Enabled: true, Interval: "1s"}})
	if err == nil {
		t.Error("expected error for unknown writer type")
	}
}
