package export

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

const createFeaturesTableStatement = `
CREATE TABLE IF NOT EXISTS flood_features (
    Timestamp        DateTime64(3),
    WindowSec        Float64,
    TotalPackets     UInt64,
    TotalBytes       UInt64,
    BaselinePackets  UInt64,
    AttackPackets    UInt64,
    TCPPackets       UInt64,
    UDPPackets       UInt64,
    ICMPPackets      UInt64,
    SYNPackets       UInt64,
    PureACKPackets   UInt64,
    HTTPRequests     UInt64,
    DNSQueries       UInt64,
    NTPQueries       UInt64,
    FragPackets      UInt64,
    BaselinePPS      Float64,
    AttackPPS        Float64,
    AttackUDPPPS     Float64,
    AttackSYNPPS     Float64,
    AttackGbps       Float64,
    UniqueSrcAddrs   UInt64,
    UniqueDstPorts   UInt64,
    TrackedSources   UInt32,
    AlertLevel       UInt8
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

const createAlertsTableStatement = `
CREATE TABLE IF NOT EXISTS flood_alerts (
    Timestamp    DateTime64(3),
    Level        UInt8,
    Rule         String,
    Class        String,
    RatePPS      Float64,
    ThresholdPPS Float64,
    Rendered     String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

// ClickHouseWriter persists reports into flood_features and the triggered
// reasons into flood_alerts.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects and ensures both tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createFeaturesTableStatement, createAlertsTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create clickhouse table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured flood tables exist.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// Write inserts one feature row and one alert row per triggered reason.
func (w *ClickHouseWriter) Write(report *model.Report) error {
	ctx := context.Background()

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flood_features")
	if err != nil {
		return fmt.Errorf("failed to prepare feature batch: %w", err)
	}
	if err := batch.Append(
		report.Alert.At,
		report.WindowDuration,
		report.TotalPackets,
		report.TotalBytes,
		report.BaselinePackets,
		report.AttackPackets,
		report.TCPPackets,
		report.UDPPackets,
		report.ICMPPackets,
		report.SYNPackets,
		report.PureACKPackets,
		report.HTTPRequests,
		report.DNSQueries,
		report.NTPQueries,
		report.FragPackets,
		report.Rates.Baseline.TotalPPS,
		report.Rates.Attack.TotalPPS,
		report.Rates.Attack.UDPPPS,
		report.Rates.Attack.SYNPPS,
		report.Rates.Attack.Gbps,
		report.UniqueSrcAddrs,
		report.UniqueDstPorts,
		uint32(report.TrackedSources),
		uint8(report.Alert.Level),
	); err != nil {
		return fmt.Errorf("failed to append feature row: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send feature batch: %w", err)
	}

	if len(report.Alert.Reasons) == 0 {
		return nil
	}

	alerts, err := w.conn.PrepareBatch(ctx, "INSERT INTO flood_alerts")
	if err != nil {
		return fmt.Errorf("failed to prepare alert batch: %w", err)
	}
	for _, r := range report.Alert.Reasons {
		if err := alerts.Append(
			report.Alert.At,
			uint8(r.Level),
			string(r.Rule),
			r.Class.String(),
			r.Rate,
			r.Thresh,
			r.String(),
		); err != nil {
			return fmt.Errorf("failed to append alert row: %w", err)
		}
	}
	if err := alerts.Send(); err != nil {
		return fmt.Errorf("failed to send alert batch: %w", err)
	}
	log.Printf("Wrote %d alert reasons to ClickHouse", len(report.Alert.Reasons))
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
