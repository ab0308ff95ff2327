package export

import (
	"fmt"
	"time"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

// BuildWriters constructs the enabled writers from configuration. An empty
// result is valid: the engine runs detection-only.
func BuildWriters(defs []config.WriterDef) ([]model.Writer, error) {
	var writers []model.Writer
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		interval, err := time.ParseDuration(def.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval for %s writer: %w", def.Type, err)
		}

		var w model.Writer
		switch def.Type {
		case "text":
			w, err = NewTextWriter(def.Text, interval)
		case "clickhouse":
			w, err = NewClickHouseWriter(def.ClickHouse, interval)
		default:
			return nil, fmt.Errorf("unknown writer type %q", def.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build %s writer: %w", def.Type, err)
		}
		writers = append(writers, w)
	}
	return writers, nil
}
