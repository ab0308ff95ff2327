package model

import "time"

// Writer persists the periodic report produced by the coordinator.
type Writer interface {
	Write(report *Report) error

	// GetInterval returns the configured report interval for this writer.
	GetInterval() time.Duration

	Close() error
}
