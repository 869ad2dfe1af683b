package telemetry

import (
	"context"
	"time"
)

// Collector records fan status samples for later inspection.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
}

// Sample is one observation of the fan state, taken on a status poll.
type Sample struct {
	Timestamp time.Time
	Fan1Duty  int
	Fan2Duty  int
	AutoMode  bool
}
