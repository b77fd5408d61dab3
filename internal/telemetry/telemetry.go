// Package telemetry implements the Telemetry Store (spec.md §4.8):
// write-amplification-aware smart recording, batched JSONL persistence,
// history queries, and hourly retention pruning. The pre-flush buffer is
// the teacher's internal/mqtt.ringBuffer (buffer.go) reused for telemetry
// records instead of serialized MQTT messages.
package telemetry

import "time"

// BatchSize is the number of records buffered in memory before a single
// batched write to the backing store (spec.md §4.8).
const BatchSize = 10

// RetentionDays bounds how long a record survives before the hourly sweep
// prunes it (spec.md §3 lifecycle: "reaped by the retention policy
// (default 7 days)").
const RetentionDays = 7

// OffStateRecordingInterval is the minimum gap between two recorded
// samples while machine_state is off (spec.md §4.8).
const OffStateRecordingInterval = 180 * time.Second

// PIDMode discriminates which gain profile produced a record's output.
type PIDMode string

const (
	ModeNormal   PIDMode = "normal"
	ModeRecovery PIDMode = "recovery"
)

// Record is a single telemetry sample (spec.md §6: "any key-value or
// time-series store" schema).
type Record struct {
	Temperature float64 `json:"temperature"`
	Output      float64 `json:"output"` // 0..100
	Timestamp   int64   `json:"timestamp"` // ms since epoch
	PIDMode     PIDMode `json:"pid_mode"`
}
