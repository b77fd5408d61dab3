// Package sensor provides boiler temperature acquisition with hardware
// abstraction. The real implementation invokes an external driver process
// that prints one decimal Celsius reading to stdout; the fake implementation
// allows testing without hardware.
package sensor

import "time"

// Temperature validation bounds (spec.md §4.1).
const (
	MinTemp        = 0.0
	MaxTempReading = 200.0
)

// ReadTimeout bounds a single Read call (spec.md §4.1).
const ReadTimeout = 5 * time.Second

// Reading is a single validated temperature sample.
type Reading struct {
	Temperature float64
	Timestamp   time.Time
	SourceOK    bool
}

// Reader produces one validated Celsius sample per call, or a typed failure.
type Reader interface {
	// Read blocks at most ReadTimeout and returns a validated Reading, or
	// one of Timeout, ProcessError, ParseError, OutOfRange.
	Read() (Reading, error)

	// Close releases any resources held by the reader.
	Close() error
}
