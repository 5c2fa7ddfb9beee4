package gosensorcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrHeaderIncomplete reports a header without positive currentTimeMillis
	// and elapsedRealtimeNanos values.
	ErrHeaderIncomplete = errors.New("header missing reference epochs")

	// ErrAmbiguousEncoding is warning-level: the first timestamp matches
	// neither reference epoch, so the stream is loaded empty.
	ErrAmbiguousEncoding = errors.New("timestamp encoding matches neither reference epoch")

	ErrClockMismatch       = errors.New("uptime start differs between sensors")
	ErrInsufficientOverlap = errors.New("sensor streams share no common time window")
	ErrInterpolationDomain = errors.New("interpolation grid outside stream range")
	ErrUnknownSensor       = errors.New("unrecognised sensor file")
	ErrDuplicateSensor     = errors.New("sensor type already loaded")
	ErrNoStreams           = errors.New("trial has no sensor streams")
	ErrNotInterpolated     = errors.New("trial has not been interpolated")
	ErrMalformedRow        = errors.New("malformed sensor row")
)

// ClockMismatchError lists the elapsedRealtimeNanos start marker of every
// stream in a trial whose markers disagree.
type ClockMismatchError struct {
	Starts map[SensorType]int64
}

func (e *ClockMismatchError) Error() string {
	types := make([]string, 0, len(e.Starts))
	for st := range e.Starts {
		types = append(types, string(st))
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, st := range types {
		parts = append(parts, fmt.Sprintf("%s=%d", st, e.Starts[SensorType(st)]))
	}
	return fmt.Sprintf("%v: %s", ErrClockMismatch, strings.Join(parts, ", "))
}

func (e *ClockMismatchError) Unwrap() error { return ErrClockMismatch }
