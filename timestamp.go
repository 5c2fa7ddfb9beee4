package gosensorcore

import (
	"fmt"
	"strconv"
)

// Encoding records which clock a raw timestamp column was written with.
type Encoding int

const (
	EncodingUnknown  Encoding = iota
	EncodingCalendar          // currentTimeMillis: wall-clock milliseconds
	EncodingUptime            // elapsedRealtimeNanos: nanoseconds since boot
)

func (e Encoding) String() string {
	switch e {
	case EncodingCalendar:
		return "currentTimeMillis"
	case EncodingUptime:
		return "elapsedRealtimeNanos"
	}
	return "unknown"
}

const (
	nanosPerMilli   = int64(1_000_000)
	minPrefixDigits = 3
)

// ResolveTimestamps decides whether raw is expressed in calendar
// milliseconds or uptime nanoseconds and rebases it onto the uptime
// nanosecond timeline.
//
// The decision compares the leading decimal digits of raw[0] with those of
// both reference epochs, using the shortest prefix (at least three digits)
// on which the two references differ. If raw[0] has a different digit count
// than the matched reference every sample is rescaled by the power of ten
// between them before conversion.
//
// An empty input resolves to an empty result with EncodingUnknown and no
// error. A first sample matching neither reference yields an empty result,
// EncodingUnknown and ErrAmbiguousEncoding.
func ResolveTimestamps(raw []int64, calendarMs, uptimeNs int64) ([]int64, Encoding, error) {
	if len(raw) == 0 {
		return []int64{}, EncodingUnknown, nil
	}

	bias := calendarMs*nanosPerMilli - uptimeNs

	enc, err := classify(raw[0], calendarMs, uptimeNs)
	if err != nil {
		return []int64{}, EncodingUnknown, err
	}

	ref := uptimeNs
	if enc == EncodingCalendar {
		ref = calendarMs
	}
	shift := ceilLog10(ref) - ceilLog10(raw[0])

	out := make([]int64, len(raw))
	for i, v := range raw {
		v = scalePow10(v, shift)
		if enc == EncodingCalendar {
			v = v*nanosPerMilli - bias
		}
		out[i] = v
	}
	return out, enc, nil
}

// classify matches the leading digits of sample against both references.
func classify(sample, calendarMs, uptimeNs int64) (Encoding, error) {
	cal := strconv.FormatInt(calendarMs, 10)
	up := strconv.FormatInt(uptimeNs, 10)
	s := strconv.FormatInt(sample, 10)

	// Identical references never diverge; stop once both are exhausted.
	maxLen := len(cal)
	if len(up) > maxLen {
		maxLen = len(up)
	}

	n := minPrefixDigits
	for prefix(cal, n) == prefix(up, n) {
		if n > maxLen {
			return EncodingUnknown, fmt.Errorf("%w: references %d and %d never diverge",
				ErrAmbiguousEncoding, calendarMs, uptimeNs)
		}
		n++
	}

	switch prefix(s, n) {
	case prefix(cal, n):
		return EncodingCalendar, nil
	case prefix(up, n):
		return EncodingUptime, nil
	}
	return EncodingUnknown, fmt.Errorf("%w: first sample %d, %s %d, %s %d",
		ErrAmbiguousEncoding, sample, HeaderCalendarKey, calendarMs, HeaderUptimeKey, uptimeNs)
}

func prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[:n]
}

// ceilLog10 returns ceil(log10(v)) for v > 0, computed on integers so that
// exact powers of ten are not perturbed by floating point. Values <= 1
// return 0.
func ceilLog10(v int64) int {
	if v <= 1 {
		return 0
	}
	n := 0
	for p := uint64(1); p < uint64(v); p *= 10 {
		n++
	}
	return n
}

// scalePow10 multiplies v by 10^shift; a negative shift divides, truncating.
func scalePow10(v int64, shift int) int64 {
	for ; shift > 0; shift-- {
		v *= 10
	}
	for ; shift < 0; shift++ {
		v /= 10
	}
	return v
}
