package gosensorcore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Header keys written by the Android logger when a file is opened.
const (
	HeaderCalendarKey = "currentTimeMillis"
	HeaderUptimeKey   = "elapsedRealtimeNanos"
)

const commentMarker = "#"

var headerSeparators = regexp.MustCompile("[\t,\n]")

// HeaderValue is one parsed header entry. Purely numeric values are also
// available as integers.
type HeaderValue struct {
	Text  string
	Int   int64
	IsInt bool
}

// Header is the key/value metadata from a file's leading comment block.
type Header map[string]HeaderValue

// Int returns the integer value stored under key.
func (h Header) Int(key string) (int64, bool) {
	v, ok := h[key]
	if !ok || !v.IsInt {
		return 0, false
	}
	return v.Int, true
}

// String returns the raw text stored under key.
func (h Header) String(key string) (string, bool) {
	v, ok := h[key]
	return v.Text, ok
}

// Clone returns an independent copy of the header.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Epochs is the pair of reference clocks captured when the log was opened.
type Epochs struct {
	CalendarMs int64 // currentTimeMillis
	UptimeNs   int64 // elapsedRealtimeNanos
}

// Epochs extracts the reference epoch pair. Both values must be present and
// positive.
func (h Header) Epochs() (Epochs, error) {
	cal, ok := h.Int(HeaderCalendarKey)
	if !ok || cal <= 0 {
		return Epochs{}, fmt.Errorf("%w: %s missing or not positive", ErrHeaderIncomplete, HeaderCalendarKey)
	}
	up, ok := h.Int(HeaderUptimeKey)
	if !ok || up <= 0 {
		return Epochs{}, fmt.Errorf("%w: %s missing or not positive", ErrHeaderIncomplete, HeaderUptimeKey)
	}
	return Epochs{CalendarMs: cal, UptimeNs: up}, nil
}

// ParseHeader reads the leading run of comment lines from r and stops at the
// first line that is not a comment. Fragments that do not split into exactly
// one "key: value" pair are dropped. A reader without comment lines yields an
// empty header.
func ParseHeader(r io.Reader) (Header, error) {
	br := bufio.NewReader(r)
	var comments strings.Builder
	for {
		line, err := br.ReadString('\n')
		if strings.HasPrefix(line, commentMarker) {
			comments.WriteString(line)
		} else {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}

	h := make(Header)
	for _, frag := range headerSeparators.Split(comments.String(), -1) {
		kv := strings.Split(frag, ": ")
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(kv[0]), commentMarker))
		if key == "" {
			continue
		}
		h[key] = parseHeaderValue(strings.TrimSpace(kv[1]))
	}
	return h, nil
}

// ParseHeaderFile parses the comment header of the file at path.
func ParseHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func parseHeaderValue(s string) HeaderValue {
	v := HeaderValue{Text: s}
	if s == "" {
		return v
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return v
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		v.Int = n
		v.IsInt = true
	}
	return v
}
