package gosensorcore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column is one named value column of a sensor stream. Numeric columns use
// Values, text columns use Text.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []float64
	Text   []string
}

// Len returns the number of rows held by the column.
func (c Column) Len() int {
	if c.Kind == Text {
		return len(c.Text)
	}
	return len(c.Values)
}

func (c Column) clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Values != nil {
		out.Values = append([]float64(nil), c.Values...)
	}
	if c.Text != nil {
		out.Text = append([]string(nil), c.Text...)
	}
	return out
}

// SensorStream is one sensor's log after clock resolution: nanosecond
// timestamps on the uptime timeline plus the value columns of its file kind.
// A stream is immutable; every accessor returns an independent copy.
type SensorStream struct {
	path     string
	key      string
	sensor   SensorType
	header   Header
	encoding Encoding
	time     []int64
	columns  []Column
	warning  error
}

// NewSensorStream builds a stream from already resolved timestamps. All
// inputs are copied. Every column must have one value per timestamp.
func NewSensorStream(sensor SensorType, header Header, enc Encoding, timeNs []int64, columns []Column) (*SensorStream, error) {
	if sensor == "" {
		return nil, errors.New("sensor stream: empty sensor type")
	}
	cols := make([]Column, len(columns))
	for i, c := range columns {
		if c.Len() != len(timeNs) {
			return nil, fmt.Errorf("sensor stream %s: column %q has %d values for %d timestamps",
				sensor, c.Name, c.Len(), len(timeNs))
		}
		cols[i] = c.clone()
	}
	return &SensorStream{
		sensor:   sensor,
		header:   header.Clone(),
		encoding: enc,
		time:     append([]int64{}, timeNs...),
		columns:  cols,
	}, nil
}

// LoadStream reads one sensor log file, resolves its Time column against the
// header epochs and returns the resulting stream.
//
// A file whose timestamps match neither reference epoch is not an error: the
// stream comes back empty, EncodingUnknown, and Warning reports
// ErrAmbiguousEncoding.
func LoadStream(path string) (*SensorStream, error) {
	kind, ok := FileKindForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	header, err := ParseHeader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	epochs, err := header.Epochs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records, lines, err := readRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Older GPS logs carry an extra accuracy column under the same file name.
	if kind.Key == "gps" && len(records) > 0 {
		if alt, _ := LookupFileKind("gps_2"); len(records[0]) == len(alt.Columns)+1 {
			kind = alt
		}
	}

	raw, columns, err := parseRecords(kind, records, lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s := &SensorStream{
		path:    path,
		key:     kind.Key,
		sensor:  kind.Sensor,
		header:  header,
		columns: columns,
	}

	resolved, enc, err := ResolveTimestamps(raw, epochs.CalendarMs, epochs.UptimeNs)
	switch {
	case errors.Is(err, ErrAmbiguousEncoding):
		s.warning = fmt.Errorf("%s (%s): %w", path, kind.Sensor, err)
		Logf("WARNING: %v", s.warning)
		s.time = []int64{}
		for i := range s.columns {
			s.columns[i] = Column{Name: s.columns[i].Name, Kind: s.columns[i].Kind}
		}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", path, err)
	default:
		s.time = resolved
	}
	s.encoding = enc
	return s, nil
}

func readRecords(data []byte) ([][]string, []int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func parseRecords(kind FileKind, records [][]string, lines []int) ([]int64, []Column, error) {
	n := len(records)
	raw := make([]int64, n)
	columns := make([]Column, len(kind.Columns))
	for j, spec := range kind.Columns {
		columns[j] = Column{Name: spec.Name, Kind: spec.Kind}
		if spec.Kind == Text {
			columns[j].Text = make([]string, n)
		} else {
			columns[j].Values = make([]float64, n)
		}
	}

	for i, rec := range records {
		if len(rec) != len(kind.Columns)+1 {
			return nil, nil, fmt.Errorf("%w: line %d has %d fields, %s expects %d",
				ErrMalformedRow, lines[i], len(rec), kind.Key, len(kind.Columns)+1)
		}
		t, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: time %q: %v", ErrMalformedRow, lines[i], rec[0], err)
		}
		raw[i] = t

		for j, spec := range kind.Columns {
			field := strings.TrimSpace(rec[j+1])
			if spec.Kind == Text {
				columns[j].Text[i] = field
				continue
			}
			if field == "" {
				columns[j].Values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d: %s %q: %v", ErrMalformedRow, lines[i], spec.Name, field, err)
			}
			columns[j].Values[i] = v
		}
	}
	return raw, columns, nil
}

// Path returns the file the stream was loaded from, empty for built streams.
func (s *SensorStream) Path() string { return s.path }

// Key returns the file-kind key ("gps", "gps_2", ...).
func (s *SensorStream) Key() string { return s.key }

func (s *SensorStream) Sensor() SensorType { return s.sensor }

func (s *SensorStream) Encoding() Encoding { return s.encoding }

// Warning returns the non-fatal condition raised while loading, if any.
func (s *SensorStream) Warning() error { return s.warning }

// Len returns the number of samples.
func (s *SensorStream) Len() int { return len(s.time) }

// Header returns a copy of the parsed header metadata.
func (s *SensorStream) Header() Header { return s.header.Clone() }

// Time returns a copy of the resolved nanosecond timestamps.
func (s *SensorStream) Time() []int64 { return append([]int64{}, s.time...) }

// Columns returns a deep copy of the value columns in file order.
func (s *SensorStream) Columns() []Column {
	out := make([]Column, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.clone()
	}
	return out
}

// Column returns a copy of the named column.
func (s *SensorStream) Column(name string) (Column, bool) {
	for _, c := range s.columns {
		if c.Name == name {
			return c.clone(), true
		}
	}
	return Column{}, false
}

// ColumnNames lists the value column names in file order, Time excluded.
func (s *SensorStream) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep, independent copy of the stream.
func (s *SensorStream) Clone() *SensorStream {
	out := *s
	out.header = s.header.Clone()
	out.time = s.Time()
	out.columns = s.Columns()
	return &out
}

// bounds returns the smallest and largest timestamp. ok is false for an
// empty stream.
func (s *SensorStream) bounds() (lo, hi int64, ok bool) {
	if len(s.time) == 0 {
		return 0, 0, false
	}
	lo, hi = s.time[0], s.time[0]
	for _, t := range s.time[1:] {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return lo, hi, true
}
