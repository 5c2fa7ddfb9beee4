package gosensorcore

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/interp"

	"github.com/kacperjurak/gosensorcore/internal/utils"
	"github.com/kacperjurak/gosensorcore/pkg/models"
	"github.com/kacperjurak/gosensorcore/pkg/worker"
)

// DefaultExtension is the file extension of Android sensor logs.
const DefaultExtension = "txt"

// TrialOptions controls how a Trial loads and aligns its streams.
type TrialOptions struct {
	// Workers bounds concurrent file reads in Load; 1 reads sequentially.
	Workers int
	// Exclude lists sensors left out of interpolation. Wi-Fi scans are
	// sparse events rather than continuous signals.
	Exclude []SensorType
}

// DefaultTrialOptions returns the options used by NewTrial callers that have
// no preference.
func DefaultTrialOptions() TrialOptions {
	return TrialOptions{
		Workers: runtime.NumCPU(),
		Exclude: []SensorType{WiFi},
	}
}

// Spectrum is the DFT of every numeric column of an interpolated stream,
// in column order.
type Spectrum struct {
	Columns []string
	Freqs   [][]float64    // Hz
	Coeffs  [][]complex128 // unnormalised DFT coefficients
}

func (s Spectrum) clone() Spectrum {
	out := Spectrum{
		Columns: append([]string(nil), s.Columns...),
		Freqs:   make([][]float64, len(s.Freqs)),
		Coeffs:  make([][]complex128, len(s.Coeffs)),
	}
	for i := range s.Freqs {
		out.Freqs[i] = append([]float64(nil), s.Freqs[i]...)
	}
	for i := range s.Coeffs {
		out.Coeffs[i] = append([]complex128(nil), s.Coeffs[i]...)
	}
	return out
}

// Trial holds at most one stream per sensor type for a single capture
// session, plus the grid products derived from them. A Trial is not safe
// for concurrent use.
type Trial struct {
	id       string
	opts     TrialOptions
	dir      string
	streams  map[SensorType]*SensorStream
	warnings []error

	stepNs       int64
	grid         []int64
	interpolated map[SensorType]*SensorStream
	spectra      map[SensorType]Spectrum
}

// NewTrial returns an empty trial.
func NewTrial(opts TrialOptions) *Trial {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	opts.Exclude = append([]SensorType(nil), opts.Exclude...)
	return &Trial{
		id:      utils.GenerateID(),
		opts:    opts,
		streams: make(map[SensorType]*SensorStream),
	}
}

// ID identifies this trial in logs and reports.
func (t *Trial) ID() string { return t.id }

// Dir returns the directory of the last Load.
func (t *Trial) Dir() string { return t.dir }

// Load replaces the trial's streams with one stream per recognised file with
// the given extension in dir. Files whose base name is not a known sensor
// key are skipped. Two files mapping to the same sensor type fail with
// ErrDuplicateSensor. On error the trial is left unchanged.
func (t *Trial) Load(dir, ext string) error {
	if ext == "" {
		ext = DefaultExtension
	}
	ext = "." + strings.TrimPrefix(ext, ".")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("load trial: %w", err)
	}

	var items []models.WorkItem
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, ok := FileKindForPath(path); !ok {
			Logf("skipping %s: not a known sensor file", path)
			continue
		}
		items = append(items, models.WorkItem{ID: len(items), TrialID: t.id, Path: path})
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: no *%s sensor files in %s", ErrNoStreams, ext, dir)
	}

	pool := worker.New(worker.Options{
		Workers: min(t.opts.Workers, len(items)),
		Quiet:   true,
		Processor: func(item models.WorkItem) (interface{}, error) {
			return LoadStream(item.Path)
		},
	})
	results := pool.Run(items)
	pool.Shutdown()

	streams := make(map[SensorType]*SensorStream, len(results))
	var warnings []error
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("load trial: %w", r.Err)
		}
		s := r.Value.(*SensorStream)
		if prev, ok := streams[s.sensor]; ok {
			return fmt.Errorf("%w: %s from both %s and %s", ErrDuplicateSensor, s.sensor, prev.path, s.path)
		}
		streams[s.sensor] = s
		if s.warning != nil {
			warnings = append(warnings, s.warning)
		}
	}

	t.dir = dir
	t.streams = streams
	t.warnings = warnings
	t.invalidate()
	return nil
}

// Add inserts one stream. A second stream of the same sensor type fails
// with ErrDuplicateSensor.
func (t *Trial) Add(s *SensorStream) error {
	if s == nil {
		return errors.New("add stream: nil stream")
	}
	if prev, ok := t.streams[s.sensor]; ok {
		return fmt.Errorf("%w: %s (have %q, adding %q)", ErrDuplicateSensor, s.sensor, prev.path, s.path)
	}
	c := s.Clone()
	t.streams[c.sensor] = c
	if c.warning != nil {
		t.warnings = append(t.warnings, c.warning)
	}
	t.invalidate()
	return nil
}

func (t *Trial) invalidate() {
	t.stepNs = 0
	t.grid = nil
	t.interpolated = nil
	t.spectra = nil
}

// Len returns the number of loaded streams.
func (t *Trial) Len() int { return len(t.streams) }

// SensorTypes lists the loaded sensor types in sorted order.
func (t *Trial) SensorTypes() []SensorType { return SortedSensorTypes(t.streams) }

// Stream returns a copy of the stream loaded for st.
func (t *Trial) Stream(st SensorType) (*SensorStream, bool) {
	s, ok := t.streams[st]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Warnings returns the non-fatal conditions raised while loading.
func (t *Trial) Warnings() []error { return append([]error(nil), t.warnings...) }

// TimeRangeSummary describes the resolved timestamps of every stream. All
// streams must share the same elapsedRealtimeNanos start marker; otherwise
// the result is a *ClockMismatchError.
func (t *Trial) TimeRangeSummary() (map[SensorType]Summary, error) {
	if len(t.streams) == 0 {
		return nil, ErrNoStreams
	}

	starts := make(map[SensorType]int64, len(t.streams))
	distinct := make(map[int64]struct{})
	for st, s := range t.streams {
		up, ok := s.header.Int(HeaderUptimeKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s stream has no %s", ErrHeaderIncomplete, st, HeaderUptimeKey)
		}
		starts[st] = up
		distinct[up] = struct{}{}
	}
	if len(distinct) > 1 {
		return nil, &ClockMismatchError{Starts: starts}
	}

	out := make(map[SensorType]Summary, len(t.streams))
	for st, s := range t.streams {
		out[st] = DescribeInt64(s.time)
	}
	return out, nil
}

// IntervalSummary describes the gaps between successive distinct
// timestamps of every stream. Streams with fewer than two distinct
// timestamps get an empty Summary.
func (t *Trial) IntervalSummary() map[SensorType]Summary {
	out := make(map[SensorType]Summary, len(t.streams))
	for st, s := range t.streams {
		out[st] = Describe(uniqueIntervals(s.time))
	}
	return out
}

// Window returns the common time window: the latest stream start and the
// earliest stream end over every non-empty stream, excluded ones included.
func (t *Trial) Window() (lo, hi int64, err error) {
	lo, hi = math.MinInt64, math.MaxInt64
	found := false
	for _, s := range t.streams {
		l, h, ok := s.bounds()
		if !ok {
			continue
		}
		found = true
		lo = max(lo, l)
		hi = min(hi, h)
	}
	if !found {
		return 0, 0, fmt.Errorf("%w: none of %d streams has samples to align", ErrInsufficientOverlap, len(t.streams))
	}
	if hi <= lo {
		return lo, hi, fmt.Errorf("%w: latest start %d is not before earliest end %d", ErrInsufficientOverlap, lo, hi)
	}
	return lo, hi, nil
}

func (t *Trial) excluded() map[SensorType]bool {
	m := make(map[SensorType]bool, len(t.opts.Exclude))
	for _, st := range t.opts.Exclude {
		m[st] = true
	}
	return m
}

// Interpolate resamples every numeric column of every non-empty, non-excluded
// stream onto the uniform grid time_min, time_min+step, ... up to and
// including time_max, where [time_min, time_max] is Window. The last node is
// time_max itself only when time_max-time_min is a multiple of stepNs.
// Excluded streams bound the window but are not resampled. The result is
// cached until the next Load or Add; a previous Spectrum is discarded.
func (t *Trial) Interpolate(stepNs int64) (map[SensorType]*SensorStream, error) {
	if stepNs <= 0 {
		return nil, fmt.Errorf("interpolate: grid step must be positive, got %d", stepNs)
	}
	if len(t.streams) == 0 {
		return nil, ErrNoStreams
	}
	lo, hi, err := t.Window()
	if err != nil {
		return nil, err
	}

	grid := make([]int64, 0, (hi-lo)/stepNs+1)
	for g := lo; ; g += stepNs {
		grid = append(grid, g)
		if g > hi-stepNs {
			break
		}
	}
	xs := make([]float64, len(grid))
	for i, g := range grid {
		xs[i] = float64(g - lo)
	}

	excluded := t.excluded()
	out := make(map[SensorType]*SensorStream, len(t.streams))
	for _, st := range SortedSensorTypes(t.streams) {
		s := t.streams[st]
		if s.Len() == 0 || excluded[st] {
			continue
		}
		gs, err := interpolateStream(s, grid, xs, lo)
		if err != nil {
			return nil, err
		}
		out[st] = gs
	}

	t.stepNs = stepNs
	t.grid = grid
	t.interpolated = out
	t.spectra = nil
	return t.Interpolated(), nil
}

// interpolateStream evaluates the piecewise-linear fit of each numeric column
// at the grid offsets xs (nanoseconds relative to origin).
func interpolateStream(s *SensorStream, grid []int64, xs []float64, origin int64) (*SensorStream, error) {
	l, h, _ := s.bounds()
	if grid[0] < l || grid[len(grid)-1] > h {
		return nil, fmt.Errorf("%w: %s covers [%d, %d], grid [%d, %d]",
			ErrInterpolationDomain, s.sensor, l, h, grid[0], grid[len(grid)-1])
	}

	// Fit needs strictly increasing abscissae: order by time and keep the
	// first sample of any repeated timestamp.
	order := make([]int, len(s.time))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s.time[order[a]] < s.time[order[b]] })
	keep := make([]int, 0, len(order))
	for _, i := range order {
		if len(keep) > 0 && s.time[keep[len(keep)-1]] == s.time[i] {
			continue
		}
		keep = append(keep, i)
	}
	fx := make([]float64, len(keep))
	for k, i := range keep {
		fx[k] = float64(s.time[i] - origin)
	}

	var cols []Column
	fy := make([]float64, len(keep))
	for _, c := range s.columns {
		if c.Kind != Numeric {
			continue
		}
		for k, i := range keep {
			fy[k] = c.Values[i]
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(fx, fy); err != nil {
			return nil, fmt.Errorf("interpolate %s.%s: %w", s.sensor, c.Name, err)
		}
		vals := make([]float64, len(xs))
		for k, x := range xs {
			vals[k] = pl.Predict(x)
		}
		cols = append(cols, Column{Name: c.Name, Kind: Numeric, Values: vals})
	}

	return &SensorStream{
		path:     s.path,
		key:      s.key,
		sensor:   s.sensor,
		header:   s.header.Clone(),
		encoding: s.encoding,
		time:     append([]int64(nil), grid...),
		columns:  cols,
	}, nil
}

// Interpolated returns copies of the streams produced by the last
// Interpolate, or an empty map.
func (t *Trial) Interpolated() map[SensorType]*SensorStream {
	out := make(map[SensorType]*SensorStream, len(t.interpolated))
	for st, s := range t.interpolated {
		out[st] = s.Clone()
	}
	return out
}

// Grid returns a copy of the shared grid and its step, or nil and 0 before
// Interpolate.
func (t *Trial) Grid() ([]int64, int64) {
	return append([]int64(nil), t.grid...), t.stepNs
}

// Spectrum computes the DFT of every numeric column of every interpolated
// stream. Frequencies are in Hz for a sample spacing of one grid step.
func (t *Trial) Spectrum() (map[SensorType]Spectrum, error) {
	if len(t.interpolated) == 0 {
		return nil, ErrNotInterpolated
	}
	spacing := float64(t.stepNs) / 1e9

	out := make(map[SensorType]Spectrum, len(t.interpolated))
	for st, s := range t.interpolated {
		n := s.Len()
		fft := fourier.NewCmplxFFT(n)
		freqs := make([]float64, n)
		for i := range freqs {
			freqs[i] = fft.Freq(i) / spacing
		}

		var sp Spectrum
		seq := make([]complex128, n)
		for _, c := range s.columns {
			for i, v := range c.Values {
				seq[i] = complex(v, 0)
			}
			sp.Columns = append(sp.Columns, c.Name)
			sp.Freqs = append(sp.Freqs, append([]float64(nil), freqs...))
			sp.Coeffs = append(sp.Coeffs, fft.Coefficients(nil, seq))
		}
		out[st] = sp
	}
	t.spectra = out
	return t.Spectra(), nil
}

// Spectra returns copies of the spectra from the last Spectrum call.
func (t *Trial) Spectra() map[SensorType]Spectrum {
	out := make(map[SensorType]Spectrum, len(t.spectra))
	for st, sp := range t.spectra {
		out[st] = sp.clone()
	}
	return out
}
