package processing

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kacperjurak/gosensorcore"
	"github.com/kacperjurak/gosensorcore/pkg/config"
	"github.com/kacperjurak/gosensorcore/pkg/filters"
	"github.com/kacperjurak/gosensorcore/pkg/models"
	"github.com/kacperjurak/gosensorcore/pkg/profiling"
)

// Pipeline stage names, in execution order.
const (
	StageLoad        = "load"
	StageTimeRange   = "time_range"
	StageIntervals   = "intervals"
	StageInterpolate = "interpolate"
	StageSpectrum    = "spectrum"
	StageFilters     = "filters"
)

// TrialProcessor runs the alignment pipeline over one trial directory
type TrialProcessor struct{}

// NewTrialProcessor creates a new trial processor
func NewTrialProcessor() *TrialProcessor {
	return &TrialProcessor{}
}

// run is the state shared by the stages of one Process call
type run struct {
	cfg     *config.Config
	trial   *gosensorcore.Trial
	report  models.TrialReport
	ranges  map[gosensorcore.SensorType]gosensorcore.Summary
	gaps    map[gosensorcore.SensorType]gosensorcore.Summary
	aligned map[gosensorcore.SensorType]*gosensorcore.SensorStream
}

// Process loads cfg.Dir and runs every enabled stage, returning the report.
// ctx is checked between stages.
func (p *TrialProcessor) Process(ctx context.Context, cfg *config.Config) (models.TrialReport, error) {
	if err := cfg.Validate(); err != nil {
		return models.TrialReport{}, fmt.Errorf("invalid config: %w", err)
	}

	exclude := make([]gosensorcore.SensorType, 0, len(cfg.ExcludeSensors))
	for _, name := range cfg.ExcludeSensors {
		st, ok := gosensorcore.ParseSensorType(name)
		if !ok {
			return models.TrialReport{}, fmt.Errorf("exclude: %w: %q", gosensorcore.ErrUnknownSensor, name)
		}
		exclude = append(exclude, st)
	}

	r := &run{
		cfg:   cfg,
		trial: gosensorcore.NewTrial(gosensorcore.TrialOptions{Workers: cfg.Workers, Exclude: exclude}),
	}
	r.report = models.TrialReport{
		ID:         r.trial.ID(),
		Dir:        cfg.Dir,
		Time:       time.Now().UTC().Format(time.RFC3339),
		GridStepNs: cfg.GridStepNs,
	}

	if !cfg.Quiet {
		log.Printf("🚀 Trial[%s] processing %s (step %dns, %d workers)", r.trial.ID(), cfg.Dir, cfg.GridStepNs, cfg.Workers)
	}

	stages := []struct {
		name    string
		enabled bool
		fn      func() error
	}{
		{StageLoad, true, r.load},
		{StageTimeRange, true, r.timeRange},
		{StageIntervals, true, r.intervals},
		{StageInterpolate, true, r.interpolate},
		{StageSpectrum, cfg.Spectrum, r.spectrum},
		{StageFilters, cfg.LowPassHz > 0 || cfg.HighPassHz > 0 || cfg.Integrate != "", r.filter},
	}
	for _, st := range stages {
		if !st.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return models.TrialReport{}, fmt.Errorf("trial %s stopped before %s: %w", r.trial.ID(), st.name, err)
		}
		metrics, err := profiling.ProfileFunc(r.trial.ID(), st.name, !cfg.Benchmark, st.fn)
		if err != nil {
			return models.TrialReport{}, fmt.Errorf("%s: %w", st.name, err)
		}
		r.report.Timings = append(r.report.Timings, models.StageTiming{
			Stage:          st.name,
			ProcessingTime: metrics.Duration,
			MemoryDelta:    metrics.MemoryDelta,
		})
	}

	r.report.Streams = r.streamReports()
	for _, w := range r.trial.Warnings() {
		r.report.Warnings = append(r.report.Warnings, w.Error())
	}

	if !cfg.Quiet {
		log.Printf("✅ Trial[%s] done: %d streams, %d grid points, %d warnings",
			r.trial.ID(), len(r.report.Streams), r.report.GridPoints, len(r.report.Warnings))
	}
	return r.report, nil
}

func (r *run) load() error {
	return r.trial.Load(r.cfg.Dir, r.cfg.Extension)
}

func (r *run) timeRange() error {
	ranges, err := r.trial.TimeRangeSummary()
	if err != nil {
		return err
	}
	r.ranges = ranges
	return nil
}

func (r *run) intervals() error {
	r.gaps = r.trial.IntervalSummary()
	return nil
}

func (r *run) interpolate() error {
	aligned, err := r.trial.Interpolate(r.cfg.GridStepNs)
	if err != nil {
		return err
	}
	r.aligned = aligned
	grid, _ := r.trial.Grid()
	r.report.GridPoints = len(grid)
	if len(grid) > 0 {
		r.report.GridStart = grid[0]
	}
	return nil
}

func (r *run) spectrum() error {
	spectra, err := r.trial.Spectrum()
	if err != nil {
		return err
	}
	r.report.Spectra = make(map[string][]models.ColumnSpectrum, len(spectra))
	for st, sp := range spectra {
		var cols []models.ColumnSpectrum
		for i, name := range sp.Columns {
			cols = append(cols, peak(name, sp.Freqs[i], sp.Coeffs[i]))
		}
		r.report.Spectra[string(st)] = cols
	}
	return nil
}

// peak finds the strongest positive-frequency bin. Power is |X|²/n².
func peak(column string, freqs []float64, coeffs []complex128) models.ColumnSpectrum {
	out := models.ColumnSpectrum{Column: column, Bins: len(coeffs)}
	n := float64(len(coeffs))
	best := -1.0
	for i, c := range coeffs {
		if freqs[i] <= 0 {
			continue
		}
		power := math.Pow(cmplx.Abs(c), 2) / (n * n)
		if power > best {
			best = power
			out.PeakHz = freqs[i]
			out.PeakPower = power
		}
	}
	return out
}

// filter runs the requested filters and the integrator over every column on
// the grid. Cutoffs in Hz become per-sample cutoffs for the grid step.
func (r *run) filter() error {
	dt := float64(r.cfg.GridStepNs) / 1e9

	var method filters.Method
	if r.cfg.Integrate != "" {
		m, err := filters.ParseMethod(r.cfg.Integrate)
		if err != nil {
			return err
		}
		method = m
	}

	for _, st := range gosensorcore.SortedSensorTypes(r.aligned) {
		s := r.aligned[st]
		cols := s.Columns()
		if len(cols) == 0 || s.Len() == 0 {
			continue
		}

		if r.cfg.LowPassHz > 0 {
			lp := filters.NewLowPass(r.cfg.LowPassHz * dt)
			for _, c := range cols {
				r.addFilter(st, c.Name, "lowpass", lp.Apply(c.Values))
			}
		}
		if r.cfg.HighPassHz > 0 {
			hp := filters.NewHighPass(r.cfg.HighPassHz * dt)
			for _, c := range cols {
				r.addFilter(st, c.Name, "highpass", hp.Apply(c.Values))
			}
		}
		if method != "" {
			x := mat.NewDense(s.Len(), len(cols), nil)
			for j, c := range cols {
				x.SetCol(j, c.Values)
			}
			integral, err := filters.NewIntegralRiemann().Integrate(x, []float64{dt}, r.cfg.Delta, method)
			if err != nil {
				return fmt.Errorf("%s: %w", st, err)
			}
			for j, c := range cols {
				r.addFilter(st, c.Name, "integral_"+string(method), mat.Col(nil, j, integral))
			}
		}
	}
	return nil
}

func (r *run) addFilter(st gosensorcore.SensorType, column, stage string, out []float64) {
	f := models.ColumnFilter{
		Sensor: string(st),
		Column: column,
		Stage:  stage,
		Output: toStats(gosensorcore.Describe(out)),
	}
	if len(out) > 0 {
		f.Final = finite(out[len(out)-1])
	}
	r.report.Filters = append(r.report.Filters, f)
}

func (r *run) streamReports() []models.StreamReport {
	var out []models.StreamReport
	for _, st := range r.trial.SensorTypes() {
		s, _ := r.trial.Stream(st)
		sr := models.StreamReport{
			Sensor:    string(st),
			Path:      s.Path(),
			Key:       s.Key(),
			Encoding:  s.Encoding().String(),
			Samples:   s.Len(),
			Columns:   s.ColumnNames(),
			TimeRange: toStats(r.ranges[st]),
			Intervals: toStats(r.gaps[st]),
		}
		if w := s.Warning(); w != nil {
			sr.Warning = w.Error()
		}
		_, sr.Interpolated = r.aligned[st]
		out = append(out, sr)
	}
	return out
}

// toStats converts a Summary for JSON; NaN becomes null.
func toStats(s gosensorcore.Summary) models.Stats {
	return models.Stats{
		Count: s.Count,
		Mean:  finite(s.Mean),
		Std:   finite(s.Std),
		Min:   finite(s.Min),
		Q25:   finite(s.Q25),
		Q50:   finite(s.Q50),
		Q75:   finite(s.Q75),
		Max:   finite(s.Max),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
