package gosensorcore

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uptimeHeader(ns int64) Header {
	return Header{HeaderUptimeKey: {Text: fmt.Sprint(ns), Int: ns, IsInt: true}}
}

func newTestStream(t *testing.T, st SensorType, times []int64, values []float64) *SensorStream {
	t.Helper()
	s, err := NewSensorStream(st, uptimeHeader(1000), EncodingUptime, times,
		[]Column{{Name: "X", Kind: Numeric, Values: values}})
	require.NoError(t, err)
	return s
}

func quietTrial(t *testing.T) *Trial {
	t.Helper()
	prev := Logf
	SetLogger(nil)
	t.Cleanup(func() { Logf = prev })
	return NewTrial(TrialOptions{Workers: 2, Exclude: []SensorType{WiFi}})
}

func TestTrialInterpolate(t *testing.T) {
	tr := quietTrial(t)
	// acc: x = t/10 over [0, 100]; gyro: x = t-20 over [20, 120].
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 50, 100}, []float64{0, 5, 10})))
	require.NoError(t, tr.Add(newTestStream(t, Gyroscope, []int64{20, 120}, []float64{0, 100})))

	out, err := tr.Interpolate(10)
	require.NoError(t, err)

	wantGrid := []int64{20, 30, 40, 50, 60, 70, 80, 90, 100}
	grid, step := tr.Grid()
	assert.Equal(t, int64(10), step)
	if diff := cmp.Diff(wantGrid, grid); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, out, 2)
	acc := out[Accelerometer]
	gyro := out[Gyroscope]
	assert.Equal(t, wantGrid, acc.Time())
	assert.Equal(t, wantGrid, gyro.Time())

	ax, _ := acc.Column("X")
	gx, _ := gyro.Column("X")
	for i, g := range wantGrid {
		assert.InDelta(t, float64(g)/10, ax.Values[i], 1e-9, "acc at %d", g)
		assert.InDelta(t, float64(g-20), gx.Values[i], 1e-9, "gyro at %d", g)
	}
}

func TestTrialInterpolate_UnalignedEnd(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 95}, []float64{0, 95})))

	_, err := tr.Interpolate(10)
	require.NoError(t, err)
	grid, _ := tr.Grid()
	assert.Equal(t, int64(0), grid[0])
	assert.Equal(t, int64(90), grid[len(grid)-1])
	assert.Len(t, grid, 10)
}

func TestTrialInterpolate_DuplicateTimestamps(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Pressure, []int64{0, 0, 10, 20}, []float64{1, 2, 3, 5})))

	out, err := tr.Interpolate(5)
	require.NoError(t, err)
	p, _ := out[Pressure].Column("X")
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 5}, p.Values, 1e-9)
}

func TestTrialInterpolate_ExcludesWiFi(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 100}, []float64{0, 1})))
	require.NoError(t, tr.Add(newTestStream(t, WiFi, []int64{40, 60}, []float64{-40, -50})))

	out, err := tr.Interpolate(10)
	require.NoError(t, err)
	assert.Contains(t, out, Accelerometer)
	assert.NotContains(t, out, WiFi)

	// The scans still bound the common window.
	grid, _ := tr.Grid()
	assert.Equal(t, []int64{40, 50, 60}, grid)
	acc, _ := out[Accelerometer].Column("X")
	assert.InDeltaSlice(t, []float64{0.4, 0.5, 0.6}, acc.Values, 1e-9)

	lo, hi, err := tr.Window()
	require.NoError(t, err)
	assert.Equal(t, int64(40), lo)
	assert.Equal(t, int64(60), hi)
}

func TestTrialInterpolate_Errors(t *testing.T) {
	t.Run("no overlap", func(t *testing.T) {
		tr := quietTrial(t)
		require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 10}, []float64{0, 1})))
		require.NoError(t, tr.Add(newTestStream(t, Gyroscope, []int64{20, 30}, []float64{0, 1})))
		_, err := tr.Interpolate(1)
		assert.ErrorIs(t, err, ErrInsufficientOverlap)
	})

	t.Run("all empty", func(t *testing.T) {
		tr := quietTrial(t)
		require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{}, []float64{})))
		_, err := tr.Interpolate(1)
		assert.ErrorIs(t, err, ErrInsufficientOverlap)
	})

	t.Run("no streams", func(t *testing.T) {
		_, err := quietTrial(t).Interpolate(1)
		assert.ErrorIs(t, err, ErrNoStreams)
	})

	t.Run("bad step", func(t *testing.T) {
		tr := quietTrial(t)
		require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 10}, []float64{0, 1})))
		_, err := tr.Interpolate(0)
		assert.Error(t, err)
	})
}

func TestTrialIntervalSummary(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Step, []int64{0, 0, 5, 10}, []float64{1, 1, 2, 3})))
	require.NoError(t, tr.Add(newTestStream(t, Pressure, []int64{7}, []float64{1013})))

	gaps := tr.IntervalSummary()
	s := gaps[Step]
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 0.0, s.Std)
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 5.0, s.Max)

	assert.True(t, gaps[Pressure].Empty())
}

func TestTrialTimeRangeSummary(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{10, 20, 30}, []float64{0, 0, 0})))

	ranges, err := tr.TimeRangeSummary()
	require.NoError(t, err)
	assert.Equal(t, 3, ranges[Accelerometer].Count)
	assert.Equal(t, 10.0, ranges[Accelerometer].Min)
	assert.Equal(t, 20.0, ranges[Accelerometer].Mean)
	assert.Equal(t, 30.0, ranges[Accelerometer].Max)
}

func TestTrialTimeRangeSummary_ClockMismatch(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0, 10}, []float64{0, 1})))
	other, err := NewSensorStream(Gyroscope, uptimeHeader(2000), EncodingUptime, []int64{0, 10},
		[]Column{{Name: "X", Kind: Numeric, Values: []float64{0, 1}}})
	require.NoError(t, err)
	require.NoError(t, tr.Add(other))

	_, err = tr.TimeRangeSummary()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClockMismatch))

	var cm *ClockMismatchError
	require.True(t, errors.As(err, &cm))
	assert.Equal(t, map[SensorType]int64{Accelerometer: 1000, Gyroscope: 2000}, cm.Starts)
	assert.Contains(t, err.Error(), "ACCELEROMETER=1000, GYROSCOPE=2000")
}

func TestTrialAdd_Duplicate(t *testing.T) {
	tr := quietTrial(t)
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, []int64{0}, []float64{0})))
	err := tr.Add(newTestStream(t, Accelerometer, []int64{1}, []float64{1}))
	assert.ErrorIs(t, err, ErrDuplicateSensor)
	assert.Equal(t, 1, tr.Len())
}

func TestTrialSpectrum(t *testing.T) {
	tr := quietTrial(t)

	_, err := tr.Spectrum()
	assert.ErrorIs(t, err, ErrNotInterpolated)

	// 5 Hz sine plus offset 3, sampled at 100 Hz for one second.
	const n = 100
	step := int64(10_000_000)
	times := make([]int64, n)
	values := make([]float64, n)
	for i := range times {
		times[i] = int64(i) * step
		values[i] = 3 + math.Sin(2*math.Pi*5*float64(i)/n)
	}
	require.NoError(t, tr.Add(newTestStream(t, Accelerometer, times, values)))

	_, err = tr.Interpolate(step)
	require.NoError(t, err)
	spectra, err := tr.Spectrum()
	require.NoError(t, err)

	sp := spectra[Accelerometer]
	require.Equal(t, []string{"X"}, sp.Columns)
	freqs, coeffs := sp.Freqs[0], sp.Coeffs[0]
	require.Len(t, coeffs, n)

	assert.Equal(t, 0.0, freqs[0])
	assert.InDelta(t, 5.0, freqs[5], 1e-9)
	assert.InDelta(t, 3*n, real(coeffs[0]), 1e-6)
	assert.InDelta(t, n/2, cmplx.Abs(coeffs[5]), 1e-6)
	assert.InDelta(t, 0, cmplx.Abs(coeffs[7]), 1e-6)

	// A new interpolation discards the cached spectrum.
	_, err = tr.Interpolate(step)
	require.NoError(t, err)
	assert.Empty(t, tr.Spectra())
}

func TestTrialLoad(t *testing.T) {
	dir := t.TempDir()
	writeSensorFile(t, dir, "acc.txt", uptimeRows(11, 3)...)
	writeSensorFile(t, dir, "gyro.txt", calendarRows(11, 3)...)
	writeSensorFile(t, dir, "wifi.txt",
		fmt.Sprintf("%d\taa:bb\t-40\t1\thome", testUptimeNs),
		fmt.Sprintf("%d\taa:bb\t-42\t1\thome", testUptimeNs+100_000_000))
	writeSensorFile(t, dir, "notes.txt", "not a sensor")
	writeSensorFile(t, dir, "acc.csv", "ignored")
	writeSensorFile(t, dir, "rv.txt", "999999999999\t1\t2\t3\t4\t5")

	tr := quietTrial(t)
	require.NoError(t, tr.Load(dir, ""))

	assert.Equal(t, dir, tr.Dir())
	assert.Equal(t, []SensorType{Accelerometer, Gyroscope, RotationVector, WiFi}, tr.SensorTypes())
	require.Len(t, tr.Warnings(), 1)
	assert.ErrorIs(t, tr.Warnings()[0], ErrAmbiguousEncoding)

	acc, ok := tr.Stream(Accelerometer)
	require.True(t, ok)
	gyro, _ := tr.Stream(Gyroscope)
	assert.Equal(t, acc.Time(), gyro.Time())

	_, err := tr.TimeRangeSummary()
	require.NoError(t, err)

	out, err := tr.Interpolate(10_000_000)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	grid, _ := tr.Grid()
	assert.Len(t, grid, 11)
	assert.Equal(t, testUptimeNs, grid[0])
}

func TestTrialLoad_Errors(t *testing.T) {
	t.Run("duplicate sensor", func(t *testing.T) {
		dir := t.TempDir()
		writeSensorFile(t, dir, "gps.txt", fmt.Sprintf("%d\t52.1\t21.0", testUptimeNs))
		writeSensorFile(t, dir, "gps_2.txt", fmt.Sprintf("%d\t52.1\t21.0\t3", testUptimeNs))

		tr := quietTrial(t)
		err := tr.Load(dir, "txt")
		assert.ErrorIs(t, err, ErrDuplicateSensor)
		assert.Equal(t, 0, tr.Len())
	})

	t.Run("empty directory", func(t *testing.T) {
		err := quietTrial(t).Load(t.TempDir(), "txt")
		assert.ErrorIs(t, err, ErrNoStreams)
	})

	t.Run("bad file", func(t *testing.T) {
		dir := t.TempDir()
		writeSensorFile(t, dir, "acc.txt", "1\t2")
		err := quietTrial(t).Load(dir, ".txt")
		assert.ErrorIs(t, err, ErrMalformedRow)
	})

	t.Run("missing directory", func(t *testing.T) {
		err := quietTrial(t).Load("/nonexistent/trial", "txt")
		assert.Error(t, err)
	})
}
