package processing

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gosensorcore"
	"github.com/kacperjurak/gosensorcore/pkg/config"
)

const (
	calendarMs = int64(1600000000000)
	uptimeNs   = int64(123456789012345)
	stepNs     = int64(10_000_000)
)

// writeTrial writes a one-second, 100 Hz accelerometer log carrying a 5 Hz
// sine on X and a gyroscope log on the calendar clock.
func writeTrial(t *testing.T, gyroUptime int64) string {
	t.Helper()
	dir := t.TempDir()

	var acc, gyro strings.Builder
	fmt.Fprintf(&acc, "# currentTimeMillis: %d\n# elapsedRealtimeNanos: %d\n", calendarMs, uptimeNs)
	fmt.Fprintf(&gyro, "# currentTimeMillis: %d\n# elapsedRealtimeNanos: %d\n", calendarMs, gyroUptime)
	for i := 0; i < 100; i++ {
		x := math.Sin(2 * math.Pi * 5 * float64(i) / 100)
		fmt.Fprintf(&acc, "%d\t%g\t0\t9.81\n", uptimeNs+int64(i)*stepNs, x)
		fmt.Fprintf(&gyro, "%d\t1\t1\t1\n", calendarMs+int64(i)*10)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acc.txt"), []byte(acc.String()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gyro.txt"), []byte(gyro.String()), 0644))
	return dir
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Dir = dir
	cfg.Quiet = true
	cfg.GridStepNs = stepNs
	return cfg
}

func TestProcess(t *testing.T) {
	gosensorcore.SetLogger(nil)
	cfg := testConfig(writeTrial(t, uptimeNs))
	cfg.LowPassHz = 1
	cfg.Integrate = "trapezoidal"

	report, err := NewTrialProcessor().Process(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, cfg.Dir, report.Dir)
	assert.Equal(t, stepNs, report.GridStepNs)
	assert.Equal(t, uptimeNs, report.GridStart)
	assert.Equal(t, 100, report.GridPoints)

	require.Len(t, report.Streams, 2)
	acc := report.Streams[0]
	assert.Equal(t, "ACCELEROMETER", acc.Sensor)
	assert.Equal(t, "elapsedRealtimeNanos", acc.Encoding)
	assert.Equal(t, 100, acc.Samples)
	assert.True(t, acc.Interpolated)
	require.NotNil(t, acc.Intervals.Mean)
	assert.InDelta(t, float64(stepNs), *acc.Intervals.Mean, 1e-6)
	assert.Equal(t, "currentTimeMillis", report.Streams[1].Encoding)

	spectra := report.Spectra["ACCELEROMETER"]
	require.Len(t, spectra, 3)
	assert.Equal(t, "X", spectra[0].Column)
	assert.InDelta(t, 5.0, spectra[0].PeakHz, 1e-9)

	var stages []string
	for _, tm := range report.Timings {
		stages = append(stages, tm.Stage)
	}
	assert.Equal(t, []string{StageLoad, StageTimeRange, StageIntervals, StageInterpolate, StageSpectrum, StageFilters}, stages)

	var lowpass, integral int
	for _, f := range report.Filters {
		switch f.Stage {
		case "lowpass":
			lowpass++
		case "integral_trapezoidal":
			integral++
			if f.Sensor == "ACCELEROMETER" && f.Column == "Z" {
				// 9.81 integrated over 99 steps of 10ms.
				require.NotNil(t, f.Final)
				assert.InDelta(t, 9.81*0.99, *f.Final, 1e-9)
			}
		}
	}
	assert.Equal(t, 6, lowpass)
	assert.Equal(t, 6, integral)
}

func TestProcess_ClockMismatchIsFatal(t *testing.T) {
	gosensorcore.SetLogger(nil)
	cfg := testConfig(writeTrial(t, uptimeNs+1))

	_, err := NewTrialProcessor().Process(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, gosensorcore.ErrClockMismatch)
	assert.Contains(t, err.Error(), StageTimeRange)
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrialProcessor().Process(ctx, testConfig(writeTrial(t, uptimeNs)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_BadConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.ExcludeSensors = config.SensorList{"thermometer"}
	_, err := NewTrialProcessor().Process(context.Background(), cfg)
	assert.ErrorIs(t, err, gosensorcore.ErrUnknownSensor)

	cfg = testConfig("")
	_, err = NewTrialProcessor().Process(context.Background(), cfg)
	assert.Error(t, err)
}

func TestPeak(t *testing.T) {
	freqs := []float64{0, 1, 2, -2, -1}
	coeffs := []complex128{100, 1, 5i, 5i, 1}
	p := peak("X", freqs, coeffs)
	assert.Equal(t, 5, p.Bins)
	assert.Equal(t, 2.0, p.PeakHz)
	assert.InDelta(t, 1.0, p.PeakPower, 1e-12)
}
