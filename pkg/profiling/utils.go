package profiling

import (
	"log"
	"runtime"
	"time"
)

// StageProfiler measures one pipeline stage
type StageProfiler struct {
	startTime   time.Time
	startMemory uint64
	trialID     string
	stage       string
}

// StageMetrics holds profiling metrics for a stage
type StageMetrics struct {
	Stage       string
	Duration    time.Duration
	MemoryDelta int64
	FinalMemory uint64
	Goroutines  int
}

// NewStageProfiler creates a new stage profiler
func NewStageProfiler(trialID, stage string) *StageProfiler {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &StageProfiler{
		startTime:   time.Now(),
		startMemory: m.Alloc,
		trialID:     trialID,
		stage:       stage,
	}
}

// Finish completes stage profiling and returns metrics
func (sp *StageProfiler) Finish() StageMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return StageMetrics{
		Stage:       sp.stage,
		Duration:    time.Since(sp.startTime),
		MemoryDelta: int64(m.Alloc) - int64(sp.startMemory),
		FinalMemory: m.Alloc,
		Goroutines:  runtime.NumGoroutine(),
	}
}

// Log writes metrics in the same format ProfileFunc uses
func (m StageMetrics) Log(trialID string) {
	log.Printf("⚡ Trial[%s] %s: %.3fms, memory: %+d bytes, goroutines: %d",
		trialID, m.Stage, float64(m.Duration.Nanoseconds())/1000000.0, m.MemoryDelta, m.Goroutines)
}

// ProfileFunc profiles a function execution and returns its error and metrics
func ProfileFunc(trialID, stage string, quiet bool, fn func() error) (StageMetrics, error) {
	profiler := NewStageProfiler(trialID, stage)
	err := fn()
	metrics := profiler.Finish()
	if !quiet {
		metrics.Log(trialID)
	}
	return metrics, err
}

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC        uint32
	PauseTotal   time.Duration
	PauseRecent  time.Duration
	LastGC       time.Time
	GCCPUPercent float64
}

// GetGCStats returns current garbage collection statistics
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var recentPause time.Duration
	if m.NumGC > 0 {
		recentPause = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}

	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recentPause,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		GCCPUPercent: m.GCCPUFraction * 100,
	}
}

// LogGCStats logs garbage collection statistics
func LogGCStats() {
	stats := GetGCStats()
	log.Printf("🗑️  GC: Runs=%d, TotalPause=%.2fms, RecentPause=%.2fμs, CPU=%.2f%%",
		stats.NumGC,
		float64(stats.PauseTotal.Nanoseconds())/1000000.0,
		float64(stats.PauseRecent.Nanoseconds())/1000.0,
		stats.GCCPUPercent)
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
