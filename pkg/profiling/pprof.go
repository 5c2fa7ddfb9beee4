package profiling

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
)

// Profiler writes a CPU profile for one run of the pipeline
type Profiler struct {
	path string
	file *os.File
}

// New creates a new profiler writing to path. An empty path disables it.
func New(path string) *Profiler {
	return &Profiler{path: path}
}

// Enabled reports whether a profile file was requested
func (p *Profiler) Enabled() bool {
	return p.path != ""
}

// Start creates the profile file and begins CPU profiling
func (p *Profiler) Start() error {
	if !p.Enabled() {
		return nil
	}

	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("start cpu profile: %w", err)
	}
	p.file = f

	log.Printf("📊 Writing CPU profile to %s", p.path)
	return nil
}

// Stop ends CPU profiling and closes the file
func (p *Profiler) Stop() error {
	if p.file == nil {
		return nil
	}

	pprof.StopCPUProfile()
	err := p.file.Close()
	p.file = nil
	if err != nil {
		return fmt.Errorf("close cpu profile: %w", err)
	}

	log.Printf("✅ CPU profile written: go tool pprof %s", p.path)
	return nil
}

// LogMemoryStats logs current memory statistics
func LogMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.Printf("📊 Memory: Alloc=%.2fMB, TotalAlloc=%.2fMB, Sys=%.2fMB, GC=%d, Goroutines=%d",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC, runtime.NumGoroutine())
}
