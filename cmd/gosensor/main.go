package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kacperjurak/gosensorcore"
	"github.com/kacperjurak/gosensorcore/internal/processing"
	"github.com/kacperjurak/gosensorcore/pkg/config"
	"github.com/kacperjurak/gosensorcore/pkg/profiling"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("❌ ", err)
	}

	if cfg.Quiet {
		gosensorcore.SetLogger(nil)
	}

	profiler := profiling.New(cfg.CPUProfile)
	if err := profiler.Start(); err != nil {
		log.Fatal("❌ Failed to start profiler: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	setupGracefulShutdown(cancel)

	report, err := processing.NewTrialProcessor().Process(ctx, cfg)
	if stopErr := profiler.Stop(); stopErr != nil {
		log.Printf("Error stopping profiler: %v", stopErr)
	}
	if err != nil {
		log.Fatal("❌ Trial failed: ", err)
	}

	if cfg.Benchmark {
		profiling.LogMemoryStats()
		profiling.LogGCStats()
	}

	if err := writeReport(os.Stdout, report); err != nil {
		log.Fatal("❌ Failed to write report: ", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// A -config file is applied first; flags given explicitly override it.
func parseFlags(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	fs := flag.NewFlagSet("gosensor", flag.ContinueOnError)

	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Trial directory with sensor log files")
	fs.StringVar(&cfg.Extension, "ext", cfg.Extension, "Sensor file extension")
	fs.Int64Var(&cfg.GridStepNs, "step", cfg.GridStepNs, "Interpolation grid step (ns)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent file readers")
	exclude := config.SensorList{}
	fs.Var(&exclude, "exclude", "Sensors left out of interpolation (repeatable, comma-separated; default wifi)")
	fs.BoolVar(&cfg.Spectrum, "spectrum", cfg.Spectrum, "Compute spectra of interpolated streams")
	fs.Float64Var(&cfg.LowPassHz, "lowpass", cfg.LowPassHz, "Low-pass cutoff (Hz, 0 disables)")
	fs.Float64Var(&cfg.HighPassHz, "highpass", cfg.HighPassHz, "High-pass cutoff (Hz, 0 disables)")
	fs.StringVar(&cfg.Integrate, "integrate", cfg.Integrate, "Riemann integration method (trapezoidal, midpoint, left, right, upper, lower)")
	fs.IntVar(&cfg.Delta, "delta", cfg.Delta, "Integration window width")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "JSON tuning file")
	fs.BoolVar(&cfg.Quiet, "q", cfg.Quiet, "Quiet mode")
	fs.BoolVar(&cfg.Benchmark, "benchmark", cfg.Benchmark, "Log per-stage timings and memory")
	fs.StringVar(&cfg.CPUProfile, "cpuprofile", cfg.CPUProfile, "Write CPU profile to file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Dir == "" && fs.NArg() > 0 {
		cfg.Dir = fs.Arg(0)
	}

	if cfg.ConfigFile != "" {
		fc, err := config.LoadTuningFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

		flagged := *cfg
		fc.ApplyTo(cfg)
		restoreFlagged(cfg, &flagged, set)
	}
	if len(exclude) > 0 {
		cfg.ExcludeSensors = exclude
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// restoreFlagged copies back the fields whose flags were set explicitly.
func restoreFlagged(cfg, flagged *config.Config, set map[string]bool) {
	if set["ext"] {
		cfg.Extension = flagged.Extension
	}
	if set["step"] {
		cfg.GridStepNs = flagged.GridStepNs
	}
	if set["workers"] {
		cfg.Workers = flagged.Workers
	}
	if set["spectrum"] {
		cfg.Spectrum = flagged.Spectrum
	}
	if set["lowpass"] {
		cfg.LowPassHz = flagged.LowPassHz
	}
	if set["highpass"] {
		cfg.HighPassHz = flagged.HighPassHz
	}
	if set["integrate"] {
		cfg.Integrate = flagged.Integrate
	}
	if set["delta"] {
		cfg.Delta = flagged.Delta
	}
}

func writeReport(w io.Writer, report interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// setupGracefulShutdown cancels the run on SIGINT/SIGTERM; the pipeline
// stops before its next stage.
func setupGracefulShutdown(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 Received shutdown signal...")
		cancel()
	}()
}
