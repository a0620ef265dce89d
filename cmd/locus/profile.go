package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
)

// profiler records a CPU profile for the whole run and a heap profile at
// exit, as <prefix>.cpu.pprof and <prefix>.mem.pprof.
type profiler struct {
	prefix string
	cpu    *os.File
}

func startProfiler(prefix string) (*profiler, error) {
	f, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}
	return &profiler{prefix: prefix, cpu: f}, nil
}

func (p *profiler) stop(w io.Writer) error {
	pprof.StopCPUProfile()
	if err := p.cpu.Close(); err != nil {
		return fmt.Errorf("failed to close CPU profile: %w", err)
	}

	heap, err := os.Create(p.prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer heap.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(heap); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	fmt.Fprintln(w, color.GreenString("Profiles written to %s.cpu.pprof and %s.mem.pprof", p.prefix, p.prefix))
	return nil
}
