// Package benchmark times the pipeline stages over fixed scenes.
package benchmark

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/corners"
	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/MeKo-Tech/floorpose/internal/testutil"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64 `json:"alloc_bytes" yaml:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes" yaml:"total_alloc_bytes"`
	Mallocs         uint64 `json:"mallocs" yaml:"mallocs"`
	NumGC           uint32 `json:"num_gc" yaml:"num_gc"`
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		Mallocs:         m.Mallocs,
		NumGC:           m.NumGC,
	}
}

// Result holds the outcome of one benchmark.
type Result struct {
	Name          string        `json:"name" yaml:"name"`
	Iterations    int           `json:"iterations" yaml:"iterations"`
	Total         time.Duration `json:"-" yaml:"-"`
	NsPerOp       int64         `json:"ns_per_op" yaml:"ns_per_op"`
	BytesPerOp    uint64        `json:"bytes_per_op" yaml:"bytes_per_op"`
	AllocsPerOp   uint64        `json:"allocs_per_op" yaml:"allocs_per_op"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	memoryBefore  MemoryStats
	memoryAfter   MemoryStats
	completedRuns int
}

func (r Result) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s: ERROR - %s", r.Name, r.Error)
	}
	return fmt.Sprintf("%-28s %8d iterations %12d ns/op %10d B/op %8d allocs/op",
		r.Name, r.Iterations, r.NsPerOp, r.BytesPerOp, r.AllocsPerOp)
}

// Benchmark is a named function run once per iteration.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Names lists the registered benchmarks in order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.benchmarks))
	for i, b := range s.benchmarks {
		names[i] = b.Name
	}
	return names
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return runBenchmark(b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Sprintf("benchmark '%s' not found", name)}
}

// RunAll runs all benchmarks in the suite.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, runBenchmark(b, iterations))
	}
	return s.results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// WriteResults prints one line per result.
func (s *Suite) WriteResults(w io.Writer) {
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func runBenchmark(b Benchmark, iterations int) Result {
	if iterations < 1 {
		iterations = 1
	}

	// Force garbage collection before measuring
	runtime.GC()
	res := Result{Name: b.Name, memoryBefore: GetMemoryStats()}

	timer := NewTimer(b.Name)
	for range iterations {
		if err := b.Func(); err != nil {
			res.Error = err.Error()
			break
		}
		res.completedRuns++
	}
	res.Total = timer.Stop()
	res.memoryAfter = GetMemoryStats()

	res.Iterations = res.completedRuns
	if n := res.completedRuns; n > 0 {
		res.NsPerOp = res.Total.Nanoseconds() / int64(n)
		res.BytesPerOp = (res.memoryAfter.TotalAllocBytes - res.memoryBefore.TotalAllocBytes) / uint64(n)
		res.AllocsPerOp = (res.memoryAfter.Mallocs - res.memoryBefore.Mallocs) / uint64(n)
	}
	return res
}

// PipelineSuite registers corner selection, rectification, pose and warp
// benchmarks for scene.
func PipelineSuite(scene testutil.Scene) *Suite {
	req := estimate.Request{ImageWidth: scene.Width, ImageHeight: scene.Height, Points: scene.Points}
	s := NewSuite()

	s.Add(scene.Name+"/corners", func() error {
		_, err := corners.Select(scene.Points)
		return err
	})
	s.Add(scene.Name+"/rectification", func() error {
		_, err := estimate.ComputeRectification(req)
		return err
	})
	s.Add(scene.Name+"/pose", func() error {
		_, err := estimate.ComputePose(req)
		return err
	})

	img := testutil.CheckerImage(scene.Width, scene.Height, 16)
	var (
		once    sync.Once
		rect    *estimate.Rectification
		rectErr error
	)
	s.Add(scene.Name+"/warp", func() error {
		once.Do(func() { rect, rectErr = estimate.ComputeRectification(req) })
		if rectErr != nil {
			return rectErr
		}
		_, err := raster.Warp(img, rect.Forward, rect.RectSize, raster.DefaultMaxPixels)
		return err
	})
	s.Add(scene.Name+"/overlay", func() error {
		raster.DrawOverlay(img, scene.Points, raster.DefaultOverlayColor, 3)
		return nil
	})
	return s
}

// Scenes returns the built-in benchmark scenes by name.
func Scenes() map[string]testutil.Scene {
	return map[string]testutil.Scene{
		"square": testutil.SquareScene(),
		"floor":  testutil.FloorScene(),
	}
}
