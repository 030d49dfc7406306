package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/benchmark"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the pipeline stages on built-in scenes",
	Long: `Time corner selection, rectification, pose, warp and overlay drawing on
built-in scenes and report ns/op, bytes/op and allocs/op.

Examples:
  floorpose bench
  floorpose bench --scene floor --iterations 500 --format json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringSlice("scene", nil, "scenes to run (default all)")
	benchCmd.Flags().IntP("iterations", "n", 100, "iterations per benchmark")
	benchCmd.Flags().StringP("format", "f", "", "output format: text, json, yaml (default from config)")
	benchCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}

func runBench(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", iterations)
	}

	available := benchmark.Scenes()
	names, _ := cmd.Flags().GetStringSlice("scene")
	if len(names) == 0 {
		for name := range available {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var results []benchmark.Result
	for _, name := range names {
		scene, ok := available[name]
		if !ok {
			return fmt.Errorf("unknown scene %q", name)
		}
		results = append(results, benchmark.PipelineSuite(scene).RunAll(iterations)...)
	}

	return writeResult(cmd, format, results, func(w io.Writer) {
		_, _ = fmt.Fprintln(w, strings.Repeat("=", 40))
		for _, r := range results {
			_, _ = fmt.Fprintln(w, r.String())
		}
	})
}
