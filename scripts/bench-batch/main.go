// bench-batch measures throughput and heap use of a dry-run batch over a
// directory of Python files at several worker counts.
//
// Usage:
//
//	go run ./scripts/bench-batch --dir ~/sources/django --recipe recipes/py3.yaml \
//	  --workers 1,4,8 --profile-dir docs/profiles/batch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/batch"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

var errWorkerCount = errors.New("invalid worker count")

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	numGC     uint32
}

type runResult struct {
	workers  int
	files    int
	changed  int
	failed   int
	bytesIn  uint64
	duration time.Duration
}

func main() {
	dir := flag.String("dir", "", "Directory of Python sources")
	recipePath := flag.String("recipe", "", "Recipe to apply (dry run)")
	workerList := flag.String("workers", "1,4", "Comma-separated worker counts to compare")
	rounds := flag.Int("rounds", 1, "Runs per worker count")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *dir == "" || *recipePath == "" {
		log.Fatal("--dir and --recipe are required")
	}

	if *cpuProfile && *profileDir == "" {
		log.Fatal("--cpu-profile needs --profile-dir")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	workers, err := parseWorkers(*workerList)
	if err != nil {
		log.Fatalf("--workers: %v", err)
	}

	rcp, err := recipe.Load(*recipePath)
	if err != nil {
		log.Fatalf("load recipe: %v", err)
	}

	ctx := context.Background()

	files, err := batch.Discover(ctx, *dir, batch.DiscoverOptions{ExcludeVendor: true})
	if err != nil {
		log.Fatalf("discover: %v", err)
	}

	log.Printf("discovered %d python files", len(files))

	var (
		snapshots []heapSnapshot
		results   []runResult
	)

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			numGC:     m.NumGC,
		})
		log.Printf("  [heap] %-30s inuse=%s  sys=%s",
			label, humanize.Bytes(m.HeapInuse), humanize.Bytes(m.HeapSys))
	}

	writeHeapProfile := func(name string) {
		if *profileDir == "" {
			return
		}

		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_runs")

	for _, count := range workers {
		processor := batch.NewProcessor(batch.Options{
			Workers: count,
			DryRun:  true,
			Mode:    unparse.Verbatim,
		})

		for round := range *rounds {
			report, runErr := processor.Run(ctx, rcp, files)
			if runErr != nil {
				log.Fatalf("run (workers=%d): %v", count, runErr)
			}

			totals := report.Totals()
			results = append(results, runResult{
				workers:  count,
				files:    len(report.Files),
				changed:  totals.Changed,
				failed:   totals.Failed,
				bytesIn:  totals.BytesIn,
				duration: report.Duration,
			})

			label := fmt.Sprintf("workers_%d_round_%d", count, round+1)
			takeSnapshot(label)
			writeHeapProfile("heap_" + label + ".prof")
		}
	}

	fmt.Println()
	fmt.Println("=== Throughput ===")
	fmt.Printf("%-8s %8s %8s %8s %12s %12s\n", "Workers", "Files", "Changed", "Failed", "Duration", "Files/s")

	for _, res := range results {
		rate := float64(res.files) / res.duration.Seconds()
		fmt.Printf("%-8d %8d %8d %8d %12s %12.1f\n",
			res.workers, res.files, res.changed, res.failed, res.duration.Round(time.Millisecond), rate)
	}

	if len(results) > 0 {
		fmt.Printf("\ninput per run: %s\n", humanize.Bytes(results[0].bytesIn))
	}

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-30s %12s %12s %6s\n", "Phase", "InUse", "Sys", "GCs")

	for _, s := range snapshots {
		fmt.Printf("%-30s %12s %12s %6d\n",
			s.label, humanize.Bytes(s.heapInUse), humanize.Bytes(s.heapSys), s.numGC)
	}
}

func parseWorkers(list string) ([]int, error) {
	var counts []int

	for field := range strings.SplitSeq(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		count, err := strconv.Atoi(field)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("%w: %q", errWorkerCount, field)
		}

		counts = append(counts, count)
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: none in %q", errWorkerCount, list)
	}

	return counts, nil
}
