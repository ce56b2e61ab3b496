package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"web/polaris/annotation"
	"web/polaris/cluster"
	"web/polaris/geo"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numPoints   = flag.Int("points", 100000, "number of annotations to generate")
	zoomLevel   = flag.Int("zoom", 8, "zoom level to profile")
	gridSize    = flag.Int("grid", cluster.DefaultGridSize, "grid size in dips")
	density     = flag.Float64("density", 1, "screen density")
	snapshots   = flag.Bool("snapshots", false, "also time snapshot save and load")
	testall     = flag.Bool("testall", false, "test all configurations")
)

// Annotations spread over the continental US.
var usBounds = cluster.Bounds{MinLat: 25, MinLng: -125, MaxLat: 49, MaxLng: -65}

func newViewport(zoom int) *geo.Viewport {
	center := geo.NewGeoPoint((usBounds.MinLat+usBounds.MaxLat)/2, (usBounds.MinLng+usBounds.MaxLng)/2)
	return geo.NewViewport(center, zoom, 1920, 1080)
}

func newClusterer() *cluster.Clusterer {
	return cluster.NewClusterer(nil, cluster.Options{
		GridSize: *gridSize,
		Density:  float32(*density),
	})
}

func runSingleProfile(numPoints, zoomLevel int) {
	fmt.Printf("Profiling with %d annotations at zoom level %d\n", numPoints, zoomLevel)

	items := cluster.GenerateTestAnnotations(numPoints, usBounds, 42)
	c := newClusterer()
	c.SetAnnotations(items)
	vp := newViewport(zoomLevel)

	// Measure memory before clustering
	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	out := c.Clusters(vp)
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024

	summary := cluster.Summarize(out)
	fmt.Printf("Clustering completed in %v\n", duration)
	fmt.Printf("Output: %d clusters, %d single annotations, tiers %v\n",
		summary.NumClusters, summary.NumSinglePoints, summary.Tiers)
	fmt.Printf("Memory allocated: %.2f MB\n", allocMB)
	fmt.Printf("Memory usage: %.2f MB\n", float64(memStatsAfter.Alloc)/1024/1024)

	if *snapshots {
		profileSnapshots(items)
	}
}

func profileSnapshots(items []*annotation.Annotation) {
	dir, err := os.MkdirTemp("", "polaris-profile")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "snapshot.zst")

	start := time.Now()
	if err := cluster.SaveCompressed(path, items); err != nil {
		fmt.Fprintf(os.Stderr, "Could not save snapshot: %v\n", err)
		return
	}
	saveDuration := time.Since(start)
	size := int64(0)
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	fmt.Printf("Snapshot saved in %v (file size: %s)\n", saveDuration, formatFileSize(size))

	start = time.Now()
	if _, err := cluster.LoadCompressed(path); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load snapshot: %v\n", err)
		return
	}
	fmt.Printf("Snapshot loaded (stream) in %v\n", time.Since(start))

	start = time.Now()
	if _, err := cluster.LoadCompressedMMap(path); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load snapshot: %v\n", err)
		return
	}
	fmt.Printf("Snapshot loaded (mmap) in %v\n", time.Since(start))
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func runProfileBattery() {
	pointCounts := []int{1000, 10000, 50000, 100000}
	zoomLevels := []int{2, 5, 8, 12, 15}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	// Table header
	fmt.Printf("%-10s | %-10s | %-10s | %-15s | %-11s | %-10s\n",
		"Points", "Zoom", "Outputs", "Duration", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "------------------------------------------------------------------------")

	for _, points := range pointCounts {
		items := cluster.GenerateTestAnnotations(points, usBounds, 42)
		for _, zoom := range zoomLevels {
			c := newClusterer()
			vp := newViewport(zoom)

			var memStatsBefore, memStatsAfter runtime.MemStats
			runtime.ReadMemStats(&memStatsBefore)

			start := time.Now()
			out := c.Cluster(vp, items)
			duration := time.Since(start)

			runtime.ReadMemStats(&memStatsAfter)
			memMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
			gcRuns := memStatsAfter.NumGC - memStatsBefore.NumGC

			fmt.Printf("%-10d | %-10d | %-10d | %-15s | %-11.2f | %-10d\n",
				points, zoom, len(out), duration, memMB, gcRuns)
		}

		// Add separator between point counts
		fmt.Printf("%s\n", "------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	// Set up CPU profiling if requested
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numPoints, *zoomLevel)
	}

	// Write memory profile if requested
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	// Write heap profile if requested
	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		if err := pprof.Lookup("heap").WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
