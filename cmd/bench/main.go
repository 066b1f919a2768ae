package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/viniciusth/failtable"
	"golang.org/x/term"
)

type variant struct {
	name   string
	config func(*failtable.Builder) *failtable.Builder
}

var variants = map[string]variant{
	"plain":      {name: "plain", config: func(b *failtable.Builder) *failtable.Builder { return b }},
	"compressed": {name: "compressed", config: func(b *failtable.Builder) *failtable.Builder { return b.Compress() }},
	"runes":      {name: "runes", config: func(b *failtable.Builder) *failtable.Builder { return b.Runes() }},
	"no_index":   {name: "no_index", config: func(b *failtable.Builder) *failtable.Builder { return b.SkipRangeIndex() }},
}

type memMonitor struct {
	maxAlloc uint64
	stop     chan struct{}
	done     chan struct{}
}

func newMemMonitor() *memMonitor {
	mm := &memMonitor{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(mm.done)
		for {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			if m.Alloc > mm.maxAlloc {
				mm.maxAlloc = m.Alloc
			}
			select {
			case <-mm.stop:
				return
			default:
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()
	return mm
}

func (mm *memMonitor) Stop() uint64 {
	close(mm.stop)
	<-mm.done
	return mm.maxAlloc
}

func getCurrentAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

func measureBuild(patterns []string, config func(*failtable.Builder) *failtable.Builder) (time.Duration, uint64, uint64, []*failtable.Table) {
	runtime.GC()
	mm := newMemMonitor()
	tables := make([]*failtable.Table, len(patterns))
	start := time.Now()
	for i, p := range patterns {
		t, err := config(failtable.NewBuilder(p)).Build()
		if err != nil {
			log.Fatalf("build %q: %v", p, err)
		}
		tables[i] = t
	}
	dur := time.Since(start)
	peak := mm.Stop()
	runtime.GC()
	alloc := getCurrentAlloc()
	return dur, peak, alloc, tables
}

// Periodic patterns over a small alphabet give long fallback chains.
func generatePatterns(r *rand.Rand, n, q, sigma int) []string {
	patterns := make([]string, q)
	for i := range patterns {
		period := 1 + r.Intn(n)
		unit := make([]byte, period)
		for j := range unit {
			unit[j] = byte('a' + r.Intn(sigma))
		}
		p := make([]byte, n)
		for j := range p {
			p[j] = unit[j%period]
		}
		patterns[i] = string(p)
	}
	return patterns
}

func newBar(runs int) *progressbar.ProgressBar {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return progressbar.Default(int64(runs))
	}
	return progressbar.DefaultSilent(int64(runs))
}

func runBenchmark(v variant, n, q, sigma, runs int) {
	bar := newBar(runs)
	for run := 0; run < runs; run++ {
		r := rand.New(rand.NewSource(int64(run)))
		patterns := generatePatterns(r, n, q, sigma)
		bt, bp, ba, tables := measureBuild(patterns, v.config)
		fmt.Printf("%s,%d,%d,%d,%.0f,%d,%d\n",
			v.name, n, q, sigma, float64(bt.Nanoseconds()), bp, ba)
		runtime.KeepAlive(tables)
		if err := bar.Add(1); err != nil {
			log.Printf("progress: %v", err)
		}
	}
	if err := bar.Finish(); err != nil {
		log.Printf("progress: %v", err)
	}
}

func main() {
	log.SetFlags(log.Lshortfile)

	variantName := flag.String("variant", "", "Variant to benchmark")
	n := flag.Int("n", 0, "Pattern length N")
	q := flag.Int("q", 0, "Number of patterns Q")
	sigma := flag.Int("sigma", 2, "Alphabet size, at most 26")
	runs := flag.Int("runs", 3, "Number of runs for averaging")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *variantName == "" || *n <= 0 || *q <= 0 || *runs <= 0 || *sigma <= 0 || *sigma > 26 {
		fmt.Println("Usage: go run main.go -variant=<variant> -n=<N> -q=<Q> [-sigma=<sigma>] [-runs=<runs>]")
		fmt.Println("Available variants: plain, compressed, runes, no_index")
		os.Exit(1)
	}

	v, ok := variants[*variantName]
	if !ok {
		fmt.Println("Invalid variant:", *variantName)
		os.Exit(1)
	}

	runBenchmark(v, *n, *q, *sigma, *runs)
}
