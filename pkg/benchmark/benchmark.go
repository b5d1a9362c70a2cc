// Package benchmark measures codec round trips (encrypt then decrypt) per
// component, with latency percentiles and throughput.
package benchmark

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"axine-go/pkg/codec"
	"axine-go/pkg/feistel"
	"axine-go/pkg/key"
	"axine-go/pkg/log"
	"axine-go/pkg/transform"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

// Component specifies which layer to benchmark
type Component int

const (
	ComponentBlock    Component = iota // single 8-byte blocks through a Schedule
	ComponentSerial                    // codec, one goroutine
	ComponentParallel                  // codec, block runs spread over workers
	ComponentPipeline                  // zstd + codec transform pipeline
)

var AllComponents = []Component{ComponentBlock, ComponentSerial, ComponentParallel, ComponentPipeline}

func (c Component) String() string {
	switch c {
	case ComponentBlock:
		return "Feistel Block"
	case ComponentSerial:
		return "Codec Serial"
	case ComponentParallel:
		return "Codec Parallel"
	case ComponentPipeline:
		return "Zstd Pipeline"
	default:
		return "Unknown"
	}
}

// ParseComponent maps a CLI name to a Component.
func ParseComponent(s string) (Component, error) {
	switch strings.ToLower(s) {
	case "block":
		return ComponentBlock, nil
	case "serial":
		return ComponentSerial, nil
	case "parallel":
		return ComponentParallel, nil
	case "pipeline":
		return ComponentPipeline, nil
	default:
		return 0, fmt.Errorf("unknown component: %s", s)
	}
}

type Options struct {
	Component   Component
	Iterations  int
	PayloadSize int
	Workers     int // 0 keeps the codec default
	Key         key.Key
}

func DefaultOptions() *Options {
	return &Options{
		Component:   ComponentSerial,
		Iterations:  100,
		PayloadSize: 1 << 20,
		Key:         0x0123456789ABCDEF,
	}
}

type Results struct {
	Component   Component
	PayloadSize int
	Iterations  int
	MinLatency  time.Duration
	MaxLatency  time.Duration
	AvgLatency  time.Duration
	Median      time.Duration
	P95Latency  time.Duration
	P99Latency  time.Duration
	TotalTime   time.Duration
}

// Throughput is plaintext bytes per second over encrypt and decrypt.
func (r *Results) Throughput() float64 {
	if r.TotalTime <= 0 {
		return 0
	}
	return float64(r.PayloadSize) * float64(r.Iterations) / r.TotalTime.Seconds()
}

type roundTrip func([]byte) ([]byte, error)

func newRoundTrip(opts *Options) (roundTrip, error) {
	switch opts.Component {
	case ComponentBlock:
		s := feistel.NewSchedule(uint64(opts.Key))
		return func(data []byte) ([]byte, error) {
			out := make([]byte, len(data))
			n := len(data) - len(data)%feistel.BlockSize
			for i := 0; i < n; i += feistel.BlockSize {
				s.EncryptBlock(out[i:], data[i:])
				s.DecryptBlock(out[i:], out[i:])
			}
			copy(out[n:], data[n:])
			return out, nil
		}, nil
	case ComponentSerial, ComponentParallel:
		c := codec.New(opts.Key, codecOptions(opts)...)
		return func(data []byte) ([]byte, error) {
			return c.DecryptStream(c.EncryptStream(data))
		}, nil
	case ComponentPipeline:
		z, err := transform.NewZstdTransform(zstd.SpeedDefault)
		if err != nil {
			return nil, err
		}
		p, err := transform.NewPayloadProcessor([]transform.Transform{
			z, transform.NewFeistelTransform(codec.New(opts.Key, codecOptions(opts)...)),
		})
		if err != nil {
			return nil, err
		}
		return func(data []byte) ([]byte, error) {
			sealed, err := p.Seal(data)
			if err != nil {
				return nil, err
			}
			return p.Open(sealed)
		}, nil
	default:
		return nil, fmt.Errorf("unknown component: %d", opts.Component)
	}
}

func codecOptions(opts *Options) []codec.Option {
	if opts.Component == ComponentSerial {
		return []codec.Option{codec.WithWorkers(1)}
	}
	o := []codec.Option{codec.WithParallelThreshold(0)}
	if opts.Workers > 0 {
		o = append(o, codec.WithWorkers(opts.Workers))
	}
	return o
}

// Run benchmarks one component. Every round trip is checked against the input.
func Run(opts *Options) (*Results, error) {
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", opts.Iterations)
	}
	if opts.PayloadSize < 0 {
		return nil, fmt.Errorf("payload size must not be negative, got %d", opts.PayloadSize)
	}
	rt, err := newRoundTrip(opts)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, opts.PayloadSize)
	rng := rand.New(rand.NewPCG(uint64(opts.Key), uint64(opts.PayloadSize)))
	for i := range payload {
		// compressible text-like bytes so the pipeline has something to do
		payload[i] = byte('a' + rng.IntN(16))
	}

	latencies := make([]time.Duration, 0, opts.Iterations)
	start := time.Now()
	for i := 0; i < opts.Iterations; i++ {
		t := time.Now()
		out, err := rt(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: iteration %d: %w", opts.Component, i, err)
		}
		latencies = append(latencies, time.Since(t))
		if !bytes.Equal(out, payload) {
			return nil, fmt.Errorf("%s: iteration %d: round trip mismatch", opts.Component, i)
		}
	}
	res := calculateStats(latencies, time.Since(start))
	res.Component = opts.Component
	res.PayloadSize = opts.PayloadSize
	return res, nil
}

func calculateStats(latencies []time.Duration, totalTime time.Duration) *Results {
	res := &Results{Iterations: len(latencies), TotalTime: totalTime}
	if len(latencies) == 0 {
		return res
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	res.MinLatency = latencies[0]
	res.MaxLatency = latencies[len(latencies)-1]
	res.AvgLatency = sum / time.Duration(len(latencies))
	res.Median = latencies[len(latencies)/2]
	res.P95Latency = latencies[(len(latencies)*95)/100]
	res.P99Latency = latencies[(len(latencies)*99)/100]
	return res
}

// RunAll benchmarks every component, skipping the ones that fail.
func RunAll(base *Options) []*Results {
	var results []*Results
	for _, c := range AllComponents {
		opts := *base
		opts.Component = c
		log.Printf("Running benchmark for %s...", c)
		r, err := Run(&opts)
		if err != nil {
			log.Error().Err(err).Str("component", c.String()).Msg("benchmark failed")
			continue
		}
		results = append(results, r)
	}
	return results
}

func PrintResults(w io.Writer, r *Results) {
	fmt.Fprintf(w, "=== Codec Benchmark: %s ===\n", r.Component)
	fmt.Fprintf(w, "Payload Size: %s\n", humanize.IBytes(uint64(r.PayloadSize)))
	fmt.Fprintf(w, "Iterations: %d\n", r.Iterations)
	fmt.Fprintf(w, "Total Time: %v\n", r.TotalTime)
	fmt.Fprintf(w, "Throughput: %s/s\n", humanize.IBytes(uint64(r.Throughput())))
	fmt.Fprintf(w, "Min Latency: %v\n", r.MinLatency)
	fmt.Fprintf(w, "Avg Latency: %v\n", r.AvgLatency)
	fmt.Fprintf(w, "Median Latency: %v\n", r.Median)
	fmt.Fprintf(w, "95th Percentile: %v\n", r.P95Latency)
	fmt.Fprintf(w, "99th Percentile: %v\n", r.P99Latency)
	fmt.Fprintf(w, "Max Latency: %v\n", r.MaxLatency)
	fmt.Fprintln(w, "==========================================")
}

// SaveResultsToFile writes one CSV row per result, durations in nanoseconds.
func SaveResultsToFile(results []*Results, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Component", "PayloadSize", "Iterations", "MinLatency", "AvgLatency",
		"MedianLatency", "P95Latency", "P99Latency", "MaxLatency", "TotalTime", "BytesPerSecond"})
	ns := func(d time.Duration) string { return strconv.FormatInt(d.Nanoseconds(), 10) }
	for _, r := range results {
		w.Write([]string{
			r.Component.String(),
			strconv.Itoa(r.PayloadSize),
			strconv.Itoa(r.Iterations),
			ns(r.MinLatency), ns(r.AvgLatency), ns(r.Median),
			ns(r.P95Latency), ns(r.P99Latency), ns(r.MaxLatency),
			ns(r.TotalTime),
			strconv.FormatFloat(r.Throughput(), 'f', 0, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
