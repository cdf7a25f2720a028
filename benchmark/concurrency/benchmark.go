package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmadzakiakmal/shiptrack/benchmark/benchclient"
)

type WorkflowResult struct {
	Success  bool
	Latency  time.Duration
	ErrorMsg string
}

type stats struct {
	total, success, failed int64
	totalLatency           int64
	minLatency, maxLatency int64
	failures               map[string]int64
}

func main() {
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	port := flag.String("port", "6000", "Intake node port")
	host := flag.String("host", "127.0.0.1", "Intake node host")
	recordsDir := flag.String("out", "./records", "Directory for CSV results")
	flag.Parse()

	if err := os.MkdirAll(*recordsDir, 0755); err != nil {
		fmt.Printf("Error creating records dir: %v\n", err)
		return
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(*recordsDir, fmt.Sprintf(
		"concurrency_%s_w%d_d%ds.csv",
		timestamp, *workers, int(duration.Seconds()),
	))
	baseURL := fmt.Sprintf("http://%s:%s", *host, *port)

	fmt.Println("========================================")
	fmt.Println("   CONCURRENCY BENCHMARK")
	fmt.Println("========================================")
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Printf("Duration:   %v\n", *duration)
	fmt.Printf("Node URL:   %s\n", baseURL)
	fmt.Printf("Output:     %s\n", filename)
	fmt.Println("========================================")
	fmt.Println("")

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	resultsChan := make(chan WorkflowResult, *workers*10)
	var runs int64
	var wg sync.WaitGroup

	fmt.Println("Starting workers...")
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go worker(ctx, baseURL, &runs, resultsChan, &wg)
	}

	startTime := time.Now()
	st := &stats{minLatency: 1<<63 - 1, failures: make(map[string]int64)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range resultsChan {
			st.record(result)
			if st.total%10 == 0 {
				fmt.Printf("\rWorkflows: %d | Success: %d | Failed: %d | TPS: %.2f",
					st.total, st.success, st.failed,
					float64(st.total)/time.Since(startTime).Seconds())
			}
		}
	}()

	wg.Wait()
	close(resultsChan)
	<-done

	elapsed := time.Since(startTime)
	tps := float64(st.total) / elapsed.Seconds()
	avgLatency := time.Duration(0)
	if st.success > 0 {
		avgLatency = time.Duration(st.totalLatency / st.success)
	} else {
		st.minLatency = 0
	}
	successPct, failedPct := 0.0, 0.0
	if st.total > 0 {
		successPct = float64(st.success) / float64(st.total) * 100
		failedPct = float64(st.failed) / float64(st.total) * 100
	}

	fmt.Println("\n\n========================================")
	fmt.Println("   BENCHMARK RESULTS")
	fmt.Println("========================================")
	fmt.Printf("Total Workflows:   %d\n", st.total)
	fmt.Printf("Successful:        %d (%.2f%%)\n", st.success, successPct)
	fmt.Printf("Failed:            %d (%.2f%%)\n", st.failed, failedPct)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Printf("Throughput (TPS):  %.2f\n", tps)
	fmt.Printf("Avg Latency:       %v\n", avgLatency)
	fmt.Printf("Min Latency:       %v\n", time.Duration(st.minLatency))
	fmt.Printf("Max Latency:       %v\n", time.Duration(st.maxLatency))
	if len(st.failures) > 0 {
		fmt.Println("Failures by step:")
		for _, step := range st.failureSteps() {
			fmt.Printf("  %-18s %d\n", step, st.failures[step])
		}
	}
	fmt.Println("========================================")

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"Workers", "Duration_s",
		"Total_Workflows", "Successful", "Failed",
		"TPS", "Avg_Latency_ms", "Min_Latency_ms", "Max_Latency_ms",
	})
	writer.Write([]string{
		fmt.Sprintf("%d", *workers),
		fmt.Sprintf("%.0f", duration.Seconds()),
		fmt.Sprintf("%d", st.total),
		fmt.Sprintf("%d", st.success),
		fmt.Sprintf("%d", st.failed),
		fmt.Sprintf("%.2f", tps),
		fmt.Sprintf("%.2f", float64(avgLatency.Microseconds())/1000),
		fmt.Sprintf("%.2f", float64(time.Duration(st.minLatency).Microseconds())/1000),
		fmt.Sprintf("%.2f", float64(time.Duration(st.maxLatency).Microseconds())/1000),
	})

	fmt.Printf("\nResults saved to: %s\n", filename)
}

// record is only called from the collector goroutine
func (s *stats) record(result WorkflowResult) {
	s.total++
	if !result.Success {
		s.failed++
		step := result.ErrorMsg
		if i := strings.Index(step, ":"); i >= 0 {
			step = step[:i]
		}
		s.failures[step]++
		return
	}
	s.success++
	ns := result.Latency.Nanoseconds()
	s.totalLatency += ns
	if ns < s.minLatency {
		s.minLatency = ns
	}
	if ns > s.maxLatency {
		s.maxLatency = ns
	}
}

func (s *stats) failureSteps() []string {
	steps := make([]string, 0, len(s.failures))
	for step := range s.failures {
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool {
		if s.failures[steps[i]] != s.failures[steps[j]] {
			return s.failures[steps[i]] > s.failures[steps[j]]
		}
		return steps[i] < steps[j]
	})
	return steps
}

func worker(ctx context.Context, baseURL string, runs *int64, resultsChan chan<- WorkflowResult, wg *sync.WaitGroup) {
	defer wg.Done()

	client := benchclient.NewHTTPClient(baseURL)

	for ctx.Err() == nil {
		n := atomic.AddInt64(runs, 1)
		start := time.Now()
		_, err := benchclient.RunWorkflow(ctx, client, benchclient.SampleShipment(int(n)), 0)
		latency := time.Since(start)

		// a workflow cut off by the deadline is not a failure
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return
		}

		result := WorkflowResult{
			Success: err == nil,
			Latency: latency,
		}
		if err != nil {
			result.ErrorMsg = err.Error()
		}
		resultsChan <- result
	}
}
