package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ahmadzakiakmal/shiptrack/benchmark/benchclient"
)

func main() {
	iterations := flag.Int("n", 100, "Number of iterations")
	port := flag.String("port", "6000", "Intake node port")
	host := flag.String("host", "127.0.0.1", "Intake node host")
	pause := flag.Duration("pause", 100*time.Millisecond, "Pause between workflow steps")
	recordsDir := flag.String("out", "./records", "Directory for CSV results")
	flag.Parse()

	if err := os.MkdirAll(*recordsDir, 0755); err != nil {
		fmt.Printf("Error creating records dir: %v\n", err)
		return
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(*recordsDir, fmt.Sprintf("latency_%s_n%d.csv", timestamp, *iterations))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"Iteration", "Step", "Latency_ms", "Bytes"})

	baseURL := fmt.Sprintf("http://%s:%s", *host, *port)
	client := benchclient.NewHTTPClient(baseURL)

	fmt.Println("========================================")
	fmt.Println("   LATENCY BENCHMARK")
	fmt.Println("========================================")
	fmt.Printf("Iterations: %d\n", *iterations)
	fmt.Printf("Node URL:   %s\n", baseURL)
	fmt.Printf("Output:     %s\n", filename)
	fmt.Println("========================================")
	fmt.Println("")

	successCount := 0
	failCount := 0
	var steps []string
	samples := make(map[string][]time.Duration)

	for i := 0; i < *iterations; i++ {
		fmt.Printf("\r[%d/%d] ", i+1, *iterations)

		results, err := benchclient.RunWorkflow(context.Background(), client, benchclient.SampleShipment(i+1), *pause)
		if err == nil {
			successCount++
			fmt.Print("ok")
			for _, r := range results {
				if _, seen := samples[r.Step]; !seen {
					steps = append(steps, r.Step)
				}
				samples[r.Step] = append(samples[r.Step], r.Latency)
				writer.Write([]string{
					strconv.Itoa(i + 1),
					r.Step,
					strconv.FormatInt(r.Latency.Milliseconds(), 10),
					strconv.Itoa(r.Bytes),
				})
			}
		} else {
			failCount++
			fmt.Printf("failed: %v\n", err)
		}

		time.Sleep(50 * time.Millisecond)
	}

	fmt.Printf("\n\n========================================\n")
	fmt.Printf("Success: %d/%d\n", successCount, *iterations)
	if failCount > 0 {
		fmt.Printf("Failed:  %d\n", failCount)
	}
	fmt.Printf("Results: %s\n", filename)
	fmt.Println("========================================")

	if len(steps) > 0 {
		printSummary(steps, samples)
	}
}

// printSummary renders per-step latency percentiles in milliseconds
func printSummary(steps []string, samples map[string][]time.Duration) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Latency by step (ms)")
	tw.AppendHeader(table.Row{"Step", "N", "Mean", "P50", "P95", "Max"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, step := range steps {
		d := samples[step]
		sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
		var total time.Duration
		for _, v := range d {
			total += v
		}
		mean := total / time.Duration(len(d))
		tw.AppendRow(table.Row{step, len(d), ms(mean), ms(percentile(d, 50)), ms(percentile(d, 95)), ms(d[len(d)-1])})
	}
	tw.Render()
}

// percentile expects sorted input
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted)*p + 99) / 100
	if idx < 1 {
		idx = 1
	}
	return sorted[idx-1]
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 2, 64)
}
