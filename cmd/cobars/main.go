// Command cobars draws a batch of random closed polygons and writes
// their edge directions and sampling weights to a CSV file.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/cobars/cobars/batch"
	"github.com/cobars/cobars/sampler"
)

func main() {
	dimension := flag.Int("dimension", 3, "Ambient dimension of the polygon")
	edges := flag.Int("edges", 12, "Number of edges")
	samples := flag.Int("samples", 1000, "Number of random closed polygons to draw")
	workers := flag.Int("workers", 0, "Number of worker goroutines (0 = GOMAXPROCS)")
	weightsFile := flag.String("weights", "", "CSV file of edge_length,rho rows (default: uniform edges, unit rho)")
	outputFile := flag.String("output", "polygons.csv", "Output CSV file")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *dimension <= 0 || *edges <= 0 || *samples <= 0 {
		fmt.Fprintln(os.Stderr, "Error: dimension, edges and samples must all be positive")
		flag.Usage()
		os.Exit(1)
	}

	s, err := buildSampler(*dimension, *edges, *weightsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building sampler: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Sampling %d closed polygons: dimension=%d edges=%d\n", *samples, *dimension, *edges)
	}

	bs := batch.DefaultSettings()
	bs.Workers = *workers
	bs.Verbose = *verbose
	if *verbose {
		bs.OnProgress = func(done, total int) {
			fmt.Printf("%d/%d samples done\n", done, total)
		}
	}

	n, d := *edges, *dimension
	xOut := make([]float64, *samples*n*d)
	wOut := make([]float64, *samples*d)
	yOut := make([]float64, *samples*n*d)
	kEdge := make([]float64, *samples)
	kQuot := make([]float64, *samples)

	if err := batch.RandomClosedPolygons(s, xOut, wOut, yOut, kEdge, kQuot, *samples, bs); err != nil {
		fmt.Fprintf(os.Stderr, "Error sampling: %v\n", err)
		os.Exit(1)
	}

	if err := savePolygonsCSV(*outputFile, yOut, kEdge, kQuot, *samples, n, d); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving output: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Saved %d samples to %s\n", *samples, *outputFile)
	}
}

// buildSampler constructs a sampler.Sampler for n edges of ambient
// dimension d, either uniformly weighted or from a two-column CSV of
// edge_length,rho rows.
func buildSampler(d, n int, weightsFile string) (*sampler.Sampler, error) {
	if weightsFile == "" {
		return sampler.New(d, n, sampler.DefaultSettings())
	}

	r, rho, err := loadWeightsCSV(weightsFile)
	if err != nil {
		return nil, err
	}
	if len(r) != n {
		return nil, fmt.Errorf("weights file has %d rows, want %d edges", len(r), n)
	}
	return sampler.NewWithWeights(d, r, rho, sampler.DefaultSettings())
}

// loadWeightsCSV loads a two-column CSV (edge_length,rho) with no header.
func loadWeightsCSV(filename string) (r, rho []float64, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	r = make([]float64, len(records))
	rho = make([]float64, len(records))
	for i, record := range records {
		if len(record) != 2 {
			return nil, nil, fmt.Errorf("row %d: want 2 columns, got %d", i, len(record))
		}
		if r[i], err = strconv.ParseFloat(record[0], 64); err != nil {
			return nil, nil, fmt.Errorf("row %d, col 0: %v", i, err)
		}
		if rho[i], err = strconv.ParseFloat(record[1], 64); err != nil {
			return nil, nil, fmt.Errorf("row %d, col 1: %v", i, err)
		}
	}
	return r, rho, nil
}

// savePolygonsCSV writes one row per sample: the n*d flattened edge
// directions followed by the edge-space and edge-quotient-space
// sampling weights.
func savePolygonsCSV(filename string, yOut, kEdge, kQuot []float64, samples, n, d int) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	row := make([]string, n*d+2)
	for k := 0; k < samples; k++ {
		y := yOut[k*n*d : (k+1)*n*d]
		for i, v := range y {
			row[i] = strconv.FormatFloat(v, 'f', 10, 64)
		}
		row[n*d] = strconv.FormatFloat(kEdge[k], 'f', 10, 64)
		row[n*d+1] = strconv.FormatFloat(kQuot[k], 'f', 10, 64)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}
