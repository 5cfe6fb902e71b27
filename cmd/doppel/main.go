// Command doppel resolves scraped evidence documents into distinct person
// identities.
//
// Usage:
//
//	doppel evidence.json
//	doppel -people -min-cluster-size 4 evidence.json
//	cat evidence.json | doppel -
//
// The input file holds a JSON array of evidence documents:
//
//	[{"source_url": "https://github.com/janedoe", "raw_text": "..."}, ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/codeGROOVE-dev/doppel"
	"github.com/codeGROOVE-dev/doppel/cache"
	"github.com/codeGROOVE-dev/doppel/density"
	"github.com/codeGROOVE-dev/doppel/evidence"
)

func main() {
	configPath := flag.String("config", "", "YAML config file with pipeline thresholds")
	minClusterSize := flag.Int("min-cluster-size", 0, "minimum density cluster size (overrides config)")
	metricName := flag.String("metric", "", "distance metric: euclidean or cosine (overrides config)")
	consensus := flag.Bool("consensus", false, "use label-propagation consensus clustering instead of HDBSCAN")
	people := flag.Bool("people", false, "output compact person summaries instead of full clusters")
	debug := flag.Bool("debug", false, "enable debug logging")
	noCache := flag.Bool("no-cache", false, "disable evidence caching (enabled by default with 30-day TTL)")
	cacheTTL := flag.Duration("cache-ttl", 30*24*time.Hour, "cache time-to-live")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: doppel [options] <evidence.json>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := doppel.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *minClusterSize > 0 {
		cfg.Density.MinClusterSize = *minClusterSize
	}
	if *metricName != "" {
		metric, err := density.ParseMetric(*metricName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Density.Metric = metric
	}
	if *consensus {
		cfg.Consensus = true
	}

	docs, err := readDocuments(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := []doppel.Option{doppel.WithLogger(logger), doppel.WithConfig(cfg)}
	if !*noCache {
		evCache, err := cache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			opts = append(opts, doppel.WithCache(evCache))
		}
	}

	clusters, err := doppel.Analyze(context.Background(), docs, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("analysis complete", "documents", len(docs), "identities", len(clusters))

	var out any = clusters
	if *people {
		out = doppel.Summarize(clusters)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		os.Exit(1)
	}
}

// readDocuments loads the evidence array from a file or stdin ("-") and
// assigns document indices by position.
func readDocuments(path string) ([]evidence.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}

	var docs []evidence.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse evidence: %w", err)
	}
	for i := range docs {
		docs[i].Index = i
		if docs[i].PlatformHint == "" {
			if platform, handle, ok := evidence.ClassifyURL(docs[i].SourceURL); ok {
				docs[i].PlatformHint = platform
				docs[i].HandleHint = handle
			}
		}
	}
	return docs, nil
}
