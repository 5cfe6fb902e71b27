// Package doppel resolves scattered web evidence about a named individual
// into a small number of distinct, confidence-scored person identities,
// deduplicating their social media handles.
//
// Basic usage:
//
//	docs := []evidence.Document{
//	    {Index: 0, SourceURL: "https://example.com/about", RawText: "..."},
//	    {Index: 1, SourceURL: "https://github.com/janedoe", RawText: "..."},
//	}
//	clusters, err := doppel.Analyze(ctx, docs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, person := range doppel.Summarize(clusters) {
//	    fmt.Println(person.Name, person.Confidence)
//	}
//
// The pipeline runs normalization, TF-IDF vectorization, density
// clustering, and multi-signal entity resolution in order. Each stage
// produces new immutable records keyed by document index; no stage
// mutates a predecessor's output.
package doppel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/codeGROOVE-dev/doppel/cache"
	"github.com/codeGROOVE-dev/doppel/density"
	"github.com/codeGROOVE-dev/doppel/evidence"
	"github.com/codeGROOVE-dev/doppel/resolve"
	"github.com/codeGROOVE-dev/doppel/vector"
)

// ErrInvalidInput re-exports resolve.ErrInvalidInput for convenience.
var ErrInvalidInput = resolve.ErrInvalidInput

// Config bundles the per-stage configuration.
type Config struct {
	Vector  vector.Config
	Density density.Config
	Resolve resolve.Config

	// Consensus selects the label-propagation clustering strategy
	// instead of the default HDBSCAN-style clusterer.
	Consensus bool

	// OutlierFloor drops low-evidence clusters: a cluster with fewer
	// than half of MinClusterSize documents and confidence at or below
	// this floor is removed from the final ranking.
	OutlierFloor float64
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Vector:       vector.DefaultConfig(),
		Density:      density.Config{MinClusterSize: 3, Metric: density.Cosine},
		Resolve:      resolve.DefaultConfig(),
		OutlierFloor: 0.3,
	}
}

// Option configures an Analyze call.
type Option func(*options)

type options struct {
	cfg       Config
	logger    *slog.Logger
	cache     cache.Cacher
	clusterer density.Clusterer
}

// WithConfig replaces the default pipeline configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCache sets the normalized-evidence cache.
func WithCache(c cache.Cacher) Option {
	return func(o *options) { o.cache = c }
}

// WithClusterer injects a custom density clustering strategy, overriding
// the Consensus config flag.
func WithClusterer(c density.Clusterer) Option {
	return func(o *options) { o.clusterer = c }
}

// Analyze runs the full identity resolution pipeline over the documents
// and returns ranked person clusters. Documents must be indexed by
// position; a mismatch is rejected before any computation.
func Analyze(ctx context.Context, docs []evidence.Document, opts ...Option) ([]resolve.Cluster, error) {
	o := &options{cfg: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	for i := range docs {
		if docs[i].Index != i {
			return nil, fmt.Errorf("%w: document %d has index %d", ErrInvalidInput, i, docs[i].Index)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}

	o.cfg.Density.Logger = o.logger
	o.cfg.Resolve.Logger = o.logger

	evs := normalizeAll(ctx, docs, o)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vecs := vector.Vectorize(evs, o.cfg.Vector)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusterer := o.clusterer
	if clusterer == nil {
		if o.cfg.Consensus {
			clusterer = density.NewConsensus(o.cfg.Density)
		} else {
			clusterer = density.NewHDBSCAN(o.cfg.Density)
		}
	}
	assignments, summary := clusterer.Cluster(vecs)
	o.logger.Debug("density clustering", "clusters", summary.ClusterCount, "outliers", len(summary.OutlierIndices))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters, err := resolve.Resolve(docs, evs, vecs, o.cfg.Resolve)
	if err != nil {
		return nil, err
	}

	return aggregate(clusters, assignments, o.cfg), nil
}

// normalizeAll produces one evidence record per document, consulting the
// cache when configured. Cache failures degrade to direct normalization.
func normalizeAll(ctx context.Context, docs []evidence.Document, o *options) []evidence.Evidence {
	normalizer := evidence.New(evidence.WithLogger(o.logger))
	evs := make([]evidence.Evidence, len(docs))
	for i, doc := range docs {
		if o.cache == nil {
			evs[i] = normalizer.Normalize(doc.RawText, doc.SourceURL)
			continue
		}
		data, err := o.cache.GetSet(ctx, cache.Key(doc.SourceURL, doc.RawText), func(context.Context) ([]byte, error) {
			return json.Marshal(normalizer.Normalize(doc.RawText, doc.SourceURL))
		})
		if err == nil {
			var ev evidence.Evidence
			if err = json.Unmarshal(data, &ev); err == nil {
				evs[i] = ev
				continue
			}
		}
		o.logger.Warn("evidence cache miss path failed, normalizing directly", "url", doc.SourceURL, "error", err)
		evs[i] = normalizer.Normalize(doc.RawText, doc.SourceURL)
	}
	return evs
}

// aggregate merges density outlier signals into cluster confidence and
// produces the final ranking. A cluster built mostly from density
// outliers has its confidence halved; tiny low-confidence clusters are
// dropped entirely.
func aggregate(clusters []resolve.Cluster, assignments []density.Assignment, cfg Config) []resolve.Cluster {
	outlier := make(map[int]bool, len(assignments))
	for _, a := range assignments {
		if a.Label == density.Outlier {
			outlier[a.DocumentIndex] = true
		}
	}

	out := make([]resolve.Cluster, 0, len(clusters))
	for _, c := range clusters {
		outliers := 0
		for _, node := range c.Nodes {
			if outlier[node.DocumentIndex] {
				outliers++
			}
		}
		if outliers*2 > len(c.Nodes) {
			c.Confidence /= 2
		}
		if len(c.Nodes)*2 < cfg.Density.MinClusterSize && c.Confidence <= cfg.OutlierFloor {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if len(out[i].Nodes) != len(out[j].Nodes) {
			return len(out[i].Nodes) > len(out[j].Nodes)
		}
		return out[i].Nodes[0].DocumentIndex < out[j].Nodes[0].DocumentIndex
	})
	return out
}
