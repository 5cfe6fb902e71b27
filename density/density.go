// Package density groups feature vectors into density-stable clusters and
// flags outliers, independent of identity resolution.
package density

import (
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/doppel/vector"
)

// Outlier is the label assigned to points outside every cluster.
const Outlier = -1

// Metric selects the pairwise distance function.
type Metric int

// Supported metrics.
const (
	Euclidean Metric = iota
	Cosine
)

// String returns the metric name.
func (m Metric) String() string {
	if m == Cosine {
		return "cosine"
	}
	return "euclidean"
}

// ParseMetric parses a metric name.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "euclidean", "":
		return Euclidean, nil
	case "cosine":
		return Cosine, nil
	}
	return Euclidean, errors.New("unknown metric: " + s)
}

// Config controls density clustering.
type Config struct {
	MinClusterSize int
	MinSamples     int // defaults to MinClusterSize when zero
	Metric         Metric
	Logger         *slog.Logger
}

// Assignment is one document's cluster membership.
type Assignment struct {
	DocumentIndex int     `json:"document_index"`
	Label         int     `json:"label"` // -1 marks an outlier
	Confidence    float64 `json:"confidence"`
	Stability     float64 `json:"stability"`
}

// Summary describes a clustering run.
type Summary struct {
	ClusterCount   int   `json:"cluster_count"`
	OutlierIndices []int `json:"outlier_indices,omitempty"`
}

// Clusterer is a pluggable clustering strategy over feature vectors.
type Clusterer interface {
	Cluster(vectors []vector.Vector) ([]Assignment, Summary)
}

// HDBSCAN clusters points hierarchically by mutual-reachability density:
// core distances, a minimum spanning tree over the reachability graph, and
// stability-based extraction of components.
type HDBSCAN struct {
	cfg Config
}

// NewHDBSCAN creates an HDBSCAN clusterer.
func NewHDBSCAN(cfg Config) *HDBSCAN {
	if cfg.MinClusterSize < 2 {
		cfg.MinClusterSize = 2
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = cfg.MinClusterSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HDBSCAN{cfg: cfg}
}

// Cluster assigns every vector a cluster label or marks it an outlier.
// It is total: degenerate input falls back to a single cluster.
func (h *HDBSCAN) Cluster(vectors []vector.Vector) ([]Assignment, Summary) {
	n := len(vectors)
	if n == 0 {
		return nil, Summary{}
	}
	dist := distanceMatrix(vectors, h.cfg.Metric)
	if n < h.cfg.MinClusterSize {
		// Too few points to distinguish density; one cluster, no outliers.
		labels := make([]int, n)
		return finish(vectors, dist, labels, []float64{1}, h.cfg.Metric)
	}

	core := coreDistances(dist, h.cfg.MinSamples)
	edges := primMST(dist, core)

	// Cut the tree at one standard deviation above the mean edge weight;
	// edges longer than that separate rather than join clusters.
	labels, stabilities := extractClusters(edges, n, h.cfg.MinClusterSize)

	h.cfg.Logger.Debug("density clustering complete",
		"points", n, "clusters", len(stabilities), "metric", h.cfg.Metric.String())
	return finish(vectors, dist, labels, stabilities, h.cfg.Metric)
}

// distanceMatrix computes the full pairwise distance matrix, parallel by row.
func distanceMatrix(vectors []vector.Vector, metric Metric) [][]float64 {
	n := len(vectors)
	dist := make([][]float64, n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range n {
		g.Go(func() error {
			row := make([]float64, n)
			for j := range n {
				if i != j {
					row[j] = distance(vectors[i].Features, vectors[j].Features, metric)
				}
			}
			dist[i] = row
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail
	return dist
}

func distance(a, b []float64, metric Metric) float64 {
	if metric == Cosine {
		// On L2-normalized vectors: 2 - 2*dot, clamped at zero.
		var dot float64
		for k := range a {
			dot += a[k] * b[k]
		}
		d := 2 - 2*dot
		if d < 0 {
			return 0
		}
		return d
	}
	var sum float64
	for k := range a {
		diff := a[k] - b[k]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// coreDistances returns each point's distance to its (minSamples-1)th
// nearest neighbor, a local density estimate.
func coreDistances(dist [][]float64, minSamples int) []float64 {
	n := len(dist)
	k := minSamples - 1
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	core := make([]float64, n)
	for i := range n {
		sorted := make([]float64, n)
		copy(sorted, dist[i])
		sort.Float64s(sorted)
		core[i] = sorted[k] // sorted[0] is the self distance
	}
	return core
}

type mstEdge struct {
	from, to int
	weight   float64
}

// primMST builds a minimum spanning tree over the mutual-reachability
// graph: reach(i,j) = max(dist(i,j), core(i), core(j)).
func primMST(dist [][]float64, core []float64) []mstEdge {
	n := len(dist)
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range n {
		bestDist[i] = math.Inf(1)
		bestFrom[i] = -1
	}
	bestDist[0] = 0

	edges := make([]mstEdge, 0, n-1)
	for range n {
		next := -1
		for v := range n {
			if !inTree[v] && (next < 0 || bestDist[v] < bestDist[next]) {
				next = v
			}
		}
		inTree[next] = true
		if bestFrom[next] >= 0 {
			edges = append(edges, mstEdge{from: bestFrom[next], to: next, weight: bestDist[next]})
		}
		for v := range n {
			if inTree[v] || v == next {
				continue
			}
			reach := dist[next][v]
			if core[next] > reach {
				reach = core[next]
			}
			if core[v] > reach {
				reach = core[v]
			}
			if reach < bestDist[v] {
				bestDist[v] = reach
				bestFrom[v] = next
			}
		}
	}
	return edges
}

// extractClusters merges MST edges ascending through a union-find,
// ignoring edges beyond one standard deviation above the mean weight.
// Components that end with at least minClusterSize members become
// clusters; everything else is an outlier. Stability is the simplified
// persistence proxy size/N, so larger components never score lower.
func extractClusters(edges []mstEdge, n, minClusterSize int) (labels []int, stabilities []float64) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })

	var sum float64
	for _, e := range edges {
		sum += e.weight
	}
	mean := sum / float64(len(edges))
	var varsum float64
	for _, e := range edges {
		d := e.weight - mean
		varsum += d * d
	}
	cutoff := mean + math.Sqrt(varsum/float64(len(edges)))

	uf := newUnionFind(n)
	for _, e := range edges {
		if e.weight > cutoff {
			break
		}
		uf.union(e.from, e.to)
	}

	// Label qualifying components in first-member order for determinism.
	labels = make([]int, n)
	for i := range labels {
		labels[i] = Outlier
	}
	rootLabel := make(map[int]int)
	for i := range n {
		root := uf.find(i)
		if uf.size[root] < minClusterSize {
			continue
		}
		label, ok := rootLabel[root]
		if !ok {
			label = len(rootLabel)
			rootLabel[root] = label
			stabilities = append(stabilities, float64(uf.size[root])/float64(n))
		}
		labels[i] = label
	}
	return labels, stabilities
}

// finish computes per-point confidence and the run summary.
// Confidence blends distance to the cluster centroid with the cluster's
// stability: (1 - d(point, centroid)/maxDist(point)) * stability.
func finish(vectors []vector.Vector, dist [][]float64, labels []int, stabilities []float64, metric Metric) ([]Assignment, Summary) {
	n := len(vectors)
	centroids := clusterCentroids(vectors, labels, len(stabilities))

	assignments := make([]Assignment, n)
	var outliers []int
	for i := range n {
		a := Assignment{DocumentIndex: i, Label: labels[i]}
		if labels[i] == Outlier {
			outliers = append(outliers, i)
			assignments[i] = a
			continue
		}
		a.Stability = stabilities[labels[i]]
		maxDist := 0.0
		for j := range n {
			if dist[i][j] > maxDist {
				maxDist = dist[i][j]
			}
		}
		conf := a.Stability
		if maxDist > 0 {
			d := distance(vectors[i].Features, centroids[labels[i]], metric)
			conf = (1 - d/maxDist) * a.Stability
		}
		a.Confidence = clamp01(conf)
		assignments[i] = a
	}
	return assignments, Summary{ClusterCount: len(stabilities), OutlierIndices: outliers}
}

func clusterCentroids(vectors []vector.Vector, labels []int, clusters int) [][]float64 {
	if clusters == 0 || len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0].Features)
	centroids := make([][]float64, clusters)
	counts := make([]int, clusters)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
	}
	for i, v := range vectors {
		label := labels[i]
		if label == Outlier {
			continue
		}
		counts[label]++
		for k, x := range v.Features {
			centroids[label][k] += x
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for k := range centroids[c] {
			centroids[c][k] /= float64(counts[c])
		}
	}
	return centroids
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range n {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
