package density

import (
	"sort"

	"github.com/codeGROOVE-dev/doppel/vector"
)

// Consensus is an alternative Clusterer that propagates labels over a
// k-nearest-neighbor similarity graph until they stabilize. It trades
// HDBSCAN's density hierarchy for a cheaper majority-vote consensus and
// tends to merge more aggressively on small corpora.
type Consensus struct {
	cfg           Config
	maxIterations int
}

// NewConsensus creates a label-propagation clusterer.
func NewConsensus(cfg Config) *Consensus {
	if cfg.MinClusterSize < 2 {
		cfg.MinClusterSize = 2
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = cfg.MinClusterSize
	}
	return &Consensus{cfg: cfg, maxIterations: 20}
}

// Cluster implements Clusterer.
func (c *Consensus) Cluster(vectors []vector.Vector) ([]Assignment, Summary) {
	n := len(vectors)
	if n == 0 {
		return nil, Summary{}
	}
	dist := distanceMatrix(vectors, c.cfg.Metric)
	if n < c.cfg.MinClusterSize {
		labels := make([]int, n)
		return finish(vectors, dist, labels, []float64{1}, c.cfg.Metric)
	}

	adj := knnGraph(dist, c.cfg.MinSamples)

	// Every point starts in its own community; each sweep adopts the
	// most frequent label among graph neighbors. Ties break toward the
	// smallest label so runs are deterministic.
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	for range c.maxIterations {
		changed := 0
		for i := range n {
			if len(adj[i]) == 0 {
				continue
			}
			counts := make(map[int]int, len(adj[i]))
			for neighbor, weight := range adj[i] {
				counts[labels[neighbor]] += weight
			}
			best, bestCount := labels[i], 0
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best, bestCount = label, count
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	compact, stabilities := relabel(labels, c.cfg.MinClusterSize, n)
	return finish(vectors, dist, compact, stabilities, c.cfg.Metric)
}

// knnGraph connects each point to its k nearest neighbors; mutual
// neighbor pairs get double weight.
func knnGraph(dist [][]float64, k int) []map[int]int {
	n := len(dist)
	if k > n-1 {
		k = n - 1
	}
	adj := make([]map[int]int, n)
	for i := range adj {
		adj[i] = make(map[int]int, k)
	}
	for i := range n {
		order := make([]int, 0, n-1)
		for j := range n {
			if j != i {
				order = append(order, j)
			}
		}
		sort.Slice(order, func(a, b int) bool {
			if dist[i][order[a]] != dist[i][order[b]] {
				return dist[i][order[a]] < dist[i][order[b]]
			}
			return order[a] < order[b]
		})
		for _, j := range order[:k] {
			adj[i][j]++
			adj[j][i]++
		}
	}
	return adj
}

// relabel maps propagated community labels onto compact cluster labels,
// marking communities below minClusterSize as outliers, and returns the
// size/N stability per kept cluster.
func relabel(labels []int, minClusterSize, n int) (out []int, stabilities []float64) {
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	compact := make(map[int]int)
	out = make([]int, len(labels))
	for i, l := range labels {
		if sizes[l] < minClusterSize {
			out[i] = Outlier
			continue
		}
		id, ok := compact[l]
		if !ok {
			id = len(compact)
			compact[l] = id
			stabilities = append(stabilities, float64(sizes[l])/float64(n))
		}
		out[i] = id
	}
	return out, stabilities
}
