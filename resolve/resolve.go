// Package resolve builds a weighted similarity graph over evidence
// documents, extracts connected components as candidate identities, and
// elects canonical social handles within each.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/doppel/evidence"
	"github.com/codeGROOVE-dev/doppel/vector"
)

// ErrInvalidInput marks a malformed batch: mismatched slice lengths.
var ErrInvalidInput = errors.New("invalid input")

// Config holds resolver thresholds.
type Config struct {
	// CosineThreshold connects two documents whose combined similarity
	// reaches it, regardless of signal count.
	CosineThreshold float64
	// MultiAccount enables accepted/rejected classification of
	// non-canonical same-platform handles. When disabled every
	// alternate is rejected.
	MultiAccount bool
	// Policy decides whether an alternate handle is a legitimate
	// multi-account. Nil selects DefaultPolicy.
	Policy MultiAccountPolicy
	Logger *slog.Logger
}

// DefaultConfig returns the thresholds used by the pipeline unless
// overridden.
func DefaultConfig() Config {
	return Config{CosineThreshold: 0.75, MultiAccount: true}
}

// Node binds one document's evidence and feature vector into a cluster
// member. Every node belongs to exactly one Cluster per resolution run.
type Node struct {
	DocumentIndex int               `json:"document_index"`
	URL           string            `json:"url"`
	Platform      string            `json:"platform,omitempty"`
	Handle        string            `json:"handle,omitempty"`
	Evidence      evidence.Evidence `json:"evidence"`
	Vector        vector.Vector     `json:"-"`
}

// HandleStatus classifies an alternate handle.
type HandleStatus string

// Alternate handle classifications.
const (
	Accepted HandleStatus = "accepted" // legitimate multi-account
	Rejected HandleStatus = "rejected" // duplicate or noise
)

// ElectedHandle is a canonical handle chosen by vote.
type ElectedHandle struct {
	Platform   string  `json:"platform"`
	Handle     string  `json:"handle"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// AlternateHandle is a same-platform handle that lost the election.
type AlternateHandle struct {
	Platform   string       `json:"platform"`
	Handle     string       `json:"handle"`
	URL        string       `json:"url,omitempty"`
	Confidence float64      `json:"confidence"`
	Status     HandleStatus `json:"status"`
	Reason     string       `json:"reason"`
}

// Cluster is one inferred real-world person: a connected component of the
// similarity graph. Canonical is the strongest elected handle overall;
// Elected holds the winner for every platform seen in the component.
type Cluster struct {
	ID         string            `json:"id"`
	Nodes      []Node            `json:"nodes"`
	Canonical  *ElectedHandle    `json:"canonical_handle,omitempty"`
	Elected    []ElectedHandle   `json:"elected_handles,omitempty"`
	Alternates []AlternateHandle `json:"alternate_handles,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Resolve partitions the documents into entity clusters. docs, evs and
// vecs are parallel slices indexed by document position; a length
// mismatch is rejected before any computation.
func Resolve(docs []evidence.Document, evs []evidence.Evidence, vecs []vector.Vector, cfg Config) ([]Cluster, error) {
	if len(docs) != len(evs) || len(docs) != len(vecs) {
		return nil, fmt.Errorf("%w: %d documents, %d evidence records, %d vectors",
			ErrInvalidInput, len(docs), len(evs), len(vecs))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy()
	}
	n := len(docs)
	if n == 0 {
		return nil, nil
	}

	nodes := make([]Node, n)
	for i := range n {
		nodes[i] = newNode(docs[i], evs[i], vecs[i])
	}

	adj := buildGraph(nodes, cfg)
	components := connectedComponents(adj, n)
	cfg.Logger.Debug("similarity graph resolved", "documents", n, "entities", len(components))

	clusters := make([]Cluster, 0, len(components))
	for _, member := range components {
		clusters = append(clusters, buildCluster(member, nodes, cfg))
	}
	return clusters, nil
}

func newNode(doc evidence.Document, ev evidence.Evidence, vec vector.Vector) Node {
	node := Node{
		DocumentIndex: doc.Index,
		URL:           doc.SourceURL,
		Platform:      doc.PlatformHint,
		Handle:        doc.HandleHint,
		Evidence:      ev,
		Vector:        vec,
	}
	// Extracted handles outrank hints; hints come from URL heuristics
	// the normalizer does not trust uncritically.
	for _, h := range ev.Handles {
		if h.Platform != "" {
			node.Platform = h.Platform
			node.Handle = h.Handle
			break
		}
	}
	return node
}

// buildGraph scores every document pair and connects pairs that clear
// either the similarity threshold or the multi-signal confidence floor.
func buildGraph(nodes []Node, cfg Config) [][]int {
	n := len(nodes)
	adj := make([][]int, n)

	type edge struct{ from, to int }
	results := make([][]edge, n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range n {
		g.Go(func() error {
			var row []edge
			for j := i + 1; j < n; j++ {
				sim, conf := matchPair(&nodes[i], &nodes[j])
				if sim >= cfg.CosineThreshold || conf >= 0.6 {
					row = append(row, edge{i, j})
				}
			}
			results[i] = row
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	for _, row := range results {
		for _, e := range row {
			adj[e.from] = append(adj[e.from], e.to)
			adj[e.to] = append(adj[e.to], e.from)
		}
	}
	return adj
}

// connectedComponents walks the undirected graph depth first, returning
// member index lists ordered by their smallest document index.
func connectedComponents(adj [][]int, n int) [][]int {
	visited := make([]bool, n)
	var components [][]int
	for start := range n {
		if visited[start] {
			continue
		}
		var member []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, v)
			for _, w := range adj[v] {
				if !visited[w] {
					visited[w] = true
					stack = append(stack, w)
				}
			}
		}
		sort.Ints(member)
		components = append(components, member)
	}
	return components
}

// buildCluster assembles one entity cluster from a component's members.
func buildCluster(member []int, nodes []Node, cfg Config) Cluster {
	cluster := Cluster{ID: uuid.NewString()}
	var confSum float64
	for _, i := range member {
		cluster.Nodes = append(cluster.Nodes, nodes[i])
		confSum += nodes[i].Evidence.Confidence
	}

	elected, alternates := electHandles(cluster.Nodes, cfg)
	cluster.Elected = elected
	cluster.Alternates = alternates
	if len(elected) > 0 {
		cluster.Canonical = &elected[0]
	}

	// Average evidence confidence, with a bonus when some handle won an
	// election. Singletons with thin evidence score low by construction.
	conf := confSum / float64(len(member))
	if cluster.Canonical != nil {
		conf += 0.2
	}
	if conf > 1 {
		conf = 1
	}
	cluster.Confidence = conf
	return cluster
}
