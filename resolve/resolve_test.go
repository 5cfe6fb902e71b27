package resolve

import (
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/doppel/evidence"
	"github.com/codeGROOVE-dev/doppel/vector"
)

func emptyVectors(n int) []vector.Vector {
	vecs := make([]vector.Vector, n)
	for i := range vecs {
		vecs[i] = vector.Vector{DocumentIndex: i}
	}
	return vecs
}

func docsFor(evs []evidence.Evidence) []evidence.Document {
	docs := make([]evidence.Document, len(evs))
	for i := range docs {
		docs[i] = evidence.Document{Index: i, SourceURL: "https://example.com/doc"}
	}
	return docs
}

func TestResolveLengthMismatch(t *testing.T) {
	evs := []evidence.Evidence{{}, {}}
	_, err := Resolve(docsFor(evs), evs, emptyVectors(3), DefaultConfig())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Resolve with mismatched lengths: err = %v, want ErrInvalidInput", err)
	}
}

func TestResolveEmpty(t *testing.T) {
	clusters, err := Resolve(nil, nil, nil, DefaultConfig())
	if err != nil || clusters != nil {
		t.Fatalf("Resolve(nil) = %v, %v, want nil, nil", clusters, err)
	}
}

// Every document lands in exactly one cluster, matching or not.
func TestResolvePartition(t *testing.T) {
	evs := []evidence.Evidence{
		{Names: []string{"Jane Doe"}, Emails: []string{"jane@acme.io"}, Confidence: 0.6},
		{Names: []string{"Jane Doe"}, Emails: []string{"jane@acme.io"}, Confidence: 0.6},
		{Names: []string{"Bob Odd"}, Confidence: 0.3},
		{Keywords: []string{"gardening"}, Confidence: 0.1},
		{},
	}
	clusters, err := Resolve(docsFor(evs), evs, emptyVectors(len(evs)), DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	seen := make(map[int]int)
	for _, c := range clusters {
		if len(c.Nodes) == 0 {
			t.Errorf("cluster %s has no nodes", c.ID)
		}
		for _, node := range c.Nodes {
			seen[node.DocumentIndex]++
		}
	}
	for i := range evs {
		if seen[i] != 1 {
			t.Errorf("document %d appears in %d clusters, want exactly 1", i, seen[i])
		}
	}
}

// Two documents sharing an identical instagram handle outvote a third
// with a near-miss spelling and weaker evidence.
func TestCanonicalHandleStability(t *testing.T) {
	evs := []evidence.Evidence{
		{
			Names:      []string{"Jane Doe"},
			Emails:     []string{"jane@acme.io"},
			Handles:    []evidence.Handle{{Platform: "instagram", Handle: "janedoe", URL: "https://instagram.com/janedoe"}},
			Confidence: 0.75,
		},
		{
			Names:      []string{"Jane Doe"},
			Emails:     []string{"jane@acme.io"},
			Handles:    []evidence.Handle{{Platform: "instagram", Handle: "janedoe", URL: "https://instagram.com/janedoe"}},
			Confidence: 0.75,
		},
		{
			Names:      []string{"Jane Doe"},
			Handles:    []evidence.Handle{{Platform: "instagram", Handle: "jane.d"}},
			Confidence: 0.5,
		},
	}
	clusters, err := Resolve(docsFor(evs), evs, emptyVectors(3), DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}

	c := clusters[0]
	if c.Canonical == nil {
		t.Fatal("no canonical handle elected")
	}
	if c.Canonical.Handle != "janedoe" || c.Canonical.Platform != "instagram" {
		t.Errorf("canonical = %s:%s, want instagram:janedoe", c.Canonical.Platform, c.Canonical.Handle)
	}
	if len(c.Alternates) != 1 || c.Alternates[0].Handle != "jane.d" {
		t.Fatalf("Alternates = %+v, want the losing jane.d", c.Alternates)
	}
	if c.Alternates[0].Status != Rejected {
		t.Errorf("alternate status = %s, want rejected without multi-account signals", c.Alternates[0].Status)
	}
}

func TestResolveSingletons(t *testing.T) {
	evs := []evidence.Evidence{
		{Names: []string{"Jane Doe"}, Keywords: []string{"painting"}, Confidence: 0.3},
		{Names: []string{"Zoe Quartz"}, Keywords: []string{"welding"}, Confidence: 0.3},
	}
	clusters, err := Resolve(docsFor(evs), evs, emptyVectors(2), DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2 singletons", len(clusters))
	}
	for _, c := range clusters {
		if len(c.Nodes) != 1 {
			t.Errorf("cluster %s has %d nodes, want 1", c.ID, len(c.Nodes))
		}
		if c.Canonical != nil {
			t.Errorf("cluster %s has canonical %+v without handles", c.ID, c.Canonical)
		}
	}
}

func TestMultiAccountAccepted(t *testing.T) {
	evs := []evidence.Evidence{
		{
			Names:      []string{"Jane Doe"},
			Emails:     []string{"jane@acme.io"},
			Handles:    []evidence.Handle{{Platform: "instagram", Handle: "janedoe"}},
			Confidence: 0.8,
		},
		{
			Names:      []string{"Jane Doe"},
			Emails:     []string{"jane@acme.io"},
			Handles:    []evidence.Handle{{Platform: "instagram", Handle: "janedoe.business"}},
			Keywords:   []string{"business"},
			Confidence: 0.6,
		},
	}
	clusters, err := Resolve(docsFor(evs), evs, emptyVectors(2), DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	alts := clusters[0].Alternates
	if len(alts) != 1 {
		t.Fatalf("Alternates = %+v, want 1", alts)
	}
	if alts[0].Status != Accepted {
		t.Errorf("alternate with business vocabulary: status = %s, want accepted (%s)", alts[0].Status, alts[0].Reason)
	}
}

func TestMatchPairSignals(t *testing.T) {
	tests := []struct {
		name     string
		a, b     evidence.Evidence
		wantEdge bool
	}{
		{
			name:     "identical email",
			a:        evidence.Evidence{Emails: []string{"jane@acme.io"}, Names: []string{"Jane Doe"}},
			b:        evidence.Evidence{Emails: []string{"jane@acme.io"}, Names: []string{"Jane Doe"}},
			wantEdge: true,
		},
		{
			name:     "nothing shared",
			a:        evidence.Evidence{Names: []string{"Jane Doe"}, Keywords: []string{"painting"}},
			b:        evidence.Evidence{Names: []string{"Bob Odd"}, Keywords: []string{"welding"}},
			wantEdge: false,
		},
		{
			name:     "same handle different platform",
			a:        evidence.Evidence{Handles: []evidence.Handle{{Platform: "github", Handle: "janedoe"}}},
			b:        evidence.Evidence{Handles: []evidence.Handle{{Platform: "twitter", Handle: "janedoe"}}},
			wantEdge: true,
		},
		{
			name:     "shared domain only is weak",
			a:        evidence.Evidence{Domains: []string{"acme.io"}, Keywords: []string{"painting", "murals", "frescoes"}},
			b:        evidence.Evidence{Domains: []string{"acme.io"}, Keywords: []string{"welding", "steel", "forges"}},
			wantEdge: false,
		},
	}
	cfg := DefaultConfig()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			na := Node{Evidence: tc.a}
			nb := Node{Evidence: tc.b}
			sim, conf := matchPair(&na, &nb)
			gotEdge := sim >= cfg.CosineThreshold || conf >= 0.6
			if gotEdge != tc.wantEdge {
				t.Errorf("matchPair sim=%.3f conf=%.3f edge=%v, want %v", sim, conf, gotEdge, tc.wantEdge)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical short name", "Jo Li", "Jo Li", 0.6},
		{"identical long name", "Jane Doe", "Jane Doe", 1.0},
		{"containment", "Jane Doe", "Dr Jane Doe Phd", 0.6},
		{"unrelated", "Jane Doe", "Bob Odd", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			na := Node{Evidence: evidence.Evidence{Names: []string{tc.a}}}
			nb := Node{Evidence: evidence.Evidence{Names: []string{tc.b}}}
			if got := nameSimilarity(&na, &nb); got != tc.want {
				t.Errorf("nameSimilarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"janedoe", "janedoe", 0},
		{"janedoe", "jane.d", 3},
		{"janedoe", "janedo", 1},
	}
	for _, tc := range tests {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"x": true, "y": true, "z": true}
	b := map[string]bool{"y": true, "z": true, "w": true}
	if got := jaccard(a, b); got != 0.5 {
		t.Errorf("jaccard = %v, want 0.5", got)
	}
	if got := jaccard(a, map[string]bool{}); got != 0 {
		t.Errorf("jaccard with empty set = %v, want 0", got)
	}
}
