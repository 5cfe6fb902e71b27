package doppel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/doppel/density"
	"github.com/codeGROOVE-dev/doppel/evidence"
	"github.com/codeGROOVE-dev/doppel/resolve"
)

// Two well-separated people: a Portland muralist with a repeated
// instagram handle and an Austin welder. Every document names one of
// them and shares an email, organization, or handle with its group.
func twoPeopleDocs() []evidence.Document {
	texts := []string{
		"Jane Doe is a muralist based in Portland. Reach her at jane@acme.io.",
		"Jane Doe paints murals for Acme Inc. Email jane@acme.io for commissions.",
		"Portfolio of Jane Doe. Follow https://instagram.com/janedoe for new murals.",
		"Jane Doe spoke at the 2019 mural festival. Contact jane@acme.io.",
		"Interview with Jane Doe about public art in Portland.",
		"Jane Doe joined Acme Inc in 2019. More at https://instagram.com/janedoe.",
		"Commission inquiries for Jane Doe: jane@acme.io.",
		"Jane Doe shares studio photos at https://instagram.com/janedoe.",
		"John Smith is a welder based in Austin. Email john@globex.com.",
		"John Smith fabricates gates for Globex Corp. Contact john@globex.com.",
		"John Smith joined Globex Corp in 2021.",
		"Workshop schedule from John Smith: john@globex.com.",
	}
	docs := make([]evidence.Document, len(texts))
	for i, text := range texts {
		docs[i] = evidence.Document{Index: i, SourceURL: "https://example.com/page", RawText: text}
	}
	return docs
}

func TestAnalyzeTwoPeople(t *testing.T) {
	docs := twoPeopleDocs()
	clusters, err := Analyze(context.Background(), docs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}

	seen := make(map[int]int)
	for _, c := range clusters {
		if c.Confidence <= 0 || c.Confidence > 1 {
			t.Errorf("cluster %s confidence %v out of range", c.ID, c.Confidence)
		}
		for _, node := range c.Nodes {
			seen[node.DocumentIndex]++
		}
	}
	for i := range docs {
		if seen[i] != 1 {
			t.Errorf("document %d appears in %d clusters, want exactly 1", i, seen[i])
		}
	}

	var jane *resolve.Cluster
	for i := range clusters {
		if len(clusters[i].Nodes) == 8 {
			jane = &clusters[i]
		}
	}
	if jane == nil {
		t.Fatal("no 8-document cluster for the muralist")
	}
	if jane.Canonical == nil {
		t.Fatal("muralist cluster has no canonical handle")
	}
	if jane.Canonical.Platform != "instagram" || jane.Canonical.Handle != "janedoe" {
		t.Errorf("canonical = %s:%s, want instagram:janedoe", jane.Canonical.Platform, jane.Canonical.Handle)
	}
}

func TestSummarizeTwoPeople(t *testing.T) {
	clusters, err := Analyze(context.Background(), twoPeopleDocs())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	people := Summarize(clusters)
	if len(people) != len(clusters) {
		t.Fatalf("Summarize returned %d people for %d clusters", len(people), len(clusters))
	}

	names := make(map[string]bool)
	for _, p := range people {
		names[p.Name] = true
		if p.Documents == 0 {
			t.Errorf("person %s has no documents", p.EntityID)
		}
	}
	if !names["Jane Doe"] || !names["John Smith"] {
		t.Errorf("names = %v, want Jane Doe and John Smith", names)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	clusters, err := Analyze(context.Background(), nil)
	if err != nil || clusters != nil {
		t.Fatalf("Analyze(nil) = %v, %v, want nil, nil", clusters, err)
	}
}

func TestAnalyzeIndexMismatch(t *testing.T) {
	docs := []evidence.Document{{Index: 3, RawText: "whatever"}}
	_, err := Analyze(context.Background(), docs)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Analyze with wrong index: err = %v, want ErrInvalidInput", err)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, twoPeopleDocs())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Analyze with cancelled context: err = %v, want context.Canceled", err)
	}
}

// An empty document cannot match anything; it must survive as its own
// low-confidence singleton rather than being absorbed or lost.
func TestAnalyzeEmptyDocumentSingleton(t *testing.T) {
	docs := []evidence.Document{
		{Index: 0, RawText: "Jane Doe paints murals. Email jane@acme.io."},
		{Index: 1, RawText: "Jane Doe paints murals. Email jane@acme.io."},
		{Index: 2, RawText: ""},
	}
	cfg := DefaultConfig()
	cfg.Density.MinClusterSize = 2 // keep even the empty singleton
	clusters, err := Analyze(context.Background(), docs, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want pair plus empty singleton", len(clusters))
	}
	found := false
	for _, c := range clusters {
		if len(c.Nodes) == 1 && c.Nodes[0].DocumentIndex == 2 {
			found = true
		}
	}
	if !found {
		t.Error("empty document did not form its own singleton cluster")
	}
}

// corruptCache returns unparseable bytes for every key.
type corruptCache struct{}

func (corruptCache) GetSet(context.Context, string, func(context.Context) ([]byte, error), ...time.Duration) ([]byte, error) {
	return []byte("not json"), nil
}

func (corruptCache) TTL() time.Duration { return 0 }

// A cache entry that fails to decode must not poison the pipeline; the
// document is normalized directly and the result matches a cacheless run.
func TestAnalyzeCacheCorruptEntry(t *testing.T) {
	docs := twoPeopleDocs()
	want, err := Analyze(context.Background(), docs)
	if err != nil {
		t.Fatalf("Analyze without cache: %v", err)
	}
	got, err := Analyze(context.Background(), docs, WithCache(corruptCache{}))
	if err != nil {
		t.Fatalf("Analyze with corrupt cache: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d clusters, want %d", len(got), len(want))
	}
	for i := range got {
		if len(got[i].Nodes) != len(want[i].Nodes) {
			t.Errorf("cluster %d has %d nodes, want %d", i, len(got[i].Nodes), len(want[i].Nodes))
		}
	}
}

func TestAggregate(t *testing.T) {
	clusters := []resolve.Cluster{
		{ID: "a", Confidence: 0.8, Nodes: []resolve.Node{{DocumentIndex: 0}, {DocumentIndex: 1}}},
		{ID: "b", Confidence: 0.25, Nodes: []resolve.Node{{DocumentIndex: 2}}},
	}
	assignments := []density.Assignment{
		{DocumentIndex: 0, Label: density.Outlier},
		{DocumentIndex: 1, Label: density.Outlier},
		{DocumentIndex: 2, Label: 0},
	}
	cfg := DefaultConfig() // MinClusterSize 3, OutlierFloor 0.3

	out := aggregate(clusters, assignments, cfg)
	if len(out) != 1 {
		t.Fatalf("got %d clusters, want tiny low-confidence cluster dropped", len(out))
	}
	if out[0].ID != "a" {
		t.Fatalf("kept cluster %s, want a", out[0].ID)
	}
	if out[0].Confidence != 0.4 {
		t.Errorf("outlier-heavy cluster confidence = %v, want halved to 0.4", out[0].Confidence)
	}
}

func TestAggregateOrdering(t *testing.T) {
	clusters := []resolve.Cluster{
		{ID: "small", Confidence: 0.5, Nodes: []resolve.Node{{DocumentIndex: 3}}},
		{ID: "big", Confidence: 0.5, Nodes: []resolve.Node{{DocumentIndex: 0}, {DocumentIndex: 1}}},
		{ID: "strong", Confidence: 0.9, Nodes: []resolve.Node{{DocumentIndex: 2}}},
	}
	cfg := DefaultConfig()
	cfg.Density.MinClusterSize = 1

	out := aggregate(clusters, nil, cfg)
	want := []string{"strong", "big", "small"}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("rank %d = %s, want %s", i, out[i].ID, id)
		}
	}
}

func TestBestName(t *testing.T) {
	c := resolve.Cluster{Nodes: []resolve.Node{
		{Evidence: evidence.Evidence{Names: []string{"Jane Doe"}}},
		{Evidence: evidence.Evidence{Names: []string{"jane doe"}}},
		{Evidence: evidence.Evidence{Names: []string{"Janet Doering"}}},
	}}
	if got := bestName(c); got != "Jane Doe" {
		t.Errorf("bestName = %q, want the majority spelling Jane Doe", got)
	}
	if got := bestName(resolve.Cluster{}); got != "" {
		t.Errorf("bestName of empty cluster = %q, want empty", got)
	}
}
