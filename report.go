package doppel

import (
	"strings"

	"github.com/codeGROOVE-dev/doppel/resolve"
)

// Person is a presentation-friendly projection of one entity cluster.
type Person struct {
	EntityID   string                 `json:"entity_id"`
	Name       string                 `json:"name,omitempty"`
	Platforms  map[string]string      `json:"platforms,omitempty"` // platform -> canonical handle
	Canonical  *resolve.ElectedHandle `json:"canonical_handle,omitempty"`
	Documents  int                    `json:"documents"`
	Confidence float64                `json:"confidence"`
}

// Summarize projects ranked clusters into Person records for the
// presentation layer. Cluster order is preserved.
func Summarize(clusters []resolve.Cluster) []Person {
	people := make([]Person, 0, len(clusters))
	for _, c := range clusters {
		p := Person{
			EntityID:   c.ID,
			Name:       bestName(c),
			Canonical:  c.Canonical,
			Documents:  len(c.Nodes),
			Confidence: c.Confidence,
		}
		if len(c.Elected) > 0 {
			p.Platforms = make(map[string]string, len(c.Elected))
			for _, e := range c.Elected {
				p.Platforms[e.Platform] = e.Handle
			}
		}
		people = append(people, p)
	}
	return people
}

// bestName picks the name mentioned by the most documents in a cluster,
// preferring longer spellings on ties.
func bestName(c resolve.Cluster) string {
	counts := make(map[string]int)
	display := make(map[string]string)
	for _, node := range c.Nodes {
		for _, name := range node.Evidence.Names {
			key := strings.ToLower(name)
			counts[key]++
			if len(name) > len(display[key]) {
				display[key] = name
			}
		}
	}
	best, bestCount := "", 0
	for key, count := range counts {
		switch {
		case count > bestCount,
			count == bestCount && len(display[key]) > len(display[best]):
			best, bestCount = key, count
		}
	}
	return display[best]
}
