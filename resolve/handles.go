package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codeGROOVE-dev/doppel/evidence"
)

// HandleGroup aggregates one (platform, handle) pair across a component's
// documents: how often it appeared and how trustworthy those documents are.
type HandleGroup struct {
	Platform      string
	Handle        string
	URL           string
	Count         int
	AvgConfidence float64
	Evidence      []evidence.Evidence // backing evidence records
}

// score is the election vote: occurrence count weighted by the average
// confidence of the documents that produced the handle.
func (g HandleGroup) score() float64 {
	return float64(g.Count) * g.AvgConfidence
}

// MultiAccountPolicy decides whether a losing same-platform handle is a
// legitimate second account or a duplicate. The heuristic is acknowledged
// to be approximate, so it lives behind an interface rather than
// hard-coded logic.
type MultiAccountPolicy interface {
	Classify(candidate, canonical HandleGroup) (accepted bool, reason string)
}

// KeywordPolicy accepts an alternate when the evidence contains explicit
// multi-account vocabulary, or when the two handles appear in clearly
// different contexts (one backed by organization mentions, one not).
type KeywordPolicy struct {
	Keywords []string
}

// DefaultPolicy returns the stock multi-account policy.
func DefaultPolicy() *KeywordPolicy {
	return &KeywordPolicy{Keywords: []string{
		"alt", "alternate", "backup", "business", "personal", "private",
		"second", "work",
	}}
}

// Classify implements MultiAccountPolicy.
func (p *KeywordPolicy) Classify(candidate, canonical HandleGroup) (bool, string) {
	for _, ev := range candidate.Evidence {
		for _, kw := range ev.Keywords {
			for _, want := range p.Keywords {
				if kw == want || strings.Contains(kw, want) {
					return true, "multi-account vocabulary: " + want
				}
			}
		}
	}
	candOrg := organizationFraction(candidate.Evidence)
	canonOrg := organizationFraction(canonical.Evidence)
	if (candOrg >= 0.5) != (canonOrg >= 0.5) {
		return true, "context split: organization presence differs between handles"
	}
	return false, "no multi-account signal; likely duplicate"
}

func organizationFraction(evs []evidence.Evidence) float64 {
	if len(evs) == 0 {
		return 0
	}
	with := 0
	for _, ev := range evs {
		if len(ev.Organizations) > 0 {
			with++
		}
	}
	return float64(with) / float64(len(evs))
}

// electHandles groups a component's handles by (platform, handle), elects
// the highest-scoring group per platform, and classifies the losers.
// Elected winners are ordered strongest first, so Elected[0] is the
// component's canonical handle overall.
func electHandles(nodes []Node, cfg Config) (elected []ElectedHandle, alternates []AlternateHandle) {
	groups := make(map[string]*HandleGroup)
	for _, node := range nodes {
		for _, h := range node.Evidence.Handles {
			if h.Platform == "" {
				continue
			}
			key := h.Platform + "\x00" + strings.ToLower(h.Handle)
			g, ok := groups[key]
			if !ok {
				g = &HandleGroup{Platform: h.Platform, Handle: strings.ToLower(h.Handle), URL: h.URL}
				groups[key] = g
			}
			g.Count++
			g.AvgConfidence += node.Evidence.Confidence
			g.Evidence = append(g.Evidence, node.Evidence)
			if g.URL == "" {
				g.URL = h.URL
			}
		}
	}
	if len(groups) == 0 {
		return nil, nil
	}

	byPlatform := make(map[string][]*HandleGroup)
	for _, g := range groups {
		g.AvgConfidence /= float64(g.Count)
		byPlatform[g.Platform] = append(byPlatform[g.Platform], g)
	}

	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		candidates := byPlatform[platform]
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].score() != candidates[j].score() {
				return candidates[i].score() > candidates[j].score()
			}
			return candidates[i].Handle < candidates[j].Handle
		})

		winner := candidates[0]
		elected = append(elected, ElectedHandle{
			Platform:   platform,
			Handle:     winner.Handle,
			URL:        winner.URL,
			Confidence: clamp01(winner.AvgConfidence + 0.1*float64(winner.Count-1)),
			Reason: fmt.Sprintf("%d of %d documents voted, average evidence confidence %.2f",
				winner.Count, len(nodes), winner.AvgConfidence),
		})

		for _, loser := range candidates[1:] {
			alt := AlternateHandle{
				Platform:   platform,
				Handle:     loser.Handle,
				URL:        loser.URL,
				Confidence: clamp01(loser.AvgConfidence),
				Status:     Rejected,
			}
			if cfg.MultiAccount {
				accepted, reason := cfg.Policy.Classify(*loser, *winner)
				if accepted {
					alt.Status = Accepted
				}
				alt.Reason = reason
			} else {
				alt.Reason = "multi-account detection disabled"
			}
			alternates = append(alternates, alt)
		}
	}

	// Strongest platform first so Elected[0] is the overall canonical.
	sort.SliceStable(elected, func(i, j int) bool {
		return electScore(elected[i], byPlatform) > electScore(elected[j], byPlatform)
	})
	return elected, alternates
}

func electScore(e ElectedHandle, byPlatform map[string][]*HandleGroup) float64 {
	for _, g := range byPlatform[e.Platform] {
		if g.Handle == e.Handle {
			return g.score()
		}
	}
	return 0
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
