package resolve

import (
	"math"
	"strconv"
	"strings"
)

// Per-signal weights for pairwise matching. Only signals that fire
// (produce a nonzero value) participate in the weighted average.
const (
	weightVector   = 0.4
	weightJaccard  = 0.3
	weightHandle   = 0.3
	weightEmail    = 0.4
	weightName     = 0.2
	weightDomain   = 0.1
	weightAffinity = 0.1 // organization or location overlap
)

// matchPair scores two documents. similarity is the weighted average of
// fired signals; confidence adds a small bonus per corroborating signal.
func matchPair(a, b *Node) (similarity, confidence float64) {
	var weighted, weights float64
	fired := 0

	add := func(value, weight float64) {
		if value <= 0 {
			return
		}
		weighted += value * weight
		weights += weight
		fired++
	}

	add(cosineSimilarity(a.Vector.Features, b.Vector.Features), weightVector)
	add(jaccard(tokenSet(a), tokenSet(b)), weightJaccard)
	add(handleSimilarity(a, b), weightHandle)
	add(emailSimilarity(a, b), weightEmail)
	add(nameSimilarity(a, b), weightName)
	add(sharedDomain(a, b), weightDomain)
	add(affinitySimilarity(a, b), weightAffinity)

	if weights == 0 {
		return 0, 0
	}
	similarity = weighted / weights
	confidence = similarity + 0.05*float64(fired)
	if confidence > 1 {
		confidence = 1
	}
	return similarity, confidence
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k := range a {
		dot += a[k] * b[k]
		na += a[k] * a[k]
		nb += b[k] * b[k]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	return sim
}

// tokenSet flattens every extracted token string into one lowercase set.
func tokenSet(n *Node) map[string]bool {
	set := make(map[string]bool)
	put := func(values []string) {
		for _, v := range values {
			set[strings.ToLower(v)] = true
		}
	}
	put(n.Evidence.Names)
	put(n.Evidence.Emails)
	put(n.Evidence.Phones)
	put(n.Evidence.Locations)
	put(n.Evidence.Organizations)
	put(n.Evidence.Domains)
	put(n.Evidence.Keywords)
	put(n.Evidence.URLs)
	for _, h := range n.Evidence.Handles {
		set[strings.ToLower(h.Handle)] = true
	}
	for _, y := range n.Evidence.Years {
		set[strconv.Itoa(y)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// handleSimilarity returns the best match over all handle pairs: an exact
// same-platform handle is definitive, the same handle on another platform
// nearly so, and near-identical spellings score proportionally.
func handleSimilarity(a, b *Node) float64 {
	best := 0.0
	for _, ha := range a.Evidence.Handles {
		for _, hb := range b.Evidence.Handles {
			la, lb := strings.ToLower(ha.Handle), strings.ToLower(hb.Handle)
			var score float64
			switch {
			case la == lb && ha.Platform == hb.Platform:
				score = 1.0
			case la == lb:
				score = 0.9
			case len(la) > 3 && len(lb) > 3:
				if d := levenshtein(la, lb); d <= 2 {
					score = 1 - float64(d)/float64(max(len(la), len(lb)))
				}
			}
			if score > best {
				best = score
			}
		}
	}
	return best
}

func emailSimilarity(a, b *Node) float64 {
	best := 0.0
	for _, ea := range a.Evidence.Emails {
		for _, eb := range b.Evidence.Emails {
			switch {
			case ea == eb:
				return 1.0
			case emailDomain(ea) != "" && emailDomain(ea) == emailDomain(eb):
				best = 0.3
			}
		}
	}
	return best
}

func emailDomain(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return domain
}

// nameSimilarity matches names either by edit distance on long names or
// by substring containment ("Jane Doe" within "Dr Jane Doe Phd").
func nameSimilarity(a, b *Node) float64 {
	best := 0.0
	for _, na := range a.Evidence.Names {
		for _, nb := range b.Evidence.Names {
			la, lb := strings.ToLower(na), strings.ToLower(nb)
			if len(la) > 5 && len(lb) > 5 {
				sim := 1 - float64(levenshtein(la, lb))/float64(max(len(la), len(lb)))
				if sim > 0.7 && sim > best {
					best = sim
					continue
				}
			}
			if (strings.Contains(la, lb) || strings.Contains(lb, la)) && best < 0.6 {
				best = 0.6
			}
		}
	}
	return best
}

func sharedDomain(a, b *Node) float64 {
	for _, da := range a.Evidence.Domains {
		for _, db := range b.Evidence.Domains {
			if da == db {
				return 0.5
			}
		}
	}
	return 0
}

// affinitySimilarity checks organization then location overlap, keeping
// the stronger of the two.
func affinitySimilarity(a, b *Node) float64 {
	if overlaps(a.Evidence.Organizations, b.Evidence.Organizations) {
		return 0.7
	}
	if overlaps(a.Evidence.Locations, b.Evidence.Locations) {
		return 0.4
	}
	return 0
}

func overlaps(a, b []string) bool {
	for _, va := range a {
		for _, vb := range b {
			if strings.EqualFold(va, vb) {
				return true
			}
		}
	}
	return false
}

// levenshtein computes edit distance with the classic two-row dynamic
// program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
