// Package vector turns normalized evidence into comparable numeric feature
// vectors using TF-IDF weighting with an optional reduced dimensionality.
package vector

import (
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/doppel/evidence"
)

// Config controls vocabulary construction and vector shape.
type Config struct {
	MinDocFreq  int     // keep terms appearing in at least this many documents
	MaxDocFreq  float64 // drop terms appearing in more than this fraction of documents
	Unigrams    bool
	Bigrams     bool
	Components  int // output dimensionality cap
	L2Normalize bool
}

// DefaultConfig returns the configuration used by the pipeline unless
// overridden.
func DefaultConfig() Config {
	return Config{
		MinDocFreq:  1,
		MaxDocFreq:  0.95,
		Unigrams:    true,
		Bigrams:     true,
		Components:  64,
		L2Normalize: true,
	}
}

// Vector is one document's position in feature space.
// Features has length min(Config.Components, vocabulary size).
type Vector struct {
	DocumentIndex int       `json:"document_index"`
	Features      []float64 `json:"features"`
	FeatureNames  []string  `json:"feature_names"`
}

// Vectorize computes one feature vector per evidence record. Output is
// indexed by document position; a document matching no vocabulary term
// gets an all-zero vector of the shared dimensionality.
func Vectorize(evs []evidence.Evidence, cfg Config) []Vector {
	n := len(evs)
	if n == 0 {
		return nil
	}

	// Term extraction is independent per document.
	terms := make([][]string, n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range evs {
		g.Go(func() error {
			terms[i] = documentTerms(evs[i], cfg)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	vocab, df := buildVocabulary(terms, cfg, n)

	rows := make([][]float64, n)
	zero := make([]bool, n)
	for i := range rows {
		rows[i] = tfidfRow(terms[i], vocab, df, n)
		zero[i] = allZero(rows[i])
	}

	centerColumns(rows)

	dim := min(cfg.Components, len(vocab))
	if dim < 0 {
		dim = 0
	}
	names := vocab[:dim]

	out := make([]Vector, n)
	for i := range rows {
		features := rows[i][:dim]
		if zero[i] {
			// A document matching no vocabulary term stays at the
			// origin; centering must not move it.
			features = make([]float64, dim)
		} else if cfg.L2Normalize {
			normalize(features)
		}
		out[i] = Vector{DocumentIndex: i, Features: features, FeatureNames: names}
	}
	return out
}

// Vocabulary returns the sorted corpus vocabulary for the given config,
// before dimensionality reduction. Exposed for inspection and tests.
func Vocabulary(evs []evidence.Evidence, cfg Config) []string {
	terms := make([][]string, len(evs))
	for i := range evs {
		terms[i] = documentTerms(evs[i], cfg)
	}
	vocab, _ := buildVocabulary(terms, cfg, len(evs))
	return vocab
}

// documentTerms flattens one evidence record into its weighted term list.
// Names and handles are counted twice to emphasize identity signal.
func documentTerms(ev evidence.Evidence, cfg Config) []string {
	var bag []string
	for _, name := range ev.Names {
		bag = append(bag, name, name)
	}
	for _, h := range ev.Handles {
		bag = append(bag, h.Handle, h.Handle)
	}
	bag = append(bag, ev.Organizations...)
	bag = append(bag, ev.Locations...)
	for _, email := range ev.Emails {
		if _, domain, ok := strings.Cut(email, "@"); ok {
			bag = append(bag, domain)
		}
	}
	bag = append(bag, ev.Domains...)
	bag = append(bag, ev.Keywords...)
	for _, y := range ev.Years {
		bag = append(bag, strconv.Itoa(y))
	}

	var terms []string
	for _, entry := range bag {
		words := tokenize(entry)
		if cfg.Unigrams {
			terms = append(terms, words...)
		}
		if cfg.Bigrams {
			for i := 0; i+1 < len(words); i++ {
				terms = append(terms, words[i]+"_"+words[i+1])
			}
		}
	}
	return terms
}

// tokenize splits an entry into lowercase alphanumeric words, dropping
// short and stop words.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	var words []string
	start := -1
	for i, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case alnum && start < 0:
			start = i
		case !alnum && start >= 0:
			if w := s[start:i]; len(w) > 2 && !evidence.IsStopWord(w) {
				words = append(words, w)
			}
			start = -1
		}
	}
	if start >= 0 {
		if w := s[start:]; len(w) > 2 && !evidence.IsStopWord(w) {
			words = append(words, w)
		}
	}
	return words
}

// buildVocabulary counts document frequency per term and keeps terms
// within the configured bounds. The vocabulary is sorted for determinism.
func buildVocabulary(terms [][]string, cfg Config, n int) (vocab []string, df map[string]int) {
	df = make(map[string]int)
	for _, docTerms := range terms {
		seen := make(map[string]bool, len(docTerms))
		for _, t := range docTerms {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	minDF := cfg.MinDocFreq
	if minDF < 1 {
		minDF = 1
	}
	maxDF := int(math.Floor(cfg.MaxDocFreq * float64(n)))
	for t, c := range df {
		if c < minDF || c > maxDF {
			continue
		}
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	return vocab, df
}

// tfidfRow computes one document's TF-IDF weights over the vocabulary.
// Term frequency is normalized by the count of distinct vocabulary terms
// the document matched, not raw document length.
func tfidfRow(docTerms []string, vocab []string, df map[string]int, n int) []float64 {
	counts := make(map[string]int, len(docTerms))
	for _, t := range docTerms {
		counts[t]++
	}
	matched := 0
	for _, t := range vocab {
		if counts[t] > 0 {
			matched++
		}
	}
	row := make([]float64, len(vocab))
	if matched == 0 {
		return row
	}
	for j, t := range vocab {
		c := counts[t]
		if c == 0 {
			continue
		}
		tf := float64(c) / float64(matched)
		idf := math.Log(float64(n) / float64(df[t]))
		row[j] = tf * idf
	}
	return row
}

// centerColumns subtracts each column's mean across the corpus. Retaining
// a prefix of centered columns is an approximate, deterministic reduction;
// it is not a full eigendecomposition and output values will differ from
// real SVD while satisfying the same dimensionality bound.
func centerColumns(rows [][]float64) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	n := float64(len(rows))
	for j := range rows[0] {
		var sum float64
		for i := range rows {
			sum += rows[i][j]
		}
		mean := sum / n
		for i := range rows {
			rows[i][j] -= mean
		}
	}
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// normalize scales v to unit Euclidean length in place. Zero vectors
// stay zero.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}
