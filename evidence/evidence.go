// Package evidence normalizes raw scraped text into structured, typed,
// confidence-scored identity evidence.
package evidence

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Document is one unit of raw text plus the URL it came from.
// Documents are created by the caller (crawler, scraper, search client)
// and never mutated by the pipeline.
type Document struct {
	Index        int    `json:"index"`
	SourceURL    string `json:"source_url"`
	RawText      string `json:"raw_text"`
	PlatformHint string `json:"platform_hint,omitempty"`
	HandleHint   string `json:"handle_hint,omitempty"`
}

// Handle is a social media handle extracted from evidence.
type Handle struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	URL      string `json:"url,omitempty"`
}

// Evidence holds the typed, deduplicated tokens extracted from one document.
// Each list keeps the highest-confidence variant per case-insensitive value.
type Evidence struct {
	Names         []string `json:"names"`
	Emails        []string `json:"emails"`
	Phones        []string `json:"phones"`
	Locations     []string `json:"locations"`
	Organizations []string `json:"organizations"`
	Domains       []string `json:"domains"`
	Handles       []Handle `json:"handles"`
	Keywords      []string `json:"keywords"`
	Years         []int    `json:"years"`
	URLs          []string `json:"urls"`

	// Confidence is a weighted presence score over evidence categories.
	Confidence float64 `json:"confidence"`
}

// TokenType identifies the kind of a token produced by an extractor.
type TokenType int

// Token kinds, one per extractor.
const (
	TokenName TokenType = iota
	TokenEmail
	TokenPhone
	TokenLocation
	TokenOrganization
	TokenDomain
	TokenHandle
	TokenKeyword
	TokenYear
	TokenURL
)

// token is the intermediate record emitted by each extractor before
// deduplication and bucketing.
type token struct {
	kind       TokenType
	value      string
	confidence float64
	platform   string // handles only
	url        string // handles and URLs only
}

// URLValidator decides whether an extracted URL is worth keeping.
// URL fetching and classification live outside this package; the
// default validator only checks structural validity.
type URLValidator interface {
	Valid(rawURL string) bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithURLValidator sets a custom URL validator.
func WithURLValidator(v URLValidator) Option {
	return func(n *Normalizer) { n.validator = v }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = logger }
}

// Normalizer converts raw text into Evidence records.
type Normalizer struct {
	validator URLValidator
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		validator: defaultValidator{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize extracts structured evidence from one document's raw text.
// It is total: malformed input yields empty lists, never an error.
func (n *Normalizer) Normalize(rawText, sourceURL string) Evidence {
	rawText = flattenHTML(rawText)
	clean := cleanText(rawText)
	if clean == "" {
		return emptyEvidence()
	}
	lower := strings.ToLower(clean)

	var tokens []token
	tokens = append(tokens, extractNames(clean)...)
	tokens = append(tokens, extractEmails(lower)...)
	tokens = append(tokens, extractPhones(clean)...)
	tokens = append(tokens, extractLocations(clean)...)
	tokens = append(tokens, extractOrganizations(clean)...)
	tokens = append(tokens, extractDomains(lower)...)
	tokens = append(tokens, extractHandles(lower)...)
	tokens = append(tokens, extractYears(clean, n.now().Year())...)
	tokens = append(tokens, extractURLs(rawText, n.validator)...)
	tokens = append(tokens, extractKeywords(lower)...)

	ev := bucketTokens(dedupeTokens(tokens))
	ev.Confidence = presenceConfidence(ev)

	n.logger.Debug("normalized evidence",
		"url", sourceURL,
		"names", len(ev.Names),
		"emails", len(ev.Emails),
		"handles", len(ev.Handles),
		"confidence", ev.Confidence)
	return ev
}

// Normalize extracts structured evidence using a default Normalizer.
func Normalize(rawText, sourceURL string) Evidence {
	return New().Normalize(rawText, sourceURL)
}

// cleanText applies NFKC normalization and collapses runs of whitespace.
func cleanText(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func emptyEvidence() Evidence {
	return Evidence{}
}

// dedupeTokens keeps the highest-confidence token per (kind, lowercased value).
func dedupeTokens(tokens []token) []token {
	type key struct {
		kind  TokenType
		value string
	}
	best := make(map[key]token, len(tokens))
	for _, t := range tokens {
		if t.value == "" {
			continue
		}
		k := key{t.kind, strings.ToLower(t.value)}
		if prev, ok := best[k]; !ok || t.confidence > prev.confidence {
			best[k] = t
		}
	}
	out := make([]token, 0, len(best))
	for _, t := range best {
		out = append(out, t)
	}
	// Highest confidence first, value as a deterministic tie break.
	sort.Slice(out, func(i, j int) bool {
		if out[i].confidence != out[j].confidence {
			return out[i].confidence > out[j].confidence
		}
		return out[i].value < out[j].value
	})
	return out
}

func bucketTokens(tokens []token) Evidence {
	var ev Evidence
	for _, t := range tokens {
		switch t.kind {
		case TokenName:
			ev.Names = append(ev.Names, t.value)
		case TokenEmail:
			ev.Emails = append(ev.Emails, t.value)
		case TokenPhone:
			ev.Phones = append(ev.Phones, t.value)
		case TokenLocation:
			ev.Locations = append(ev.Locations, t.value)
		case TokenOrganization:
			ev.Organizations = append(ev.Organizations, t.value)
		case TokenDomain:
			ev.Domains = append(ev.Domains, t.value)
		case TokenHandle:
			ev.Handles = append(ev.Handles, Handle{Platform: t.platform, Handle: t.value, URL: t.url})
		case TokenKeyword:
			ev.Keywords = append(ev.Keywords, t.value)
		case TokenYear:
			ev.Years = append(ev.Years, atoiYear(t.value))
		case TokenURL:
			ev.URLs = append(ev.URLs, t.value)
		}
	}
	return ev
}

// Category weights for the overall evidence confidence score.
var categoryWeights = []struct {
	weight  float64
	present func(Evidence) bool
}{
	{0.3, func(e Evidence) bool { return len(e.Names) > 0 }},
	{0.25, func(e Evidence) bool { return len(e.Emails) > 0 }},
	{0.2, func(e Evidence) bool { return len(e.Handles) > 0 }},
	{0.1, func(e Evidence) bool { return len(e.Organizations) > 0 }},
	{0.05, func(e Evidence) bool { return len(e.Locations) > 0 }},
	{0.1, func(e Evidence) bool { return len(e.Phones) > 0 }},
}

// presenceConfidence scores evidence by which categories are populated:
// the summed weight of present categories over the total weight considered.
func presenceConfidence(ev Evidence) float64 {
	var got, total float64
	for _, c := range categoryWeights {
		total += c.weight
		if c.present(ev) {
			got += c.weight
		}
	}
	if total == 0 {
		return 0
	}
	return got / total
}

func atoiYear(s string) int {
	y := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		y = y*10 + int(r-'0')
	}
	return y
}
