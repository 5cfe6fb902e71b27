package evidence

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled extraction patterns.
var (
	namePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,3}\b`)
	emailPattern = regexp.MustCompile(`[a-z0-9][a-z0-9._%+-]*@[a-z0-9][a-z0-9.-]*\.[a-z]{2,}`)
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{2,4}[\s.-]?\d{2,4}(?:[\s.-]?\d{2,4})?`),
		regexp.MustCompile(`\(\d{3}\)[\s.-]?\d{3}[\s.-]?\d{4}`),
		regexp.MustCompile(`\b\d{3}[.-]\d{3}[.-]\d{4}\b`),
	}
	// Cue words are case-flexible but the captured value must be
	// title case, otherwise "based in the heart of" extracts junk.
	locationCuePattern = regexp.MustCompile(`\b(?:[Bb]ased in|[Ll]ives in|[Ll]iving in|[Ll]ocated in|[Ff]rom) ([A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+){0,2})`)
	cityStatePattern   = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)?), ([A-Z]{2})\b`)
	orgCuePattern      = regexp.MustCompile(`\b(?:[Ww]orks at|[Ww]orking at|[Ee]ngineer at|[Dd]eveloper at|[Ff]ounder of|CEO of|[Ee]mployed at|at) ([A-Z][A-Za-z0-9&.]*(?: [A-Z][A-Za-z0-9&.]*){0,3})`)
	orgSuffixPattern   = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&]*(?: [A-Z][A-Za-z0-9&]*){0,3} (?:Inc|LLC|Ltd|Corp|Corporation|GmbH|Co)\.?)(?:\s|$|[,;])`)
	domainPattern      = regexp.MustCompile(`\b([a-z0-9][a-z0-9-]{0,62}(?:\.[a-z0-9][a-z0-9-]{0,62})*\.[a-z]{2,12})\b`)
	yearPattern        = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)
	urlPattern         = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	wordPattern        = regexp.MustCompile(`[a-z0-9]+`)
)

// Low-signal words that disqualify a title-case sequence as a person name.
var nameBlacklist = map[string]bool{
	"admin": true, "test": true, "user": true, "info": true, "support": true,
	"contact": true, "about": true, "home": true, "page": true, "profile": true,
	"privacy": true, "policy": true, "terms": true, "service": true, "login": true,
}

func extractNames(text string) []token {
	var out []token
	for _, m := range namePattern.FindAllString(text, -1) {
		words := strings.Fields(m)
		blacklisted := false
		for _, w := range words {
			if nameBlacklist[strings.ToLower(w)] {
				blacklisted = true
				break
			}
		}
		// Base 0.5, plus a small boost per extra word. Two title-case
		// words are common noise; three or four are a strong name signal.
		conf := 0.5 + 0.15*float64(len(words)-2)
		if blacklisted {
			conf -= 0.4
		}
		if conf <= 0.1 {
			continue
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, token{kind: TokenName, value: m, confidence: conf})
	}
	return out
}

func extractEmails(lower string) []token {
	var out []token
	for _, m := range emailPattern.FindAllString(lower, -1) {
		conf := 0.8
		local, domain, _ := strings.Cut(m, "@")
		switch {
		case strings.HasSuffix(domain, ".edu"):
			conf = 0.95
		case domain == "gmail.com" || domain == "outlook.com" || domain == "yahoo.com" ||
			domain == "protonmail.com" || domain == "icloud.com":
			conf = 0.9
		}
		if strings.Contains(local, "noreply") || strings.Contains(local, "no-reply") ||
			strings.Contains(local, "donotreply") || strings.Contains(local, "mailer-daemon") {
			conf = 0.2
		}
		out = append(out, token{kind: TokenEmail, value: m, confidence: conf})
	}
	return out
}

func extractPhones(text string) []token {
	var out []token
	for _, p := range phonePatterns {
		for _, m := range p.FindAllString(text, -1) {
			digits := digitsOnly(m)
			if len(digits) < 10 || len(digits) > 15 {
				continue
			}
			out = append(out, token{kind: TokenPhone, value: digits, confidence: 0.7})
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractLocations(text string) []token {
	var out []token
	for _, m := range locationCuePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, token{kind: TokenLocation, value: m[1], confidence: 0.7})
	}
	for _, m := range cityStatePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, token{kind: TokenLocation, value: m[1] + ", " + m[2], confidence: 0.6})
	}
	return out
}

func extractOrganizations(text string) []token {
	var out []token
	for _, m := range orgCuePattern.FindAllStringSubmatch(text, -1) {
		org := strings.TrimRight(m[1], ".")
		if len(org) < 2 {
			continue
		}
		out = append(out, token{kind: TokenOrganization, value: org, confidence: 0.6})
	}
	for _, m := range orgSuffixPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, token{kind: TokenOrganization, value: strings.TrimRight(m[1], "."), confidence: 0.8})
	}
	return out
}

func extractDomains(lower string) []token {
	var out []token
	for _, m := range domainPattern.FindAllString(lower, -1) {
		if !validDomain(m) {
			continue
		}
		out = append(out, token{kind: TokenDomain, value: m, confidence: 0.6})
	}
	return out
}

// validDomain applies RFC-ish label checks on top of the domain regex.
func validDomain(d string) bool {
	if len(d) > 253 {
		return false
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" || strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
			return false
		}
	}
	tld := labels[len(labels)-1]
	for _, r := range tld {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

func extractYears(text string, maxYear int) []token {
	var out []token
	for _, m := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y < 1950 || y > maxYear+1 {
			continue
		}
		out = append(out, token{kind: TokenYear, value: m, confidence: 0.5})
	}
	return out
}

func extractURLs(text string, validator URLValidator) []token {
	var out []token
	for _, m := range urlPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;")
		if validator != nil && !validator.Valid(m) {
			continue
		}
		conf := 0.6
		if _, _, ok := profileURL(strings.ToLower(m)); ok {
			conf = 0.9
		}
		out = append(out, token{kind: TokenURL, value: m, confidence: conf})
	}
	return out
}

// defaultValidator accepts structurally valid http(s) URLs with a dotted host.
type defaultValidator struct{}

func (defaultValidator) Valid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.Contains(u.Host, ".")
}

// Terms that are salient on their own even when they appear only once.
var salientKeywords = map[string]bool{
	"engineer": true, "developer": true, "designer": true, "founder": true,
	"researcher": true, "photographer": true, "writer": true, "artist": true,
	"musician": true, "scientist": true, "professor": true, "consultant": true,
	"architect": true, "manager": true, "security": true, "opensource": true,
	"freelance": true, "startup": true, "podcast": true, "blogger": true,
}

func extractKeywords(lower string) []token {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if len(w) <= 3 || IsStopWord(w) {
			continue
		}
		counts[w]++
	}
	var out []token
	for w, c := range counts {
		if c < 2 && !salientKeywords[w] {
			continue
		}
		conf := 0.3 + 0.1*float64(c)
		if conf > 1 {
			conf = 1
		}
		out = append(out, token{kind: TokenKeyword, value: w, confidence: conf})
	}
	return out
}
