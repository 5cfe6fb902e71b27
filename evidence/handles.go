package evidence

import (
	"regexp"
	"strings"
)

// Platform profile URL patterns. The first capture group is the handle.
var platformPatterns = []struct {
	platform string
	pattern  *regexp.Regexp
}{
	{"twitter", regexp.MustCompile(`(?:twitter\.com|x\.com)/(@?[a-z0-9_]{2,15})`)},
	{"instagram", regexp.MustCompile(`instagram\.com/(@?[a-z0-9_.]{2,30})`)},
	{"github", regexp.MustCompile(`github\.com/([a-z0-9][a-z0-9-]{1,38})`)},
	{"linkedin", regexp.MustCompile(`linkedin\.com/in/([a-z0-9-]{3,100})`)},
	{"tiktok", regexp.MustCompile(`tiktok\.com/@([a-z0-9_.]{2,24})`)},
	{"reddit", regexp.MustCompile(`reddit\.com/u(?:ser)?/([a-z0-9_-]{3,20})`)},
	{"youtube", regexp.MustCompile(`youtube\.com/@([a-z0-9_.-]{3,30})`)},
	{"mastodon", regexp.MustCompile(`(?:mastodon\.social|hachyderm\.io|fosstodon\.org|mstdn\.social|infosec\.exchange)/@([a-z0-9_]{2,30})`)},
	{"bluesky", regexp.MustCompile(`bsky\.app/profile/([a-z0-9.-]{3,50})`)},
	{"medium", regexp.MustCompile(`medium\.com/@([a-z0-9_.-]{2,30})`)},
	{"devto", regexp.MustCompile(`dev\.to/([a-z0-9_]{2,30})`)},
	{"facebook", regexp.MustCompile(`facebook\.com/([a-z0-9.]{5,50})`)},
}

// mentionPattern matches bare @handle mentions outside of URLs and emails.
var mentionPattern = regexp.MustCompile(`(?:^|[\s(])@([a-z0-9_.]{3,30})\b`)

// Path segments that look like handles but never are.
var reservedSegments = map[string]bool{
	"about": true, "explore": true, "help": true, "home": true,
	"intent": true, "login": true, "p": true, "privacy": true, "search": true,
	"settings": true, "share": true, "signup": true, "status": true,
	"tags": true, "terms": true, "tos": true, "watch": true,
}

func extractHandles(lower string) []token {
	var out []token
	for _, pp := range platformPatterns {
		for _, m := range pp.pattern.FindAllStringSubmatch(lower, -1) {
			h := strings.TrimPrefix(m[1], "@")
			if reservedSegments[h] || !ValidHandle(h) {
				continue
			}
			out = append(out, token{
				kind:       TokenHandle,
				value:      h,
				confidence: 0.9,
				platform:   pp.platform,
				url:        "https://" + m[0],
			})
		}
	}
	for _, m := range mentionPattern.FindAllStringSubmatch(lower, -1) {
		h := strings.Trim(m[1], ".")
		if !ValidHandle(h) {
			continue
		}
		// Bare mentions carry no platform and are weaker evidence.
		out = append(out, token{kind: TokenHandle, value: h, confidence: 0.5})
	}
	return out
}

// profileURL reports whether a lowercased URL points at a known social
// profile, and if so which platform and handle.
func profileURL(lowerURL string) (platform, handle string, ok bool) {
	for _, pp := range platformPatterns {
		if m := pp.pattern.FindStringSubmatch(lowerURL); m != nil {
			h := strings.TrimPrefix(m[1], "@")
			if reservedSegments[h] || !ValidHandle(h) {
				continue
			}
			return pp.platform, h, true
		}
	}
	return "", "", false
}

// ClassifyURL exposes profile detection for callers seeding platform and
// handle hints on documents.
func ClassifyURL(rawURL string) (platform, handle string, ok bool) {
	return profileURL(strings.ToLower(rawURL))
}

// Generic or throwaway handles that identify nobody.
var genericHandles = map[string]bool{
	"admin": true, "contact": true, "example": true, "info": true,
	"noreply": true, "official": true, "support": true, "test": true,
	"user": true, "username": true, "webmaster": true,
}

// Keyboard-walk fragments that mark spam or placeholder handles.
var keyboardRuns = []string{"qwerty", "asdf", "zxcv"}

// Digit runs only disqualify a handle when they make up nearly all of
// it; real profile slugs often carry numeric discriminator suffixes.
var digitRuns = []string{"12345", "11111", "00000"}

// ValidHandle applies quality checks to a candidate handle: it rejects
// generic names, all-digit strings, and keyboard-walk spam.
func ValidHandle(h string) bool {
	if len(h) < 3 || len(h) > 40 {
		return false
	}
	if genericHandles[h] {
		return false
	}
	allDigits := true
	for _, r := range h {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return false
	}
	for _, run := range keyboardRuns {
		if strings.Contains(h, run) {
			return false
		}
	}
	for _, run := range digitRuns {
		if strings.Contains(h, run) && len(strings.ReplaceAll(h, run, "")) < 3 {
			return false
		}
	}
	return true
}
