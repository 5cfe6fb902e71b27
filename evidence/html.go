package evidence

import (
	"html"
	"regexp"
	"strings"
)

// flattenHTML reduces an HTML page to plain text suitable for token
// extraction. Anchor hrefs are kept inline next to their link text so
// profile URLs buried in markup still reach the URL extractor, and the
// page title and meta description are prepended since they usually name
// the subject.
func flattenHTML(content string) string {
	if !looksLikeHTML(content) {
		return content
	}

	// Head lines end with a period so whitespace collapse downstream
	// cannot fuse a title into the first body sentence.
	var head []string
	if m := titlePattern.FindStringSubmatch(content); len(m) > 1 {
		head = append(head, sentence(html.UnescapeString(m[1])))
	}
	if m := metaDescPattern.FindStringSubmatch(content); len(m) > 1 {
		head = append(head, sentence(html.UnescapeString(m[1])))
	}

	body := scriptPattern.ReplaceAllString(content, " ")
	body = stylePattern.ReplaceAllString(body, " ")
	body = anchorPattern.ReplaceAllString(body, " $2 $1 ")
	body = blockEndPattern.ReplaceAllString(body, "\n")
	body = tagPattern.ReplaceAllString(body, " ")
	body = html.UnescapeString(body)

	if len(head) > 0 {
		return strings.Join(head, "\n") + "\n" + body
	}
	return body
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

func looksLikeHTML(s string) bool {
	return htmlHintPattern.MatchString(s)
}

var (
	htmlHintPattern = regexp.MustCompile(`(?i)<(?:html|head|body|div|p|a|meta|br|span|title)[\s>/]`)
	titlePattern    = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	metaDescPattern = regexp.MustCompile(`(?i)<meta[^>]+name=["']description["'][^>]+content=["']([^"']+)["']`)
	scriptPattern   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anchorPattern   = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	blockEndPattern = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|tr|section|article)>|<br\s*/?>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
)
