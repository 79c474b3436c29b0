package metatags

import (
	"regexp"
)

// TagMatcher locates one tag in a document.
type TagMatcher struct {
	Name    string
	Pattern *regexp.Regexp
}

// TagRewriter replaces the first tag matched by m with replacement.
// It reports whether a match was found. Implementations can work on text
// or on a parse tree; callers only see strings.
type TagRewriter interface {
	RewriteTag(html string, m TagMatcher, replacement string) (string, bool)
}

// RegexRewriter splices replacement over the first regex match. It does not
// understand nesting or comments.
type RegexRewriter struct{}

func (RegexRewriter) RewriteTag(html string, m TagMatcher, replacement string) (string, bool) {
	loc := m.Pattern.FindStringIndex(html)
	if loc == nil {
		return html, false
	}
	return html[:loc[0]] + replacement + html[loc[1]:], true
}

var (
	titlePattern     = regexp.MustCompile(`(?is)<title\b[^>]*>.*?</title\s*>`)
	headClosePattern = regexp.MustCompile(`(?i)</head\s*>`)
)

// TitleMatcher matches the first <title> element.
func TitleMatcher() TagMatcher {
	return TagMatcher{Name: "title", Pattern: titlePattern}
}

// MetaMatcher matches a <meta> whose name or property attribute equals key.
func MetaMatcher(key string) TagMatcher {
	return TagMatcher{
		Name: key,
		Pattern: regexp.MustCompile(
			`(?i)<meta\b[^>]*?\s(?:name|property)\s*=\s*["']` + regexp.QuoteMeta(key) + `["'][^>]*>`),
	}
}

// HeadCloseMatcher matches the closing head tag, where new tags are inserted.
func HeadCloseMatcher() TagMatcher {
	return TagMatcher{Name: "/head", Pattern: headClosePattern}
}
