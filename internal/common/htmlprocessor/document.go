package htmlprocessor

const maxTitleLength = 200

// MetaTag is one <meta> element keyed by its name or property attribute.
type MetaTag struct {
	Key     string
	Content string
}

// Document is a parsed, read-only view of an HTML page.
type Document interface {
	// Title returns the trimmed text of the first <title> in <head>,
	// truncated to 200 runes. Empty when absent.
	Title() string

	// Count returns how many elements with the given tag name exist.
	Count(tag string) int

	// Meta returns the content of every <meta> whose name or property
	// equals key (case-insensitive), in document order.
	Meta(key string) []string

	// MetaTags lists every keyed <meta> in <head> in document order.
	MetaTags() []MetaTag
}
