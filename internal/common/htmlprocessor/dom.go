package htmlprocessor

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

type domDocument struct {
	root *html.Node
}

// Parse builds a Document from HTML bytes. The parser is lenient, so
// malformed markup still yields a tree.
func Parse(htmlBytes []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, err
	}
	return &domDocument{root: root}, nil
}

func findElement(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	var found *html.Node
	walk(node, func(n *html.Node) bool {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			found = n
			return false
		}
		return true
	})
	return found
}

func findAllElements(node *html.Node, tag string) []*html.Node {
	if node == nil {
		return nil
	}
	var results []*html.Node
	walk(node, func(n *html.Node) bool {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			results = append(results, n)
		}
		return true
	})
	return results
}

// walk visits nodes depth first until visit returns false.
func walk(node *html.Node, visit func(*html.Node) bool) bool {
	if !visit(node) {
		return false
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func getAttr(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return attr.Val
		}
	}
	return ""
}

func getTextContent(node *html.Node) string {
	var sb strings.Builder
	walk(node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

func metaKey(node *html.Node) string {
	if name := getAttr(node, "name"); name != "" {
		return name
	}
	return getAttr(node, "property")
}

func (d *domDocument) Title() string {
	head := findElement(d.root, "head")
	title := findElement(head, "title")
	if title == nil {
		return ""
	}

	text := strings.TrimSpace(getTextContent(title))
	runes := []rune(text)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return text
}

func (d *domDocument) Count(tag string) int {
	return len(findAllElements(d.root, tag))
}

func (d *domDocument) Meta(key string) []string {
	var out []string
	for _, m := range findAllElements(d.root, "meta") {
		if strings.EqualFold(metaKey(m), key) {
			out = append(out, getAttr(m, "content"))
		}
	}
	return out
}

func (d *domDocument) MetaTags() []MetaTag {
	head := findElement(d.root, "head")
	var out []MetaTag
	for _, m := range findAllElements(head, "meta") {
		if key := metaKey(m); key != "" {
			out = append(out, MetaTag{Key: key, Content: getAttr(m, "content")})
		}
	}
	return out
}
