package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]+`)
)

// maxDepth bounds recursion on pathological documents.
const maxDepth = 256

// ToMarkdown converts an HTML page into simplified Markdown. Relative link
// targets are resolved against baseURL when it parses.
func ToMarkdown(htmlContent, baseURL string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("scraper: parse html: %w", err)
	}
	base, _ := url.Parse(baseURL)
	c := &converter{base: base}
	c.walk(doc, 0)
	return clean(c.buf.String()), nil
}

type converter struct {
	buf   bytes.Buffer
	base  *url.URL
	inPre bool
	title bool
}

func (c *converter) walk(n *html.Node, depth int) {
	if depth > maxDepth {
		return
	}
	switch n.Type {
	case html.TextNode:
		if c.inPre {
			c.buf.WriteString(n.Data)
			return
		}
		if text := strings.TrimSpace(n.Data); text != "" {
			c.buf.WriteString(text)
			c.buf.WriteString(" ")
		}
		return
	case html.ElementNode:
		if c.open(n, depth) {
			return
		}
	}
	c.children(n, depth)
	if n.Type == html.ElementNode {
		c.close(n)
	}
}

func (c *converter) children(n *html.Node, depth int) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch, depth+1)
	}
}

// open writes the prefix for n. It returns true when n was fully handled.
func (c *converter) open(n *html.Node, depth int) bool {
	switch n.Data {
	case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "form", "button", "template":
		return true
	case "head":
		// Only the title is kept from the head.
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.Data == "title" && !c.title {
				c.title = true
				c.buf.WriteString("# ")
				c.children(ch, depth+1)
				c.buf.WriteString("\n\n")
			}
		}
		return true
	case "h1", "h2", "h3", "h4", "h5", "h6":
		c.buf.WriteString("\n\n" + strings.Repeat("#", int(n.Data[1]-'0')) + " ")
	case "p", "div", "section", "article", "main", "table", "tr":
		c.buf.WriteString("\n\n")
	case "br":
		c.buf.WriteString("\n")
	case "hr":
		c.buf.WriteString("\n\n---\n\n")
	case "li":
		c.buf.WriteString("\n- ")
	case "blockquote":
		c.buf.WriteString("\n\n> ")
	case "pre":
		c.buf.WriteString("\n\n```\n")
		c.inPre = true
	case "code":
		if !c.inPre {
			c.buf.WriteString("`")
		}
	case "strong", "b":
		c.buf.WriteString("**")
	case "em", "i":
		c.buf.WriteString("*")
	case "td", "th":
		c.buf.WriteString("| ")
	case "a":
		if c.href(n) != "" {
			c.buf.WriteString("[")
		}
	case "img":
		if alt := attr(n, "alt"); alt != "" {
			c.buf.WriteString("![" + alt + "](" + c.resolve(attr(n, "src")) + ") ")
		}
		return true
	}
	return false
}

func (c *converter) close(n *html.Node) {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p":
		c.buf.WriteString("\n\n")
	case "pre":
		c.inPre = false
		c.buf.WriteString("\n```\n\n")
	case "code":
		if !c.inPre {
			c.trimSpace()
			c.buf.WriteString("` ")
		}
	case "strong", "b":
		c.trimSpace()
		c.buf.WriteString("** ")
	case "em", "i":
		c.trimSpace()
		c.buf.WriteString("* ")
	case "a":
		if href := c.href(n); href != "" {
			c.trimSpace()
			c.buf.WriteString("](" + href + ") ")
		}
	}
}

// trimSpace drops trailing spaces so closing markers hug their text.
func (c *converter) trimSpace() {
	b := c.buf.Bytes()
	n := len(b)
	for n > 0 && b[n-1] == ' ' {
		n--
	}
	c.buf.Truncate(n)
}

func (c *converter) href(n *html.Node) string {
	h := attr(n, "href")
	if h == "" || strings.HasPrefix(h, "#") || strings.HasPrefix(h, "javascript:") {
		return ""
	}
	return c.resolve(h)
}

func (c *converter) resolve(ref string) string {
	if c.base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// clean collapses runs of blank lines and spaces outside code fences.
func clean(s string) string {
	lines := strings.Split(s, "\n")
	fenced := false
	for i, line := range lines {
		if strings.TrimSpace(line) == "```" {
			fenced = !fenced
			lines[i] = "```"
			continue
		}
		if fenced {
			continue
		}
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
