// Package parser reads and writes prompt markup: optional YAML frontmatter
// followed by a body whose lines are paragraphs and whose [[name]] markers
// are mention tokens.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/promptcraft/internal/document"
	"github.com/starford/promptcraft/internal/fetch"
)

var mentionRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Frontmatter is the optional header of a prompt file.
type Frontmatter struct {
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	// Attachments are file paths or URLs loaded before the body is used.
	Attachments []string `yaml:"attachments,omitempty" json:"attachments,omitempty"`
	// Output is the default export file name.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// IsZero reports whether no field is set.
func (f Frontmatter) IsZero() bool {
	return f.Title == "" && len(f.Attachments) == 0 && f.Output == ""
}

// Result holds the output of parsing a prompt file.
type Result struct {
	Frontmatter Frontmatter
	Body        string
	Document    document.Document
	// Mentions lists the bound file names in document order, deduplicated.
	Mentions []string
}

// Parse splits frontmatter from the body and builds the document.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	doc := ParseBody(body)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Document:    doc,
		Mentions:    mentionNames(doc),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter or with invalid YAML the
// whole input is body.
func splitFrontmatter(data []byte) (Frontmatter, string, error) {
	const delim = "---"
	var fm Frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), nil
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), nil
	}
	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return Frontmatter{}, string(data), nil
	}
	return fm, body, nil
}

// ParseBody turns body text into a document. A single trailing newline
// ends the last line rather than opening an empty paragraph.
func ParseBody(body string) document.Document {
	body = strings.TrimSuffix(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	lines := document.SplitLines(body)
	blocks := make([]document.Paragraph, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, parseLine(line))
	}
	return document.New(blocks...)
}

func parseLine(line string) document.Paragraph {
	var children []document.Inline
	last := 0
	for _, m := range mentionRe.FindAllStringSubmatchIndex(line, -1) {
		target := strings.TrimSpace(line[m[2]:m[3]])
		node, ok := mentionNode(target)
		if !ok {
			continue
		}
		children = append(children, document.TextRun{Text: line[last:m[0]]}, node)
		last = m[1]
	}
	children = append(children, document.TextRun{Text: line[last:]})
	return document.Paragraph{Children: children}
}

func mentionNode(target string) (document.Inline, bool) {
	if target == "" {
		return nil, false
	}
	if u, ok := fetch.FindURL(target); ok && u == target {
		name, err := fetch.FilenameFromURL(u)
		if err == nil {
			return document.URLMention{URL: u, FileName: name}, true
		}
	}
	return document.FileMention{FileName: target}, true
}

func mentionNames(doc document.Document) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range doc.Mentions() {
		name, _ := document.MentionName(n)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Format writes doc back as prompt markup, with frontmatter when fm is set.
// Parse(Format(fm, doc)) reproduces doc as long as no text run contains "[[".
func Format(fm Frontmatter, doc document.Document) ([]byte, error) {
	var buf bytes.Buffer
	if !fm.IsZero() {
		head, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(head)
		buf.WriteString("---\n")
	}
	for i, b := range doc.Blocks {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for _, c := range b.Children {
			switch v := c.(type) {
			case document.TextRun:
				buf.WriteString(v.Text)
			case document.FileMention:
				buf.WriteString("[[" + v.FileName + "]]")
			case document.URLMention:
				buf.WriteString("[[" + v.URL + "]]")
			}
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
