// Package serialize flattens a document into export text.
package serialize

import (
	"strings"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/document"
)

// BlockSeparator is written between consecutive blocks. Nothing is written
// after the last block.
const BlockSeparator = "\n"

// ItemSeparator joins whole items in list-mode assembly.
const ItemSeparator = "\n\n"

// Serialize walks doc in order, emitting text runs verbatim and replacing
// each mention with the content of the first attachment of that name in
// snap, or nothing when none exists. The result depends only on its inputs.
func Serialize(doc document.Document, snap attachment.Snapshot) string {
	var sb strings.Builder
	for i, b := range doc.Blocks {
		if i > 0 {
			sb.WriteString(BlockSeparator)
		}
		writeNode(&sb, b, snap)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n document.Node, snap attachment.Snapshot) {
	switch v := n.(type) {
	case document.TextRun:
		sb.WriteString(v.Text)
	case document.FileMention:
		writeMention(sb, v.FileName, snap)
	case document.URLMention:
		writeMention(sb, v.FileName, snap)
	case document.Paragraph:
		for _, c := range v.Children {
			writeNode(sb, c, snap)
		}
	}
}

func writeMention(sb *strings.Builder, name string, snap attachment.Snapshot) {
	if a, ok := snap.Lookup(name); ok {
		sb.WriteString(a.Content)
	}
}

// JoinItems concatenates standalone prompt items separated by a blank line.
func JoinItems(items []string) string {
	return strings.Join(items, ItemSeparator)
}
