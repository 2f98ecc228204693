// Package mention detects in-progress @mentions, filters and cycles
// suggestions, and resolves a chosen attachment into a mention token.
package mention

import (
	"regexp"
	"unicode/utf8"

	"github.com/starford/promptcraft/internal/document"
)

// triggerRe matches a word that is exactly "@" followed by word characters.
// The word is already bounded by whitespace, a token, or the block start.
var triggerRe = regexp.MustCompile(`^@(\w*)$`)

// Trigger is the ephemeral state of a mention being typed.
type Trigger struct {
	Range    document.Range `json:"range"`
	Query    string         `json:"query"`
	Selected int            `json:"selected"`
}

// Scan inspects the word before a collapsed cursor and reports whether the
// user is composing a mention. It keeps no state between calls.
func Scan(ed document.DocumentEditor) (Trigger, bool) {
	sel := ed.CurrentSelection()
	if !sel.Collapsed() {
		return Trigger{}, false
	}
	cursor := sel.Anchor
	word := ed.TextBefore(cursor, document.UnitWord)
	m := triggerRe.FindStringSubmatch(word)
	if m == nil {
		return Trigger{}, false
	}
	start := document.Position{
		Block:  cursor.Block,
		Offset: cursor.Offset - utf8.RuneCountInString(word),
	}
	return Trigger{
		Range: document.Range{Anchor: start, Focus: cursor},
		Query: m[1],
	}, true
}
