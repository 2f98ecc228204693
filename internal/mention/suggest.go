package mention

import (
	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/models"
)

// Suggestions is the filtered attachment list shown for an active trigger.
type Suggestions struct {
	Items    []models.Attachment `json:"items"`
	Selected int                 `json:"selected"`
}

// Suggest filters snap by query, preserving store order, with the first
// item selected.
func Suggest(snap attachment.Snapshot, query string) Suggestions {
	return Suggestions{Items: snap.Filter(query)}
}

// Next moves the selection forward, wrapping to the first item.
func (s *Suggestions) Next() {
	if n := len(s.Items); n > 0 {
		s.Selected = (s.Selected + 1) % n
	}
}

// Prev moves the selection backward, wrapping to the last item.
func (s *Suggestions) Prev() {
	if n := len(s.Items); n > 0 {
		s.Selected = (s.Selected - 1 + n) % n
	}
}

// Current returns the selected attachment. ok is false when the list is empty.
func (s Suggestions) Current() (models.Attachment, bool) {
	if len(s.Items) == 0 {
		return models.Attachment{}, false
	}
	return s.Items[s.Selected%len(s.Items)], true
}
