package mention

import "github.com/starford/promptcraft/internal/document"

// Resolve replaces the trigger text with a mention token bound to fileName
// and puts the cursor after it, as one logical edit. The target does not
// need to exist; a missing attachment is a valid display state.
func Resolve(ed document.DocumentEditor, t Trigger, fileName string) error {
	start := t.Range.Start()
	after := document.Position{Block: start.Block, Offset: start.Offset + 1}
	return ed.ApplyEdit(
		document.Delete{Range: t.Range},
		document.InsertNode{At: start, Node: document.FileMention{FileName: fileName}},
		document.MoveCursor{To: after},
	)
}
