package export

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/starford/promptcraft/internal/apperr"
)

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard is the host clipboard via xclip/xsel/wl-copy, pbcopy or
// the Windows API.
type SystemClipboard struct{}

// WriteAll copies text to the system clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found: %w", apperr.ErrClipboard)
	}
	return clipboard.WriteAll(text)
}

// NoClipboard always fails. It backs headless deployments with
// export.clipboard disabled.
type NoClipboard struct{}

// WriteAll reports that the clipboard is disabled.
func (NoClipboard) WriteAll(string) error {
	return fmt.Errorf("clipboard disabled: %w", apperr.ErrClipboard)
}
