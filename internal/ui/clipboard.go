package ui

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/desertthunder/spx/internal/shared"
)

// CopyToClipboard writes text to the system clipboard.
//
// Fails with [shared.ErrClipboardUnavailable] when no clipboard is reachable, e.g. on a
// headless Linux box without xclip, xsel or wl-copy.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard utility found", shared.ErrClipboardUnavailable)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrClipboardUnavailable, err)
	}
	return nil
}
