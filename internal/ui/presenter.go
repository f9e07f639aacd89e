package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

var _ auth.Presenter = (*TextPresenter)(nil)

// TextPresenter prints authorization progress to a terminal.
type TextPresenter struct {
	w io.Writer
}

// NewTextPresenter writes to w, or stderr when w is nil.
func NewTextPresenter(w io.Writer) *TextPresenter {
	if w == nil {
		w = os.Stderr
	}
	return &TextPresenter{w: w}
}

func (p *TextPresenter) ShowStatus(state auth.State, message string) {
	style := styles.muted
	if state == auth.Ready {
		style = styles.ok
	}
	fmt.Fprintln(p.w, style.Render("• "+message))
}

// ShowError prints err. Security failures say so explicitly and, like every failure that
// carried a code, show the raw code and state so the user can finish by hand.
func (p *TextPresenter) ShowError(err error, params auth.CallbackParams) {
	fmt.Fprintln(p.w, styles.err.Render("✗ "+err.Error()))
	if shared.IsSecurityError(err) {
		fmt.Fprintln(p.w, styles.warn.Render("Security check failed. The login was stopped; start it again."))
	}
	if params.Code != "" || params.State != "" {
		fmt.Fprintln(p.w, styles.help.Render(fmt.Sprintf("code:  %s\nstate: %s", params.Code, params.State)))
	}
}

// PlaylistTable renders playlists as a numbered list with track counts.
func PlaylistTable(playlists []models.PlaylistSummary) string {
	if len(playlists) == 0 {
		return auth.NoPlaylistsNotice + "\n"
	}

	width := 0
	for _, p := range playlists {
		width = max(width, len(p.ID))
	}

	var b strings.Builder
	for i, p := range playlists {
		fmt.Fprintf(&b, "%3d. %-*s  %s %s\n", i+1, width, p.ID, p.Name, styles.muted.Render(fmt.Sprintf("(%d tracks)", p.TrackCount)))
	}
	return b.String()
}
