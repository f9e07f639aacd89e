// Package ui implements the terminal front end: an interactive playlist browser built on bubbletea's
// Elm architecture, and plain text output for the login flow.
//
// The TUI moves through these views:
//  1. [PlaylistListView] : Browse playlists, select one to load its tracks, or export all of them
//  2. [TrackListView] : Numbered track list; copy it to the clipboard or download it
//  3. [ExportView] : Progress of exporting every playlist
//  4. [ResultView] : Export summary with failed playlists
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving results via the [Msg] union type.
// Track loading runs as a command so the list stays responsive; a failed load leaves the list in place and
// selecting the playlist again retries. Progress updates flow through a channel from the export engine.
//
// [TextPresenter] prints the authorization flow's progress for `spx login`. [CopyToClipboard] fails with
// [shared.ErrClipboardUnavailable] on systems without a clipboard.
package ui
