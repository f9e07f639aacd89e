// Package tasks orchestrates playlist exports with real-time progress reporting.
//
// # Core Operations
//
//  1. [ExportEngine.ExportPlaylist] : one playlist to one file
//     - Loads every track page by page
//     - Writes JSON, text, CSV or Markdown via the formatter package
//
//  2. [ExportEngine.BulkExport] : every playlist of the signed-in user
//     - Lists playlists, then exports them with a worker pool
//     - Paces playlist starts with a token bucket
//     - Records failures per playlist and writes export_manifest.json
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters and a message.
// Updates use select with default to prevent blocking.
package tasks
