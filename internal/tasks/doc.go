// Package tasks turns playlists into courses and writes courses to disk, with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines two operations:
//
//  1. [Engine.Import] : Playlist → course
//     - Resolves the playlist ID from a pasted URL
//     - Fetches playlist metadata and playable videos with durations
//     - Splits videos into sections of a configured size ([BuildSections])
//     - Saves the course tree in one transaction
//
//  2. [Engine.BulkExport] : Courses → files
//     - Loads each course tree with the owner's progress
//     - Writes JSON, CSV, Markdown, or text through a worker pool
//     - Records per-course failures and writes export_manifest.json
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [CourseEngine] implements [Engine] with dependencies on:
//   - [services.PlaylistSource] : YouTube Data API client
//   - [CourseStore] : course tree persistence (repositories.CourseRepository)
//   - [ProgressStore] : completion maps (repositories.ProgressRepository)
package tasks
