// Package tasks runs the long-running library operations with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes four operations:
//
//  1. [Engine.ScanLibrary] : Walk a music folder and store every audio file
//     - Accepts the [AudioExtensions]
//     - Infers artist and title from "<artist> - <title>" file names
//
//  2. [Engine.PlaylistSize] : Report the on-disk size of a playlist
//     - Every entry counts, so a repeated track counts each time
//     - Whole megabytes are rounded down
//
//  3. [Engine.Truncate] : Randomly remove tracks until a playlist fits a size budget
//     - Repeated tracks are one candidate whose size covers all of its entries
//     - Removals are applied in one transaction, or only reported on a dry run
//     - [Engine.StartTruncate] runs it in the background as a cancellable [Task]
//
//  4. [Engine.ExportSearches] : Write one M3U playlist per saved search
//     - A bounded worker pool filters the library through each query
//     - A manifest records the outcome of every search
//
// # Progress Reporting
//
// All operations accept a channel for progress updates, which may be nil.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default so that a slow reader never blocks an operation.
//
// # Truncation History
//
// When a [RunStore] is given to [NewEngine], every truncation is recorded with its seed,
// so that a run can be reproduced with the same removals.
package tasks
