// Package repositories implements SQLite persistence for the library.
//
// Key Implementations:
//   - [TrackRepository] : audio files keyed by path, refreshed on every scan
//   - [PlaylistRepository] : playlists with ordered, possibly repeated entries and soft deletes
//   - [SearchRepository] : saved searches keyed by name
//   - [TruncationRepository] : history of truncation runs
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
