// Package models defines the library entities shared by every layer of plx.
//
//   - [Track] : an audio file with tags, duration and on-disk size
//   - [Playlist] : playlist metadata with track count and aggregate size
//   - [PlaylistExport] : a playlist with its ordered entries (duplicates allowed)
//   - [SavedSearch] : a named query whose matches can be exported as M3U
//   - [TruncationRun] : the history entry of one playlist truncation
//
// Entities are plain values; persistence lives in the repositories package.
package models
