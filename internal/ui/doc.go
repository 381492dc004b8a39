// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a playlist truncation:
//  1. [PlaylistListView] : Browse playlists with their sizes and pick one
//  2. [ConfirmView] : Adjust the target size and confirm
//  3. [TruncateView] : Watch the random pruning with a progress bar
//  4. [ResultView] : Review the removed tracks and the final size
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through the channel of a [tasks.Task], so pruning never blocks rendering.
// Quitting while a truncation runs cancels it, which leaves the playlist unchanged unless removals were already applied.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, +/-, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
