// Package ui implements an interactive playlist browser using bubbletea's Elm architecture.
//
// The TUI walks through these views:
//  1. [PlaylistListView] : Browse and filter local playlists
//  2. [TrackListView] : Inspect the tracks of one playlist
//  3. [ConfirmView] : Confirm a push to the configured platform
//  4. [SyncView] : Wait for the push to finish
//  5. [ResultView] : Show the remote id and any tracks the platform could not find
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving messages via the Msg union type.
// Pushing is only offered when the model was created with a platform name.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
