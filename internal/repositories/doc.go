// Package repositories implements SQLite persistence for playlists and their sync history.
//
// Key Implementations:
//   - [PlaylistRepository] : playlists with their ordered tracks and tags, saved as one unit
//   - [TrackRepository] : ordered rows of playlist_tracks, one row per playlist position
//   - [SyncHistoryRepository] : append-only log of pushes and pulls per platform
//
// Playlists are soft deleted via deleted_at and excluded from reads. Saving a playlist id again
// restores it. Open-ended fields (platform ids, metadata, additional artists) are stored as JSON text.
//
// Sequence numbers give playlists a stable listing order independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
