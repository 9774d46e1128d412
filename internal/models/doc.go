// Package models defines the platform-agnostic entities of the playlist manager.
//
//   - [Track] : a recording with optional ISRC, per-platform identifiers and an opaque [Metadata] bag
//   - [Playlist] : an ordered list of tracks with tags, per-platform identifiers and timestamps
//   - [PlaylistSummary] : the lightweight index record storage returns from listings and searches
//
// Entities are mutated in place by their methods. Every mutating [Playlist] method refreshes UpdatedAt,
// which never moves backwards. Persistence is the storage package's concern; the JSON field names here
// are the on-disk format.
package models
