// Package tasks runs multi-playlist operations with progress reporting.
//
// # Operations
//
//  1. [Diff] : compares a local playlist with its remote copy
//     - Tracks are paired with [models.Track.Matches] (ISRC first, then normalized title/artist)
//     - Reports matched, local-only and remote-only tracks
//
//  2. [Engine.SyncAll] : pushes every local playlist to one platform
//     - Playlists are processed one at a time, paced by a [rate.Limiter]
//     - A failed playlist is recorded and the run continues
//
//  3. [Engine.BulkExport] : writes local playlists to a directory with a manifest
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default,
// so a slow or absent reader never blocks the operation.
package tasks
