// Package manager is the entry point for playlist operations.
//
// A [Manager] owns a [storage.Store] and a registry of [platforms.Platform] adapters keyed by
// name. Every mutation loads the playlist from storage, applies the change and saves the whole
// entity before returning; nothing is cached between calls.
//
// # Sync
//
// [Manager.SyncToPlatform] pushes through a [platforms.Syncer], which creates the remote playlist
// on first push and replaces its tracks afterwards. The playlist is saved after a successful push
// so the new platform id and any resolved track ids survive. [Manager.SyncFromPlatform] stores the
// pulled playlist as a new record.
//
// When the store is a [storage.SyncRecorder] (the SQLite backend), each push and pull is written
// to the sync history whether it succeeded or not.
package manager
