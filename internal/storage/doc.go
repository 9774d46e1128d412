// Package storage persists playlists behind the [Store] interface.
//
// [FileStore] keeps one JSON document per playlist plus an index.json of summaries in a directory.
// [SQLStore] keeps playlists in SQLite through the repositories package and also implements
// [SyncRecorder]. [New] picks the backend named by the [storage] section of the config.
package storage
