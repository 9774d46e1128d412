// Package platforms integrates external streaming catalogs.
//
// # Capability contract
//
// Every integration implements [Platform]. Callers (the [Syncer], the manager and the CLI) only ever
// invoke the interface methods and never inspect the concrete type. A platform is keyed by [Platform.Name].
//
// # Adapters
//
//   - [AppleMusic] talks to the Apple Music API with a developer token (ES256 JWT, see [NewDeveloperToken])
//     and a Music-User-Token for library endpoints.
//   - [Spotify] talks to the Spotify Web API through an OAuth2 user session.
//
// Both embed [Base] for the authentication gate and memoize catalog searches for the lifetime of the
// process with a small LRU keyed on the normalized title and artist.
//
// # Resolution
//
// [Resolve] maps local tracks to platform track ids before a create, update or add. Tracks that already
// carry an id for the platform are used as-is; the rest are searched. Unresolvable tracks are left out
// and reported in [Resolution.Missing]; the operation itself continues.
//
// # Sync
//
// [Syncer.Push] creates the remote playlist on first sync and replaces its contents on every later sync.
// [Syncer.Pull] fetches a remote playlist into a fresh local entity.
package platforms
