package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/platforms"
	"github.com/desertthunder/plylist/internal/shared"
)

// platformActionFunc is a command action that runs against an authenticated adapter.
type platformActionFunc func(ctx context.Context, cmd *cli.Command, p platforms.Platform) error

// platformAction authenticates the adapter registered under name before running fn.
func (r *Runner) platformAction(name string, fn platformActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		p, err := r.platform(ctx, name)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, p)
	}
}

// PlatformSearch looks a track up in the platform's catalog.
func (r *Runner) PlatformSearch(ctx context.Context, cmd *cli.Command, p platforms.Platform) error {
	title, err := requireArg(cmd.StringArg("title"), "title")
	if err != nil {
		return err
	}
	artist, err := requireArg(cmd.StringArg("artist"), "artist")
	if err != nil {
		return err
	}

	if !cmd.Bool("json") {
		r.writePlain("Searching %s for: %s by %s\n", p.Name(), title, artist)
	}
	track, err := p.SearchTrack(ctx, title, artist)
	if errors.Is(err, shared.ErrTrackNotFound) {
		r.writePlain("✗ Track not found on %s\n", p.Name())
		return nil
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	id, _ := track.PlatformID(p.Name())
	r.writePlainln("✓ Found: %s", track)
	r.writePlain("  %s ID: %s\n", p.Name(), id)
	if track.ISRC != "" {
		r.writePlain("  ISRC: %s\n", track.ISRC)
	}
	if track.DurationMs > 0 {
		r.writePlain("  Duration: %s\n", shared.FormatDuration(track.DurationMs))
	}
	return nil
}

// PlatformSyncTo pushes a local playlist.
func (r *Runner) PlatformSyncTo(ctx context.Context, cmd *cli.Command, p platforms.Platform) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	playlist, err := r.manager.Get(id)
	if err != nil {
		return err
	}

	r.writePlain("Syncing '%s' to %s...\n", playlist.Name, p.Name())
	r.writePlain("  Tracks to sync: %d\n", playlist.TrackCount())

	res, err := r.manager.SyncToPlatform(ctx, id, p.Name())
	if err != nil {
		r.writePlain("✗ Failed to sync playlist\n")
		return err
	}

	verb := "Updated"
	if res.Created {
		verb = "Created"
	}
	r.writePlain("✓ %s %s playlist %s\n", verb, p.Name(), res.PlatformID)
	r.writePlain("  Tracks: %d/%d found\n", res.TracksTotal-res.TracksMissing, res.TracksTotal)
	if res.TracksMissing > 0 {
		r.writePlainln("Not found on %s:", p.Name())
		for _, t := range res.Playlist.Tracks {
			if _, ok := t.PlatformID(p.Name()); !ok {
				r.writePlain("  • %s\n", t)
			}
		}
	}
	return nil
}

// PlatformSyncFrom imports a remote playlist as a new local playlist.
func (r *Runner) PlatformSyncFrom(ctx context.Context, cmd *cli.Command, p platforms.Platform) error {
	remoteID, err := requireArg(cmd.StringArg("platform-id"), "platform-id")
	if err != nil {
		return err
	}

	r.writePlain("Importing playlist from %s (ID: %s)...\n", p.Name(), remoteID)
	playlist, err := r.manager.SyncFromPlatform(ctx, remoteID, p.Name())
	if err != nil {
		r.writePlain("✗ Failed to import playlist\n")
		return err
	}

	r.writePlain("✓ Imported: %s\n", playlist.Name)
	r.writePlain("  Local Playlist ID: %s\n", playlist.ID)
	r.writePlain("  Tracks: %d\n", playlist.TrackCount())
	return nil
}

// PlatformPlaylists lists the user's remote playlists.
func (r *Runner) PlatformPlaylists(ctx context.Context, cmd *cli.Command, p platforms.Platform) error {
	playlists, err := p.GetUserPlaylists(ctx)
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists found in your %s library\n", p.Name())
		return nil
	}

	r.writePlainln("Found %d %s playlist(s):", len(playlists), p.Name())
	r.writePlain("\n")
	for _, pl := range playlists {
		id, _ := pl.PlatformID(p.Name())
		r.writePlain("  %s\n", pl.Name)
		r.writePlain("    %s ID: %s\n", p.Name(), id)
		if pl.Description != "" {
			r.writePlain("    Description: %s\n", pl.Description)
		}
		r.writePlain("\n")
	}
	return nil
}

// statusAction reports sync state from local data only, so it needs no authentication.
func (r *Runner) statusAction(name string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		m, err := r.open()
		if err != nil {
			return err
		}
		status, err := m.SyncStatus(name)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(status, cmd.Bool("pretty"))
		}

		total := len(status.Synced) + len(status.LocalOnly)
		if total == 0 {
			r.writePlain("No local playlists found\n")
			return nil
		}

		r.writePlainln("Sync Status:")
		r.writePlain("  Total local playlists: %d\n", total)
		r.writePlain("  Synced to %s: %d\n", name, len(status.Synced))
		r.writePlain("  Local only: %d\n", len(status.LocalOnly))
		r.writePlainln("Playlists:")
		for _, s := range status.Synced {
			r.writePlain("  [SYNCED] %s\n", s.Summary.Name)
			r.writePlain("      Local ID: %s\n", s.Summary.ID)
			r.writePlain("      %s ID: %s\n", name, s.PlatformID)
			if s.LastSync != nil {
				r.writePlain("      Last sync: %s\n", s.LastSync.CreatedAt.Format("2006-01-02 15:04:05"))
			}
		}
		for _, s := range status.LocalOnly {
			r.writePlain("  [LOCAL]  %s\n", s.Name)
			r.writePlain("      Local ID: %s\n", s.ID)
		}
		return nil
	}
}

// AppleMusicAuth optionally stores a music user token, then verifies both tokens against the API.
//
// Obtaining the user token itself happens in MusicKit on the web.
func (r *Runner) AppleMusicAuth(ctx context.Context, cmd *cli.Command) error {
	creds := &r.config.Credentials.AppleMusic
	if token := cmd.String("user-token"); token != "" {
		creds.UserToken = token
		if r.configPath != "" {
			if err := shared.SaveConfig(r.configPath, r.config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			r.writePlain("✓ User token saved to %s\n", r.configPath)
		}
	}

	if !creds.Configured() {
		r.writePlain("Apple Music needs team_id, key_id and private_key_path under [credentials.apple_music]\n")
		r.writePlain("or APPLE_MUSIC_TEAM_ID, APPLE_MUSIC_KEY_ID and APPLE_MUSIC_PRIVATE_KEY_PATH.\n")
		return fmt.Errorf("%w: apple music", shared.ErrMissingCredentials)
	}

	r.writePlain("Testing Apple Music authentication...\n")
	p, err := r.platform(ctx, string(platforms.AppleMusicType))
	if err != nil {
		r.writePlain("✗ Failed to authenticate with Apple Music\n")
		return err
	}

	r.writePlain("✓ Successfully authenticated with Apple Music\n")
	if am, ok := p.(*platforms.AppleMusic); ok {
		r.writePlain("  Storefront: %s\n", am.Storefront())
	}
	return nil
}
