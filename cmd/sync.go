package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/platforms"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/tasks"
)

// platformName accepts the registry key or the command-group spelling ("apple-music").
func platformName(s string) string {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "apple-music", "applemusic", "am":
		return string(platforms.AppleMusicType)
	default:
		return name
	}
}

// progress starts a printer for task updates. Call the returned func after the task returns
// to close the channel and wait for the printer to drain it.
func (r *Runner) progress() (chan<- tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			switch update.Phase {
			case tasks.FetchLocal, tasks.FetchRemote:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Compare:
				r.writePlain("🔍 %s\n", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

// Diff compares a local playlist with its remote copy.
func (r *Runner) Diff(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	name := platformName(cmd.String("platform"))
	if _, err := r.platform(ctx, name); err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	var progress chan<- tasks.ProgressUpdate
	finish := func() {}
	if !useJSON {
		progress, finish = r.progress()
	}
	c, err := r.engine.Diff(ctx, progress, name, id)
	finish()
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(map[string]any{
			"playlist_id": c.Local.ID,
			"platform":    name,
			"matched":     c.Matched,
			"local_only":  c.LocalOnly,
			"remote_only": c.RemoteOnly,
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s ↔ %s", c.Local.Name, name))
	r.writePlain("Matched: %d\n", len(c.Matched))
	if c.InSync() {
		r.writePlain("✓ Playlists are in sync\n")
		return nil
	}
	if len(c.LocalOnly) > 0 {
		r.writePlainln("Missing on %s (%d):", name, len(c.LocalOnly))
		for _, t := range c.LocalOnly {
			r.writePlain("  - %s\n", t)
		}
	}
	if len(c.RemoteOnly) > 0 {
		r.writePlainln("Only on %s (%d):", name, len(c.RemoteOnly))
		for _, t := range c.RemoteOnly {
			r.writePlain("  + %s\n", t)
		}
	}
	return nil
}

// SyncAll pushes every local playlist to the platform.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	name := platformName(cmd.String("platform"))
	if _, err := r.platform(ctx, name); err != nil {
		return err
	}
	if cmd.Float("rate") <= 0 {
		return fmt.Errorf("%w: --rate must be positive", shared.ErrInvalidArgument)
	}

	engine := tasks.NewEngine(r.manager, tasks.EngineOpts{RateLimit: cmd.Float("rate"), Logger: r.logger})
	progress, finish := r.progress()
	res, err := engine.SyncAll(ctx, progress, name)
	finish()
	if res != nil {
		r.writePlainln("Synced %d/%d playlists to %s (%d failed)", res.Successful, res.Total, name, res.Failed)
		for _, pr := range res.Results {
			if pr.Error != nil {
				r.writePlain("  ✗ %s: %v\n", pr.Name, pr.Error)
			}
		}
	}
	return err
}

// ExportAll writes the given playlists (all when none are given) into one directory with a manifest.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if _, err := r.open(); err != nil {
		return err
	}

	progress, finish := r.progress()
	res, err := r.engine.BulkExport(ctx, progress, splitList(cmd.Args().Slice()...), tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		Covers:     cmd.Bool("cover"),
		HTTPClient: r.httpClient,
	})
	finish()
	if err != nil {
		return err
	}

	r.writePlainln("Exported %d/%d playlists to %s", res.SuccessfulExports, res.TotalPlaylists, res.OutputDirectory)
	r.writePlain("Manifest: %s\n", res.ManifestPath)
	if res.FailedExports > 0 {
		return fmt.Errorf("%d of %d exports failed", res.FailedExports, res.TotalPlaylists)
	}
	return nil
}

// History prints the recorded syncs of a playlist, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	name := platformName(cmd.String("platform"))
	records, err := m.SyncHistory(id, name)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		r.writePlain("No syncs recorded for %s\n", id)
		return nil
	}
	for _, rec := range records {
		mark := "✓"
		if !rec.Succeeded() {
			mark = "✗"
		}
		r.writePlain("%s %s %-4s %s", mark, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Direction, rec.Platform)
		if rec.PlatformPlaylistID != "" {
			r.writePlain(" %s", rec.PlatformPlaylistID)
		}
		if rec.Succeeded() {
			r.writePlain(" (%d/%d tracks)\n", rec.TracksTotal-rec.TracksMissing, rec.TracksTotal)
		} else {
			r.writePlain(": %s\n", rec.Error)
		}
	}
	return nil
}
