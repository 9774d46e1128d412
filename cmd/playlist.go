package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values ...string) []string {
	out := []string{}
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func requireArg(value, name string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}

// Create adds an empty playlist.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd.StringArg("name"), "name")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.Create(name, cmd.String("description"), splitList(cmd.StringSlice("tag")...))
	if err != nil {
		return err
	}

	r.writePlain("✓ Created playlist: %s\n", playlist.Name)
	r.writePlain("  Playlist ID: %s\n", playlist.ID)
	return nil
}

// List prints playlist summaries, filtered by --query and --tag.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open()
	if err != nil {
		return err
	}

	summaries, err := m.List(cmd.String("query"), splitList(cmd.StringSlice("tag")...))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	if len(summaries) == 0 {
		r.writePlain("No playlists found.\n")
		return nil
	}

	r.writePlainln("Found %d playlist(s):", len(summaries))
	r.writePlain("\n")
	for _, s := range summaries {
		status := " [Local only]"
		if playlist, err := m.Get(s.ID); err == nil && len(playlist.PlatformIDs) > 0 {
			synced := make([]string, 0, len(playlist.PlatformIDs))
			for name := range playlist.PlatformIDs {
				synced = append(synced, name)
			}
			sort.Strings(synced)
			status = fmt.Sprintf(" [Synced: %s]", strings.Join(synced, ", "))
		}

		r.writePlain("  %s%s\n", s.Name, status)
		r.writePlain("    ID: %s\n", s.ID)
		r.writePlain("    Tracks: %d\n", s.TrackCount)
		if len(s.Tags) > 0 {
			r.writePlain("    Tags: %s\n", strings.Join(s.Tags, ", "))
		}
		r.writePlain("\n")
	}
	return nil
}

// Show prints one playlist and, unless --no-tracks, its tracks.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.Get(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if cmd.Bool("no-tracks") {
			return r.writeJSON(playlist.Summary(), cmd.Bool("pretty"))
		}
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlaylist(playlist)
	if len(playlist.Tracks) > 0 && !cmd.Bool("no-tracks") {
		r.writePlainln("Tracks:")
		for i, t := range playlist.Tracks {
			r.writePlain("  %d. %s\n", i+1, t)
		}
	}
	return nil
}

func (r *Runner) writePlaylist(p *models.Playlist) {
	r.writePlainln("Playlist: %s", p.Name)
	r.writePlain("ID: %s\n", p.ID)
	if p.Description != "" {
		r.writePlain("Description: %s\n", p.Description)
	}
	r.writePlain("Tracks: %d\n", p.TrackCount())
	r.writePlain("Duration: %s\n", p.DurationString())
	r.writePlain("Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	r.writePlain("Updated: %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(p.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if len(p.PlatformIDs) > 0 {
		names := make([]string, 0, len(p.PlatformIDs))
		for name := range p.PlatformIDs {
			names = append(names, name)
		}
		sort.Strings(names)
		r.writePlain("Platform IDs:\n")
		for _, name := range names {
			r.writePlain("  %s: %s\n", name, p.PlatformIDs[name])
		}
	}
}

// Delete removes a playlist after confirmation unless --force is given.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	if !cmd.Bool("force") {
		playlist, err := m.Get(id)
		if err != nil {
			return err
		}
		if !r.confirm(fmt.Sprintf("Delete playlist '%s'?", playlist.Name)) {
			r.writePlain("Cancelled.\n")
			return nil
		}
	}

	if err := m.Delete(id); err != nil {
		return err
	}
	r.writePlain("✓ Playlist deleted\n")
	return nil
}

// AddTrack appends a track built from the arguments.
func (r *Runner) AddTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	if cmd.Int("duration") < 0 {
		return fmt.Errorf("%w: duration must not be negative", shared.ErrInvalidArgument)
	}

	track, err := models.NewTrack(cmd.StringArg("title"), cmd.StringArg("artist"))
	if err != nil {
		return err
	}
	track.Album = cmd.String("album")
	track.DurationMs = int(cmd.Int("duration"))
	track.ISRC = strings.TrimSpace(cmd.String("isrc"))
	track.AdditionalArtists = splitList(cmd.StringSlice("additional-artists")...)

	m, err := r.open()
	if err != nil {
		return err
	}
	if _, err := m.AddTrack(id, track); err != nil {
		return err
	}

	r.writePlain("✓ Added track: %s\n", track)
	r.writePlain("  Track ID: %s\n", track.ID)
	return nil
}

// RemoveTrack deletes the first track with the given id.
func (r *Runner) RemoveTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	trackID, err := requireArg(cmd.StringArg("track-id"), "track-id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	if _, err := m.RemoveTrack(id, trackID); err != nil {
		return err
	}
	r.writePlain("✓ Track removed\n")
	return nil
}

// MoveTrack reorders a track. Positions on the command line start at 1.
func (r *Runner) MoveTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	from, err := parsePosition(cmd.StringArg("from"), "from")
	if err != nil {
		return err
	}
	to, err := parsePosition(cmd.StringArg("to"), "to")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.MoveTrack(id, from, to)
	if err != nil {
		return err
	}
	r.writePlain("✓ Moved %s to position %d\n", playlist.Tracks[to], to+1)
	return nil
}

func parsePosition(s, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a position starting at 1, got %q", shared.ErrInvalidArgument, name, s)
	}
	return n - 1, nil
}

// Rename changes a playlist's name.
func (r *Runner) Rename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.Rename(id, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	r.writePlain("✓ Renamed playlist to: %s\n", playlist.Name)
	return nil
}

func (r *Runner) tagArgs(cmd *cli.Command) (string, []string, error) {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return "", nil, fmt.Errorf("%w: expected <id> <tag[,tag...]>", shared.ErrMissingArgument)
	}
	tags := splitList(args[1:]...)
	if len(tags) == 0 {
		return "", nil, fmt.Errorf("%w: no tags given", shared.ErrMissingArgument)
	}
	return args[0], tags, nil
}

// Tag adds tags to a playlist.
func (r *Runner) Tag(ctx context.Context, cmd *cli.Command) error {
	id, tags, err := r.tagArgs(cmd)
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.AddTags(id, tags...)
	if err != nil {
		return err
	}
	r.writePlain("✓ Tags: %s\n", strings.Join(playlist.Tags, ", "))
	return nil
}

// Untag removes tags from a playlist.
func (r *Runner) Untag(ctx context.Context, cmd *cli.Command) error {
	id, tags, err := r.tagArgs(cmd)
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.RemoveTags(id, tags...)
	if err != nil {
		return err
	}
	if len(playlist.Tags) == 0 {
		r.writePlain("✓ No tags left\n")
		return nil
	}
	r.writePlain("✓ Tags: %s\n", strings.Join(playlist.Tags, ", "))
	return nil
}

// exportFormat resolves --format, falling back to the path's extension.
func exportFormat(flag, path string) (formatter.Format, error) {
	if flag != "" {
		return formatter.ParseFormat(flag)
	}
	return formatter.FormatFromPath(path)
}

// Export writes one playlist to a file. A markdown export with --cover writes a directory instead.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	output, err := requireArg(cmd.StringArg("output"), "output")
	if err != nil {
		return err
	}
	format, err := exportFormat(cmd.String("format"), output)
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	if format == formatter.Markdown && cmd.Bool("cover") {
		playlist, err := m.Get(id)
		if err != nil {
			return err
		}
		res, err := formatter.WriteMarkdownExport(r.httpClient, playlist, output, formatter.CoverURL(playlist))
		if err != nil {
			return err
		}
		if res.CoverError != nil {
			r.logger.Warn("cover download failed", "error", res.CoverError)
		}
		r.writePlain("✓ Exported playlist to: %s\n", res.Directory)
		for _, f := range res.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	if err := m.Export(id, output, format); err != nil {
		return err
	}
	r.writePlain("✓ Exported playlist to: %s\n", output)
	return nil
}

// Import reads a JSON or CSV file and stores it as a playlist.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	input, err := requireArg(cmd.StringArg("input"), "input")
	if err != nil {
		return err
	}
	format, err := exportFormat(cmd.String("format"), input)
	if err != nil {
		return err
	}
	if !format.Importable() {
		return fmt.Errorf("%w: cannot import %s", shared.ErrUnsupportedFormat, format)
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	playlist, err := m.Import(input, format)
	if err != nil {
		return err
	}
	r.writePlain("✓ Imported playlist: %s\n", playlist.Name)
	r.writePlain("  Playlist ID: %s\n", playlist.ID)
	r.writePlain("  Tracks: %d\n", playlist.TrackCount())
	return nil
}

// Duplicate copies a playlist.
func (r *Runner) Duplicate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	dup, err := m.Duplicate(id, cmd.String("name"))
	if err != nil {
		return err
	}
	r.writePlain("✓ Created duplicate: %s\n", dup.Name)
	r.writePlain("  Playlist ID: %s\n", dup.ID)
	return nil
}

// Merge concatenates playlists into a new one, dropping repeated tracks unless --keep-duplicates.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: expected <id[,id...]> <name>", shared.ErrMissingArgument)
	}
	ids := splitList(args[:len(args)-1]...)
	name := args[len(args)-1]

	m, err := r.open()
	if err != nil {
		return err
	}

	merged, err := m.Merge(ids, name, !cmd.Bool("keep-duplicates"))
	if err != nil {
		return err
	}
	r.writePlain("✓ Created merged playlist: %s\n", merged.Name)
	r.writePlain("  Playlist ID: %s\n", merged.ID)
	r.writePlain("  Tracks: %d\n", merged.TrackCount())
	return nil
}

// Stats prints storage totals and registered platforms.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open()
	if err != nil {
		return err
	}

	stats, err := m.Stats()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainln("Playlist Statistics:")
	r.writePlain("  Backend: %s\n", stats.Backend)
	r.writePlain("  Total Playlists: %d\n", stats.TotalPlaylists)
	r.writePlain("  Total Tracks: %d\n", stats.TotalTracks)
	r.writePlain("  Location: %s\n", stats.Location)
	if len(stats.Platforms) > 0 {
		r.writePlain("  Platforms: %s\n", strings.Join(stats.Platforms, ", "))
	}
	return nil
}

// Find lists stored tracks carrying an ISRC.
func (r *Runner) Find(ctx context.Context, cmd *cli.Command) error {
	isrc, err := requireArg(cmd.StringArg("isrc"), "isrc")
	if err != nil {
		return err
	}
	m, err := r.open()
	if err != nil {
		return err
	}

	tracks, err := m.FindTrack(isrc)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks with ISRC %s\n", isrc)
		return nil
	}
	r.writePlain("Found %d track(s) with ISRC %s:\n", len(tracks), isrc)
	for _, t := range tracks {
		r.writePlain("  %s [%s]\n", t, t.ID)
	}
	return nil
}
