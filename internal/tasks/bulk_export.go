package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: plylist_export_{epoch})
	Covers     bool             // Download cover art next to markdown exports
	HTTPClient *http.Client     // Used for cover downloads
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Files        []string
	Success      bool
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type manifestEntry struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"name"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     string          `json:"format"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Playlists  []manifestEntry `json:"playlists"`
}

// BulkExport writes the playlists named by ids, or every playlist when ids is empty, into
// opts.OutputDir and records the outcome in export_manifest.json.
//
// A playlist that fails to load or write is reported in the result; the export continues.
func (e *Engine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("plylist_export_%d", time.Now().Unix())
	}

	if len(ids) == 0 {
		summaries, err := e.library.List("", nil)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res := PlaylistExportResult{PlaylistID: id, PlaylistName: fmt.Sprintf("Unknown (%s)", id), Files: []string{}}
		playlist, err := e.library.Get(id)
		if err != nil {
			res.Error = fmt.Errorf("failed to load playlist: %w", err)
		} else {
			res.PlaylistName = playlist.Name
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), playlist.Name))
			res.Files, res.Error = e.exportSinglePlaylist(playlist, opts)
		}

		res.Success = res.Error == nil
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(i+1, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(i+1, len(ids), res.PlaylistName, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportSinglePlaylist writes one playlist and returns the files it created.
func (e *Engine) exportSinglePlaylist(playlist *models.Playlist, opts BulkExportOpts) ([]string, error) {
	if opts.Format == formatter.Markdown {
		var imageURL string
		if opts.Covers {
			imageURL = formatter.CoverURL(playlist)
		}
		md, err := formatter.WriteMarkdownExport(opts.HTTPClient, playlist, filepath.Join(opts.OutputDir, playlist.ID), imageURL)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		if md.CoverError != nil {
			e.logger.Warn("cover download failed", "playlist", playlist.ID, "error", md.CoverError)
		}
		return md.Files, nil
	}

	path := filepath.Join(opts.OutputDir, playlist.ID+"."+opts.Format.Extension())
	if err := formatter.WriteFile(playlist, path, opts.Format); err != nil {
		return nil, fmt.Errorf("%s export failed: %w", opts.Format, err)
	}
	return []string{path}, nil
}

func writeManifest(result *BulkExportResult, format formatter.Format, path string) error {
	m := manifest{
		ExportedAt: time.Now().UTC(),
		Format:     string(format),
		Total:      result.TotalPlaylists,
		Successful: result.SuccessfulExports,
		Failed:     result.FailedExports,
		Playlists:  make([]manifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := manifestEntry{PlaylistID: r.PlaylistID, PlaylistName: r.PlaylistName, Files: r.Files}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
