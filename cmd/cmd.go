// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/platforms"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func platformFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "platform",
		Aliases:  []string{"p"},
		Usage:    "Target platform (apple_music or spotify)",
		Required: required,
	}
}

// initCommand writes a config file from the template and prepares storage.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Create the configuration file and initialize storage",
		Action: r.Init,
	}
}

func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Playlist description",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Tag to attach (repeatable, or comma-separated)",
			},
		},
		Action: r.Create,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List playlists",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Only playlists whose name contains this text",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Only playlists carrying one of these tags",
			},
		}, jsonFlags()...),
		Action: r.List,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show playlist details",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "no-tracks",
				Usage: "Don't list tracks",
			},
		}, jsonFlags()...),
		Action: r.Show,
	}
}

func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Usage:   "Delete a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
		},
		Action: r.Delete,
	}
}

func addTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "add-track",
		Usage: "Add a track to a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "title"},
			&cli.StringArg{Name: "artist"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "album",
				Aliases: []string{"a"},
				Usage:   "Album name",
			},
			&cli.IntFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Duration in milliseconds",
			},
			&cli.StringFlag{
				Name:    "isrc",
				Aliases: []string{"i"},
				Usage:   "ISRC code",
			},
			&cli.StringSliceFlag{
				Name:  "additional-artists",
				Usage: "Collaborating artists (repeatable, or comma-separated)",
			},
		},
		Action: r.AddTrack,
	}
}

func removeTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "remove-track",
		Usage: "Remove a track from a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "track-id"},
		},
		Action: r.RemoveTrack,
	}
}

func moveTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "move-track",
		Usage: "Move the track at one position to another (positions start at 1)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "from"},
			&cli.StringArg{Name: "to"},
		},
		Action: r.MoveTrack,
	}
}

func renameCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "Rename a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "name"},
		},
		Action: r.Rename,
	}
}

func tagCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Add tags to a playlist",
		ArgsUsage: "<id> <tag[,tag...]>",
		Action:    r.Tag,
	}
}

func untagCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "untag",
		Usage:     "Remove tags from a playlist",
		ArgsUsage: "<id> <tag[,tag...]>",
		Action:    r.Untag,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a playlist to a file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "output"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (json, csv, markdown, text); inferred from the output extension when omitted",
			},
			&cli.BoolFlag{
				Name:  "cover",
				Usage: "Download cover artwork next to a markdown export",
			},
		},
		Action: r.Export,
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a playlist from a JSON or CSV file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "input"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Import format (json or csv); inferred from the extension when omitted",
			},
		},
		Action: r.Import,
	}
}

func duplicateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "duplicate",
		Usage: "Copy a playlist under a new id",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Name for the copy (default \"Copy of <name>\")",
			},
		},
		Action: r.Duplicate,
	}
}

func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge playlists into a new one",
		ArgsUsage: "<id[,id...]> <name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "keep-duplicates",
				Usage: "Keep tracks that appear in more than one source",
			},
		},
		Action: r.Merge,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show library statistics",
		Flags:  jsonFlags(),
		Action: r.Stats,
	}
}

func findCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Find stored tracks by ISRC",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "isrc"},
		},
		Flags:  jsonFlags(),
		Action: r.Find,
	}
}

func diffCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare a local playlist with its copy on a platform",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  append([]cli.Flag{platformFlag(true)}, jsonFlags()...),
		Action: r.Diff,
	}
}

func syncAllCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync-all",
		Usage: "Push every local playlist to a platform",
		Flags: []cli.Flag{
			platformFlag(true),
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlists pushed per second",
				Value: 2,
			},
		},
		Action: r.SyncAll,
	}
}

func exportAllCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export-all",
		Usage:     "Export several playlists (all by default) into a directory",
		ArgsUsage: "[id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (json, csv, markdown, text)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default plylist_export_<timestamp>)",
			},
			&cli.BoolFlag{
				Name:  "cover",
				Usage: "Download cover artwork for markdown exports",
			},
		},
		Action: r.ExportAll,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded pushes and pulls (sqlite storage only)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  append([]cli.Flag{platformFlag(false)}, jsonFlags()...),
		Action: r.History,
	}
}

// platformCommand builds the per-platform command group. name is the registry key.
func platformCommand(r *Runner, command, usage string, name platforms.Type, auth cli.ActionFunc, authFlags []cli.Flag) *cli.Command {
	p := string(name)
	return &cli.Command{
		Name:  command,
		Usage: usage,
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate and verify credentials",
				Flags:  authFlags,
				Action: auth,
			},
			{
				Name:  "search",
				Usage: "Search the catalog for a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "title"},
					&cli.StringArg{Name: "artist"},
				},
				Flags:  jsonFlags(),
				Action: r.platformAction(p, r.PlatformSearch),
			},
			{
				Name:  "sync-to",
				Usage: "Push a local playlist, creating it remotely the first time",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.platformAction(p, r.PlatformSyncTo),
			},
			{
				Name:  "sync-from",
				Usage: "Import a remote playlist as a new local playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "platform-id"},
				},
				Action: r.platformAction(p, r.PlatformSyncFrom),
			},
			{
				Name:  "playlists",
				Usage: "List the user's playlists on the platform",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to print (0 for all)",
					},
				}, jsonFlags()...),
				Action: r.platformAction(p, r.PlatformPlaylists),
			},
			{
				Name:   "status",
				Usage:  "Show which local playlists are synced",
				Flags:  jsonFlags(),
				Action: r.statusAction(p),
			},
		},
	}
}

func appleMusicCommand(r *Runner) *cli.Command {
	return platformCommand(r, "apple-music", "Apple Music integration", platforms.AppleMusicType, r.AppleMusicAuth, []cli.Flag{
		&cli.StringFlag{
			Name:  "user-token",
			Usage: "Music user token to store in the config file",
		},
	})
}

func spotifyCommand(r *Runner) *cli.Command {
	cmd := platformCommand(r, "spotify", "Spotify integration", platforms.SpotifyType, r.SpotifyAuth, nil)
	cmd.Aliases = []string{"spot"}
	return cmd
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse playlists interactively",
		Flags: []cli.Flag{
			platformFlag(false),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "plylist-tui.log",
			},
		},
		Action: r.TUI,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve /metrics and /healthz",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] in the config)",
			},
		},
		Action: r.Serve,
	}
}
