// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configCommand handles configuration and database setup.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration and database setup",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create config.toml if missing and initialize the database schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}

// taskCommand handles submitting and managing download tasks.
func taskCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "task",
		Aliases: []string{"tasks"},
		Usage:   "Submit and manage download tasks",
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Submit a track, album, playlist, or artist for download",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "kind",
						Usage:    "track, album, playlist, or artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name shown in the task list",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Display artist shown in the task list",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TaskSubmit,
			},
			{
				Name:  "list",
				Usage: "List known tasks and their current status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.TaskList,
			},
			{
				Name:  "cancel",
				Usage: "Cancel a queued or running task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Action: r.TaskCancel,
			},
			{
				Name:  "retry",
				Usage: "Retry a task that ended in error",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Action: r.TaskRetry,
			},
			{
				Name:  "log",
				Usage: "Print a task's full status history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task_id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TaskLog,
			},
		},
	}
}

// watchCommand handles watched playlist and artist management.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Manage watched playlists and artists",
		Commands: []*cli.Command{
			{
				Name:  "add-playlist",
				Usage: "Start watching a Spotify playlist for new tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist_id"},
				},
				Action: r.WatchAddPlaylist,
			},
			{
				Name:  "add-artist",
				Usage: "Start watching a Spotify artist for new releases",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist_id"},
				},
				Action: r.WatchAddArtist,
			},
			{
				Name:  "remove-playlist",
				Usage: "Stop watching a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist_id"},
				},
				Action: r.WatchRemovePlaylist,
			},
			{
				Name:  "remove-artist",
				Usage: "Stop watching an artist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist_id"},
				},
				Action: r.WatchRemoveArtist,
			},
			{
				Name:  "list",
				Usage: "List watched playlists and artists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.WatchList,
			},
		},
	}
}

// serveCommand starts the scheduler and watch engine and blocks until
// interrupted, the long-running entrypoint for the background service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the scheduler and watch engine until interrupted",
		Action: r.Serve,
	}
}

// dashboardCommand launches the interactive task dashboard.
func dashboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"ui"},
		Usage:   "Launch the interactive task dashboard",
		Action:  r.Dashboard,
	}
}
