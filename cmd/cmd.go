// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/formatter"
)

// clientFlags are shared by commands that talk to a running server.
func clientFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "server",
			Usage: "Server base URL (default: server.base_url)",
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token from 'pluto token issue'",
			Sources: cli.EnvVars("PLUTO_TOKEN"),
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
	}
	return append(flags, extra...)
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tokenCommand handles API tokens for the CLI and terminal viewer.
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage API tokens",
		Commands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Find or create a user by email and print a signed API token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "User email",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name for a new user",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TokenIssue,
			},
		},
	}
}

// courseCommand handles course import, listing, and export.
func courseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "course",
		Aliases: []string{"courses"},
		Usage:   "Course operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Create a course from a YouTube playlist URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: clientFlags(
					&cli.StringFlag{
						Name:  "email",
						Usage: "Import directly into the database for this user instead of calling the server",
					},
				),
				Action: r.CourseImport,
			},
			{
				Name:   "list",
				Usage:  "List your courses with progress",
				Flags:  clientFlags(),
				Action: r.CourseList,
			},
			{
				Name:  "show",
				Usage: "Show a course outline with completion",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: clientFlags(
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: txt or markdown",
						Value: formatter.FormatText,
					},
				),
				Action: r.CourseShow,
			},
			{
				Name:      "export",
				Usage:     "Export courses to files (all courses when no IDs are given)",
				ArgsUsage: "[course-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Owner of the courses",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: pluto_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 4,
					},
				},
				Action: r.CourseExport,
			},
		},
	}
}

// dashboardCommand prints the dashboard.
func dashboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "dashboard",
		Usage:  "Show course progress and totals",
		Flags:  clientFlags(),
		Action: r.Dashboard,
	}
}

// checkInCommand handles daily check-ins.
func checkInCommand(r *Runner) *cli.Command {
	courseArg := []cli.Argument{&cli.StringArg{Name: "course"}}

	return &cli.Command{
		Name:  "checkin",
		Usage: "Daily course check-ins",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show whether you checked in today",
				Arguments: courseArg,
				Flags:     clientFlags(),
				Action:    r.CheckInStatus,
			},
			{
				Name:      "record",
				Usage:     "Record today's check-in",
				Arguments: courseArg,
				Flags: clientFlags(
					&cli.StringFlag{
						Name:  "mood",
						Usage: "One of amazing, great, okay, struggling, tired, focused",
					},
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Optional notes (up to 200 characters)",
					},
				),
				Action: r.CheckInRecord,
			},
			{
				Name:      "history",
				Usage:     "Show recent check-ins and the current streak",
				Arguments: courseArg,
				Flags: clientFlags(
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of check-ins",
						Value: 30,
					},
				),
				Action: r.CheckInHistory,
			},
		},
	}
}

// viewCommand returns the top-level command for the interactive course viewer.
func viewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "view",
		Aliases: []string{"tui", "ui"},
		Usage:   "Open the interactive course viewer",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "course"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Server base URL (default: server.base_url)",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "API token from 'pluto token issue'",
				Sources: cli.EnvVars("PLUTO_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the viewer is open",
				Value: "./tmp/pluto-view.log",
			},
		},
		Action: r.View,
	}
}
