package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/formatter"
	"github.com/desertthunder/pluto/internal/shared"
)

// Dashboard prints the caller's totals and per-course progress.
func (r *Runner) Dashboard(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	d, err := api.Dashboard(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(d, true)
	}

	r.writePlainHeader("Dashboard")
	r.writePlain("Courses: %d (%d completed, %d in progress)\n", d.KPIs.TotalCourses, d.KPIs.CompletedCourses, d.KPIs.InProgressCourses)
	r.writePlain("Completion rate: %d%%\n", d.KPIs.CompletionRate)
	r.writePlain("Total watch time: %s\n", d.KPIs.TotalWatchTime)

	for _, c := range d.Courses {
		r.writePlain("\n%s\n", c.Title)
		r.writePlain("  Progress: %d/%d videos (%d%%)\n", c.CompletedVideos, c.TotalVideos, c.Percent)
		r.writePlain("  Duration: %s\n", formatter.FormatDuration(c.TotalDurationS))
		if c.LastWatchedAt != nil {
			r.writePlain("  Last watched: %s\n", c.LastWatchedAt.Local().Format(time.DateTime))
		}
		r.writePlain("  ID: %s\n", c.ID)
	}
	return nil
}

// courseArg reads the required course argument.
func courseArg(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("course")
	if id == "" {
		return "", shared.ErrMissingArgument
	}
	return id, nil
}
