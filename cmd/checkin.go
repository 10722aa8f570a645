package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

// CheckInStatus reports whether today's check-in exists for a course.
func (r *Runner) CheckInStatus(ctx context.Context, cmd *cli.Command) error {
	courseID, err := courseArg(cmd)
	if err != nil {
		return fmt.Errorf("%w: course ID", err)
	}
	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}

	status, err := api.CheckInStatus(ctx, courseID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	if !status.HasCheckedInToday {
		return r.writePlain("✗ Not checked in today\n")
	}

	r.writePlain("✓ Checked in today\n")
	writeCheckIn(r, status.CheckIn)
	return nil
}

// CheckInRecord records today's check-in. Without --mood and --notes it records a skipped check-in.
func (r *Runner) CheckInRecord(ctx context.Context, cmd *cli.Command) error {
	courseID, err := courseArg(cmd)
	if err != nil {
		return fmt.Errorf("%w: course ID", err)
	}

	in := checkin.Input{Mood: cmd.String("mood"), Notes: cmd.String("notes")}
	if in.Mood != "" && !slices.Contains(models.Moods, in.Mood) {
		return fmt.Errorf("%w: mood must be one of %v", shared.ErrInvalidArgument, models.Moods)
	}

	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	result, err := api.RecordCheckIn(ctx, courseID, in)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("✓ %s\n", result.Message)
	writeCheckIn(r, result.CheckIn)
	return nil
}

// CheckInHistory prints recent check-ins and the current streak.
func (r *Runner) CheckInHistory(ctx context.Context, cmd *cli.Command) error {
	courseID, err := courseArg(cmd)
	if err != nil {
		return fmt.Errorf("%w: course ID", err)
	}
	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}

	history, err := api.CheckInHistory(ctx, courseID, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(history, true)
	}

	r.writePlain("Current streak: %d days\n\n", history.Streak)
	for _, c := range history.CheckIns {
		writeCheckIn(r, &c)
	}
	return nil
}

func writeCheckIn(r *Runner, c *models.CheckIn) {
	if c == nil {
		return
	}
	line := c.Date
	if c.Mood != nil {
		line += "  " + *c.Mood
	} else {
		line += "  (skipped)"
	}
	if c.Notes != nil && *c.Notes != "" {
		line += "  " + *c.Notes
	}
	r.writePlain("%s\n", line)
}
