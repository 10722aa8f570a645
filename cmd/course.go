package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/formatter"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/shared"
	"github.com/desertthunder/pluto/internal/tasks"
)

// printProgress writes progress updates until the channel is closed. The returned channel is closed
// once every update has been written.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylist, tasks.FetchVideos:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SplitSections:
				r.writePlain("✂️  %s\n", update.Message)
			case tasks.SaveCourse:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.ExportCourse:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()
	return done
}

// CourseImport creates a course from a playlist URL, through the server or directly in the database
// when --email is given.
func (r *Runner) CourseImport(ctx context.Context, cmd *cli.Command) error {
	playlistURL := cmd.StringArg("url")
	if playlistURL == "" {
		return fmt.Errorf("%w: playlist URL", shared.ErrMissingArgument)
	}

	if email := cmd.String("email"); email != "" {
		return r.importLocal(ctx, cmd, email, playlistURL)
	}

	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	imported, err := api.Import(ctx, playlistURL)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(imported, true)
	}
	return r.writePlain("✓ Imported %s (%d videos)\nCourse ID: %s\n", imported.Title, imported.Videos, imported.CourseID)
}

func (r *Runner) importLocal(ctx context.Context, cmd *cli.Command, email, playlistURL string) error {
	if r.source == nil {
		return fmt.Errorf("%w: youtube.api_key is not set", shared.ErrMissingConfig)
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	user, err := r.userByEmail(ctx, db, email)
	if err != nil {
		return err
	}

	r.logger.Info("importing playlist", "url", playlistURL, "user_id", user.ID)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := r.printProgress(progressCh)

	result, err := r.engine(db).Import(ctx, progressCh, user.ID, playlistURL)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Course, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Course: %s\n", result.Course.Title)
	r.writePlain("Course ID: %s\n", result.Course.ID)
	r.writePlain("Sections: %d\n", len(result.Course.Sections))
	r.writePlain("Videos: %d (%s)\n", result.Course.TotalVideos, formatter.FormatDuration(result.Course.TotalDurationS))
	if result.Skipped > 0 {
		r.writePlain("Skipped %d private or deleted videos\n", result.Skipped)
	}
	return nil
}

// CourseList prints the caller's courses with progress.
func (r *Runner) CourseList(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	d, err := api.Dashboard(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(d.Courses, true)
	}
	if len(d.Courses) == 0 {
		return r.writePlain("No courses yet. Import one with 'pluto course import <playlist-url>'.\n")
	}

	for _, c := range d.Courses {
		r.writePlain("%s  %s  %d/%d (%d%%)\n", c.ID, c.Title, c.CompletedVideos, c.TotalVideos, c.Percent)
	}
	return nil
}

// CourseShow prints a course outline with completion marks.
func (r *Runner) CourseShow(ctx context.Context, cmd *cli.Command) error {
	courseID := cmd.StringArg("id")
	if courseID == "" {
		return fmt.Errorf("%w: course ID", shared.ErrMissingArgument)
	}

	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	course, err := api.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}

	export := &formatter.CourseExport{Course: course.Course, Progress: course.Progress}
	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case formatter.FormatText:
		data, err = formatter.ExportToText(export)
	case formatter.FormatMarkdown:
		data, err = formatter.ExportToMarkdown(export)
	default:
		return fmt.Errorf("%w: format %q (must be txt or markdown)", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// CourseExport writes courses of the given owner to disk with a worker pool.
func (r *Runner) CourseExport(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	user, err := r.userByEmail(ctx, db, cmd.String("email"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		courses, err := repositories.NewCourseRepository(db).ListByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, c := range courses {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return r.writePlain("No courses to export.\n")
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
	}
	if !validFormat(opts.Format) {
		return fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, opts.Format)
	}

	r.writePlain("Exporting %d courses...\n", len(ids))

	progressCh := make(chan tasks.ProgressUpdate, len(ids)*2)
	done := r.printProgress(progressCh)

	result, err := r.engine(db).BulkExport(ctx, progressCh, user.ID, ids, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalCourses)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d courses:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.Title, res.Error)
			}
		}
	}
	return nil
}

func validFormat(format string) bool {
	return slices.Contains(formatter.Formats, format)
}
