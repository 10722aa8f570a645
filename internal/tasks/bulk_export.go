package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/pluto/internal/formatter"
	"github.com/desertthunder/pluto/internal/shared"
)

// BulkExportOpts contains configuration for bulk course exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: pluto_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 4)
}

// BulkExportResult aliases the formatter's summary so callers need only this package.
type BulkExportResult = formatter.BulkExportResult

type courseExportJob struct {
	export *formatter.CourseExport
}

// BulkExport exports multiple courses concurrently and writes a manifest summarizing the results.
//
// Courses are loaded one by one and handed to a pool of workers that write the files.
// A course that cannot be loaded or written is recorded as failed; the rest still export.
func (e *CourseEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	userID string,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	if e.courses == nil || e.progress == nil {
		return nil, fmt.Errorf("%w: course store not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("pluto_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalCourses:    len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.CourseExportResult, 0, len(ids)),
	}

	jobs := make(chan courseExportJob, len(ids))
	results := make(chan formatter.CourseExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, id := range ids {
			select {
			case <-ctx.Done():
				return
			default:
			}

			export, err := e.loadExport(ctx, userID, id)
			if err != nil {
				results <- formatter.CourseExportResult{
					CourseID: id,
					Title:    fmt.Sprintf("Unknown (%s)", id),
					Error:    fmt.Errorf("failed to load course: %w", err),
				}
				continue
			}

			e.sendProgress(prog, exportingCourseUpdate(i+1, len(ids), export.Course.Title))
			jobs <- courseExportJob{export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *CourseEngine) loadExport(ctx context.Context, userID, id string) (*formatter.CourseExport, error) {
	course, err := e.courses.GetTree(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	progress, err := e.progress.MapForCourse(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &formatter.CourseExport{Course: course, Progress: progress}, nil
}

// exportWorker writes courses from the jobs channel until it is closed.
func (e *CourseEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan courseExportJob,
	results chan<- formatter.CourseExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		course := job.export.Course
		res := formatter.CourseExportResult{CourseID: course.ID, Title: course.Title}

		files, err := formatter.WriteCourseExport(job.export, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		} else {
			res.Files = files
			res.Success = true
		}
		results <- res
	}
}
