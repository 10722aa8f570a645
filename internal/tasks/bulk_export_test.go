package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/pluto/internal/formatter"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/services"
	"github.com/desertthunder/pluto/internal/shared"
	th "github.com/desertthunder/pluto/internal/testing"
)

func importCourses(t *testing.T, engine *CourseEngine, userID string, n int) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for range n {
		result, err := engine.Import(context.Background(), nil, userID, playlistURL)
		if err != nil {
			t.Fatalf("failed to import course: %v", err)
		}
		ids = append(ids, result.Course.ID)
	}
	return ids
}

func TestCourseEngine_BulkExport(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		format      string
		courses     int
		filesPerRun int
	}{
		{"single course json export", formatter.FormatJSON, 1, 1},
		{"multiple courses csv export", formatter.FormatCSV, 3, 2},
		{"markdown export", formatter.FormatMarkdown, 2, 1},
		{"text export", formatter.FormatText, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &th.MockPlaylistSource{
				Playlist: &services.Playlist{ID: "PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG", Title: "Go Course"},
				Videos:   th.MockVideos(3),
			}
			engine, user, _ := setupEngine(t, source, 2)
			ids := importCourses(t, engine, user.ID, tt.courses)
			dir := filepath.Join(t.TempDir(), "export")

			progress := make(chan ProgressUpdate, 100)
			result, err := engine.BulkExport(ctx, progress, user.ID, ids, BulkExportOpts{
				Format:     tt.format,
				OutputDir:  dir,
				NumWorkers: 2,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.SuccessfulExports != tt.courses || result.FailedExports != 0 {
				t.Errorf("expected %d successes, got %d (failed %d)", tt.courses, result.SuccessfulExports, result.FailedExports)
			}
			for _, res := range result.Results {
				if len(res.Files) != tt.filesPerRun {
					t.Errorf("expected %d files for %s, got %d", tt.filesPerRun, res.CourseID, len(res.Files))
				}
				for _, f := range res.Files {
					th.AssertFileExists(t, f)
				}
			}

			th.AssertFileExists(t, result.ManifestPath)
			if len(progress) == 0 {
				t.Error("expected progress updates")
			}
		})
	}

	t.Run("foreign and missing courses fail without stopping the rest", func(t *testing.T) {
		engine, user, db := setupEngine(t, &th.MockPlaylistSource{Videos: th.MockVideos(2)}, 10)
		ids := importCourses(t, engine, user.ID, 1)

		other, _, err := repositories.NewUserRepository(db).FindOrCreateByEmail(ctx, "other@example.com", "Other")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		foreign := importCourses(t, engine, other.ID, 1)

		result, err := engine.BulkExport(ctx, nil, user.ID, append(ids, foreign[0], "missing"), BulkExportOpts{
			OutputDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.SuccessfulExports != 1 || result.FailedExports != 2 {
			t.Errorf("expected 1 success and 2 failures, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}
		for _, res := range result.Results {
			if !res.Success && !errors.Is(res.Error, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound for %s, got %v", res.CourseID, res.Error)
			}
		}

		manifest := th.MustReadFile(t, result.ManifestPath)
		if !strings.Contains(manifest, `"failed_exports": 2`) {
			t.Errorf("manifest missing failure count: %s", manifest)
		}
	})

	t.Run("unsupported format is recorded per course", func(t *testing.T) {
		engine, user, _ := setupEngine(t, &th.MockPlaylistSource{Videos: th.MockVideos(1)}, 10)
		ids := importCourses(t, engine, user.ID, 2)

		result, err := engine.BulkExport(ctx, nil, user.ID, ids, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailedExports != 2 {
			t.Errorf("expected 2 failures, got %d", result.FailedExports)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		engine, user, _ := setupEngine(t, &th.MockPlaylistSource{Videos: th.MockVideos(1)}, 10)
		ids := importCourses(t, engine, user.ID, 3)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := engine.BulkExport(cctx, nil, user.ID, ids, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		engine, _, _ := setupEngine(t, &th.MockPlaylistSource{}, 10)
		if _, err := engine.BulkExport(ctx, nil, "", []string{"x"}, BulkExportOpts{OutputDir: t.TempDir()}); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}
