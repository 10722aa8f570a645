package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/services"
	"github.com/desertthunder/pluto/internal/shared"
	th "github.com/desertthunder/pluto/internal/testing"
)

const playlistURL = "https://www.youtube.com/playlist?list=PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG"

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *shared.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func setupEngine(t *testing.T, source services.PlaylistSource, perSection int) (*CourseEngine, *models.User, *shared.DB) {
	t.Helper()

	db := setupTestDB(t)
	user := &models.User{Email: "learner@example.com", Name: "Learner"}
	if err := repositories.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	engine := NewCourseEngine(
		source,
		repositories.NewCourseRepository(db),
		repositories.NewProgressRepository(db),
		perSection,
	)
	return engine, user, db
}

type failingStore struct{}

func (failingStore) Create(ctx context.Context, course *models.Course) error {
	return errors.New("disk full")
}

func (failingStore) GetTree(ctx context.Context, id, userID string) (*models.Course, error) {
	return nil, shared.ErrNotFound
}

func TestBuildSections(t *testing.T) {
	tests := []struct {
		name       string
		videos     int
		perSection int
		wantSizes  []int
		wantTitles []string
	}{
		{"even split", 4, 2, []int{2, 2}, []string{"Videos 1-2", "Videos 3-4"}},
		{"remainder", 5, 2, []int{2, 2, 1}, []string{"Videos 1-2", "Videos 3-4", "Video 5"}},
		{"fewer than one section", 3, 10, []int{3}, []string{"Videos 1-3"}},
		{"default size", 12, 0, []int{10, 2}, []string{"Videos 1-10", "Videos 11-12"}},
		{"empty", 0, 5, []int{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := BuildSections(th.MockVideos(tt.videos), tt.perSection)

			if len(sections) != len(tt.wantSizes) {
				t.Fatalf("expected %d sections, got %d", len(tt.wantSizes), len(sections))
			}
			for i, s := range sections {
				if len(s.Videos) != tt.wantSizes[i] {
					t.Errorf("section %d: expected %d videos, got %d", i, tt.wantSizes[i], len(s.Videos))
				}
				if s.Title != tt.wantTitles[i] {
					t.Errorf("section %d: expected title %q, got %q", i, tt.wantTitles[i], s.Title)
				}
				if s.OrderIndex != i {
					t.Errorf("section %d: expected order index %d, got %d", i, i, s.OrderIndex)
				}
				for j, v := range s.Videos {
					if v.OrderIndex != j {
						t.Errorf("section %d video %d: expected order index %d, got %d", i, j, j, v.OrderIndex)
					}
				}
			}
		})
	}

	t.Run("keeps playlist order and fields", func(t *testing.T) {
		thumb := "https://i.ytimg.com/vi/v0/mqdefault.jpg"
		videos := th.MockVideos(3)
		videos[0].ThumbnailURL = &thumb
		videos[2].DurationS = nil

		sections := BuildSections(videos, 2)
		first := sections[0].Videos[0]
		if first.YouTubeID != "v0" || first.Title != "Video 1" || first.ThumbnailURL != &thumb {
			t.Errorf("unexpected first video: %+v", first)
		}
		if sections[1].Videos[0].YouTubeID != "v2" || sections[1].Videos[0].DurationS != nil {
			t.Errorf("unexpected last video: %+v", sections[1].Videos[0])
		}
	})
}

func TestCourseEngine_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("creates course tree", func(t *testing.T) {
		source := &th.MockPlaylistSource{
			Playlist: &services.Playlist{ID: "PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG", Title: "Go Course", ItemCount: 7},
			Videos:   th.MockVideos(5),
		}
		engine, user, db := setupEngine(t, source, 2)

		progress := make(chan ProgressUpdate, 10)
		result, err := engine.Import(ctx, progress, user.ID, playlistURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		if result.Course.ID == "" {
			t.Fatal("expected course ID to be assigned")
		}
		if result.Course.TotalVideos != 5 || result.Course.TotalDurationS != 300 {
			t.Errorf("unexpected totals: %d videos, %ds", result.Course.TotalVideos, result.Course.TotalDurationS)
		}
		if result.Skipped != 2 {
			t.Errorf("expected 2 skipped items, got %d", result.Skipped)
		}

		saved, err := repositories.NewCourseRepository(db).GetTree(ctx, result.Course.ID, user.ID)
		if err != nil {
			t.Fatalf("failed to load saved course: %v", err)
		}
		if saved.Title != "Go Course" || len(saved.Sections) != 3 || saved.VideoCount() != 5 {
			t.Errorf("unexpected saved course: %q with %d sections, %d videos", saved.Title, len(saved.Sections), saved.VideoCount())
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchPlaylist, FetchVideos, SplitSections, SaveCourse, SaveCourse}
		if len(phases) != len(want) {
			t.Fatalf("expected %d progress updates, got %d", len(want), len(phases))
		}
		for i := range want {
			if phases[i] != want[i] {
				t.Errorf("update %d: expected %s, got %s", i, want[i], phases[i])
			}
		}
	})

	t.Run("nil progress channel", func(t *testing.T) {
		source := &th.MockPlaylistSource{Videos: th.MockVideos(1)}
		engine, user, _ := setupEngine(t, source, 10)

		if _, err := engine.Import(ctx, nil, user.ID, playlistURL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid URL never reaches the source", func(t *testing.T) {
		source := &th.MockPlaylistSource{Videos: th.MockVideos(1)}
		engine, user, _ := setupEngine(t, source, 10)

		_, err := engine.Import(ctx, nil, user.ID, "https://vimeo.com/123")
		if !errors.Is(err, shared.ErrInvalidPlaylistURL) {
			t.Errorf("expected ErrInvalidPlaylistURL, got %v", err)
		}
		if source.Calls != 0 {
			t.Errorf("expected no source calls, got %d", source.Calls)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		engine, _, _ := setupEngine(t, &th.MockPlaylistSource{}, 10)
		if _, err := engine.Import(ctx, nil, "", playlistURL); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		engine, user, _ := setupEngine(t, &th.MockPlaylistSource{}, 10)
		if _, err := engine.Import(ctx, nil, user.ID, playlistURL); !errors.Is(err, shared.ErrEmptyPlaylist) {
			t.Errorf("expected ErrEmptyPlaylist, got %v", err)
		}
	})

	t.Run("source errors pass through", func(t *testing.T) {
		source := &th.MockPlaylistSource{PlaylistErr: shared.ErrPlaylistNotFound}
		engine, user, _ := setupEngine(t, source, 10)
		if _, err := engine.Import(ctx, nil, user.ID, playlistURL); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}

		source = &th.MockPlaylistSource{VideosErr: shared.ErrAPIRequest}
		engine, user, _ = setupEngine(t, source, 10)
		if _, err := engine.Import(ctx, nil, user.ID, playlistURL); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		engine := NewCourseEngine(&th.MockPlaylistSource{Videos: th.MockVideos(2)}, failingStore{}, nil, 10)
		_, err := engine.Import(ctx, nil, "user-1", playlistURL)
		if err == nil || err.Error() != "failed to save course: disk full" {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("missing source", func(t *testing.T) {
		engine := NewCourseEngine(nil, failingStore{}, nil, 10)
		if _, err := engine.Import(ctx, nil, "user-1", playlistURL); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		FetchPlaylist: "fetch_playlist",
		FetchVideos:   "fetch_videos",
		SplitSections: "split_sections",
		SaveCourse:    "save_course",
		ExportCourse:  "export_course",
		Phase(99):     "",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
