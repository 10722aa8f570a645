package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/server"
	"github.com/desertthunder/pluto/internal/shared"
	tu "github.com/desertthunder/pluto/internal/testing"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := New("", "", nil)
		if c.baseURL != defaultBaseURL {
			t.Errorf("expected base URL %q, got %q", defaultBaseURL, c.baseURL)
		}
		if c.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient")
		}
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		if got := New("http://example.com/", "", nil).baseURL; got != "http://example.com" {
			t.Errorf("expected trimmed base URL, got %q", got)
		}
	})
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Unauthorized"}`, shared.ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"error":"Course not found"}`, shared.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"error":"invalid input"}`, shared.ErrInvalidInput},
		{"server error", http.StatusInternalServerError, `{"error":"Internal server error"}`, shared.ErrAPIRequest},
		{"non JSON error", http.StatusBadGateway, `<html>`, shared.ErrAPIRequest},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, "tok", nil).CheckInStatus(ctx, "c1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		hc := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
		_, err := New("http://example.com", "", hc).Dashboard(ctx)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("body read failure", func(t *testing.T) {
		hc := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
			Header:     http.Header{},
		}, nil)}
		_, err := New("http://example.com", "", hc).Dashboard(ctx)
		if err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("expected read failure, got %v", err)
		}
	})

	t.Run("unacknowledged toggle", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success":false}`)
		}))
		defer srv.Close()

		if _, err := New(srv.URL, "", nil).ToggleProgress(ctx, "v1", true); err == nil {
			t.Error("expected error for unacknowledged toggle")
		}
	})
}

func TestRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("sends bearer token and JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("unexpected Authorization header %q", got)
			}
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if got := r.URL.EscapedPath(); got != "/api/courses/c%2F1/check-in" {
				t.Errorf("unexpected path %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("unexpected Content-Type %q", got)
			}

			var in checkin.Input
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			if in.Mood != "focused" {
				t.Errorf("expected mood focused, got %q", in.Mood)
			}

			io.WriteString(w, `{"success":true,"message":"Check-in recorded!","checkIn":{"id":"ci"}}`)
		}))
		defer srv.Close()

		result, err := New(srv.URL, "secret", nil).RecordCheckIn(ctx, "c/1", checkin.Input{Mood: "focused"})
		if err != nil {
			t.Fatalf("RecordCheckIn failed: %v", err)
		}
		if result.Message != "Check-in recorded!" {
			t.Errorf("unexpected message %q", result.Message)
		}
		if result.AlreadyCheckedIn {
			t.Error("expected a new check-in")
		}
	})

	t.Run("history limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "7" {
				t.Errorf("expected limit 7, got %q", got)
			}
			io.WriteString(w, `{"checkIns":[],"streak":3}`)
		}))
		defer srv.Close()

		history, err := New(srv.URL, "", nil).CheckInHistory(ctx, "c1", 7)
		if err != nil {
			t.Fatalf("CheckInHistory failed: %v", err)
		}
		if history.Streak != 3 {
			t.Errorf("expected streak 3, got %d", history.Streak)
		}
	})
}

// TestAgainstServer runs the client against the real router and a sqlite store.
func TestAgainstServer(t *testing.T) {
	ctx := context.Background()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	user, _, err := repositories.NewUserRepository(db).FindOrCreateByEmail(ctx, "viewer@example.com", "Viewer")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	courses := repositories.NewCourseRepository(db)
	progress := repositories.NewProgressRepository(db)
	course := tu.NewCourse(user.ID, "rust", 2, 2)
	if err := courses.Create(ctx, course); err != nil {
		t.Fatalf("failed to create course: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	tokens := server.NewTokenIssuer("secret", time.Hour)
	api := server.NewAPI(
		checkin.NewService(courses, repositories.NewCheckInRepository(db), checkin.WithLogger(logger)),
		dashboard.NewService(courses, progress),
		courses, progress, nil, logger,
	)
	auth := server.NewAuthenticator(tokens, server.NewSessionStore("0123456789abcdef0123456789abcdef", false))
	srv := httptest.NewServer(server.NewRouter(api, nil, auth, logger))
	t.Cleanup(srv.Close)

	tok, err := tokens.Issue(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	c := New(srv.URL, tok, nil)

	t.Run("me", func(t *testing.T) {
		uid, email, err := c.Me(ctx)
		if err != nil {
			t.Fatalf("Me failed: %v", err)
		}
		if uid != user.ID || email != "viewer@example.com" {
			t.Errorf("unexpected identity %q %q", uid, email)
		}
	})

	t.Run("check-in", func(t *testing.T) {
		status, err := c.CheckInStatus(ctx, course.ID)
		if err != nil {
			t.Fatalf("CheckInStatus failed: %v", err)
		}
		if status.HasCheckedInToday {
			t.Error("expected no check-in yet")
		}

		first, err := c.RecordCheckIn(ctx, course.ID, checkin.Input{Mood: models.MoodGreat})
		if err != nil {
			t.Fatalf("first RecordCheckIn failed: %v", err)
		}
		if first.AlreadyCheckedIn {
			t.Error("expected first check-in to be new")
		}

		second, err := c.RecordCheckIn(ctx, course.ID, checkin.Input{Mood: models.MoodTired})
		if err != nil {
			t.Fatalf("second RecordCheckIn failed: %v", err)
		}
		if !second.AlreadyCheckedIn {
			t.Error("expected second check-in to be a duplicate")
		}
		if second.CheckIn == nil || second.CheckIn.Mood == nil || *second.CheckIn.Mood != models.MoodGreat {
			t.Errorf("expected the original mood to be kept, got %+v", second.CheckIn)
		}
	})

	t.Run("progress and dashboard", func(t *testing.T) {
		loaded, err := c.GetCourse(ctx, course.ID)
		if err != nil {
			t.Fatalf("GetCourse failed: %v", err)
		}
		if n := loaded.Course.VideoCount(); n != 4 {
			t.Errorf("expected 4 videos, got %d", n)
		}
		if len(loaded.Progress) != 0 {
			t.Errorf("expected no progress, got %d records", len(loaded.Progress))
		}

		for _, v := range loaded.Course.Videos() {
			p, err := c.ToggleProgress(ctx, v.ID, true)
			if err != nil {
				t.Fatalf("ToggleProgress(%s) failed: %v", v.ID, err)
			}
			if !p.Completed {
				t.Errorf("expected %s to be completed", v.ID)
			}
		}

		d, err := c.Dashboard(ctx)
		if err != nil {
			t.Fatalf("Dashboard failed: %v", err)
		}
		if len(d.Courses) != 1 {
			t.Fatalf("expected 1 course, got %d", len(d.Courses))
		}
		if d.Courses[0].Percent != 100 {
			t.Errorf("expected 100%%, got %d", d.Courses[0].Percent)
		}
		if d.KPIs.CompletedCourses != 1 {
			t.Errorf("expected 1 completed course, got %d", d.KPIs.CompletedCourses)
		}
	})

	t.Run("import is not configured", func(t *testing.T) {
		_, err := c.Import(ctx, "https://www.youtube.com/playlist?list=PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := New(srv.URL, "", nil).Dashboard(ctx)
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}
