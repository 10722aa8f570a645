package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
	"github.com/desertthunder/pluto/internal/tasks"
)

const (
	internalErrorMessage = "Internal server error"
	maxBodyBytes         = 64 << 10
	defaultHistoryLimit  = 30
	maxHistoryLimit      = 365
)

// CheckIns is the check-in service.
type CheckIns interface {
	TodayStatus(ctx context.Context, userID, courseID string) (*checkin.Status, error)
	Record(ctx context.Context, userID, courseID string, in checkin.Input) (*checkin.Result, error)
	History(ctx context.Context, userID, courseID string, limit int) (*checkin.History, error)
}

// Dashboards builds the dashboard of a user.
type Dashboards interface {
	Build(ctx context.Context, userID string) (*dashboard.Dashboard, error)
}

// Courses loads owned course trees.
type Courses interface {
	GetTree(ctx context.Context, id, userID string) (*models.Course, error)
	VideoCourseID(ctx context.Context, videoID, userID string) (string, error)
}

// ProgressStore reads and writes per-video completion.
type ProgressStore interface {
	Upsert(ctx context.Context, userID, videoID string, completed bool, at time.Time) (*models.Progress, error)
	MapForCourse(ctx context.Context, userID, courseID string) (map[string]bool, error)
}

// Importer creates courses from playlists.
type Importer interface {
	Import(ctx context.Context, progress chan<- tasks.ProgressUpdate, userID, playlistURL string) (*tasks.ImportResult, error)
}

// API serves the JSON endpoints under /api.
type API struct {
	checkIns  CheckIns
	dashboard Dashboards
	courses   Courses
	progress  ProgressStore
	importer  Importer
	validate  *validator.Validate
	logger    *log.Logger
	now       func() time.Time
}

// NewAPI creates the JSON API. importer may be nil when no YouTube API key is configured.
func NewAPI(checkIns CheckIns, dash Dashboards, courses Courses, progress ProgressStore, importer Importer, logger *log.Logger) *API {
	return &API{
		checkIns:  checkIns,
		dashboard: dash,
		courses:   courses,
		progress:  progress,
		importer:  importer,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Register adds every API route.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.health))
	r.Handle(http.MethodGet, "/api/me", http.HandlerFunc(a.me))
	r.Handle(http.MethodGet, "/api/dashboard", http.HandlerFunc(a.getDashboard))
	r.Handle(http.MethodPost, "/api/courses", http.HandlerFunc(a.importCourse))
	r.Handle(http.MethodGet, "/api/courses/{id}", http.HandlerFunc(a.getCourse))
	r.Handle(http.MethodGet, "/api/courses/{id}/check-in", http.HandlerFunc(a.getCheckIn))
	r.Handle(http.MethodPost, "/api/courses/{id}/check-in", http.HandlerFunc(a.postCheckIn))
	r.Handle(http.MethodGet, "/api/courses/{id}/check-ins", http.HandlerFunc(a.getCheckIns))
	r.Handle(http.MethodPost, "/api/progress/toggle", http.HandlerFunc(a.toggleProgress))
}

type errorBody struct {
	Error string `json:"error"`
}

// CourseResponse is a course tree with the caller's completion map.
type CourseResponse struct {
	Course   *models.Course  `json:"course"`
	Progress map[string]bool `json:"progress"`
}

// CheckInResponse is the body of POST /api/courses/{id}/check-in.
type CheckInResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	CheckIn          *models.CheckIn `json:"checkIn"`
	AlreadyCheckedIn bool            `json:"alreadyCheckedIn,omitempty"`
}

// ToggleRequest is the body of POST /api/progress/toggle.
type ToggleRequest struct {
	VideoID   string `json:"videoId" validate:"required"`
	Completed *bool  `json:"completed" validate:"required"`
}

// ToggleResponse is the body returned by POST /api/progress/toggle.
type ToggleResponse struct {
	Success  bool             `json:"success"`
	Progress *models.Progress `json:"progress"`
}

// ImportRequest is the body of POST /api/courses.
type ImportRequest struct {
	PlaylistURL string `json:"playlistUrl" validate:"required,max=2048"`
}

// ImportResponse is the body returned by POST /api/courses.
type ImportResponse struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Videos   int    `json:"videos"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps sentinel errors to status codes. Internal details never reach the client.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.Is(err, shared.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Course not found"})
	case errors.Is(err, shared.ErrPlaylistNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Playlist not found"})
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidPlaylistURL),
		errors.Is(err, shared.ErrEmptyPlaylist):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrServiceUnavailable):
		a.logger.Warn("upstream request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Upstream request failed"})
	default:
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
	}
}

// decode reads a JSON body into v and validates it. An empty body leaves v untouched.
func (a *API) decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput)
	}
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func userID(r *http.Request) string {
	return IdentityFrom(r.Context()).UserID
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id.UserID == "" {
		a.writeError(w, r, shared.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (a *API) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.dashboard.Build(r.Context(), userID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) importCourse(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		a.writeError(w, r, shared.ErrUnauthorized)
		return
	}
	if a.importer == nil {
		a.writeError(w, r, fmt.Errorf("%w: playlist import is not configured", shared.ErrServiceUnavailable))
		return
	}

	var req ImportRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.importer.Import(r.Context(), nil, uid, req.PlaylistURL)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		CourseID: result.Course.ID,
		Title:    result.Course.Title,
		Videos:   result.Course.TotalVideos,
	})
}

func (a *API) getCourse(w http.ResponseWriter, r *http.Request) {
	uid, courseID := userID(r), r.PathValue("id")
	if uid == "" {
		a.writeError(w, r, shared.ErrUnauthorized)
		return
	}

	course, err := a.courses.GetTree(r.Context(), courseID, uid)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	progress, err := a.progress.MapForCourse(r.Context(), uid, courseID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CourseResponse{Course: course, Progress: progress})
}

func (a *API) getCheckIn(w http.ResponseWriter, r *http.Request) {
	status, err := a.checkIns.TodayStatus(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) postCheckIn(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		a.writeError(w, r, shared.ErrUnauthorized)
		return
	}

	var in checkin.Input
	if err := a.decode(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.checkIns.Record(r.Context(), uid, r.PathValue("id"), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckInResponse{
		Success:          true,
		Message:          result.Message,
		CheckIn:          result.CheckIn,
		AlreadyCheckedIn: !result.Created,
	})
}

func (a *API) getCheckIns(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidInput))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := a.checkIns.History(r.Context(), userID(r), r.PathValue("id"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *API) toggleProgress(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		a.writeError(w, r, shared.ErrUnauthorized)
		return
	}

	var req ToggleRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	if _, err := a.courses.VideoCourseID(r.Context(), req.VideoID, uid); err != nil {
		a.writeError(w, r, err)
		return
	}

	progress, err := a.progress.Upsert(r.Context(), uid, req.VideoID, *req.Completed, a.now().UTC())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Success: true, Progress: progress})
}
