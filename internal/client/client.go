// package client is the HTTP client of the course service API used by the CLI and terminal viewer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

const defaultBaseURL = "http://localhost:3000"

// Client makes authenticated JSON requests to the course service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for baseURL that sends token as a bearer credential.
func New(baseURL, token string, client *http.Client) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: client,
	}
}

// Course is a course tree with the caller's completion map.
type Course struct {
	Course   *models.Course  `json:"course"`
	Progress map[string]bool `json:"progress"`
}

// CheckInResult is the response of [Client.RecordCheckIn].
type CheckInResult struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	CheckIn          *models.CheckIn `json:"checkIn"`
	AlreadyCheckedIn bool            `json:"alreadyCheckedIn"`
}

// Imported is the response of [Client.Import].
type Imported struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Videos   int    `json:"videos"`
}

type errorBody struct {
	Error string `json:"error"`
}

// do sends a request and decodes a 2xx JSON response into result.
//
// Non-2xx statuses are mapped onto the shared sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(code int, data []byte) error {
	var body errorBody
	msg := http.StatusText(code)
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}

	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, code, msg)
	}
}

func coursePath(courseID string, rest ...string) string {
	return "/api/courses/" + url.PathEscape(courseID) + strings.Join(rest, "")
}

// Me returns the identity behind the client's token.
func (c *Client) Me(ctx context.Context) (userID, email string, err error) {
	var me struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &me); err != nil {
		return "", "", err
	}
	return me.UserID, me.Email, nil
}

// CheckInStatus reports whether today's check-in exists for the course.
func (c *Client) CheckInStatus(ctx context.Context, courseID string) (*checkin.Status, error) {
	var status checkin.Status
	if err := c.do(ctx, http.MethodGet, coursePath(courseID, "/check-in"), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RecordCheckIn submits today's check-in. Empty mood and notes are sent as absent.
func (c *Client) RecordCheckIn(ctx context.Context, courseID string, in checkin.Input) (*CheckInResult, error) {
	var result CheckInResult
	if err := c.do(ctx, http.MethodPost, coursePath(courseID, "/check-in"), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckInHistory returns the most recent check-ins and the current streak.
func (c *Client) CheckInHistory(ctx context.Context, courseID string, limit int) (*checkin.History, error) {
	path := coursePath(courseID, "/check-ins")
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var history checkin.History
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// ToggleProgress marks a video complete or incomplete.
func (c *Client) ToggleProgress(ctx context.Context, videoID string, completed bool) (*models.Progress, error) {
	body := map[string]any{"videoId": videoID, "completed": completed}

	var result struct {
		Success  bool             `json:"success"`
		Progress *models.Progress `json:"progress"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/progress/toggle", body, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.Progress == nil {
		return nil, errors.New("toggle was not acknowledged")
	}
	return result.Progress, nil
}

// GetCourse loads the course tree and the caller's progress.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodGet, coursePath(courseID), nil, &course); err != nil {
		return nil, err
	}
	if course.Progress == nil {
		course.Progress = map[string]bool{}
	}
	return &course, nil
}

// Dashboard loads the caller's dashboard.
func (c *Client) Dashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	var d dashboard.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Import asks the server to create a course from a playlist URL.
func (c *Client) Import(ctx context.Context, playlistURL string) (*Imported, error) {
	var imported Imported
	body := map[string]string{"playlistUrl": playlistURL}
	if err := c.do(ctx, http.MethodPost, "/api/courses", body, &imported); err != nil {
		return nil, err
	}
	return &imported, nil
}
