// Package canvas is the HTTP client for the Canvas LMS API, limited to the
// calls the sync engine needs: active courses and their assignments.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for programmatic handling by the sync layer.
var (
	ErrUnauthorized = errors.New("canvas: invalid or expired token")
	ErrUnavailable  = errors.New("canvas: service unavailable")
)

type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

// Assignment is one Canvas assignment. DueAt is as reported by Canvas (UTC)
// and nil when the assignment is undated.
type Assignment struct {
	ID       int64      `json:"id"`
	CourseID int64      `json:"course_id"`
	Name     string     `json:"name"`
	DueAt    *time.Time `json:"due_at"`
}

// Profile is the Canvas user a token belongs to.
type Profile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Client interface {
	ListActiveCourses(ctx context.Context, token string) ([]Course, error)
	ListAssignments(ctx context.Context, token string, courseID int64) ([]Assignment, error)
	GetProfile(ctx context.Context, token string) (*Profile, error)
}

type client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) Client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) ListActiveCourses(ctx context.Context, token string) ([]Course, error) {
	var courses []Course
	url := c.baseURL + "/api/v1/courses?enrollment_state=active&per_page=100"
	if err := c.get(ctx, token, url, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *client) ListAssignments(ctx context.Context, token string, courseID int64) ([]Assignment, error) {
	var raw []struct {
		ID       int64   `json:"id"`
		CourseID int64   `json:"course_id"`
		Name     string  `json:"name"`
		DueAt    *string `json:"due_at"`
	}
	url := fmt.Sprintf("%s/api/v1/courses/%d/assignments?per_page=100", c.baseURL, courseID)
	if err := c.get(ctx, token, url, &raw); err != nil {
		return nil, err
	}

	assignments := make([]Assignment, 0, len(raw))
	for _, a := range raw {
		asn := Assignment{ID: a.ID, CourseID: a.CourseID, Name: a.Name}
		if a.CourseID == 0 {
			asn.CourseID = courseID
		}
		if a.DueAt != nil && *a.DueAt != "" {
			t, err := time.Parse(time.RFC3339, *a.DueAt)
			if err != nil {
				return nil, fmt.Errorf("canvas: parse due_at %q for assignment %d: %w", *a.DueAt, a.ID, err)
			}
			asn.DueAt = &t
		}
		assignments = append(assignments, asn)
	}
	return assignments, nil
}

func (c *client) GetProfile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, token, c.baseURL+"/api/v1/users/self", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *client) get(ctx context.Context, token, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("canvas: unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("canvas: decode response: %w", err)
	}
	return nil
}
