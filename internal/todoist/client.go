// Package todoist is the HTTP client for the Todoist API. The sync engine
// uses the batch sync endpoint (commands with temp ids, resolved through
// temp_id_mapping in the response) and the REST endpoints for single-item
// create/close/reopen.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for programmatic handling by the sync layer.
var (
	ErrUnauthorized = errors.New("todoist: invalid or expired token")
	ErrUnavailable  = errors.New("todoist: service unavailable")
)

// Command is one entry in a batched mutation request. Create commands carry
// a TempID that the service maps to a permanent id in its response; the
// mapping is only valid for the run that produced it.
type Command struct {
	Type   string                 `json:"type"`
	UUID   string                 `json:"uuid"`
	TempID string                 `json:"temp_id,omitempty"`
	Args   map[string]interface{} `json:"args"`
}

// NewItemAdd builds an item_add command with a fresh temp id.
func NewItemAdd(content string, due *time.Time) Command {
	args := map[string]interface{}{"content": content}
	if due != nil {
		args["due"] = map[string]string{"date": due.Format("2006-01-02")}
	}
	return Command{
		Type:   "item_add",
		UUID:   uuid.NewString(),
		TempID: uuid.NewString(),
		Args:   args,
	}
}

// NewItemUpdate builds an item_update command for an already-linked item.
func NewItemUpdate(id string, due *time.Time) Command {
	args := map[string]interface{}{"id": id}
	if due != nil {
		args["due"] = map[string]string{"date": due.Format("2006-01-02")}
	} else {
		args["due"] = nil
	}
	return Command{Type: "item_update", UUID: uuid.NewString(), Args: args}
}

type Client interface {
	// SubmitBatch sends all commands as one request and returns the
	// temp id → permanent id mapping for the creates that succeeded.
	SubmitBatch(ctx context.Context, token string, cmds []Command) (map[string]string, error)
	// OpenItems returns the ids of every currently-open item.
	OpenItems(ctx context.Context, token string) (map[string]struct{}, error)
	// CreateTask creates a single task and returns its id. parentID may be
	// empty for top-level tasks.
	CreateTask(ctx context.Context, token, content, description string, due *time.Time, parentID string) (string, error)
	// SetOpen reopens (open=true) or closes (open=false) an item.
	SetOpen(ctx context.Context, token, id string, open bool) error
}

type client struct {
	syncURL string
	restURL string
	http    *http.Client
}

func NewClient(syncURL, restURL string) Client {
	return &client{
		syncURL: syncURL,
		restURL: restURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) SubmitBatch(ctx context.Context, token string, cmds []Command) (map[string]string, error) {
	if len(cmds) == 0 {
		return map[string]string{}, nil
	}
	encoded, err := json.Marshal(cmds)
	if err != nil {
		return nil, err
	}
	form := url.Values{"commands": {string(encoded)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.syncURL+"/sync",
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body struct {
		TempIDMapping map[string]string `json:"temp_id_mapping"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("todoist: decode sync response: %w", err)
	}
	if body.TempIDMapping == nil {
		body.TempIDMapping = map[string]string{}
	}
	return body.TempIDMapping, nil
}

func (c *client) OpenItems(ctx context.Context, token string) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/tasks", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var tasks []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("todoist: decode tasks: %w", err)
	}
	open := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		open[t.ID] = struct{}{}
	}
	return open, nil
}

func (c *client) CreateTask(ctx context.Context, token, content, description string, due *time.Time, parentID string) (string, error) {
	payload := map[string]interface{}{"content": content}
	if description != "" {
		payload["description"] = description
	}
	if due != nil {
		payload["due_datetime"] = due.Format(time.RFC3339)
	}
	if parentID != "" {
		payload["parent_id"] = parentID
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL+"/tasks", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("todoist: decode created task: %w", err)
	}
	return created.ID, nil
}

func (c *client) SetOpen(ctx context.Context, token, id string, open bool) error {
	action := "close"
	if open {
		action = "reopen"
	}
	url := fmt.Sprintf("%s/tasks/%s/%s", c.restURL, id, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("todoist: unexpected status %d: %s", resp.StatusCode, body)
	}
	return nil
}
