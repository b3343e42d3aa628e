package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/tidyops/taskchain/internal/errors"
)

// Client talks to the remote graph API on behalf of a single fixed user.
// A bearer token is fetched from the token source on every request.
type Client struct {
	baseURL    string
	userID     string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewClient builds a graph client. baseURL has no trailing slash,
// e.g. "https://graph.microsoft.com/v1.0".
func NewClient(baseURL, userID string, tokens oauth2.TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetFileContent downloads a drive file's content by path.
func (c *Client) GetFileContent(ctx context.Context, driveID, filePath string) ([]byte, error) {
	const op = "graph.GetFileContent"

	reqURL := fmt.Sprintf("%s/drives/%s/root:/%s:/content", c.baseURL, driveID, filePath)

	resp, err := c.do(ctx, op, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return body, nil
}

// ListTaskLists fetches all of the user's to-do lists.
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	const op = "graph.ListTaskLists"

	reqURL := fmt.Sprintf("%s/users/%s/todo/lists", c.baseURL, c.userID)

	var lists listResponse[TaskList]
	if err := c.getJSON(ctx, op, reqURL, &lists); err != nil {
		return nil, err
	}
	return lists.Value, nil
}

// ListTasks fetches all tasks in a list.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]TodoTask, error) {
	const op = "graph.ListTasks"

	reqURL := fmt.Sprintf("%s/users/%s/todo/lists/%s/tasks", c.baseURL, c.userID, listID)

	var tasks listResponse[TodoTask]
	if err := c.getJSON(ctx, op, reqURL, &tasks); err != nil {
		return nil, err
	}
	return tasks.Value, nil
}

// ListCompletedTasks fetches only the completed tasks in a list.
func (c *Client) ListCompletedTasks(ctx context.Context, listID string) ([]TodoTask, error) {
	const op = "graph.ListCompletedTasks"

	filter := url.QueryEscape("status eq 'completed'")
	reqURL := fmt.Sprintf("%s/users/%s/todo/lists/%s/tasks?$filter=%s",
		c.baseURL, c.userID, listID, filter)

	var tasks listResponse[TodoTask]
	if err := c.getJSON(ctx, op, reqURL, &tasks); err != nil {
		return nil, err
	}
	return tasks.Value, nil
}

// CreateTask creates a task in the given list.
func (c *Client) CreateTask(ctx context.Context, listID string, task CreateTaskRequest) (*TodoTask, error) {
	const op = "graph.CreateTask"

	reqURL := fmt.Sprintf("%s/users/%s/todo/lists/%s/tasks", c.baseURL, c.userID, listID)

	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var created TodoTask
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, errors.E(op, errors.KindMalformed,
			fmt.Errorf("failed to decode created task: %w", err))
	}
	return &created, nil
}

// ListSubscriptions fetches all active webhook subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	const op = "graph.ListSubscriptions"

	reqURL := c.baseURL + "/subscriptions"

	var subs listResponse[Subscription]
	if err := c.getJSON(ctx, op, reqURL, &subs); err != nil {
		return nil, err
	}
	return subs.Value, nil
}

// RenewSubscription extends a subscription's expiration in place.
func (c *Client) RenewSubscription(ctx context.Context, subscriptionID string, newExpiry time.Time) error {
	const op = "graph.RenewSubscription"

	reqURL := fmt.Sprintf("%s/subscriptions/%s", c.baseURL, subscriptionID)

	body, err := json.Marshal(map[string]string{
		"expirationDateTime": newExpiry.UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal renewal: %w", err)
	}

	resp, err := c.do(ctx, op, http.MethodPatch, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, op, reqURL string, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.E(op, errors.KindMalformed,
			fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// do performs an authenticated request and turns non-2xx responses into
// remote-kind errors carrying the status and response body.
func (c *Client) do(ctx context.Context, op, method, reqURL string, body io.Reader) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.E(op, errors.KindRemote,
			fmt.Errorf("failed to call graph API: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, errors.E(op, errors.KindRemote,
			fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	return resp, nil
}
