// Package client talks to a taskpool API server.
//
// Usage:
//
//	c := client.New("http://localhost:8080")
//
//	st, err := c.Stats(ctx, jobID)
//
//	// Follow the job until every task is closed.
//	ch, err := c.Watch(ctx, jobID)
//	for st := range ch {
//	    fmt.Printf("%d/%d open\n", st.Open(), st.Total)
//	}
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/taskpool/task"
)

// Client is a taskpool API client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	buffer  int
}

// New creates a Client for the server at baseURL (http or https).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.Default(),
		buffer:  16,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats fetches the task counts of a job.
func (c *Client) Stats(ctx context.Context, jobID int64) (task.Stats, error) {
	var st task.Stats
	url := fmt.Sprintf("%s/v1/jobs/%d/stats", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return st, fmt.Errorf("taskpool/client: stats: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return st, fmt.Errorf("taskpool/client: stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("taskpool/client: decode stats: %w", err)
	}
	return st, nil
}

// Watch opens the websocket feed of a job and returns a channel of task
// count snapshots. The channel is closed when the server ends the feed
// after the last task closed, on a read error, or when ctx is done.
func (c *Client) Watch(ctx context.Context, jobID int64) (<-chan task.Stats, error) {
	url := fmt.Sprintf("%s/v1/jobs/%d/watch", wsBase(c.baseURL), jobID)
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("taskpool/client: watch job %d: %w", jobID, err)
	}

	ch := make(chan task.Stats, c.buffer)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(ch)
		defer close(done)
		defer conn.Close()

		for {
			data, err := wsutil.ReadServerText(conn)
			if err != nil {
				var closed wsutil.ClosedError
				if !errors.As(err, &closed) && ctx.Err() == nil {
					c.logger.Warn("watch feed read error",
						slog.Int64("job_id", jobID),
						slog.String("error", err.Error()),
					)
				}
				return
			}
			var st task.Stats
			if err := json.Unmarshal(data, &st); err != nil {
				c.logger.Warn("watch feed decode error",
					slog.Int64("job_id", jobID),
					slog.String("error", err.Error()),
				)
				continue
			}
			select {
			case ch <- st:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func wsBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("taskpool/client: unexpected status %s", resp.Status)
	}
	return fmt.Errorf("taskpool/client: %s: %s", resp.Status, body.Error)
}
