package lrs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flashcard-quiz-service/internal/report"
)

// Version is the xAPI version sent with every request.
const Version = "1.0.3"

type Config struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
}

// Client posts result statements to a Learning Record Store.
type Client struct {
	http     *http.Client
	endpoint string
	username string
	password string
}

func New(cfg Config) *Client {
	h := &http.Client{Timeout: 10 * time.Second}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{
		http:     h,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Publish sends st to {endpoint}/statements.
func (c *Client) Publish(ctx context.Context, st report.Statement) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode statement: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/statements", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Experience-API-Version", Version)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("post statement: %s: %s", res.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
