package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	SendPath          = "/api/sessions/send"
	DefaultEndpoint   = "http://localhost:3100"
	DefaultSessionKey = "agenthost-research"
	DefaultAgentID    = "scout"
	DefaultTimeout    = 120 * time.Second

	maxReplyBytes = 4 << 20
)

// ErrCircuitOpen is returned without contacting the agent while the breaker is open.
var ErrCircuitOpen = errors.New("research agent unavailable: circuit open")

// StatusError is a non-2xx reply from the agent.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("research agent error: %s", e.Status)
}

type Config struct {
	Endpoint   string
	Token      string
	SessionKey string
	AgentID    string
	Timeout    time.Duration

	// breaker; FailThreshold <= 0 disables it
	FailThreshold int
	OpenFor       time.Duration
}

// Client sends prompts to the research agent's session API.
type Client struct {
	endpoint   string
	token      string
	sessionKey string
	agentID    string
	timeout    time.Duration
	http       *http.Client
	br         *breaker
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
	if cfg.AgentID == "" {
		cfg.AgentID = DefaultAgentID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		sessionKey: cfg.SessionKey,
		agentID:    cfg.AgentID,
		timeout:    cfg.Timeout,
		http:       &http.Client{Timeout: cfg.Timeout},
		br:         newBreaker(cfg.FailThreshold, cfg.OpenFor),
	}
}

type sendRequest struct {
	Message        string `json:"message"`
	SessionKey     string `json:"sessionKey"`
	AgentID        string `json:"agentId"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// Send posts message to the agent and returns the text of its answer.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	if !c.br.acquire() {
		return "", ErrCircuitOpen
	}

	reply, err := c.post(ctx, message)
	if err != nil {
		// a caller that gave up says nothing about the agent's health
		if ctx.Err() != nil {
			c.br.release()
			return "", err
		}
		c.br.failure()
		return "", err
	}
	c.br.success()
	return reply, nil
}

func (c *Client) post(ctx context.Context, message string) (string, error) {
	b, err := json.Marshal(sendRequest{
		Message:        message,
		SessionKey:     c.sessionKey,
		AgentID:        c.agentID,
		TimeoutSeconds: int(c.timeout / time.Second),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+SendPath, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("research agent request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxReplyBytes))
		return "", &StatusError{Code: res.StatusCode, Status: res.Status}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read research agent reply: %w", err)
	}
	return ReplyText(body), nil
}

var replyFields = []string{"message", "content", "text", "reply"}

// ReplyText pulls the answer out of an agent reply body. It prefers the
// message, content, text and reply fields in that order and falls back to
// the whole body.
func ReplyText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	doc := gjson.ParseBytes(body)
	if doc.Type == gjson.String {
		return doc.Str
	}
	if !doc.IsObject() {
		return string(body)
	}
	for _, f := range replyFields {
		v := doc.Get(f)
		switch {
		case v.Type == gjson.String && v.Str != "":
			return v.Str
		case v.IsObject() || v.IsArray():
			return v.Raw
		}
	}
	return string(body)
}
