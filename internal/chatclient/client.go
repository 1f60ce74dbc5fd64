package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/answertext"
	"portfolio-agent/internal/platform/logger"
)

const (
	FallbackReply = "Sorry, something went wrong."

	defaultAgentPath = "/api/agent"
	defaultAuditPath = "/api/audit-feed"
	defaultPagePath  = "/agent"
	auditTimeout     = 10 * time.Second
)

type Options struct {
	// BaseURL is the server origin, for example http://localhost:8080.
	BaseURL   string
	AgentPath string
	AuditPath string
	// PagePath is recorded as the audit entry path.
	PagePath   string
	UserAgent  string
	Greeting   string
	HTTPClient *http.Client
	Logger     *logger.Logger
}

type Client struct {
	agentURL   string
	auditURL   string
	pagePath   string
	userAgent  string
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time

	conv    *Conversation
	pending sync.WaitGroup
	prefill sync.Once
}

func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if opts.AgentPath == "" {
		opts.AgentPath = defaultAgentPath
	}
	if opts.AuditPath == "" {
		opts.AuditPath = defaultAuditPath
	}
	if opts.PagePath == "" {
		opts.PagePath = defaultPagePath
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Client{
		agentURL:   base + opts.AgentPath,
		auditURL:   base + opts.AuditPath,
		pagePath:   opts.PagePath,
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
		now:        time.Now,
		conv:       NewConversation(opts.Greeting),
	}
}

func (c *Client) Conversation() *Conversation {
	return c.conv
}

// Send posts text as the next user turn and returns the assistant reply. A
// blank text is ignored and returns false. Any failure talking to the agent
// yields FallbackReply. The audit write runs in the background; see Wait.
func (c *Client) Send(ctx context.Context, text string) (string, bool) {
	content := strings.TrimSpace(text)
	if content == "" {
		return "", false
	}

	history := c.conv.AddUser(content)
	reply, err := c.askAgent(ctx, history)
	confident := false
	if err != nil {
		c.log.Debug("agent request failed", "error", err)
		reply = FallbackReply
	} else {
		confident = answertext.IsConfident(reply)
	}
	c.conv.AddAssistant(reply)

	c.recordAsync(model.AuditEntry{
		Timestamp: model.FormatTimestamp(c.now()),
		Path:      c.pagePath,
		Question:  content,
		Answer:    reply,
		Confident: confident,
		UserAgent: c.userAgent,
	})
	return reply, true
}

// PrefillOnce sends q the first time it is called with a non-blank question.
// Later calls do nothing.
func (c *Client) PrefillOnce(ctx context.Context, q string) (string, bool) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", false
	}
	var (
		reply string
		sent  bool
	)
	c.prefill.Do(func() {
		reply, sent = c.Send(ctx, q)
	})
	return reply, sent
}

// PrefillFromURL reads the q query parameter of rawURL and hands it to PrefillOnce.
func (c *Client) PrefillFromURL(ctx context.Context, rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	return c.PrefillOnce(ctx, u.Query().Get("q"))
}

// Wait blocks until every background audit write has finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

// Suggest picks a follow-up question from pool that has not been asked yet.
func (c *Client) Suggest(pool []string, current string) (string, bool) {
	return answertext.PickSuggestion(pool, c.conv.Asked(), current)
}

// Display renders a reply as HTML without the footer and citations.
func Display(reply string) string {
	return answertext.DisplayHTML(reply)
}

// PlainText renders a reply for a terminal.
func PlainText(reply string) string {
	return answertext.LinksToText(answertext.Clean(reply))
}

func (c *Client) askAgent(ctx context.Context, history []model.ChatMessage) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"messages": history})
	if err != nil {
		return "", fmt.Errorf("marshal agent request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.agentURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read agent response: %w", err)
	}
	// Only a string "reply" counts; error bodies and odd shapes fall back.
	var parsed struct {
		Reply json.RawMessage `json:"reply"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode agent response (%d): %w", resp.StatusCode, err)
	}
	var reply string
	if len(parsed.Reply) == 0 || json.Unmarshal(parsed.Reply, &reply) != nil {
		return "", fmt.Errorf("agent response (%d) has no reply: %s", resp.StatusCode, parsed.Error)
	}
	return reply, nil
}

func (c *Client) recordAsync(entry model.AuditEntry) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := c.postAudit(ctx, entry); err != nil {
			c.log.Debug("audit write failed", "error", err)
		}
	}()
}

func (c *Client) postAudit(ctx context.Context, entry model.AuditEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.auditURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("audit feed returned %d", resp.StatusCode)
	}
	return nil
}
