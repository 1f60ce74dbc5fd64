// Package github is a small client for the repository contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.github.com"

var (
	ErrNotFound = errors.New("github: file not found")
	// ErrConflict means the sha sent with a write no longer matches the branch head.
	ErrConflict = errors.New("github: file changed since it was read")
)

type Client struct {
	apiURL     string
	token      string
	repo       string
	branch     string
	httpClient *http.Client
}

// File is the decoded content of a repository file plus the blob sha needed
// to overwrite it.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

func NewClient(apiURL, token, repo, branch string) *Client {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultAPIURL
	}
	if strings.TrimSpace(branch) == "" {
		branch = "main"
	}
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		repo:       strings.Trim(repo, "/"),
		branch:     branch,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the underlying transport.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

func (c *Client) Repo() string   { return c.repo }
func (c *Client) Branch() string { return c.branch }

// GetFile reads path on the configured branch. A missing file returns ErrNotFound.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	endpoint := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: create get request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github: get %s failed (%d): %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		SHA      string `json:"sha"`
		Size     int64  `json:"size"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("github: decode get response: %w", err)
	}

	file := &File{Path: path, SHA: payload.SHA}
	switch {
	case payload.Encoding == "base64" && payload.Content != "":
		// The API wraps base64 at 60 columns.
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("github: decode content of %s: %w", path, err)
		}
		file.Content = decoded
	case payload.Size > 0:
		// Files over 1 MB come back without inline content.
		raw, err := c.getRaw(ctx, path)
		if err != nil {
			return nil, err
		}
		file.Content = raw
	}
	return file, nil
}

// PutFile creates or replaces path. sha must be empty for a new file and the
// sha from GetFile otherwise; a stale sha returns ErrConflict.
func (c *Client) PutFile(ctx context.Context, path, message string, content []byte, sha string) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("github: marshal put body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("github: create put request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: put %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrConflict
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github: put %s failed (%d): %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: create raw request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/vnd.github.raw")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: get raw %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github: get raw %s failed (%d)", path, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: read raw %s: %w", path, err)
	}
	return raw, nil
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.apiURL, c.repo, strings.Join(segments, "/"))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "portfolio-agent")
}
