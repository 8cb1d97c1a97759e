package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"postgen/logger"
)

var (
	// ErrImageEndpoint is a non-200 reply from the image endpoint.
	ErrImageEndpoint = errors.New("image endpoint error")
	// ErrImageParse is a reply whose body is not JSON.
	ErrImageParse = errors.New("image response is not JSON")
	// ErrUnexpectedSchema is JSON that matches no known envelope.
	ErrUnexpectedSchema = errors.New("unexpected image response schema")
)

const snippetLimit = 500

// Config holds the image endpoint settings.
type Config struct {
	URL      string
	APIKey   string
	Model    string
	Size     string
	Referer  string
	Title    string
	DebugDir string
	Timeout  time.Duration
}

// Client calls an image generation endpoint and decodes its response.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

// NewClient builds a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	return &Client{cfg: cfg, httpClient: httpClient, log: logger.OrNop(log), now: time.Now}
}

// Generate requests one image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (Result, error) {
	body, err := json.Marshal(imageRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Size:   c.cfg.Size,
		N:      1,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("image request: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := c.debugResponse(resp, raw, "image_error")
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrImageEndpoint, resp.StatusCode, snippet)
	}
	if !json.Valid(raw) {
		snippet := c.debugResponse(resp, raw, "image_nonjson")
		return Result{}, fmt.Errorf("%w: %s", ErrImageParse, snippet)
	}

	res := Decode(raw)
	if res.Kind == KindUnrecognized {
		snippet := c.debugResponse(resp, raw, "image_json")
		return Result{}, fmt.Errorf("%w: %s", ErrUnexpectedSchema, snippet)
	}
	return res, nil
}

// debugResponse logs a bounded snippet of the body and, when a debug dir is
// configured, dumps the full response there.
func (c *Client) debugResponse(resp *http.Response, body []byte, prefix string) string {
	snippet := Snippet(body)
	c.log.Warn("image endpoint responded", "status", resp.StatusCode, "snippet", snippet)

	if c.cfg.DebugDir == "" {
		return snippet
	}
	if err := os.MkdirAll(c.cfg.DebugDir, 0o755); err != nil {
		c.log.Warn("debug dir unavailable", "dir", c.cfg.DebugDir, "error", err)
		return snippet
	}
	name := filepath.Join(c.cfg.DebugDir, fmt.Sprintf("debug_%s_%d_%s.txt", prefix, c.now().Unix(), uuid.NewString()[:8]))
	var sb strings.Builder
	fmt.Fprintf(&sb, "STATUS: %d\n\nHEADERS:\n", resp.StatusCode)
	for k, v := range resp.Header {
		fmt.Fprintf(&sb, "%s: %s\n", k, strings.Join(v, ", "))
	}
	sb.WriteString("\nBODY:\n")
	sb.Write(body)
	if err := os.WriteFile(name, []byte(sb.String()), 0o644); err != nil {
		c.log.Warn("write debug file failed", "path", name, "error", err)
		return snippet
	}
	c.log.Warn("saved raw response for debugging", "path", name)
	return snippet
}

// Snippet returns at most the first 500 characters of body.
func Snippet(body []byte) string {
	s := string(body)
	runes := []rune(s)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit])
	}
	return s
}
