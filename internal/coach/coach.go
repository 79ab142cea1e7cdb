// Package coach asks an OpenAI-compatible chat completions API for a short
// coaching suggestion based on the journal goal and the latest entries.
package coach

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/checksum"
)

const (
	completionsPath  = "/openai/v1/chat/completions"
	defaultMaxTokens = 350
	temperature      = 0.6
	rawFallbackLimit = 800
	maxResponseBytes = 1 << 20
)

const systemPrompt = "You are a concise motivational coaching assistant. Given a user's stated goal and " +
	"their most recent journal entry text (timestamped lines), produce: \n" +
	"1. A brief encouragement (1 sentence).\n" +
	"2. 2-3 concrete, achievable next actions for the next 24 hours (numbered).\n" +
	"3. A single reflective question to prompt deeper thinking.\n" +
	"Keep total length under 160 words. Avoid repeating the goal verbatim more than once."

// Messages returned in place of a suggestion. They are shown to the user as-is.
const (
	PlaceholderSuggestion = "[Placeholder suggestion]\n" +
		"Set GROQ_API_KEY to get live AI coaching. Meanwhile: Focus on one small, high-impact action" +
		" you can finish today; write it down with a time block."
	MsgInvalidKey  = "Invalid GROQ API key (401)."
	MsgRateLimited = "Rate limit hit; try again soon or configure a local fallback model."
	msgUpstreamFmt = "Upstream error %d; please retry."
)

// Config configures the upstream API and the suggestion cache.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheSizeMB int
}

// Context is the input to a suggestion.
type Context struct {
	Goal          string
	RecentEntries string
	JournalName   string
	MaxTokens     int
}

// CacheKey identifies a Context for caching purposes.
func (c Context) CacheKey() string {
	return checksum.SumStrings(c.Goal, c.RecentEntries, c.JournalName, strconv.Itoa(c.MaxTokens))
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCacheObserver registers fn to be told about every cache lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(c *Client) { c.observe = fn }
}

// Client produces coaching suggestions.
type Client struct {
	cfg     Config
	http    *http.Client
	cache   *freecache.Cache
	logger  *slog.Logger
	observe func(hit bool)
}

// New creates a Client. A zero CacheTTL disables caching.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheSizeMB <= 0 {
		cfg.CacheSizeMB = 4
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:     cfg,
		logger:  slog.Default(),
		observe: func(bool) {},
	}
	if cfg.CacheTTL > 0 {
		c.cache = freecache.NewCache(cfg.CacheSizeMB * 1024 * 1024)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	return c
}

// Enabled reports whether a live API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// Suggest returns a coaching suggestion for cc. Missing credentials and
// upstream HTTP failures come back as user-facing text; only transport and
// decoding failures are returned as errors.
func (c *Client) Suggest(ctx context.Context, cc Context) (string, error) {
	if cc.MaxTokens <= 0 {
		cc.MaxTokens = defaultMaxTokens
	}
	key := []byte(cc.CacheKey())
	if c.cache != nil {
		if v, err := c.cache.Get(key); err == nil {
			c.observe(true)
			return string(v), nil
		}
		c.observe(false)
	}

	suggestion, cacheable, err := c.call(ctx, buildPrompt(cc), cc.MaxTokens)
	if err != nil {
		return "", err
	}
	if c.cache != nil && cacheable {
		if err := c.cache.Set(key, []byte(suggestion), int(c.cfg.CacheTTL.Seconds())); err != nil {
			c.logger.Warn("coach: cache set failed", slog.String("error", err.Error()))
		}
	}
	return suggestion, nil
}

func buildPrompt(cc Context) string {
	goal := strings.TrimSpace(cc.Goal)
	if goal == "" {
		goal = "(No explicit goal provided)"
	}
	entries := strings.TrimSpace(cc.RecentEntries)
	if entries == "" {
		entries = "(No recent entries)"
	}
	return fmt.Sprintf("Goal: %s\n\nRecent journal lines (latest first):\n%s\n\n"+
		"Craft the response following the required 3-section structure.", goal, entries)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// call performs the upstream request. cacheable is false for transient
// conditions (rate limiting, server errors) so they are retried next time.
func (c *Client) call(ctx context.Context, prompt string, maxTokens int) (text string, cacheable bool, err error) {
	if !c.Enabled() {
		return PlaceholderSuggestion, true, nil
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", false, fmt.Errorf("coach: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("coach: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("coach: %w: %w", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return MsgInvalidKey, true, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return MsgRateLimited, false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Sprintf(msgUpstreamFmt, resp.StatusCode), false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", false, fmt.Errorf("coach: %w: read response: %w", apperr.ErrUpstream, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("coach: %w: decode response: %w", apperr.ErrUpstream, err)
	}
	if len(parsed.Choices) == 0 {
		c.logger.Warn("coach: unexpected response shape", slog.Int("status", resp.StatusCode))
		return truncate(string(bytes.TrimSpace(body)), rawFallbackLimit), true, nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), true, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
