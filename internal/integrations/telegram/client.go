// Package telegram is a focused Telegram Bot API client: long polling,
// text messages with reply keyboards and document downloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"book-reader-bot/internal/domain"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	// MaxMessageLength is the Bot API limit for one text message.
	MaxMessageLength = 4096
	maxDownloadSize  = 20 << 20
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Method     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("telegram: unexpected status %d from %s: %s", e.StatusCode, e.Method, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the Bot API with a single bot token.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	pollTimeout time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPollTimeout sets the long-polling timeout passed to getUpdates.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.pollTimeout = d
	}
}

// WithRetryDelay sets the pause after a failed getUpdates call.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for token.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram: token must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		token:       token,
		pollTimeout: 30 * time.Second,
		retryDelay:  3 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// Leave room for the long-poll timeout on top of the request itself.
		c.httpClient = &http.Client{Timeout: c.pollTimeout + 10*time.Second}
	}
	return c, nil
}

func (c *Client) methodURL(method string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/bot" + c.token + "/" + method
}

func (c *Client) fileURL(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/file/bot" + c.token + "/" + strings.TrimLeft(path, "/")
}

// Send delivers msg to the reader's chat.
func (c *Client) Send(ctx context.Context, reader domain.ReaderID, msg domain.OutboundMessage) error {
	text := msg.Text
	if text == "" {
		return errors.New("telegram: message text must not be empty")
	}
	req := sendMessageRequest{
		ChatID:      int64(reader),
		Text:        text,
		ReplyMarkup: replyMarkupFor(msg),
	}
	if err := c.call(ctx, "sendMessage", req, nil); err != nil {
		return err
	}
	return nil
}

// Download fetches the content of an uploaded file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, errors.New("telegram: file id must not be empty")
	}
	var f file
	if err := c.call(ctx, "getFile", getFileRequest{FileID: fileID}, &f); err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, errors.New("telegram: getFile returned no file path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(f.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: create download request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download: %w", stripURL(err))
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, Method: "download", Body: string(buf)}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("telegram: read download: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("telegram: file exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

// Updates fetches the next batch of updates starting at offset.
func (c *Client) Updates(ctx context.Context, offset int64) ([]Update, error) {
	var out []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Poll long-polls for updates and hands every message event to handle, one
// at a time, until ctx is cancelled. Failed polls are logged and retried
// after the retry delay.
func (c *Client) Poll(ctx context.Context, handle func(context.Context, domain.Event)) error {
	var offset int64
	for {
		updates, err := c.Updates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("telegram poll failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			ev, ok := u.Event()
			if !ok {
				continue
			}
			handle(ctx, ev)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Client) call(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, stripURL(err))
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if len(buf) > 4096 {
			buf = buf[:4096]
		}
		return &HTTPStatusError{StatusCode: res.StatusCode, Method: method, Body: string(buf)}
	}

	var env apiResponse
	if err := json.Unmarshal(buf, &env); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("telegram: %s failed: %s", method, env.Description)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram: decode %s result: %w", method, err)
	}
	return nil
}

func replyMarkupFor(msg domain.OutboundMessage) *replyMarkup {
	if msg.RemoveKeyboard {
		return &replyMarkup{RemoveKeyboard: true}
	}
	if len(msg.Keyboard) == 0 {
		return nil
	}
	rows := make([][]keyboardButton, 0, len(msg.Keyboard))
	for _, row := range msg.Keyboard {
		buttons := make([]keyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, keyboardButton{Text: label})
		}
		rows = append(rows, buttons)
	}
	return &replyMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// stripURL drops the request URL from transport errors; it embeds the token.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
