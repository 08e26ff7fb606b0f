package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"book-reader-bot/internal/domain"
)

const defaultBaseURL = "https://api.dictionaryapi.dev/api/v2"

// entry is the minimal response shape of the entries endpoint.
type entry struct {
	Word     string    `json:"word"`
	Meanings []meaning `json:"meanings"`
}

type meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []definition `json:"definitions"`
	Synonyms     []string     `json:"synonyms"`
}

type definition struct {
	Definition string   `json:"definition"`
	Synonyms   []string `json:"synonyms"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("dictionary: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client looks words up in a dictionaryapi.dev compatible service.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
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

func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(lang)
	}
}

// NewClient creates a dictionary client for English entries by default.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		language:   "en",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func entriesURL(baseURL, lang, word string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if lang == "" {
		lang = "en"
	}
	return base + "/entries/" + url.PathEscape(lang) + "/" + url.PathEscape(word)
}

// Senses returns the senses of word, most common first. Each sense lists the
// headword followed by its synonyms. An unknown word yields no senses and no
// error.
func (c *Client) Senses(ctx context.Context, word string) ([]domain.Sense, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.New("dictionary: word must not be empty")
	}

	u := entriesURL(c.baseURL, c.language, word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dictionary: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("dictionary: request failed: %w", err)
	}

	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("dictionary: decode response: %w", err)
	}
	return toSenses(entries), nil
}

func toSenses(entries []entry) []domain.Sense {
	var senses []domain.Sense
	for _, e := range entries {
		for _, m := range e.Meanings {
			for i, d := range m.Definitions {
				text := strings.TrimSpace(d.Definition)
				if text == "" {
					continue
				}
				lemmas := []string{e.Word}
				lemmas = append(lemmas, d.Synonyms...)
				// Meaning-level synonyms belong to its primary definition.
				if i == 0 {
					lemmas = append(lemmas, m.Synonyms...)
				}
				senses = append(senses, domain.Sense{Definition: text, Lemmas: lemmas})
			}
		}
	}
	return senses
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
