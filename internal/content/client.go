package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Iv91/kidslearning/internal/models"
)

// ErrInvalidQuizID is returned for ids that are not a single path segment
var ErrInvalidQuizID = errors.New("invalid quiz id")

// StatusError is returned when the content service answers with a non-2xx status.
// The body format is not assumed.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client reads quiz definitions from the content service
type Client struct {
	apiBase    string
	siteBase   string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a content client. baseURL may be given with or
// without the trailing /api segment.
func NewClient(baseURL string, opts ...Option) *Client {
	apiBase := NormalizeAPIBase(baseURL)
	c := &Client{
		apiBase:  apiBase,
		siteBase: strings.TrimSuffix(apiBase, "/api"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeAPIBase trims trailing slashes and appends /api when missing
func NormalizeAPIBase(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base
}

// APIBase returns the normalized API base URL
func (c *Client) APIBase() string {
	return c.apiBase
}

// SiteBase returns the site root that relative asset URLs resolve against
func (c *Client) SiteBase() string {
	return c.siteBase
}

// GetQuiz fetches a quiz by id
func (c *Client) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	segment, err := quizSegment(id)
	if err != nil {
		return nil, err
	}
	return c.fetchQuiz(ctx, "/quizzes/"+segment+"/")
}

// GetVisualQuiz fetches a quiz through the visual-quiz path
func (c *Client) GetVisualQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	segment, err := quizSegment(id)
	if err != nil {
		return nil, err
	}
	return c.fetchQuiz(ctx, "/quizzes/visual-quiz/"+segment+"/")
}

func quizSegment(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\?#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuizID, id)
	}
	return url.PathEscape(id), nil
}

// FetchQuiz fetches a quiz using the path its type is served under
func (c *Client) FetchQuiz(ctx context.Context, id string, quizType models.QuizType) (*models.Quiz, error) {
	if quizType == models.QuizVisual {
		return c.GetVisualQuiz(ctx, id)
	}
	return c.GetQuiz(ctx, id)
}

func (c *Client) fetchQuiz(ctx context.Context, path string) (*models.Quiz, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(resp, &quiz); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quiz: %w", err)
	}

	c.resolveQuiz(&quiz)
	return &quiz, nil
}

// ListQuizzes returns every quiz summary. Both a bare list and a paginated
// {"results": [...]} object are accepted.
func (c *Client) ListQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/quizzes/", nil)
	if err != nil {
		return nil, err
	}

	var list []models.QuizSummary
	if err := json.Unmarshal(resp, &list); err != nil {
		var page struct {
			Results []models.QuizSummary `json:"results"`
		}
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quiz list: %w", err)
		}
		list = page.Results
	}

	for i := range list {
		list[i].CoverImage = c.Resolve(list[i].CoverImage)
	}
	return list, nil
}

// Subscribe registers an email for the newsletter
func (c *Client) Subscribe(ctx context.Context, email string) error {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.doRequest(ctx, http.MethodPost, "/subscribe/", bytes.NewReader(body))
	return err
}

// Ping checks that the content service answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/quizzes/", nil)
	return err
}

// Resolve makes a possibly relative asset URL absolute against the site root.
// Absolute and protocol-relative URLs are returned unchanged.
func (c *Client) Resolve(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "//") {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return c.siteBase + raw
	}
	return c.siteBase + "/" + raw
}

func (c *Client) resolveQuiz(q *models.Quiz) {
	q.CoverImage = c.Resolve(q.CoverImage)

	for i := range q.Questions {
		q.Questions[i].QuestionImageURL = c.Resolve(q.Questions[i].QuestionImageURL)
		c.resolveOptions(q.Questions[i].Options)
	}
	for i := range q.AudioQuestions {
		q.AudioQuestions[i].Image = c.Resolve(q.AudioQuestions[i].Image)
		c.resolveOptions(q.AudioQuestions[i].Options)
	}
	for i := range q.SortingPairs {
		q.SortingPairs[i].ImageURL = c.Resolve(q.SortingPairs[i].ImageURL)
	}
	for i := range q.MatchingItems {
		q.MatchingItems[i].ImageURL = c.Resolve(q.MatchingItems[i].ImageURL)
	}
}

func (c *Client) resolveOptions(opts []models.Option) {
	for i := range opts {
		opts[i].ImageURL = c.Resolve(opts[i].ImageURL)
		opts[i].AudioFile = c.Resolve(opts[i].AudioFile)
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	endpoint := c.apiBase + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
