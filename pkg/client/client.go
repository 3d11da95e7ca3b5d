package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/quiz"
)

// Client is a Go SDK for the quiz player API
type Client struct {
	baseURL    string
	learnerID  string
	lang       string
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

// WithLanguage asks the player for localized text in lang
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.lang = lang
	}
}

// NewClient creates a player client acting for one learner
func NewClient(baseURL, learnerID string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		learnerID: learnerID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the player
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// ViewText is the localized text of a view
type ViewText struct {
	Heading    string   `json:"heading,omitempty"`
	Status     string   `json:"status,omitempty"`
	Retry      string   `json:"retry,omitempty"`
	Intro      []string `json:"intro,omitempty"`
	IntroSkip  string   `json:"intro_skip,omitempty"`
	IntroStart string   `json:"intro_start,omitempty"`
	Feedback   string   `json:"feedback,omitempty"`
	Warning    string   `json:"warning,omitempty"`
	Score      string   `json:"score,omitempty"`
	Unsorted   string   `json:"unsorted,omitempty"`
	Quizzes    string   `json:"quizzes"`
	Home       string   `json:"home"`
}

// View represents a view response
type View struct {
	ViewID   string          `json:"view_id"`
	Status   string          `json:"status"`
	QuizID   string          `json:"quiz_id,omitempty"`
	QuizType models.QuizType `json:"quiz_type,omitempty"`
	Error    string          `json:"error,omitempty"`
	Lang     string          `json:"lang"`
	Session  *quiz.View      `json:"session,omitempty"`
	Links    models.Links    `json:"links"`
	Text     ViewText        `json:"text"`
}

// ActionResult is the response to a learner action
type ActionResult struct {
	Outcome quiz.Outcome `json:"outcome"`
	Warning string       `json:"warning,omitempty"`
	View    View         `json:"view"`
}

// Intro is a learner's intro preference for one quiz type
type Intro struct {
	QuizType models.QuizType `json:"quiz_type"`
	Skip     bool            `json:"skip"`
	Lines    []string        `json:"lines"`
}

// SubscribeResult is the outcome of a newsletter subscription
type SubscribeResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CatalogOptions contains options for browsing the catalog
type CatalogOptions struct {
	Type     string
	Search   string
	Page     int
	PageSize int
}

// AttemptOptions contains options for listing attempts
type AttemptOptions struct {
	QuizID   string
	QuizType models.QuizType
	Limit    int
	Offset   int
}

// OpenView creates a new view
func (c *Client) OpenView(ctx context.Context) (*View, error) {
	var v View
	if err := c.call(ctx, http.MethodPost, "/api/v1/views", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetView retrieves the current rendering of a view
func (c *Client) GetView(ctx context.Context, viewID string) (*View, error) {
	var v View
	if err := c.call(ctx, http.MethodGet, "/api/v1/views/"+viewID, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CloseView discards a view
func (c *Client) CloseView(ctx context.Context, viewID string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/views/"+viewID, nil, nil)
}

// LoadQuiz loads a quiz into a view. With wait the call returns once the fetch has settled.
func (c *Client) LoadQuiz(ctx context.Context, viewID, quizID string, quizType models.QuizType, wait bool) (*View, error) {
	path := fmt.Sprintf("/api/v1/views/%s/load", viewID)
	if wait {
		path += "?wait=true"
	}

	req := map[string]string{"quiz_id": quizID, "quiz_type": string(quizType)}
	var v View
	if err := c.call(ctx, http.MethodPost, path, req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Retry repeats a failed load and waits for it to settle
func (c *Client) Retry(ctx context.Context, viewID string) (*View, error) {
	var v View
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/views/%s/retry?wait=true", viewID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Start dismisses the intro
func (c *Client) Start(ctx context.Context, viewID string) (*ActionResult, error) {
	return c.action(ctx, viewID, "start", nil)
}

// Select chooses an option or letter
func (c *Client) Select(ctx context.Context, viewID, key string) (*ActionResult, error) {
	return c.action(ctx, viewID, "select", map[string]string{"key": key})
}

// Submit grades the current question or the drag-drop board
func (c *Client) Submit(ctx context.Context, viewID string) (*ActionResult, error) {
	return c.action(ctx, viewID, "submit", nil)
}

// Next advances past the feedback
func (c *Client) Next(ctx context.Context, viewID string) (*ActionResult, error) {
	return c.action(ctx, viewID, "next", nil)
}

// Move places a drag-drop item in a bucket
func (c *Client) Move(ctx context.Context, viewID, itemID, bucket string) (*ActionResult, error) {
	return c.action(ctx, viewID, "move", map[string]string{"item_id": itemID, "bucket": bucket})
}

func (c *Client) action(ctx context.Context, viewID, name string, body interface{}) (*ActionResult, error) {
	var result ActionResult
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/views/%s/%s", viewID, name), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Catalog retrieves one page of the quiz catalog
func (c *Client) Catalog(ctx context.Context, opts CatalogOptions) (*models.CatalogPage, error) {
	params := url.Values{}
	if opts.Type != "" {
		params.Set("type", opts.Type)
	}
	if opts.Search != "" {
		params.Set("q", opts.Search)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	path := "/api/v1/catalog"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page models.CatalogPage
	if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Routes lists the play page pattern of each quiz type
func (c *Client) Routes(ctx context.Context) ([]models.Route, error) {
	var result struct {
		Routes []models.Route `json:"routes"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/routes", nil, &result); err != nil {
		return nil, err
	}
	return result.Routes, nil
}

// SkipIntro reads the learner's intro preference
func (c *Client) SkipIntro(ctx context.Context, quizType models.QuizType) (*Intro, error) {
	var intro Intro
	if err := c.call(ctx, http.MethodGet, "/api/v1/intro/"+string(quizType), nil, &intro); err != nil {
		return nil, err
	}
	return &intro, nil
}

// SetSkipIntro stores or clears the learner's intro preference
func (c *Client) SetSkipIntro(ctx context.Context, quizType models.QuizType, skip bool) (*Intro, error) {
	var intro Intro
	if err := c.call(ctx, http.MethodPut, "/api/v1/intro/"+string(quizType), map[string]bool{"skip": skip}, &intro); err != nil {
		return nil, err
	}
	return &intro, nil
}

// Attempts lists the learner's finished attempts
func (c *Client) Attempts(ctx context.Context, opts AttemptOptions) ([]*models.Attempt, error) {
	params := url.Values{}
	if opts.QuizID != "" {
		params.Set("quiz_id", opts.QuizID)
	}
	if opts.QuizType != "" {
		params.Set("quiz_type", string(opts.QuizType))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/attempts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var result struct {
		Attempts []*models.Attempt `json:"attempts"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Attempts, nil
}

// Subscribe registers an email address for the newsletter
func (c *Client) Subscribe(ctx context.Context, email string) (*SubscribeResult, error) {
	var result SubscribeResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/subscribe", map[string]string{"email": email}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Strings returns the string table of a language
func (c *Client) Strings(ctx context.Context, lang string) (map[string]string, error) {
	var result struct {
		Strings map[string]string `json:"strings"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/i18n/"+lang, nil, &result); err != nil {
		return nil, err
	}
	return result.Strings, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return &APIError{StatusCode: status, Code: "http_error", Message: string(resp)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: status}
		if result.Error != nil {
			apiErr.Code, apiErr.Message = result.Error.Code, result.Error.Message
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.learnerID != "" {
		req.Header.Set("X-Learner-ID", c.learnerID)
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
