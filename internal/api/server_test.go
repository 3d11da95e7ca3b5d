package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iv91/kidslearning/internal/cache"
	"github.com/Iv91/kidslearning/internal/catalog"
	"github.com/Iv91/kidslearning/internal/config"
	"github.com/Iv91/kidslearning/internal/cue"
	"github.com/Iv91/kidslearning/internal/events"
	"github.com/Iv91/kidslearning/internal/flags"
	"github.com/Iv91/kidslearning/internal/i18n"
	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/services"
	"github.com/Iv91/kidslearning/internal/storage"
	"github.com/Iv91/kidslearning/internal/subscribe"
)

type stubFetcher map[string]*models.Quiz

func (f stubFetcher) FetchQuiz(_ context.Context, id string, _ models.QuizType) (*models.Quiz, error) {
	q, ok := f[id]
	if !ok {
		return nil, errors.New("HTTP 404: not found")
	}
	cp := *q
	return &cp, nil
}

type stubLister []models.QuizSummary

func (l stubLister) ListQuizzes(context.Context) ([]models.QuizSummary, error) {
	return l, nil
}

type stubUpstream struct{ err error }

func (u stubUpstream) Subscribe(context.Context, string) error { return u.err }

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testView struct {
	ViewID   string `json:"view_id"`
	Status   string `json:"status"`
	QuizID   string `json:"quiz_id"`
	QuizType string `json:"quiz_type"`
	Error    string `json:"error"`
	Lang     string `json:"lang"`
	Session  *struct {
		State    string `json:"state"`
		Index    int    `json:"index"`
		Count    int    `json:"count"`
		Score    int    `json:"score"`
		Feedback *struct {
			Result string `json:"result"`
		} `json:"feedback"`
	} `json:"session"`
	Links models.Links `json:"links"`
	Text  viewText     `json:"text"`
}

type testEnv struct {
	server  *httptest.Server
	repo    *storage.MemoryRepository
	pinger  *stubPinger
	bus     *cue.Bus
	manager *player.Manager
}

func twoQuestionQuiz() *models.Quiz {
	return &models.Quiz{
		ID:    1,
		Title: "Farm animals",
		Type:  "multiple_choice",
		Questions: []models.Question{
			{ID: 1, Text: "Which one says moo?", Options: []models.Option{
				{ID: 11, Text: "Cow", IsCorrect: true},
				{ID: 12, Text: "Cat"},
			}},
			{ID: 2, Text: "Which one lays eggs?", Options: []models.Option{
				{ID: 21, Text: "Dog"},
				{ID: 22, Text: "Hen", IsCorrect: true},
			}},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tr, err := i18n.New("en")
	require.NoError(t, err)

	repo := storage.NewMemoryRepository()
	bus := cue.NewBus()
	manager := player.NewManager(player.Options{
		Fetcher: stubFetcher{"1": twoQuestionQuiz()},
		Flags:   flags.NewMemoryStore(),
		Repo:    repo,
		Events:  events.NewLogPublisher(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Cues:    bus,
		HomeURL: "https://kidslearning.example.org/",
		NewRand: func() *rand.Rand { return rand.New(rand.NewSource(1)) },
	})

	pinger := &stubPinger{}
	registry := services.NewRegistry()
	registry.Register("content", services.NewPingProvider("content", pinger))

	cat := catalog.NewService(stubLister{
		{ID: 1, Title: "Farm animals", Type: "standard"},
		{ID: 2, Title: "Sort the fruit", Type: "drag_drop"},
	}, cache.NewMemoryCache(), time.Minute, 8)

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, Deps{
		Views:      manager,
		Catalog:    cat,
		Subscribe:  subscribe.NewService(stubUpstream{}),
		Translator: tr,
		Cues:       bus,
		Attempts:   repo,
		Registry:   registry,
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	return &testEnv{server: ts, repo: repo, pinger: pinger, bus: bus, manager: manager}
}

func (e *testEnv) call(t *testing.T, method, path, learner string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if learner != "" {
		req.Header.Set(LearnerHeader, learner)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) openView(t *testing.T, learner string) testView {
	t.Helper()
	resp, env := e.call(t, http.MethodPost, "/api/v1/views", learner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var v testView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func decodeView(t *testing.T, raw json.RawMessage) testView {
	t.Helper()
	var v testView
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func decodeAction(t *testing.T, raw json.RawMessage) (outcome map[string]interface{}, warning string, v testView) {
	t.Helper()
	var resp struct {
		Outcome map[string]interface{} `json:"outcome"`
		Warning string                 `json:"warning"`
		View    json.RawMessage        `json:"view"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp.Outcome, resp.Warning, decodeView(t, resp.View)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestReady(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	e.pinger.err = errors.New("connection refused")
	resp, env = e.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_ready", env.Error.Code)
}

func TestIdentifyIssuesLearnerCookie(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.call(t, http.MethodPost, "/api/v1/views", "", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var issued *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == LearnerCookie {
			issued = c
		}
	}
	require.NotNil(t, issued)
	assert.NotEmpty(t, issued.Value)
	assert.True(t, issued.HttpOnly)

	resp, _ = e.call(t, http.MethodPost, "/api/v1/views", "kid-1", nil)
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, LearnerCookie, c.Name)
	}
}

func TestPlayQuizOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	v := e.openView(t, "kid-1")
	assert.Equal(t, "idle", v.Status)
	base := "/api/v1/views/" + v.ViewID

	resp, env := e.call(t, http.MethodPost, base+"/load?wait=true", "kid-1", loadRequest{QuizID: "1", QuizType: "standard"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decodeView(t, env.Data)
	assert.Equal(t, "ready", v.Status)
	require.NotNil(t, v.Session)
	assert.Equal(t, "intro", v.Session.State)
	assert.Equal(t, "Multiple Choice Quiz", v.Text.Heading)
	assert.NotEmpty(t, v.Text.Intro)
	assert.Equal(t, "Start Quiz!", v.Text.IntroStart)

	resp, env = e.call(t, http.MethodPost, base+"/start", "kid-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// submit without a selection only warns
	resp, env = e.call(t, http.MethodPost, base+"/submit", "kid-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcome, warning, v := decodeAction(t, env.Data)
	assert.Equal(t, false, outcome["applied"])
	assert.Equal(t, "Please select an answer before submitting!", warning)
	assert.Equal(t, "presenting", v.Session.State)

	e.call(t, http.MethodPost, base+"/select", "kid-1", selectRequest{Key: "12"})
	_, env = e.call(t, http.MethodPost, base+"/submit", "kid-1", nil)
	_, _, v = decodeAction(t, env.Data)
	assert.Equal(t, "feedback", v.Session.State)
	assert.Equal(t, "Wrong! Correct answer: Cow", v.Text.Feedback)

	e.call(t, http.MethodPost, base+"/next", "kid-1", nil)
	e.call(t, http.MethodPost, base+"/select", "kid-1", selectRequest{Key: "22"})
	_, env = e.call(t, http.MethodPost, base+"/submit", "kid-1", nil)
	_, _, v = decodeAction(t, env.Data)
	assert.Equal(t, "Correct!", v.Text.Feedback)

	_, env = e.call(t, http.MethodPost, base+"/next", "kid-1", nil)
	_, _, v = decodeAction(t, env.Data)
	assert.Equal(t, "finished", v.Session.State)
	assert.Equal(t, "Your score: 1 / 2", v.Text.Score)

	require.Eventually(t, func() bool {
		_, env := e.call(t, http.MethodGet, "/api/v1/attempts", "kid-1", nil)
		var body struct {
			Total int `json:"total"`
		}
		_ = json.Unmarshal(env.Data, &body)
		return body.Total == 1
	}, 2*time.Second, 20*time.Millisecond)

	_, env = e.call(t, http.MethodGet, "/api/v1/attempts", "kid-2", nil)
	assert.Contains(t, string(env.Data), `"total":0`)
}

func TestViewBelongsToLearner(t *testing.T) {
	e := newTestEnv(t)
	v := e.openView(t, "kid-1")

	resp, env := e.call(t, http.MethodGet, "/api/v1/views/"+v.ViewID, "kid-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", env.Error.Code)

	resp, _ = e.call(t, http.MethodDelete, "/api/v1/views/"+v.ViewID, "kid-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.call(t, http.MethodGet, "/api/v1/views/"+v.ViewID, "kid-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoadValidation(t *testing.T) {
	e := newTestEnv(t)
	v := e.openView(t, "kid-1")
	base := "/api/v1/views/" + v.ViewID

	resp, env := e.call(t, http.MethodPost, base+"/load", "kid-1", loadRequest{QuizType: "standard"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.Error.Code)

	resp, _ = e.call(t, http.MethodPost, base+"/load", "kid-1", loadRequest{QuizID: "1", QuizType: "karaoke"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, id := range []string{"../subscribe", "1/?evil=1", "1#top"} {
		resp, env = e.call(t, http.MethodPost, base+"/load", "kid-1", loadRequest{QuizID: id, QuizType: "standard"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		assert.Equal(t, "validation_error", env.Error.Code, id)
	}
	resp, env = e.call(t, http.MethodGet, base, "kid-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "idle", decodeView(t, env.Data).Status)

	resp, env = e.call(t, http.MethodPost, base+"/submit", "kid-1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", env.Error.Code)

	resp, _ = e.call(t, http.MethodPost, base+"/retry", "kid-1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFailedLoadOffersRetry(t *testing.T) {
	e := newTestEnv(t)
	v := e.openView(t, "kid-1")

	resp, env := e.call(t, http.MethodPost, "/api/v1/views/"+v.ViewID+"/load?wait=true", "kid-1",
		loadRequest{QuizID: "404", QuizType: "visual"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v = decodeView(t, env.Data)
	assert.Equal(t, "failed", v.Status)
	assert.Equal(t, "Failed to load quiz.", v.Text.Status)
	assert.Equal(t, "Try again", v.Text.Retry)

	resp, env = e.call(t, http.MethodPost, "/api/v1/views/"+v.ViewID+"/retry?wait=true", "kid-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", decodeView(t, env.Data).Status)
}

func TestLanguageSelection(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.call(t, http.MethodPost, "/api/v1/views?lang=sr", "kid-1", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "sr", resp.Header.Get("Content-Language"))

	v := decodeView(t, env.Data)
	assert.Equal(t, "sr", v.Lang)
	assert.Equal(t, "Nazad na glavni sajt", v.Text.Home)
	assert.Equal(t, "https://kidslearning.example.org/?lang=sr", v.Links.Home)
	assert.Equal(t, "/", v.Links.Quizzes)

	var stored bool
	for _, c := range resp.Cookies() {
		if c.Name == LangCookie {
			stored = c.Value == "sr"
		}
	}
	assert.True(t, stored)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/v1/i18n/de", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "de-AT,de;q=0.9")
	resp, err = e.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "de", resp.Header.Get("Content-Language"))

	resp, _ = e.call(t, http.MethodGet, "/api/v1/i18n/xx", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntroPreference(t *testing.T) {
	e := newTestEnv(t)

	skip := true
	resp, env := e.call(t, http.MethodPut, "/api/v1/intro/standard", "kid-1", introRequest{Skip: &skip})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, env = e.call(t, http.MethodGet, "/api/v1/intro/multiple_choice", "kid-1", nil)
	var intro introResponse
	require.NoError(t, json.Unmarshal(env.Data, &intro))
	assert.True(t, intro.Skip)
	assert.Equal(t, models.QuizStandard, intro.QuizType)
	assert.NotEmpty(t, intro.Lines)

	v := e.openView(t, "kid-1")
	_, env = e.call(t, http.MethodPost, "/api/v1/views/"+v.ViewID+"/load?wait=true", "kid-1", loadRequest{QuizID: "1", QuizType: "standard"})
	assert.Equal(t, "presenting", decodeView(t, env.Data).Session.State)

	resp, _ = e.call(t, http.MethodPut, "/api/v1/intro/standard", "kid-1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.call(t, http.MethodGet, "/api/v1/intro/karaoke", "kid-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.call(t, http.MethodGet, "/api/v1/catalog?type=drag_drop", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page models.CatalogPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "/drag-quiz/2", page.Entries[0].Path)
	assert.Equal(t, []string{"All", "standard", "drag_drop"}, page.Types)

	_, env = e.call(t, http.MethodGet, "/api/v1/routes", "", nil)
	assert.Contains(t, string(env.Data), "/matching-quiz/{id}")
}

func TestSubscribeEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.call(t, http.MethodPost, "/api/v1/subscribe", "", subscribe.Request{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_email", env.Error.Code)

	resp, env = e.call(t, http.MethodPost, "/api/v1/subscribe", "", subscribe.Request{Email: "parent@example.org"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body subscribeResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, subscribe.StatusOK, body.Status)
	assert.Equal(t, "Thank you for subscribing!", body.Message)
}

func TestCueStream(t *testing.T) {
	e := newTestEnv(t)
	v := e.openView(t, "kid-1")
	base := "/api/v1/views/" + v.ViewID

	e.call(t, http.MethodPost, base+"/load?wait=true", "kid-1", loadRequest{QuizID: "1", QuizType: "standard"})

	header := http.Header{}
	header.Set(LearnerHeader, "kid-1")
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + base + "/cues"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	read := func() CueMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg CueMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, "connected", read().Type)

	e.call(t, http.MethodPost, base+"/start", "kid-1", nil)
	e.call(t, http.MethodPost, base+"/select", "kid-1", selectRequest{Key: "11"})
	msg := read()
	assert.Equal(t, "cue", msg.Type)
	assert.Equal(t, "click", msg.Name)

	e.call(t, http.MethodPost, base+"/submit", "kid-1", nil)
	assert.Equal(t, "correct", read().Name)

	_, _, err = websocket.DefaultDialer.Dial(wsURL, http.Header{LearnerHeader: []string{"kid-2"}})
	assert.Error(t, err)
}
