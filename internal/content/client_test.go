package content

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iv91/kidslearning/internal/models"
)

func TestNormalizeAPIBase(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://localhost:8000", "http://localhost:8000/api"},
		{"http://localhost:8000/", "http://localhost:8000/api"},
		{"http://localhost:8000/api", "http://localhost:8000/api"},
		{"http://localhost:8000/api///", "http://localhost:8000/api"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAPIBase(tt.raw), tt.raw)
	}

	c := NewClient("http://example.org/api/")
	assert.Equal(t, "http://example.org", c.SiteBase())
}

func TestResolve(t *testing.T) {
	c := NewClient("http://example.org")

	assert.Equal(t, "", c.Resolve(""))
	assert.Equal(t, "https://cdn.example.org/a.png", c.Resolve("https://cdn.example.org/a.png"))
	assert.Equal(t, "http://example.org/media/a.png", c.Resolve("/media/a.png"))
	assert.Equal(t, "http://example.org/media/a.png", c.Resolve("media/a.png"))
	assert.Equal(t, "http://example.org/httpfoo.png", c.Resolve("httpfoo.png"))
	assert.Equal(t, "//cdn.example.org/x.png", c.Resolve("//cdn.example.org/x.png"))
}

func TestGetQuizResolvesAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quizzes/5/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": 5, "title": "Sounds", "quiz_type": "audio", "difficulty": "easy",
			"audio_questions": [{"id": 1, "image": "/media/sun.png", "options": [
				{"id": 1, "text": "sun", "audio_file": "media/sun.mp3", "is_correct": true}
			]}]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	quiz, err := c.GetQuiz(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, int64(5), quiz.ID)
	assert.Equal(t, models.QuizAudio, quiz.Kind())
	require.Len(t, quiz.AudioQuestions, 1)
	assert.Equal(t, srv.URL+"/media/sun.png", quiz.AudioQuestions[0].Image)
	assert.Equal(t, srv.URL+"/media/sun.mp3", quiz.AudioQuestions[0].Options[0].AudioFile)
}

func TestFetchQuizVisualPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `{"id": 3, "quiz_type": "visual", "questions": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	_, err := c.FetchQuiz(context.Background(), "3", models.QuizVisual)
	require.NoError(t, err)
	_, err = c.FetchQuiz(context.Background(), "3", models.QuizMatching)
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/quizzes/visual-quiz/3/", "/api/quizzes/3/"}, paths)
}

func TestGetQuizEscapesID(t *testing.T) {
	var uris []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uris = append(uris, r.RequestURI)
		_, _ = io.WriteString(w, `{"id": 9, "quiz_type": "standard", "questions": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	_, err := c.GetQuiz(context.Background(), "big cats")
	require.NoError(t, err)
	_, err = c.GetVisualQuiz(context.Background(), "50%")
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/quizzes/big%20cats/", "/api/quizzes/visual-quiz/50%25/"}, uris)
}

func TestGetQuizRejectsPathIDs(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	for _, id := range []string{"", ".", "..", "../subscribe", "1/?evil=1", "1#frag", `a\b`} {
		_, err := c.FetchQuiz(context.Background(), id, models.QuizStandard)
		assert.ErrorIs(t, err, ErrInvalidQuizID, id)
		_, err = c.FetchQuiz(context.Background(), id, models.QuizVisual)
		assert.ErrorIs(t, err, ErrInvalidQuizID, id)
	}
	assert.Zero(t, hits)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "<html>not found</html>")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetQuiz(context.Background(), "404")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestListQuizzes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"list", `[{"id": 1, "title": "A", "quiz_type": "standard", "cover_image": "/media/a.png"}, {"id": 2, "title": "B", "quiz_type": "matching"}]`},
		{"paginated", `{"count": 2, "results": [{"id": 1, "title": "A", "quiz_type": "standard", "cover_image": "/media/a.png"}, {"id": 2, "title": "B", "quiz_type": "matching"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			list, err := NewClient(srv.URL).ListQuizzes(context.Background())
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, srv.URL+"/media/a.png", list[0].CoverImage)
			assert.Equal(t, "matching", list[1].Type)
		})
	}
}

func TestSubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/subscribe/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if string(body) == `{"email":"taken@example.org"}` {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Subscribe(context.Background(), "kid@example.org"))

	var statusErr *StatusError
	err := c.Subscribe(context.Background(), "taken@example.org")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}
