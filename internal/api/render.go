package api

import (
	"net/url"
	"strconv"

	"github.com/Iv91/kidslearning/internal/models"
	"github.com/Iv91/kidslearning/internal/player"
	"github.com/Iv91/kidslearning/internal/quiz"
)

// viewText holds the localized strings a client needs to draw a view
type viewText struct {
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

// renderedView is a snapshot together with its localized text
type renderedView struct {
	*player.Snapshot
	Lang  string       `json:"lang"`
	Links models.Links `json:"links"`
	Text  viewText     `json:"text"`
}

type actionResponse struct {
	Outcome quiz.Outcome `json:"outcome"`
	Warning string       `json:"warning,omitempty"`
	View    renderedView `json:"view"`
}

func (s *Server) render(snap *player.Snapshot, lang string) renderedView {
	t := s.translator
	text := viewText{
		Quizzes: t.Lookup(lang, "links.quizzes"),
		Home:    t.Lookup(lang, "links.home"),
	}
	if snap.QuizType != "" {
		text.Heading = t.Lookup(lang, "quiz.title."+string(snap.QuizType))
	}

	switch snap.Status {
	case player.StatusLoading:
		text.Status = t.Lookup(lang, "quiz.loading")
	case player.StatusFailed:
		text.Status = t.Lookup(lang, "quiz.failed")
		text.Retry = t.Lookup(lang, "quiz.retry")
	}

	if v := snap.Session; v != nil {
		text.Heading = t.Lookup(lang, "quiz.title."+string(v.QuizType))

		switch v.State {
		case quiz.StateIntro:
			text.Intro = t.Lines(lang, "intro."+string(v.QuizType))
			text.IntroSkip = t.Lookup(lang, "intro.skip")
			text.IntroStart = t.Lookup(lang, "intro.start")
		case quiz.StateEmpty:
			text.Status = t.Lookup(lang, "quiz.empty")
		case quiz.StateFinished:
			text.Score = t.Format(lang, "quiz.score", map[string]string{
				"score": strconv.Itoa(v.Score),
				"max":   strconv.Itoa(v.MaxScore),
			})
		case quiz.StateSubmitted:
			text.Score = t.Format(lang, "quiz.percent", map[string]string{
				"score": strconv.Itoa(v.Score),
			})
		}

		if v.Feedback != nil {
			text.Feedback = t.Format(lang, v.Feedback.Message, map[string]string{
				"answer": v.Feedback.CorrectAnswer,
			})
		}
		if v.Warning != "" {
			text.Warning = t.Lookup(lang, v.Warning)
		}
		if len(v.Buckets) > 0 {
			text.Unsorted = t.Lookup(lang, "bucket.unsorted")
		}
	}

	links := snap.Links
	links.Home = withLang(links.Home, lang)

	return renderedView{
		Snapshot: snap,
		Lang:     lang,
		Links:    links,
		Text:     text,
	}
}

// withLang carries the interface language over to the main site
func withLang(link, lang string) string {
	if link == "" || lang == "" {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	q.Set("lang", lang)
	u.RawQuery = q.Encode()
	return u.String()
}
