package quiz

import (
	"math/rand"
	"strconv"

	"github.com/samber/lo"

	"github.com/Iv91/kidslearning/internal/models"
)

// Result is the grading outcome of a single submission
type Result string

const (
	ResultCorrect      Result = "correct"
	ResultIncorrect    Result = "incorrect"
	ResultUnconfigured Result = "unconfigured"
)

// Verdict is what a variant reports when grading a selection
type Verdict struct {
	Result        Result
	CorrectAnswer string
}

// QuestionView is the render payload of one question. Correctness is never exposed.
type QuestionView struct {
	ID         int64        `json:"id"`
	Prompt     string       `json:"prompt,omitempty"`
	ImageURL   string       `json:"image_url,omitempty"`
	MaskedWord string       `json:"masked_word,omitempty"`
	Options    []OptionView `json:"options"`
}

// OptionView is a selectable answer; Key is what the learner submits
type OptionView struct {
	Key      string `json:"key"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// variant is the per-quiz-type comparison policy and payload shape
type variant interface {
	Len() int
	Question(i int) QuestionView
	// Select validates key for question i and returns the cue selecting it plays.
	Select(i int, key string) (*Cue, error)
	Check(i int, key string) Verdict
}

type choiceQuestion struct {
	id       int64
	prompt   string
	imageURL string
	options  []models.Option
}

// choiceVariant serves standard, visual and audio quizzes: one option per
// question is flagged correct and answers are compared by option id.
type choiceVariant struct {
	kind      models.QuizType
	questions []choiceQuestion
}

func newChoiceVariant(q *models.Quiz, kind models.QuizType) *choiceVariant {
	v := &choiceVariant{kind: kind}
	if kind == models.QuizAudio {
		v.questions = lo.Map(q.AudioQuestions, func(aq models.AudioQuestion, _ int) choiceQuestion {
			return choiceQuestion{id: aq.ID, imageURL: aq.Image, options: aq.Options}
		})
		return v
	}
	v.questions = lo.Map(q.Questions, func(mq models.Question, _ int) choiceQuestion {
		return choiceQuestion{id: mq.ID, prompt: mq.Prompt(), imageURL: mq.QuestionImageURL, options: mq.Options}
	})
	return v
}

func (v *choiceVariant) Len() int {
	return len(v.questions)
}

func (v *choiceVariant) Question(i int) QuestionView {
	q := v.questions[i]
	return QuestionView{
		ID:       q.id,
		Prompt:   q.prompt,
		ImageURL: q.imageURL,
		Options: lo.Map(q.options, func(o models.Option, _ int) OptionView {
			return OptionView{Key: optionKey(o), Text: o.Text, ImageURL: o.ImageURL, AudioURL: o.AudioFile}
		}),
	}
}

func (v *choiceVariant) Select(i int, key string) (*Cue, error) {
	opt, ok := lo.Find(v.questions[i].options, func(o models.Option) bool {
		return optionKey(o) == key
	})
	if !ok {
		return nil, ErrUnknownOption
	}
	if v.kind == models.QuizAudio {
		if opt.AudioFile == "" {
			return nil, nil
		}
		return &Cue{Name: CueOptionAudio, Source: opt.AudioFile}, nil
	}
	return cue(CueClick), nil
}

func (v *choiceVariant) Check(i int, key string) Verdict {
	correct, ok := lo.Find(v.questions[i].options, func(o models.Option) bool {
		return o.IsCorrect
	})
	if !ok {
		return Verdict{Result: ResultUnconfigured}
	}

	answer := correct.Text
	if answer == "" {
		answer = correct.ImageURL
	}

	if optionKey(correct) == key {
		return Verdict{Result: ResultCorrect, CorrectAnswer: answer}
	}
	return Verdict{Result: ResultIncorrect, CorrectAnswer: answer}
}

func optionKey(o models.Option) string {
	return strconv.FormatInt(o.ID, 10)
}

// matchingVariant asks for the missing letter of a word; the correct letter
// and two distractors are shuffled once per question.
type matchingVariant struct {
	items   []models.MatchingItem
	letters [][]string
}

func newMatchingVariant(q *models.Quiz, rnd *rand.Rand) *matchingVariant {
	v := &matchingVariant{items: q.MatchingItems}
	v.letters = lo.Map(q.MatchingItems, func(item models.MatchingItem, _ int) []string {
		return shuffleLetters(rnd, []string{
			item.CorrectLetter,
			lo.Ternary(item.Distractor1 != "", item.Distractor1, "X"),
			lo.Ternary(item.Distractor2 != "", item.Distractor2, "Y"),
		})
	})
	return v
}

func (v *matchingVariant) Len() int {
	return len(v.items)
}

func (v *matchingVariant) Question(i int) QuestionView {
	item := v.items[i]
	return QuestionView{
		ID:         item.ID,
		ImageURL:   item.ImageURL,
		MaskedWord: item.MaskedWord,
		Options: lo.Map(v.letters[i], func(l string, _ int) OptionView {
			return OptionView{Key: l, Text: l}
		}),
	}
}

func (v *matchingVariant) Select(i int, key string) (*Cue, error) {
	if key == "" || !lo.Contains(v.letters[i], key) {
		return nil, ErrUnknownOption
	}
	return cue(CueClick), nil
}

func (v *matchingVariant) Check(i int, key string) Verdict {
	correct := v.items[i].CorrectLetter
	if correct == "" {
		return Verdict{Result: ResultUnconfigured}
	}
	if key == correct {
		return Verdict{Result: ResultCorrect, CorrectAnswer: correct}
	}
	return Verdict{Result: ResultIncorrect, CorrectAnswer: correct}
}

// shuffleLetters returns a Fisher-Yates shuffled copy
func shuffleLetters(rnd *rand.Rand, letters []string) []string {
	shuffled := make([]string, len(letters))
	copy(shuffled, letters)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
