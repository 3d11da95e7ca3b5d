package models

import "strings"

// QuizType identifies one of the five playable quiz variants
type QuizType string

const (
	QuizStandard QuizType = "standard"
	QuizDragDrop QuizType = "drag_drop"
	QuizVisual   QuizType = "visual"
	QuizMatching QuizType = "matching"
	QuizAudio    QuizType = "audio"
)

// QuizTypes lists every supported quiz type in display order
var QuizTypes = []QuizType{QuizStandard, QuizDragDrop, QuizVisual, QuizMatching, QuizAudio}

// ParseQuizType normalizes an upstream quiz_type value.
// "multiple_choice" is the content service's name for the standard variant.
func ParseQuizType(s string) (QuizType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "multiple_choice", "mcq":
		return QuizStandard, true
	case "drag_drop", "dragdrop":
		return QuizDragDrop, true
	case "visual":
		return QuizVisual, true
	case "matching":
		return QuizMatching, true
	case "audio":
		return QuizAudio, true
	default:
		return "", false
	}
}

// IntroKey returns the opt-out flag key for this quiz type
func (t QuizType) IntroKey() string {
	return "skip_intro_" + string(t)
}

// Quiz is a quiz definition as served by the content service.
// Only the collection matching Type is populated.
type Quiz struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Type           string          `json:"quiz_type"`
	Difficulty     string          `json:"difficulty"`
	CoverImage     string          `json:"cover_image,omitempty"`
	ImageMode      string          `json:"image_mode,omitempty"`
	Questions      []Question      `json:"questions,omitempty"`
	SortingPairs   []SortPair      `json:"sorting_pairs,omitempty"`
	MatchingItems  []MatchingItem  `json:"matching_items,omitempty"`
	AudioQuestions []AudioQuestion `json:"audio_questions,omitempty"`
}

// Kind returns the parsed quiz type, defaulting to standard for unknown tags
func (q *Quiz) Kind() QuizType {
	if t, ok := ParseQuizType(q.Type); ok {
		return t
	}
	return QuizStandard
}

// Drag-drop items render either as their word or as their picture
const (
	ImageModeWord    = "word"
	ImageModePicture = "image"
)

// ItemMode returns how drag-drop items are rendered; word unless the quiz asks for pictures
func (q *Quiz) ItemMode() string {
	if q.ImageMode == "" {
		return ImageModeWord
	}
	return q.ImageMode
}

// Question is a multiple-choice or visual question.
// Visual questions use QuestionText/QuestionImageURL and image options.
type Question struct {
	ID               int64    `json:"id"`
	Text             string   `json:"text,omitempty"`
	Order            int      `json:"order,omitempty"`
	QuestionText     string   `json:"question_text,omitempty"`
	QuestionImageURL string   `json:"question_image_url,omitempty"`
	Options          []Option `json:"options"`
}

// Prompt returns the question text regardless of variant
func (q Question) Prompt() string {
	if q.Text != "" {
		return q.Text
	}
	return q.QuestionText
}

// Option is a single answer choice
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	AudioFile string `json:"audio_file,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// AudioQuestion shows an image and asks for the phrase the learner hears
type AudioQuestion struct {
	ID            int64    `json:"id"`
	Image         string   `json:"image,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Options       []Option `json:"options"`
}

// SortPair assigns an item to the label of the bucket it belongs in
type SortPair struct {
	ID       int64  `json:"id"`
	Item     string `json:"item"`
	Label    string `json:"label"`
	ImageURL string `json:"image_url,omitempty"`
}

// MatchingItem is a word with one missing letter
type MatchingItem struct {
	ID            int64  `json:"id"`
	ImageURL      string `json:"image_url,omitempty"`
	MaskedWord    string `json:"masked_word"`
	CorrectLetter string `json:"correct_letter"`
	Distractor1   string `json:"distractor1,omitempty"`
	Distractor2   string `json:"distractor2,omitempty"`
}
