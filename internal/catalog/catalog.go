package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/Iv91/kidslearning/internal/cache"
	"github.com/Iv91/kidslearning/internal/models"
)

const (
	// CacheKey is where the full quiz list is cached
	CacheKey = "quizplayer:catalog:v1"
	// AllTypes disables the type filter
	AllTypes = "All"

	DefaultTTL      = 10 * time.Minute
	DefaultPageSize = 8
)

// Lister fetches every quiz summary from the content service
type Lister interface {
	ListQuizzes(ctx context.Context) ([]models.QuizSummary, error)
}

// Query selects one page of the catalog
type Query struct {
	Type     string
	Search   string
	Page     int
	PageSize int
}

// Service serves the filtered, paginated quiz catalog
type Service struct {
	lister   Lister
	cache    cache.Service
	ttl      time.Duration
	pageSize int
}

// NewService creates a catalog service
func NewService(lister Lister, c cache.Service, ttl time.Duration, pageSize int) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{lister: lister, cache: c, ttl: ttl, pageSize: pageSize}
}

// List returns one page of the catalog
func (s *Service) List(ctx context.Context, q Query) (*models.CatalogPage, error) {
	all, err := s.quizzes(ctx)
	if err != nil {
		return nil, err
	}

	filtered := all
	if q.Type != "" && q.Type != AllTypes {
		filtered = lo.Filter(filtered, func(quiz models.QuizSummary, _ int) bool {
			return quiz.Type == q.Type
		})
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		filtered = lo.Filter(filtered, func(quiz models.QuizSummary, _ int) bool {
			return fuzzy.MatchFold(term, quiz.Title)
		})
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	totalPages := max(1, (len(filtered)+pageSize-1)/pageSize)
	page := min(max(q.Page, 1), totalPages)

	start := min((page-1)*pageSize, len(filtered))
	end := min(start+pageSize, len(filtered))

	return &models.CatalogPage{
		Entries: lo.Map(filtered[start:end], func(quiz models.QuizSummary, _ int) models.CatalogEntry {
			return models.CatalogEntry{
				QuizSummary: quiz,
				TypeLabel:   TypeLabel(quiz.Type),
				Path:        PlayPath(quiz.Type, quiz.ID),
			}
		}),
		Types:      Types(all),
		Page:       page,
		PageSize:   pageSize,
		Total:      len(filtered),
		TotalPages: totalPages,
	}, nil
}

// Invalidate drops the cached quiz list
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, CacheKey)
}

func (s *Service) quizzes(ctx context.Context) ([]models.QuizSummary, error) {
	var cached []models.QuizSummary
	err := s.cache.Get(ctx, CacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("catalog cache read failed", "error", err)
	}

	list, err := s.lister.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load quizzes: %w", err)
	}

	if err := s.cache.Set(ctx, CacheKey, list, s.ttl); err != nil {
		slog.Warn("catalog cache write failed", "error", err)
	}
	return list, nil
}

// Types returns "All" followed by each distinct quiz type in order of appearance
func Types(quizzes []models.QuizSummary) []string {
	types := lo.Uniq(lo.Map(quizzes, func(q models.QuizSummary, _ int) string {
		return q.Type
	}))
	return append([]string{AllTypes}, types...)
}

// TypeLabel turns a quiz_type tag into a display label, e.g. drag_drop -> Drag Drop
func TypeLabel(quizType string) string {
	words := strings.Fields(strings.ReplaceAll(quizType, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// PlayPath returns the page a quiz is played on
func PlayPath(quizType string, id int64) string {
	switch quizType {
	case "drag_drop":
		return fmt.Sprintf("/drag-quiz/%d", id)
	case "visual":
		return fmt.Sprintf("/visual-quiz/%d", id)
	case "matching":
		return fmt.Sprintf("/matching-quiz/%d", id)
	case "pronunciation":
		return fmt.Sprintf("/pronunciation-quiz/%d", id)
	case "audio":
		return fmt.Sprintf("/audio-quiz/%d", id)
	default:
		return fmt.Sprintf("/quiz/%d", id)
	}
}

// Routes lists the play page pattern of every playable quiz type
func Routes() []models.Route {
	return lo.Map(models.QuizTypes, func(t models.QuizType, _ int) models.Route {
		return models.Route{Type: t, Pattern: strings.Replace(PlayPath(string(t), 0), "0", "{id}", 1)}
	})
}
