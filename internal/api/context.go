package api

import (
	"context"
)

type contextKey string

const (
	learnerContextKey contextKey = "learner_id"
	langContextKey    contextKey = "lang"
)

// LearnerFromContext extracts the learner id from context
func LearnerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(learnerContextKey).(string)
	return id
}

// ContextWithLearner adds the learner id to context
func ContextWithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerContextKey, learnerID)
}

// LangFromContext extracts the negotiated language from context
func LangFromContext(ctx context.Context) string {
	lang, _ := ctx.Value(langContextKey).(string)
	return lang
}

// ContextWithLang adds the negotiated language to context
func ContextWithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langContextKey, lang)
}
