package subscribe

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Iv91/kidslearning/internal/content"
)

// ErrInvalidEmail is returned before any upstream call when the address is malformed
var ErrInvalidEmail = errors.New("invalid email")

// Status is the outcome shown to the visitor
type Status string

const (
	StatusOK     Status = "ok"
	StatusExists Status = "exists"
	StatusFailed Status = "failed"
)

// MessageKey returns the localization key of the status
func (s Status) MessageKey() string {
	return "subscribe." + string(s)
}

// Upstream registers an address with the content service
type Upstream interface {
	Subscribe(ctx context.Context, email string) error
}

// Request is a newsletter subscription request
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service forwards newsletter subscriptions
type Service struct {
	upstream Upstream
	validate *validator.Validate
}

// NewService creates a subscription service
func NewService(upstream Upstream) *Service {
	return &Service{upstream: upstream, validate: validator.New()}
}

// Subscribe validates the address and forwards it upstream.
// Upstream rejections map to StatusExists, transport failures to StatusFailed.
func (s *Service) Subscribe(ctx context.Context, email string) (Status, error) {
	req := Request{Email: strings.TrimSpace(email)}
	if err := s.validate.Struct(req); err != nil {
		return "", ErrInvalidEmail
	}

	err := s.upstream.Subscribe(ctx, req.Email)
	if err == nil {
		slog.Info("newsletter subscription accepted")
		return StatusOK, nil
	}

	var statusErr *content.StatusError
	if errors.As(err, &statusErr) {
		slog.Info("newsletter subscription rejected upstream", "status", statusErr.StatusCode)
		return StatusExists, nil
	}

	slog.Error("newsletter subscription failed", "error", err)
	return StatusFailed, nil
}
