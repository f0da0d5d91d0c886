package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/smartfolio/smartfolio/handler"
)

var (
	ErrMissingAPIKey    = errors.New("openai api key is required")
	ErrCompletionFailed = errors.New("ai completion failed")
)

var ErrAIUnavailable = handler.NewHTTPError(http.StatusBadGateway, "ai_unavailable")

// HTTPErrors maps completion failures. Quota errors are mapped by the
// billing mapper.
func HTTPErrors(err error) (handler.HTTPError, bool) {
	if errors.Is(err, ErrCompletionFailed) || errors.Is(err, context.DeadlineExceeded) {
		return ErrAIUnavailable.WithMessage("content generation is unavailable, try again later"), true
	}
	return handler.HTTPError{}, false
}
