package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/smartfolio/smartfolio/pkg/binder"
	"github.com/smartfolio/smartfolio/pkg/logger"
)

// ErrorMapper translates a domain error into an HTTPError. It reports false
// when it does not recognise err.
type ErrorMapper func(err error) (HTTPError, bool)

// BinderErrors maps request binding failures.
func BinderErrors(err error) (HTTPError, bool) {
	switch {
	case errors.Is(err, binder.ErrRequestTooLarge):
		return ErrRequestTooLarge, true
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return ErrUnsupportedMediaType, true
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath):
		return ErrBadRequest.WithMessage(err.Error()), true
	}
	return HTTPError{}, false
}

// NewErrorHandler renders errors in the JSON envelope. Mappers run in order
// after BinderErrors; errors nobody maps keep their own HTTPError or
// ValidationError status, or become a 500. Client errors are logged at warn,
// server errors at error.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}
	mappers = append([]ErrorMapper{BinderErrors}, mappers...)

	return func(ctx Context, err error) {
		resolved := err
		for _, m := range mappers {
			if m == nil {
				continue
			}
			if httpErr, ok := m(err); ok {
				resolved = httpErr
				break
			}
		}

		resp := JSONError(resolved).(*jsonResponse)

		level := slog.LevelError
		if resp.status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(context.WithoutCancel(r.Context()), level, "request failed",
			logger.Component("http"),
			logger.Error(err),
			slog.Int("status", resp.status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.WarnContext(r.Context(), "failed to write error response", logger.Error(renderErr))
		}
	}
}
