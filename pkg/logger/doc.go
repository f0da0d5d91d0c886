// Package logger builds *slog.Logger instances for the application and
// provides attribute constructors so keys stay consistent across packages.
//
// New takes functional options. WithConfig applies environment defaults read
// from APP_ENV, LOG_LEVEL and LOG_FORMAT, and WithContextValue or
// WithContextExtractors inject request scoped values such as the request id
// into every record logged with a context.
//
//	log := logger.New(
//	    logger.WithConfig(cfg),
//	    logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//	log.InfoContext(ctx, "subscription activated",
//	    logger.UserID(userID),
//	    logger.Plan("pro"),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
