// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value already filled by
// the binders passed to Wrap, and returns a Response. JSON and JSONError
// render the {data, meta, error} envelope; Error hands a domain error to the
// ErrorHandler, where ErrorMapper functions translate it into an HTTPError.
//
//	type checkoutRequest struct {
//	    Plan string `json:"plan" validate:"required,oneof=pro enterprise"`
//	}
//
//	r.Post("/billing/checkout", handler.Wrap(checkout,
//	    handler.WithBinders[handler.Context, checkoutRequest](binder.JSON()),
//	    handler.WithDecorators(handler.Validate[handler.Context, checkoutRequest](v)),
//	    handler.WithErrorHandler[handler.Context, checkoutRequest](errorHandler),
//	))
//
// Validation failures render as 422 with per-field details. Errors that are
// neither mapped nor HTTPError values render as a generic 500 so internal
// messages never reach clients.
package handler
