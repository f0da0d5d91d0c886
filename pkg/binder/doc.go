// Package binder fills request structs from JSON bodies, query strings and
// router path parameters. Binders share the signature
// func(*http.Request, any) error and are chained by handler.WithBinders.
//
//	type listRequest struct {
//	    Limit int `query:"limit"`
//	}
//
//	r.Get("/billing/payments", handler.Wrap(h,
//	    handler.WithBinders[handler.Context, listRequest](binder.Query()),
//	))
package binder
