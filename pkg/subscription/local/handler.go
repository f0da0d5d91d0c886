package local

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type portalView struct {
	CustomerRef   string             `json:"customer_ref"`
	Subscriptions []subscriptionView `json:"subscriptions"`
}

type subscriptionView struct {
	Ref               string `json:"ref"`
	PriceRef          string `json:"price_ref"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// Handler serves the hosted pages a real provider would offer. Mount it under
// /local-billing.
//
//	GET  /checkout/{session}          completes the checkout and redirects
//	GET  /portal/{customer}           lists the customer's subscriptions
//	POST /subscriptions/{ref}/{action} emits payment_failed, payment_succeeded or delete
func (p *Provider) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/checkout/{session}", func(w http.ResponseWriter, r *http.Request) {
		redirect, err := p.CompleteCheckout(r.Context(), chi.URLParam(r, "session"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	})

	r.Get("/portal/{customer}", func(w http.ResponseWriter, r *http.Request) {
		view, ok := p.portal(chi.URLParam(r, "customer"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(view)
	})

	r.Post("/subscriptions/{ref}/{action}", func(w http.ResponseWriter, r *http.Request) {
		if err := p.Simulate(r.Context(), chi.URLParam(r, "ref"), chi.URLParam(r, "action")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return r
}

func (p *Provider) portal(customerRef string) (portalView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.customers[customerRef]; !ok {
		return portalView{}, false
	}
	view := portalView{CustomerRef: customerRef, Subscriptions: []subscriptionView{}}
	for _, sub := range p.subscriptions {
		if sub.customerRef == customerRef {
			view.Subscriptions = append(view.Subscriptions, subscriptionView{
				Ref:               sub.ref,
				PriceRef:          sub.priceRef,
				CancelAtPeriodEnd: sub.cancelAtPeriodEnd,
			})
		}
	}
	return view, true
}
