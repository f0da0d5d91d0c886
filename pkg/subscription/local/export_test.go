package local

import "github.com/smartfolio/smartfolio/pkg/subscription"

func (p *Provider) Config() Config { return p.cfg }

func (p *Provider) LifecycleEvent(subscriptionRef, action string) (subscription.Event, error) {
	return p.lifecycleEvent("evt_test", subscriptionRef, "in_test", action)
}
