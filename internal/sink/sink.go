// Package sink connects the agent to the remote presentation host: it
// tracks which entities the host subscribed to, delivers attribute
// updates, and relays host lifecycle events back into the agent.
package sink

// PresentationSink is the host-facing attribute surface. IsSubscribed
// reflects the subscription set owned by the host; PushAttributes
// delivers one entity's attribute map.
type PresentationSink interface {
	IsSubscribed(entityID string) bool
	PushAttributes(entityID string, attrs map[string]string) error
}

// SubscriptionHandler is invoked when the host subscribes to or
// unsubscribes from an entity.
type SubscriptionHandler func(entityID string, subscribed bool)

// StandbyHandler is invoked when the host enters or leaves standby.
type StandbyHandler func(standby bool)

// HostEvents lets services react to host lifecycle notifications without
// knowing the transport. Handlers must be registered before Start.
type HostEvents interface {
	OnSubscriptionChange(handler SubscriptionHandler)
	OnStandbyChange(handler StandbyHandler)
}
