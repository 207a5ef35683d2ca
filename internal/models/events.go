package models

// SubscriptionEvent tells the agent which entities the host subscribed
// to or unsubscribed from.
type SubscriptionEvent struct {
	EntityIDs []string `json:"entity_ids"`
}

// StandbyEvent signals the host entering or leaving standby.
type StandbyEvent struct {
	Standby bool `json:"standby"`
}
