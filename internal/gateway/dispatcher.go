package gateway

// Dispatcher is the interface services use to push events to connected
// clients. The concrete Manager implements it.
type Dispatcher interface {
	// DispatchToUser delivers an event to the given user's joined channel.
	// It is a no-op when the user has no joined channel; pushes are a
	// latency optimization, never the source of truth.
	DispatchToUser(userID int64, event string, data any)
}
