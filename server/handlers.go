package server

// Handlers bundles the dependencies shared by the HTTP endpoints.
type Handlers struct {
	broker *Broker
	status *StatusTracker
}

func NewHandlers(broker *Broker, status *StatusTracker) *Handlers {
	return &Handlers{broker: broker, status: status}
}
