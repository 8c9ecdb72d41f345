package domain

// InboundMessage is one decoded delivery handed to a handler.
// It is not retained after the delivery is settled.
type InboundMessage struct {
	Body       string
	RoutingKey RoutingKey

	MessageID   string
	ContentType string
	Redelivered bool
	Headers     map[string]any
}
