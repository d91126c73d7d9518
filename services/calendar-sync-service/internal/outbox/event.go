package outbox

// Event is the envelope written to outbox_events. The Kafka topic is the EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	TypeBusyBlocksSynced       = "calendar.busy_blocks.synced.v1"
	TypeConnectionDisconnected = "calendar.connection.disconnected.v1"
)
