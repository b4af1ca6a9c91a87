package broker

type EventType string

const (
	// Standardized event types in format: <resource>.<action>
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskDeleted EventType = "task.deleted"
)

// SubjectPrefix namespaces every subject this service publishes on.
const SubjectPrefix = "studytrack"

// Subject returns the NATS subject an event type is published on.
func Subject(eventType EventType) string {
	return SubjectPrefix + "." + string(eventType)
}
