package events

// Topic constants for terminal events emitted during a POS session.
const (
	TopicCartUpdated     = "cart.updated"
	TopicCartCleared     = "cart.cleared"
	TopicOrderCompleted  = "order.completed"
	TopicReturnStarted   = "return.started"
	TopicReturnCompleted = "return.completed"
	TopicReturnCanceled  = "return.canceled"
)

// DefaultTopics returns the canonical list of topics a terminal UI can
// subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicCartUpdated,
		TopicCartCleared,
		TopicOrderCompleted,
		TopicReturnStarted,
		TopicReturnCompleted,
		TopicReturnCanceled,
	}
}
