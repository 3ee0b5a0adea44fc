package service

import "time"

// TransitionEvent is the domain event emitted once per committed status
// transition. External collaborators (notifications, the drafting
// trigger) consume it; nothing in this process depends on delivery.
type TransitionEvent struct {
	CaseID     string    `json:"case_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventPublisher delivers transition events. Implementations must never
// block the caller; a committed transition is never rolled back for a
// slow subscriber.
type EventPublisher interface {
	PublishTransition(ev TransitionEvent)
}

// NopPublisher drops events. Used when no hub is wired (tests, tooling).
type NopPublisher struct{}

func (NopPublisher) PublishTransition(TransitionEvent) {}
