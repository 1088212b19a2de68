package operations

import (
	"time"

	"gscconsolidate/pkg/contracts/domain"
)

// Event types pushed to progress feeds
const (
	EventStarted  = "operation:started"
	EventProgress = "operation:progress"
	EventComplete = "operation:complete"
	EventFailed   = "operation:failed"
)

// Event is a lifecycle notification of one consolidation run
type Event struct {
	Type        string               `json:"type"`
	OperationID string               `json:"operation_id"`
	Source      string               `json:"source"`
	Status      OperationStatusValue `json:"status"`
	Progress    *ProgressUpdate      `json:"progress,omitempty"`
	Output      string               `json:"output,omitempty"`
	Error       string               `json:"error,omitempty"`
	Stats       *domain.Stats        `json:"stats,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Publisher receives operation events. Publish must not block the run.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(Event)

// Publish calls f(e)
func (f PublisherFunc) Publish(e Event) { f(e) }

// NewEvent snapshots op into an event of the given type
func NewEvent(eventType string, op *OperationState) Event {
	op.mu.RLock()
	defer op.mu.RUnlock()

	e := Event{
		Type:        eventType,
		OperationID: op.ID,
		Source:      op.Source,
		Status:      op.Status,
		Output:      op.Output,
		Timestamp:   time.Now().UTC(),
	}
	if op.Error != nil {
		e.Error = op.Error.Error()
	}
	return e
}
