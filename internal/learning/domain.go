package learning

import "time"

// Severity grades an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is one append-only audit record. Events are never mutated or deleted
// after logging.
type Event struct {
	ID        string
	Timestamp time.Time
	Module    string
	EventType string
	Category  string
	Severity  Severity
	Data      map[string]any
	Tags      []string
}

// Pattern is a frequency-derived observation over the event stream. A pattern
// exists once the same module/type/category combination repeats often enough.
type Pattern struct {
	Key            string
	Module         string
	EventType      string
	Category       string
	Frequency      int
	FirstSeen      time.Time
	LastOccurrence time.Time
	Recommendation string
}

// Statistics is the aggregate view of the event log.
type Statistics struct {
	TotalEvents   int
	ByModule      map[string]int
	ByCategory    map[string]int
	BySeverity    map[string]int
	PatternsFound int
	OldestEvent   time.Time
	NewestEvent   time.Time
}

// EventInput carries a new event into the log.
type EventInput struct {
	Module    string `validate:"required"`
	EventType string `validate:"required"`
	Category  string `validate:"required"`
	Severity  Severity
	Data      map[string]any
	Tags      []string
}
