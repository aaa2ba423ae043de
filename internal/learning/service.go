package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haderos-erp/haderos-core/internal/bus"
)

// defaultPatternThreshold is how many repeats promote an event combination
// into a pattern.
const defaultPatternThreshold = 5

// Archiver persists events outside process memory. It is best-effort: archive
// failures are logged, never propagated to the caller that logged the event.
type Archiver interface {
	Archive(ctx context.Context, event Event) error
}

// Service keeps the append-only event log and derives frequency patterns from
// it. It observes every other module and is never on any hot path.
type Service struct {
	logger    *slog.Logger
	validate  *validator.Validate
	archiver  Archiver
	threshold int
	now       func() time.Time

	mu       sync.Mutex
	events   []Event
	patterns map[string]*Pattern
}

// NewService builds the learning log.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:    logger.With("module", string(bus.ModuleLearning)),
		validate:  validator.New(),
		threshold: defaultPatternThreshold,
		now:       time.Now,
		patterns:  make(map[string]*Pattern),
	}
}

// WithArchiver attaches an external archive sink.
func (s *Service) WithArchiver(a Archiver) *Service {
	s.archiver = a
	return s
}

// WithThreshold overrides the pattern promotion threshold.
func (s *Service) WithThreshold(n int) *Service {
	if n > 0 {
		s.threshold = n
	}
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// LogEvent appends one event and updates pattern counters. The pattern key is
// module:eventType:category; hitting the threshold promotes it exactly once.
func (s *Service) LogEvent(ctx context.Context, input EventInput) (Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return Event{}, fmt.Errorf("learning: log event: %w", err)
	}
	severity := input.Severity
	if severity == "" {
		severity = SeverityInfo
	}
	event := Event{
		ID:        "evt-" + uuid.NewString(),
		Timestamp: s.now(),
		Module:    input.Module,
		EventType: input.EventType,
		Category:  input.Category,
		Severity:  severity,
		Data:      input.Data,
		Tags:      input.Tags,
	}

	s.mu.Lock()
	s.events = append(s.events, event)

	key := fmt.Sprintf("%s:%s:%s", event.Module, event.EventType, event.Category)
	pattern, ok := s.patterns[key]
	if !ok {
		pattern = &Pattern{
			Key:       key,
			Module:    event.Module,
			EventType: event.EventType,
			Category:  event.Category,
			FirstSeen: event.Timestamp,
		}
		s.patterns[key] = pattern
	}
	pattern.Frequency++
	pattern.LastOccurrence = event.Timestamp
	frequency := pattern.Frequency
	if frequency >= s.threshold {
		pattern.Recommendation = recommendationFor(event.Category, key, frequency)
	}
	s.mu.Unlock()

	// The operator advisory fires only for recurring failures; recurring
	// warnings and info events still promote to patterns silently.
	if frequency >= s.threshold && severity == SeverityError {
		s.logger.Warn("recurring pattern detected", "pattern", key, "frequency", frequency)
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, event); err != nil {
			s.logger.Error("event archive failed", "event", event.ID, "error", err)
		}
	}
	return event, nil
}

// recommendationFor maps a recurring pattern's category to operator guidance.
func recommendationFor(category, key string, frequency int) string {
	switch category {
	case "error":
		return fmt.Sprintf("Recurring failure %s seen %d times; investigate the failing handler", key, frequency)
	case "validation":
		return fmt.Sprintf("Validation rejections on %s recur; review input sources or rule thresholds", key)
	case "stock":
		return fmt.Sprintf("Stock pressure on %s recurs; review reorder levels or supplier lead times", key)
	default:
		return fmt.Sprintf("Pattern %s repeated %d times; worth a look", key, frequency)
	}
}

// Recent returns up to limit events, newest first.
func (s *Service) Recent(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// ByModule returns every event logged by one module, oldest first.
func (s *Service) ByModule(module string) []Event {
	return s.filter(func(e Event) bool { return e.Module == module })
}

// ByCategory returns every event in one category, oldest first.
func (s *Service) ByCategory(category string) []Event {
	return s.filter(func(e Event) bool { return e.Category == category })
}

// BySeverity returns every event at one severity, oldest first.
func (s *Service) BySeverity(severity Severity) []Event {
	return s.filter(func(e Event) bool { return e.Severity == severity })
}

func (s *Service) filter(keep func(Event) bool) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Patterns returns promoted patterns sorted by frequency, capped at topN when
// positive.
func (s *Service) Patterns(topN int) []Pattern {
	s.mu.Lock()
	out := make([]Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		if p.Frequency >= s.threshold {
			out = append(out, *p)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Key < out[j].Key
	})
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

// Stats summarises the whole log.
func (s *Service) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		TotalEvents: len(s.events),
		ByModule:    make(map[string]int),
		ByCategory:  make(map[string]int),
		BySeverity:  make(map[string]int),
	}
	for _, e := range s.events {
		stats.ByModule[e.Module]++
		stats.ByCategory[e.Category]++
		stats.BySeverity[string(e.Severity)]++
	}
	for _, p := range s.patterns {
		if p.Frequency >= s.threshold {
			stats.PatternsFound++
		}
	}
	if len(s.events) > 0 {
		stats.OldestEvent = s.events[0].Timestamp
		stats.NewestEvent = s.events[len(s.events)-1].Timestamp
	}
	return stats
}
