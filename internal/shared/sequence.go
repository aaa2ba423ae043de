package shared

import (
	"fmt"
	"sync"
	"time"
)

// Sequence issues gapless document numbers like INV-2026-0001.
// Each module owns its own sequences; they are never shared across modules.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	width  int
	next   int
	now    func() time.Time
}

// NewSequence builds a sequence with the given prefix and zero-padded width.
func NewSequence(prefix string, width int) *Sequence {
	return &Sequence{prefix: prefix, width: width, next: 1, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Sequence) WithNow(now func() time.Time) *Sequence {
	if now != nil {
		s.now = now
	}
	return s
}

// Next returns the next document number.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return fmt.Sprintf("%s-%d-%0*d", s.prefix, s.now().Year(), s.width, n)
}
