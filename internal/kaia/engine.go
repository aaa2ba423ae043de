package kaia

import (
	"fmt"
	"sync"
	"time"
)

// Engine evaluates every registered rule against a transaction and retains
// each validation run for audit. Rules never short-circuit: a transaction is
// always scored by the full rule set.
type Engine struct {
	mu      sync.Mutex
	rules   []Rule
	history []Validation
	now     func() time.Time
}

// NewEngine builds an engine seeded with the default rule set.
func NewEngine() *Engine {
	return &Engine{rules: defaultRules(), now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// RegisterRule appends a custom rule. A rule with an existing id replaces it.
func (e *Engine) RegisterRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID == rule.ID {
			e.rules[i] = rule
			return
		}
	}
	e.rules = append(e.rules, rule)
}

// ValidateTransaction runs all rules regardless of earlier failures. The
// transaction fails overall iff any failed rule carries critical or error
// severity; warning-only failures pass with an advisory.
func (e *Engine) ValidateTransaction(tx Transaction, txType string) Validation {
	e.mu.Lock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.Unlock()

	results := make([]Result, 0, len(rules))
	passed := true
	for _, rule := range rules {
		r := rule.Validate(tx)
		r.RuleID = rule.ID
		r.RuleName = rule.Name
		r.Category = rule.Category
		results = append(results, r)
		if !r.Passed && (r.Severity == SeverityCritical || r.Severity == SeverityError) {
			passed = false
		}
	}

	id := tx.ID
	if id == "" {
		id = "unknown"
	}
	validation := Validation{
		TransactionID:   id,
		TransactionType: txType,
		Passed:          passed,
		Results:         results,
		Timestamp:       e.now(),
	}

	e.mu.Lock()
	e.history = append(e.history, validation)
	e.mu.Unlock()

	return validation
}

// Summary renders a one-line operator verdict for a validation.
func (e *Engine) Summary(v Validation) string {
	var critical, errs, warnings int
	for _, r := range v.Results {
		if r.Passed {
			continue
		}
		switch r.Severity {
		case SeverityCritical:
			critical++
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		}
	}
	switch {
	case critical > 0:
		return fmt.Sprintf("BLOCKED: %d critical issue(s) found", critical)
	case errs > 0:
		return fmt.Sprintf("REJECTED: %d error(s) found", errs)
	case warnings > 0:
		return fmt.Sprintf("APPROVED WITH WARNINGS: %d warning(s)", warnings)
	default:
		return "APPROVED: All checks passed"
	}
}

// History returns a snapshot of every retained validation run.
func (e *Engine) History() []Validation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Validation, len(e.history))
	copy(out, e.history)
	return out
}

// Stats aggregates the retained history.
func (e *Engine) Stats() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{
		Total:          len(e.history),
		CategoryTotals: make(map[Category]int),
	}
	for _, v := range e.history {
		if v.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
		for _, r := range v.Results {
			stats.CategoryTotals[r.Category]++
		}
	}
	if stats.Total > 0 {
		stats.PassRate = float64(stats.Passed) / float64(stats.Total) * 100
	}
	return stats
}
