package learning

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func logN(t *testing.T, svc *Service, n int, input EventInput) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.LogEvent(context.Background(), input)
		require.NoError(t, err)
	}
}

func TestLogEventValidatesInput(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.LogEvent(context.Background(), EventInput{Module: "sales"})
	require.Error(t, err)
}

func TestLogEventDefaultsSeverityToInfo(t *testing.T) {
	svc := NewService(nil)
	event, err := svc.LogEvent(context.Background(), EventInput{
		Module:    "sales",
		EventType: "invoice_posted",
		Category:  "transaction",
	})
	require.NoError(t, err)
	require.Equal(t, SeverityInfo, event.Severity)
	require.NotEmpty(t, event.ID)
}

func TestPatternPromotedAtThreshold(t *testing.T) {
	svc := NewService(nil)
	input := EventInput{
		Module:    "inventory",
		EventType: "low_stock:prod-1",
		Category:  "stock",
		Severity:  SeverityWarning,
	}

	logN(t, svc, defaultPatternThreshold-1, input)
	require.Empty(t, svc.Patterns(0), "below threshold no pattern surfaces")

	logN(t, svc, 1, input)
	patterns := svc.Patterns(0)
	require.Len(t, patterns, 1)
	require.Equal(t, "inventory:low_stock:prod-1:stock", patterns[0].Key)
	require.Equal(t, defaultPatternThreshold, patterns[0].Frequency)
	require.Contains(t, patterns[0].Recommendation, "reorder levels")
}

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) countMessage(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int
	for _, r := range h.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

func TestRecurringAdvisoryFiresOnlyForErrors(t *testing.T) {
	handler := &recordingHandler{}
	svc := NewService(slog.New(handler)).WithThreshold(3)

	logN(t, svc, 3, EventInput{
		Module:    "inventory",
		EventType: "low_stock:prod-1",
		Category:  "stock",
		Severity:  SeverityWarning,
	})
	require.Zero(t, handler.countMessage("recurring pattern detected"),
		"recurring warnings promote silently")
	require.Len(t, svc.Patterns(0), 1, "promotion itself is severity-blind")

	logN(t, svc, 3, EventInput{
		Module:    "ledger",
		EventType: "handler_failure:create_payment",
		Category:  "error",
		Severity:  SeverityError,
	})
	require.Equal(t, 1, handler.countMessage("recurring pattern detected"))
}

func TestPatternsSortedByFrequencyAndCapped(t *testing.T) {
	svc := NewService(nil).WithThreshold(2)
	logN(t, svc, 5, EventInput{Module: "sales", EventType: "checkout_rejected", Category: "validation"})
	logN(t, svc, 3, EventInput{Module: "inventory", EventType: "low_stock:prod-1", Category: "stock"})
	logN(t, svc, 2, EventInput{Module: "ledger", EventType: "handler_failure:create_payment", Category: "error"})

	patterns := svc.Patterns(2)
	require.Len(t, patterns, 2)
	require.Equal(t, 5, patterns[0].Frequency)
	require.Equal(t, 3, patterns[1].Frequency)
}

func TestDistinctCombinationsTrackSeparately(t *testing.T) {
	svc := NewService(nil).WithThreshold(3)
	logN(t, svc, 2, EventInput{Module: "sales", EventType: "checkout_rejected", Category: "validation"})
	logN(t, svc, 2, EventInput{Module: "liveshop", EventType: "checkout_rejected", Category: "validation"})

	require.Empty(t, svc.Patterns(0), "counts must not merge across modules")
}

func TestQueriesFilterTheLog(t *testing.T) {
	svc := NewService(nil)
	logN(t, svc, 2, EventInput{Module: "sales", EventType: "invoice_posted", Category: "transaction"})
	logN(t, svc, 1, EventInput{Module: "inventory", EventType: "low_stock:prod-1", Category: "stock", Severity: SeverityWarning})

	require.Len(t, svc.ByModule("sales"), 2)
	require.Len(t, svc.ByCategory("stock"), 1)
	require.Len(t, svc.BySeverity(SeverityWarning), 1)
	require.Empty(t, svc.ByModule("ledger"))
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc := NewService(nil).WithNow(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	logN(t, svc, 3, EventInput{Module: "sales", EventType: "invoice_posted", Category: "transaction"})

	recent := svc.Recent(2)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Timestamp.After(recent[1].Timestamp))
}

func TestStatsAggregate(t *testing.T) {
	svc := NewService(nil).WithThreshold(2)
	logN(t, svc, 2, EventInput{Module: "sales", EventType: "invoice_posted", Category: "transaction"})
	logN(t, svc, 1, EventInput{Module: "inventory", EventType: "low_stock:prod-1", Category: "stock", Severity: SeverityError})

	stats := svc.Stats()
	require.Equal(t, 3, stats.TotalEvents)
	require.Equal(t, 2, stats.ByModule["sales"])
	require.Equal(t, 1, stats.BySeverity[string(SeverityError)])
	require.Equal(t, 1, stats.PatternsFound)
	require.False(t, stats.NewestEvent.Before(stats.OldestEvent))
}

type failingArchiver struct{ calls int }

func (a *failingArchiver) Archive(context.Context, Event) error {
	a.calls++
	return errors.New("archive down")
}

func TestArchiveFailureDoesNotFailLogging(t *testing.T) {
	archiver := &failingArchiver{}
	svc := NewService(nil).WithArchiver(archiver)

	_, err := svc.LogEvent(context.Background(), EventInput{
		Module:    "sales",
		EventType: "invoice_posted",
		Category:  "transaction",
	})
	require.NoError(t, err, "the archive is best-effort")
	require.Equal(t, 1, archiver.calls)
	require.Len(t, svc.Recent(0), 1)
}
