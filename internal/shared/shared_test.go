package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	require.Equal(t, 1.23, Round2(1.2345))
	require.Equal(t, 1.24, Round2(1.236))
	require.Equal(t, -1.23, Round2(-1.2349))
}

func TestNearlyEqual(t *testing.T) {
	require.True(t, NearlyEqual(100.004, 100))
	require.False(t, NearlyEqual(100.02, 100))
	require.False(t, NearlyEqual(101, 99))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,250.00", FormatAmount(1250))
	require.Equal(t, "0.50", FormatAmount(0.5))
}

func TestSequenceNumbering(t *testing.T) {
	fixed := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	seq := NewSequence("INV", 4).WithNow(func() time.Time { return fixed })

	require.Equal(t, "INV-2026-0001", seq.Next())
	require.Equal(t, "INV-2026-0002", seq.Next())

	wide := NewSequence("LIVE-ORD", 5).WithNow(func() time.Time { return fixed })
	require.Equal(t, "LIVE-ORD-2026-00001", wide.Next())
}

func TestSequenceConcurrentIssueUnique(t *testing.T) {
	seq := NewSequence("JE", 4)
	const n = 50
	out := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() { out <- seq.Next() }()
	}
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		num := <-out
		require.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
}
