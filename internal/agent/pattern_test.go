package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/store"
)

func newPatternFixture(t *testing.T) (*PatternAgent, *store.Store) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	s := store.New(store.DefaultConfig())
	return NewPatternAgent(cat, s, nil), s
}

func TestPatternAgent_MatchesSlackGoal(t *testing.T) {
	a, s := newPatternFixture(t)
	require.NoError(t, a.Initialize())

	res := a.Execute(context.Background(), Request{
		Goal:      "Send Slack notification when workflow completes",
		RequestID: "req-1",
	})

	require.True(t, res.Success)
	match, ok := res.Data.(PatternMatch)
	require.True(t, ok)
	assert.Equal(t, "slack-notification", match.PatternID)
	assert.Positive(t, match.Confidence)
	assert.NotEmpty(t, match.MatchedKeywords)

	// The match must also land in the store under the request-scoped key.
	stored, ok := store.GetAs[PatternMatch](s, StageKey(KeySelectedPattern, "req-1"))
	require.True(t, ok)
	assert.Equal(t, match.PatternID, stored.PatternID)
}

func TestPatternAgent_EmptyGoalStillSucceeds(t *testing.T) {
	a, _ := newPatternFixture(t)

	res := a.Execute(context.Background(), Request{Goal: "", RequestID: "req-2"})

	require.True(t, res.Success, "no match is a low-confidence result, not an error")
	match := res.Data.(PatternMatch)
	assert.Zero(t, match.Confidence)
	assert.NotEmpty(t, match.PatternID, "best available guess must still be present")
	assert.Empty(t, match.MatchedKeywords)
}

func TestPatternAgent_PathologicalGoals(t *testing.T) {
	a, _ := newPatternFixture(t)

	tests := []struct {
		name string
		goal string
	}{
		{name: "control characters", goal: "\x00\x01\x02 schedule \x7f report"},
		{name: "very long", goal: strings.Repeat("synchronize records between systems ", 500)},
		{name: "only punctuation", goal: "?!?!?! --- ///"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Execute(context.Background(), Request{Goal: tt.goal})
			assert.True(t, res.Success)
		})
	}
}

func TestPatternAgent_Deterministic(t *testing.T) {
	a, _ := newPatternFixture(t)

	goal := "call an external http api"
	first := a.Execute(context.Background(), Request{Goal: goal}).Data.(PatternMatch)
	for i := 0; i < 5; i++ {
		again := a.Execute(context.Background(), Request{Goal: goal}).Data.(PatternMatch)
		assert.Equal(t, first.PatternID, again.PatternID)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestPatternAgent_CancelledContext(t *testing.T) {
	a, _ := newPatternFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := a.Execute(ctx, Request{Goal: "anything"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
	assert.True(t, res.Retryable)
}

func TestPatternAgent_InitializeIdempotent(t *testing.T) {
	a, _ := newPatternFixture(t)
	require.NoError(t, a.Initialize())
	require.NoError(t, a.Initialize())
	require.NoError(t, a.Shutdown())
}

func TestTokenize(t *testing.T) {
	terms := tokenize("Send a Slack message, daily!")
	for _, want := range []string{"send", "a", "slack", "message", "daily"} {
		_, ok := terms[want]
		assert.True(t, ok, "missing term %q", want)
	}
	assert.Len(t, terms, 5)
}
