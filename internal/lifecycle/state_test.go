package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []State{InProgress, PendingCashCount, PendingBalanceAssignment, FullyScheduled, PartiallyScheduled, Closed, Cancelled}

func TestPriorityOrder(t *testing.T) {
	for i := 1; i < len(allStates); i++ {
		assert.Less(t, PriorityFor(allStates[i-1]), PriorityFor(allStates[i]),
			"%s should sort before %s", allStates[i-1], allStates[i])
	}
}

func TestCanBeCancelled(t *testing.T) {
	for _, s := range allStates {
		assert.False(t, CanBeCancelled(s, true), "%s with sales", s)
	}
	assert.True(t, CanBeCancelled(PartiallyScheduled, false))
	assert.True(t, CanBeCancelled(InProgress, false))
	assert.True(t, CanBeCancelled(PendingCashCount, false))
	assert.False(t, CanBeCancelled(Closed, false))
	assert.False(t, CanBeCancelled(Cancelled, false))
}

func TestPredicates(t *testing.T) {
	for _, s := range allStates {
		assert.Equal(t, s == InProgress, CanReceiveSales(s), s.String())
		assert.Equal(t, s == PendingCashCount || s == PendingBalanceAssignment, RequiresAttention(s), s.String())
		assert.Equal(t, s == Cancelled, Terminal(s), s.String())
	}
}

func TestMetadataTableIsComplete(t *testing.T) {
	metas := All()
	require.Len(t, metas, 7)
	seen := map[string]bool{}
	for i, m := range metas {
		assert.Equal(t, i+1, m.Priority)
		assert.NotEmpty(t, m.Color)
		assert.NotEmpty(t, m.TextColor)
		assert.NotEmpty(t, m.Icon)
		assert.False(t, seen[m.Code], "duplicate code %s", m.Code)
		seen[m.Code] = true
		assert.Equal(t, ColorFor(m.State), m.Color)
		assert.Equal(t, TextColorFor(m.State), m.TextColor)
	}
}

func TestParseStateRoundTrip(t *testing.T) {
	for _, s := range allStates {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("FINISHED")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S State `json:"s"`
	}{S: PendingCashCount})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"PENDING_CASH_COUNT"}`, string(b))

	var out struct {
		S State `json:"s"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"s":"closed"}`), &out))
	assert.Equal(t, Closed, out.S)
}

func TestDominant(t *testing.T) {
	assert.Equal(t, State(0), Dominant())
	assert.Equal(t, InProgress, Dominant(Closed, InProgress, PartiallyScheduled))
	assert.Equal(t, PendingCashCount, Dominant(Cancelled, PendingCashCount, FullyScheduled))
	assert.Equal(t, Closed, Dominant(Closed, State(99)))
}
