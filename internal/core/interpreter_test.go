package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/rovercore/internal/core"
)

func TestDefaultTable_Order(t *testing.T) {
	rules := core.DefaultTable().Rules()
	got := make([]string, 0, len(rules))
	for _, r := range rules {
		got = append(got, r.From.String()+" "+core.FormatEvents(r.On)+" "+r.To.String())
	}
	assert.Equal(t, []string{
		"IDLE start ACTIVE",
		"ACTIVE obstacle AVOIDING",
		"ACTIVE stop IDLE",
		"ACTIVE low-battery IDLE",
		"AVOIDING obstacle-clear IDLE",
		"AVOIDING start ACTIVE",
	}, got)
}

func TestTable_FirstMatchWins(t *testing.T) {
	tbl := core.DefaultTable()

	r, ok := tbl.Match(core.StateActive, core.EvLowBattery|core.EvStop)
	require.True(t, ok)
	assert.Equal(t, core.EvStop, r.On)

	_, ok = tbl.Match(core.StateFault, core.AllEvents)
	assert.False(t, ok)

	_, ok = tbl.Match(core.State(42), core.AllEvents)
	assert.False(t, ok)
}

func TestTableBuilder_RejectsBadRules(t *testing.T) {
	_, err := core.NewTableBuilder().
		From(core.StateIdle).
		On(0, core.StateActive, "empty").
		On(1<<20, core.StateActive, "unknown bit").
		On(core.EvStart, core.State(9), "bad target").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty event set")
	assert.Contains(t, err.Error(), "unknown event bits")
	assert.Contains(t, err.Error(), "invalid target state")
}

func TestTableBuilder_CustomTable(t *testing.T) {
	tbl, err := core.NewTableBuilder().
		From(core.StateIdle).
		On(core.EvDockFound, core.StateActive, "dock").
		Build()
	require.NoError(t, err)

	m := core.NewMachine(core.WithTable(tbl))
	drive(t, m, core.EvStart)
	assert.Equal(t, core.StateIdle, m.State())
	drive(t, m, core.EvDockFound)
	assert.Equal(t, core.StateActive, m.State())
}

func TestState_TextRoundTrip(t *testing.T) {
	s, err := core.ParseState("avoiding")
	require.NoError(t, err)
	assert.Equal(t, core.StateAvoiding, s)

	_, err = core.ParseState("DOCKING")
	assert.Error(t, err)

	_, err = core.State(7).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "State(7)", core.State(7).String())
}

func TestParseEvent(t *testing.T) {
	ev, err := core.ParseEvent("Obstacle-Clear")
	require.NoError(t, err)
	assert.Equal(t, core.EvObstacleClear, ev)

	_, err = core.ParseEvent("warp")
	assert.Error(t, err)

	assert.Equal(t, "start|low-battery", core.FormatEvents(core.EvStart|core.EvLowBattery))
	assert.Equal(t, "none", core.FormatEvents(0))
}
