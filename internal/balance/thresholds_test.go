package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepTableFlat(t *testing.T) {
	table, err := ParseStepTable("25")
	require.NoError(t, err)

	for _, rounds := range []int{0, 10, 1000} {
		got, ok := table.Active(rounds)
		require.True(t, ok)
		assert.Equal(t, 25.0, got)
	}
}

func TestParseStepTableSteps(t *testing.T) {
	table, err := ParseStepTable("15:50,30:25")
	require.NoError(t, err)

	tests := []struct {
		name   string
		rounds int
		want   float64
		ok     bool
	}{
		{name: "match start uses loosest step", rounds: 0, want: 50, ok: true},
		{name: "just below first key", rounds: 14, want: 50, ok: true},
		{name: "at first key tightens", rounds: 15, want: 25, ok: true},
		{name: "just below second key", rounds: 29, want: 25, ok: true},
		{name: "past every key disables", rounds: 30, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Active(tt.rounds)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseStepTableMisparse(t *testing.T) {
	tests := []string{"abc", "15:xyz", "a:50", "15-50"}
	for _, spec := range tests {
		t.Run(spec, func(t *testing.T) {
			table, err := ParseStepTable(spec)
			assert.Error(t, err)
			assert.True(t, table.Disabled())
		})
	}
}

func TestParseStepTableEmpty(t *testing.T) {
	table, err := ParseStepTable("")
	require.NoError(t, err)
	assert.True(t, table.Disabled())

	_, ok := table.Active(0)
	assert.False(t, ok)
}
