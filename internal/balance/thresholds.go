package balance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type thresholdStep struct {
	rounds int
	value  float64
}

// StepTable is a round-count-indexed threshold: the active value is the
// one whose round key is the smallest key still greater than the rounds
// played so far, so thresholds tighten as the match progresses. A flat
// number is a table with a single unbounded step.
type StepTable struct {
	steps     []thresholdStep
	unbounded *float64
}

// ParseStepTable accepts either a flat number ("25") or a comma-separated
// step table ("15:50,30:25" meaning 50 until round 15, then 25 until
// round 30, nothing after). Any parse error yields a disabled table.
func ParseStepTable(spec string) (StepTable, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return StepTable{}, nil
	}

	if !strings.Contains(spec, ":") {
		flat, err := strconv.ParseFloat(spec, 64)
		if err != nil {
			return StepTable{}, fmt.Errorf("parsing flat threshold %q: %w", spec, err)
		}
		return Flat(flat), nil
	}

	var table StepTable
	for _, part := range strings.Split(spec, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return StepTable{}, fmt.Errorf("bad threshold step %q", part)
		}
		rounds, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return StepTable{}, fmt.Errorf("bad round count in step %q: %w", part, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return StepTable{}, fmt.Errorf("bad value in step %q: %w", part, err)
		}
		table.steps = append(table.steps, thresholdStep{rounds: rounds, value: value})
	}
	sort.Slice(table.steps, func(i, j int) bool { return table.steps[i].rounds < table.steps[j].rounds })
	return table, nil
}

// Flat returns a table that yields v regardless of rounds played.
func Flat(v float64) StepTable {
	return StepTable{unbounded: &v}
}

// Active selects the threshold for the given rounds-played count. ok is
// false when no step applies (threshold disabled).
func (t StepTable) Active(roundsPlayed int) (float64, bool) {
	if t.unbounded != nil {
		return *t.unbounded, true
	}
	for _, step := range t.steps {
		if step.rounds > roundsPlayed {
			return step.value, true
		}
	}
	return 0, false
}

// Disabled reports whether the table can never yield a threshold.
func (t StepTable) Disabled() bool {
	return t.unbounded == nil && len(t.steps) == 0
}
