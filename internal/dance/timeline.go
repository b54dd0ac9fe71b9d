// Package dance parses choreography timelines and answers per-second lookups.
//
// A timeline is written as steps separated by ';'. Each step is
// "<seconds>:<states>" where states is a ','-separated list of tokens,
// one per pin index. The token "1" means on, anything else means off.
// Step durations accumulate, so "20:0,1,0;30:1,1" fires at 20s and 50s.
package dance

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Grammar delimiters.
const (
	StepSeparator  = ";"
	FieldSeparator = ":"
	StateSeparator = ","
	OnToken        = "1"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("invalid dance")

// ParseError describes a malformed step.
type ParseError struct {
	Step   int    // zero-based step index
	Text   string // raw step text
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("dance step %d %q: %s", e.Step, e.Text, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Step is one scheduled entry.
type Step struct {
	At     int    // cumulative seconds
	States []bool // one per pin index
}

// Timeline maps cumulative elapsed seconds to pin state vectors.
// It is immutable once parsed.
type Timeline struct {
	steps map[int][]bool
}

// Parse builds a Timeline from spec. An empty spec yields an empty timeline.
// Steps whose cumulative second collides with an earlier one replace it.
func Parse(spec string) (*Timeline, error) {
	t := &Timeline{steps: make(map[int][]bool)}
	if strings.TrimSpace(spec) == "" {
		return t, nil
	}

	total := 0
	for i, raw := range strings.Split(spec, StepSeparator) {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		durText, statesText, ok := strings.Cut(text, FieldSeparator)
		if !ok {
			return nil, &ParseError{Step: i, Text: text, Reason: "missing " + strconv.Quote(FieldSeparator)}
		}

		secs, err := strconv.Atoi(strings.TrimSpace(durText))
		if err != nil {
			return nil, &ParseError{Step: i, Text: text, Reason: "duration is not a number", Err: err}
		}
		if secs < 0 {
			return nil, &ParseError{Step: i, Text: text, Reason: "duration is negative"}
		}

		total += secs
		t.steps[total] = parseStates(statesText)
	}

	return t, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(spec string) *Timeline {
	t, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func parseStates(s string) []bool {
	tokens := strings.Split(s, StateSeparator)
	states := make([]bool, len(tokens))
	for i, tok := range tokens {
		states[i] = strings.TrimSpace(tok) == OnToken
	}
	return states
}

// Lookup returns the state vector scheduled at exactly sec.
// The second result is false when nothing is due.
func (t *Timeline) Lookup(sec int) ([]bool, bool) {
	if t == nil {
		return nil, false
	}
	states, ok := t.steps[sec]
	if !ok {
		return nil, false
	}
	return slices.Clone(states), true
}

// Len returns the number of scheduled entries.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.steps)
}

// Steps returns all entries ordered by time.
func (t *Timeline) Steps() []Step {
	if t == nil {
		return nil
	}
	steps := make([]Step, 0, len(t.steps))
	for at, states := range t.steps {
		steps = append(steps, Step{At: at, States: slices.Clone(states)})
	}
	slices.SortFunc(steps, func(a, b Step) int { return a.At - b.At })
	return steps
}

// End returns the time of the last entry, or 0 for an empty timeline.
func (t *Timeline) End() int {
	end := 0
	if t == nil {
		return end
	}
	for at := range t.steps {
		end = max(end, at)
	}
	return end
}

// Width returns the longest state vector in the timeline.
func (t *Timeline) Width() int {
	w := 0
	if t == nil {
		return w
	}
	for _, states := range t.steps {
		w = max(w, len(states))
	}
	return w
}

// String renders the timeline back into its compact form using cumulative
// times converted to per-step durations.
func (t *Timeline) String() string {
	var b strings.Builder
	prev := 0
	for i, step := range t.Steps() {
		if i > 0 {
			b.WriteString(StepSeparator)
		}
		b.WriteString(strconv.Itoa(step.At - prev))
		b.WriteString(FieldSeparator)
		for j, on := range step.States {
			if j > 0 {
				b.WriteString(StateSeparator)
			}
			if on {
				b.WriteString(OnToken)
			} else {
				b.WriteString("0")
			}
		}
		prev = step.At
	}
	return b.String()
}
