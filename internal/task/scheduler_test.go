package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAgent struct {
	name     string
	tasking  Tasking
	disabled bool
}

func (a *fakeAgent) Tasking() *Tasking { return &a.tasking }
func (a *fakeAgent) Eligible() bool    { return !a.disabled }

type fixedTask struct {
	Base[*fakeAgent]
	scores        map[*fakeAgent]float64
	activations   int
	deactivations int
	updates       int
	updatedActive []int
}

func newFixedTask(name string, hysteresis float64) *fixedTask {
	return &fixedTask{
		Base:   NewBase[*fakeAgent](name, hysteresis),
		scores: make(map[*fakeAgent]float64),
	}
}

func (f *fixedTask) UpdateScore(ordinal int, entities []*fakeAgent) {
	for _, e := range entities {
		if score, ok := f.scores[e]; ok {
			e.Tasking().Record(ordinal, score)
		}
	}
}

func (f *fixedTask) Activate(e *fakeAgent) {
	f.Base.Activate(e)
	f.activations++
}

func (f *fixedTask) Deactivate(e *fakeAgent) {
	if f.IsActive(e) {
		f.deactivations++
	}
	f.Base.Deactivate(e)
}

func (f *fixedTask) Update(time.Duration) {
	f.updates++
	f.updatedActive = append(f.updatedActive, len(f.Active()))
}

func newScheduler(t *testing.T, tasks ...*fixedTask) *Scheduler[*fakeAgent] {
	t.Helper()
	s := NewScheduler[*fakeAgent]("test", zap.NewNop(), nil)
	for i, task := range tasks {
		ordinal, err := s.Register(task)
		require.NoError(t, err)
		require.Equal(t, i, ordinal)
	}
	return s
}

func currentName(s *Scheduler[*fakeAgent], e *fakeAgent) string {
	cur, ok := s.Current(e)
	if !ok {
		return ""
	}
	return cur.Name()
}

func TestHighestScoreWins(t *testing.T) {
	a, b := newFixedTask("a", 0), newFixedTask("b", 0)
	s := newScheduler(t, a, b)
	e := &fakeAgent{name: "e"}

	a.scores[e], b.scores[e] = 0.3, 0.7
	s.Tick([]*fakeAgent{e}, time.Millisecond)
	assert.Equal(t, "b", currentName(s, e))
	assert.True(t, b.IsActive(e))
	assert.False(t, a.IsActive(e))
}

func TestHysteresisHoldsCurrentTask(t *testing.T) {
	for _, tc := range []struct {
		name       string
		hysteresis float64
		want       string
	}{
		{"exact margin keeps current", 0.02, "a"},
		{"wide margin keeps current", 0.1, "a"},
		{"narrow margin switches", 0.019, "b"},
		{"no hysteresis switches", 0, "b"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// b registered first so ordinal order cannot favour a.
			b, a := newFixedTask("b", 0), newFixedTask("a", tc.hysteresis)
			s := newScheduler(t, b, a)
			e := &fakeAgent{name: "e"}

			a.scores[e] = 1
			s.Tick([]*fakeAgent{e}, 0)
			require.Equal(t, "a", currentName(s, e))

			a.scores[e], b.scores[e] = 0.50, 0.52
			s.Tick([]*fakeAgent{e}, 0)
			assert.Equal(t, tc.want, currentName(s, e))
		})
	}
}

func TestEmptySelectionKeepsState(t *testing.T) {
	a := newFixedTask("a", 0)
	s := newScheduler(t, a)
	e := &fakeAgent{name: "e"}

	a.scores[e] = 0.4
	s.Tick([]*fakeAgent{e}, 0)
	require.Equal(t, "a", currentName(s, e))

	delete(a.scores, e)
	s.Tick([]*fakeAgent{e}, 0)
	assert.Equal(t, "a", currentName(s, e))
	assert.Equal(t, 1, a.activations)
	assert.Equal(t, 0, a.deactivations)
}

func TestIdleEntityWithNoCandidates(t *testing.T) {
	a := newFixedTask("a", 0)
	s := newScheduler(t, a)
	e := &fakeAgent{name: "e"}

	s.Tick([]*fakeAgent{e}, 0)
	_, ok := s.Current(e)
	assert.False(t, ok)
	ordinal, ok := e.Tasking().Current()
	assert.False(t, ok)
	assert.Equal(t, Idle, ordinal)
}

func TestScoresClearedAfterSelect(t *testing.T) {
	a := newFixedTask("a", 0)
	s := newScheduler(t, a)
	e := &fakeAgent{name: "e"}

	a.scores[e] = 0.4
	s.Tick([]*fakeAgent{e}, 0)
	_, recorded := e.Tasking().Score(0)
	assert.False(t, recorded)
}

func TestSwitchDeactivatesPrevious(t *testing.T) {
	a, b := newFixedTask("a", 0), newFixedTask("b", 0)
	s := newScheduler(t, a, b)
	e := &fakeAgent{name: "e"}

	var switches [][2]string
	s.OnSwitch(func(_ *fakeAgent, from, to string) {
		switches = append(switches, [2]string{from, to})
	})

	a.scores[e] = 1
	s.Tick([]*fakeAgent{e}, 0)
	a.scores[e], b.scores[e] = 0, 1
	s.Tick([]*fakeAgent{e}, 0)

	assert.Equal(t, 1, a.deactivations)
	assert.Equal(t, 1, b.activations)
	assert.Empty(t, a.Active())
	assert.Equal(t, [][2]string{{"", "a"}, {"a", "b"}}, switches)
}

func TestUpdateRunsAfterSelectOverActiveSet(t *testing.T) {
	a, b := newFixedTask("a", 0), newFixedTask("b", 0)
	s := newScheduler(t, a, b)
	e1, e2, e3 := &fakeAgent{name: "1"}, &fakeAgent{name: "2"}, &fakeAgent{name: "3"}

	a.scores[e1], a.scores[e2], b.scores[e3] = 1, 1, 1
	s.Tick([]*fakeAgent{e1, e2, e3}, 0)

	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 1, b.updates)
	assert.Equal(t, []int{2}, a.updatedActive)
	assert.Equal(t, []int{1}, b.updatedActive)
}

func TestIneligibleEntityForcedIdle(t *testing.T) {
	a := newFixedTask("a", 0)
	s := newScheduler(t, a)
	e := &fakeAgent{name: "e"}

	a.scores[e] = 1
	s.Tick([]*fakeAgent{e}, 0)
	require.True(t, a.IsActive(e))

	e.disabled = true
	s.Tick([]*fakeAgent{e}, 0)
	assert.False(t, a.IsActive(e))
	_, ok := s.Current(e)
	assert.False(t, ok)

	e.disabled = false
	s.Tick([]*fakeAgent{e}, 0)
	assert.True(t, a.IsActive(e))
}

func TestRemoveEntity(t *testing.T) {
	a, b := newFixedTask("a", 0), newFixedTask("b", 0)
	s := newScheduler(t, a, b)
	e := &fakeAgent{name: "e"}

	// Idle entity: no hooks fire.
	s.RemoveEntity(e)
	assert.Equal(t, 0, a.deactivations+b.deactivations)

	a.scores[e] = 1
	s.Tick([]*fakeAgent{e}, 0)
	s.RemoveEntity(e)
	assert.Equal(t, 1, a.deactivations)
	assert.False(t, a.IsActive(e))
	_, ok := s.Current(e)
	assert.False(t, ok)
}

func TestRegistrationClosedAfterFirstTick(t *testing.T) {
	s := newScheduler(t, newFixedTask("a", 0))
	s.Tick(nil, 0)

	_, err := s.Register(newFixedTask("late", 0))
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestSwitchLoggedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewScheduler[*fakeAgent]("action", zap.New(core), nil)
	a := newFixedTask("goto", 0)
	_, err := s.Register(a)
	require.NoError(t, err)

	e := &fakeAgent{name: "e"}
	a.scores[e] = 1
	s.Tick([]*fakeAgent{e}, 0)

	entries := logs.FilterMessage("task switch").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "goto", entries[0].ContextMap()["to"])
	assert.Equal(t, "action", entries[0].ContextMap()["scheduler"])
}

func TestBaseActiveSetDeduplicates(t *testing.T) {
	b := NewBase[int]("b", 0)
	b.Activate(1)
	b.Activate(1)
	b.Activate(2)
	assert.Len(t, b.Active(), 2)

	b.Deactivate(3)
	b.Deactivate(1)
	b.Deactivate(1)
	assert.Equal(t, []int{2}, b.Active())
}
