package task

// Idle is the ordinal reported when an entity holds no task.
const Idle = -1

// Tasking is the per-entity scheduler state: one score slot per task ordinal and
// the current task. The zero value is Idle with no recorded scores.
type Tasking struct {
	scores   []float64
	recorded []bool
	// current is ordinal+1 so the zero value means Idle.
	current int
}

// Record stores the score of task ordinal for this tick.
func (t *Tasking) Record(ordinal int, score float64) {
	if ordinal >= len(t.scores) {
		grow := ordinal + 1 - len(t.scores)
		t.scores = append(t.scores, make([]float64, grow)...)
		t.recorded = append(t.recorded, make([]bool, grow)...)
	}
	t.scores[ordinal] = score
	t.recorded[ordinal] = true
}

// Score returns the recorded score of ordinal, if any.
func (t *Tasking) Score(ordinal int) (float64, bool) {
	if ordinal < 0 || ordinal >= len(t.scores) || !t.recorded[ordinal] {
		return 0, false
	}
	return t.scores[ordinal], true
}

// Current returns the ordinal of the active task, or (Idle, false).
func (t *Tasking) Current() (int, bool) {
	if t.current == 0 {
		return Idle, false
	}
	return t.current - 1, true
}

func (t *Tasking) setCurrent(ordinal int) { t.current = ordinal + 1 }

func (t *Tasking) clearScores() {
	for i := range t.recorded {
		t.recorded[i] = false
	}
}
