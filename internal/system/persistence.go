package system

import (
	"time"

	coresys "github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/persist"
)

// PersistenceSystem hands buffered telemetry to the background writer every
// interval ticks. Phase 5 (Persist).
type PersistenceSystem struct {
	recorder  *persist.Recorder
	tickCount int
	interval  int // flush every N ticks
}

func NewPersistenceSystem(recorder *persist.Recorder, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{recorder: recorder, interval: max(intervalTicks, 1)}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.recorder.Flush()
}
