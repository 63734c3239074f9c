package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput    Phase = iota // 0: drain host events (spawn, despawn, observers)
	PhaseSense                 // 1: refresh observer-driven fields
	PhaseStrategy              // 2: squad strategies
	PhaseAction                // 3: agent actions
	PhaseMovement              // 4: poll path jobs, advance movement
	PhasePersist               // 5: telemetry flush
	PhaseCleanup               // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseSense:
		return "sense"
	case PhaseStrategy:
		return "strategy"
	case PhaseAction:
		return "action"
	case PhaseMovement:
		return "movement"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every tick-driven system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
