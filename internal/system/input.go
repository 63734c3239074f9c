package system

import (
	"time"

	"github.com/phobos/squadai/internal/core/event"
	coresys "github.com/phobos/squadai/internal/core/system"
)

// InputSystem delivers the host events emitted since the previous tick to
// their subscribers. Phase 0 (Input).
type InputSystem struct {
	bus *event.Bus
}

func NewInputSystem(bus *event.Bus) *InputSystem {
	return &InputSystem{bus: bus}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
