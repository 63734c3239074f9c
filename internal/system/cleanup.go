package system

import (
	"time"

	"github.com/phobos/squadai/internal/core/ecs"
	coresys "github.com/phobos/squadai/internal/core/system"
)

// DestroyQueue is a dataset with deferred destruction.
type DestroyQueue interface {
	FlushDestroyQueue(remove func(ecs.EntityID))
}

// CleanupSystem flushes the deferred entity destruction queue at tick end,
// handing each id to the owner's teardown. Phase 6 (Cleanup).
type CleanupSystem struct {
	queue  DestroyQueue
	remove func(ecs.EntityID)
}

func NewCleanupSystem(queue DestroyQueue, remove func(ecs.EntityID)) *CleanupSystem {
	return &CleanupSystem{queue: queue, remove: remove}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.queue.FlushDestroyQueue(s.remove)
}
