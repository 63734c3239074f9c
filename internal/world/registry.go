package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/core/ecs"
)

// SoloSquad is the squad key of agents that never share a squad.
const SoloSquad = -1

// SquadRegistry maps host squad keys to squads. It creates a squad for the
// first member of a key and hands back squads that lose their last member.
type SquadRegistry struct {
	squads *SquadData
	byKey  map[int]*Squad
	log    *zap.Logger
}

func NewSquadRegistry(squads *SquadData, log *zap.Logger) *SquadRegistry {
	return &SquadRegistry{
		squads: squads,
		byKey:  make(map[int]*Squad),
		log:    log,
	}
}

// Join puts a into the squad for its key. The first member becomes leader.
func (r *SquadRegistry) Join(a *Agent, targetSize int) (*Squad, error) {
	squad, ok := r.byKey[a.SquadKey]
	if !ok || a.SquadKey == SoloSquad {
		var err error
		squad, err = r.squads.AddEntity(func(id ecs.EntityID) *Squad {
			return NewSquad(id, a.SquadKey, targetSize)
		})
		if err != nil {
			return nil, fmt.Errorf("register squad for key %d: %w", a.SquadKey, err)
		}
		if a.SquadKey != SoloSquad {
			r.byKey[a.SquadKey] = squad
		}
		squad.Leader = a
		a.IsLeader = true
		r.log.Debug("squad registered",
			zap.Int("squad", int(squad.ID())),
			zap.Int("key", a.SquadKey),
			zap.Int("target_size", targetSize),
		)
	}
	squad.Members.Add(a)
	a.Squad = squad
	return squad, nil
}

// Leave takes a out of its squad and promotes a new leader if a led it. It
// returns the squad when a was its last member; the caller tears it down.
func (r *SquadRegistry) Leave(a *Agent) *Squad {
	squad := a.Squad
	if squad == nil {
		return nil
	}
	squad.Members.SwapRemove(a)
	a.Squad = nil
	wasLeader := a.IsLeader
	a.IsLeader = false

	if squad.Size() > 0 {
		if wasLeader {
			next, _ := squad.Members.Last()
			squad.Leader = next
			next.IsLeader = true
			r.log.Debug("squad leader reassigned",
				zap.Int("squad", int(squad.ID())),
				zap.Int("leader", int(next.ID())),
			)
		}
		return nil
	}

	squad.Leader = nil
	if r.byKey[squad.Key] == squad {
		delete(r.byKey, squad.Key)
	}
	r.log.Debug("squad emptied", zap.Int("squad", int(squad.ID())))
	return squad
}

// Lookup returns the squad registered for key.
func (r *SquadRegistry) Lookup(key int) (*Squad, bool) {
	s, ok := r.byKey[key]
	return s, ok
}

func (r *SquadRegistry) Len() int { return len(r.byKey) }
