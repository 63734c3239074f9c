package behavior

import (
	"math/rand/v2"
	"time"

	"github.com/phobos/squadai/internal/task"
	"github.com/phobos/squadai/internal/world"
)

const (
	GuardName       = "guard"
	guardHysteresis = 0.05
	guardScore      = 0.6

	// DefaultGuardWatch is how long an agent holds one cover point.
	DefaultGuardWatch = 15 * time.Second
)

// GuardAction holds an agent inside its objective, rotating between the
// location's cover points.
type GuardAction struct {
	task.Base[*world.Agent]
	agents *world.AgentData
	mover  Mover
	rng    *rand.Rand
	watch  time.Duration
}

func NewGuardAction(agents *world.AgentData, mover Mover, rng *rand.Rand, watch time.Duration) *GuardAction {
	if watch <= 0 {
		watch = DefaultGuardWatch
	}
	return &GuardAction{
		Base:   task.NewBase[*world.Agent](GuardName, guardHysteresis),
		agents: agents,
		mover:  mover,
		rng:    rng,
		watch:  watch,
	}
}

func (g *GuardAction) UpdateScore(ordinal int, agents []*world.Agent) {
	for _, a := range agents {
		score := 0.0
		if obj, ok := g.agents.Objectives.Get(a.ID()); ok && obj.Location != nil && obj.Location.Contains(a.Position) {
			score = guardScore
		}
		a.Tasking().Record(ordinal, score)
	}
}

func (g *GuardAction) Activate(a *world.Agent) {
	g.Base.Activate(a)
	g.pick(a)
}

func (g *GuardAction) Deactivate(a *world.Agent) {
	g.Base.Deactivate(a)
	if guard, ok := g.agents.Guards.Get(a.ID()); ok {
		*guard = world.Guard{}
	}
}

func (g *GuardAction) Update(dt time.Duration) {
	for _, a := range g.Active() {
		guard, ok := g.agents.Guards.Get(a.ID())
		if !ok {
			continue
		}
		guard.Watch -= dt
		if guard.Watch <= 0 {
			g.pick(a)
		}
	}
}

// pick moves a to a random cover point of its objective and restarts the watch.
func (g *GuardAction) pick(a *world.Agent) {
	guard, ok := g.agents.Guards.Get(a.ID())
	if !ok {
		return
	}
	guard.Watch = g.watch

	obj, ok := g.agents.Objectives.Get(a.ID())
	if !ok || obj.Location == nil || len(obj.Location.Cover) == 0 {
		guard.Cover = nil
		g.mover.Stop(a)
		return
	}
	guard.Cover = &obj.Location.Cover[g.rng.IntN(len(obj.Location.Cover))]
	g.mover.MoveTo(a, guard.Cover.Position)
}
