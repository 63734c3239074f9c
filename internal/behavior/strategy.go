package behavior

import (
	"time"

	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/location"
	"github.com/phobos/squadai/internal/task"
	"github.com/phobos/squadai/internal/world"
)

const (
	GotoObjectiveStrategyName       = "goto_objective"
	gotoObjectiveStrategyHysteresis = 0.25
	gotoObjectiveStrategyScore      = 0.5
)

// GotoObjectiveStrategy keeps every squad working on a location. Once all
// members are done with the current one it hands the location back and asks
// for the next one near the leader.
type GotoObjectiveStrategy struct {
	task.Base[*world.Squad]
	squads    *world.SquadData
	agents    *world.AgentData
	locations *location.System
	log       *zap.Logger
}

func NewGotoObjectiveStrategy(squads *world.SquadData, agents *world.AgentData, locations *location.System, log *zap.Logger) *GotoObjectiveStrategy {
	return &GotoObjectiveStrategy{
		Base:      task.NewBase[*world.Squad](GotoObjectiveStrategyName, gotoObjectiveStrategyHysteresis),
		squads:    squads,
		agents:    agents,
		locations: locations,
		log:       log,
	}
}

func (g *GotoObjectiveStrategy) UpdateScore(ordinal int, squads []*world.Squad) {
	for _, sq := range squads {
		sq.Tasking().Record(ordinal, gotoObjectiveStrategyScore)
	}
}

func (g *GotoObjectiveStrategy) Update(time.Duration) {
	for _, sq := range g.Active() {
		obj, ok := g.squads.Objectives.Get(sq.ID())
		if !ok {
			continue
		}
		if g.propagate(sq, obj) < sq.Size() && obj.Location != nil {
			continue
		}
		g.advance(sq, obj)
	}
}

// propagate hands the squad objective to every member and counts the members
// that are finished with it.
func (g *GotoObjectiveStrategy) propagate(sq *world.Squad, obj *world.SquadObjective) int {
	finished := 0
	for _, m := range sq.Members.Items() {
		mo, ok := g.agents.Objectives.Get(m.ID())
		if !ok {
			continue
		}
		if mo.Location != obj.Location {
			mo.Location = obj.Location
			mo.Status = world.ObjectiveSuspended
		}
		if obj.Location == nil {
			continue
		}
		if mo.Status == world.ObjectiveFailed || obj.Location.Contains(m.Position) {
			finished++
		}
	}
	return finished
}

func (g *GotoObjectiveStrategy) advance(sq *world.Squad, obj *world.SquadObjective) {
	if sq.Leader == nil {
		return
	}
	if obj.Location != nil {
		g.locations.Return(sq.ID())
	}

	loc, ok := g.locations.RequestNear(sq.ID(), sq.Leader.Position, obj.Previous)
	if !ok {
		obj.Location = nil
		obj.State = world.SquadObjectiveWait
		return
	}
	if obj.Location != nil {
		obj.Previous = obj.Location
	}
	obj.Location = loc
	obj.State = world.SquadObjectiveActive
	g.log.Debug("squad objective assigned",
		zap.Int("squad", int(sq.ID())),
		zap.Stringer("location", loc),
	)
	g.propagate(sq, obj)
}
