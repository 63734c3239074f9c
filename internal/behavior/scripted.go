package behavior

import (
	"github.com/phobos/squadai/internal/scripting"
	"github.com/phobos/squadai/internal/task"
	"github.com/phobos/squadai/internal/world"
)

// ScriptedAction holds an agent in place while a Lua function scores it.
// The function is named score_<name>; when it is not defined the action
// records nothing and never competes.
type ScriptedAction struct {
	task.Base[*world.Agent]
	engine *scripting.Engine
	fn     string
	agents    *world.AgentData
	observers *world.ObserverIndex
	mover     Mover
}

// NewScriptedAction builds the action. observers may be nil, in which case
// ctx.observed is always zero.
func NewScriptedAction(name string, hysteresis float64, engine *scripting.Engine, agents *world.AgentData, observers *world.ObserverIndex, mover Mover) *ScriptedAction {
	return &ScriptedAction{
		Base:      task.NewBase[*world.Agent](name, hysteresis),
		engine:    engine,
		fn:        "score_" + name,
		agents:    agents,
		observers: observers,
		mover:     mover,
	}
}

func (s *ScriptedAction) UpdateScore(ordinal int, agents []*world.Agent) {
	if !s.engine.Has(s.fn) {
		return
	}
	for _, a := range agents {
		if score, ok := s.engine.Score(s.fn, s.context(a)); ok {
			a.Tasking().Record(ordinal, score)
		}
	}
}

func (s *ScriptedAction) Activate(a *world.Agent) {
	s.Base.Activate(a)
	s.mover.Stop(a)
}

func (s *ScriptedAction) context(a *world.Agent) scripting.ScoreContext {
	ctx := scripting.ScoreContext{
		AgentID: int(a.ID()),
		Leader:  a.IsLeader,
	}
	if a.Squad != nil {
		ctx.SquadSize = a.Squad.Size()
	}
	if obj, ok := s.agents.Objectives.Get(a.ID()); ok && obj.Location != nil {
		ctx.HasObjective = true
		ctx.Inside = obj.Location.Contains(a.Position)
		ctx.DistanceSq = a.Position.DistSq(obj.Location.Position)
	}
	if mv, ok := s.agents.Movements.Get(a.ID()); ok {
		ctx.Moving = mv.Moving()
	}
	if guard, ok := s.agents.Guards.Get(a.ID()); ok {
		ctx.Guarding = guard.Cover != nil
	}
	if s.observers != nil {
		ctx.Observed = len(s.observers.Nearby(a.Position, scripting.ObservedRadius))
	}
	return ctx
}
