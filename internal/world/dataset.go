package world

import (
	"github.com/phobos/squadai/internal/core/ecs"
)

// AgentData is the agent dataset with its component stores.
type AgentData struct {
	*ecs.Dataset[*Agent]
	Objectives *ecs.ComponentArray[Objective]
	Movements  *ecs.ComponentArray[Movement]
	Guards     *ecs.ComponentArray[Guard]
}

func NewAgentData(capacity int) (*AgentData, error) {
	d := &AgentData{
		Dataset:    ecs.NewDataset[*Agent]("agents", capacity),
		Objectives: ecs.NewComponentArray[Objective](nil),
		Movements: ecs.NewComponentArray(func(ecs.EntityID) *Movement {
			return &Movement{Speed: 1}
		}),
		Guards: ecs.NewComponentArray[Guard](nil),
	}
	for _, store := range []ecs.Lifecycle{d.Objectives, d.Movements, d.Guards} {
		if err := d.RegisterComponent(store); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SquadData is the squad dataset with its component stores.
type SquadData struct {
	*ecs.Dataset[*Squad]
	Objectives *ecs.ComponentArray[SquadObjective]
}

func NewSquadData(capacity int) (*SquadData, error) {
	d := &SquadData{
		Dataset:    ecs.NewDataset[*Squad]("squads", capacity),
		Objectives: ecs.NewComponentArray[SquadObjective](nil),
	}
	if err := d.RegisterComponent(d.Objectives); err != nil {
		return nil, err
	}
	return d, nil
}
