// Package nav holds the path and world collaborators the core consumes, plus
// the in-process implementations used by the demo host and tests.
package nav

import (
	"github.com/phobos/squadai/internal/geom"
)

type Status int

const (
	StatusPending Status = iota
	StatusValid
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "pending"
	}
}

// Job is an in-flight path request. Status, Corners and Destination are only
// meaningful once IsReady reports true.
type Job interface {
	IsReady() bool
	Status() Status
	Corners() []geom.Vec3
	Destination() geom.Vec3
}

// PathFinder accepts path requests without blocking.
type PathFinder interface {
	Submit(origin, destination geom.Vec3) Job
}

// Walkable answers nearest-walkable-point queries.
type Walkable interface {
	NearestWalkable(pos geom.Vec3, radius float64) (geom.Vec3, bool)
}

// destinationSnap is how far a destination may sit from walkable ground.
const destinationSnap = 1.0

// DeferredPather resolves each job after a fixed number of polls, returning a
// straight-line path. Jobs whose destination is not walkable resolve invalid.
type DeferredPather struct {
	world Walkable
	delay int
}

func NewDeferredPather(world Walkable, delay int) *DeferredPather {
	return &DeferredPather{world: world, delay: max(delay, 0)}
}

func (p *DeferredPather) Submit(origin, destination geom.Vec3) Job {
	return &deferredJob{
		world:       p.world,
		polls:       p.delay,
		origin:      origin,
		destination: destination,
	}
}

type deferredJob struct {
	world       Walkable
	polls       int
	origin      geom.Vec3
	destination geom.Vec3
	status      Status
	corners     []geom.Vec3
}

func (j *deferredJob) IsReady() bool {
	if j.status != StatusPending {
		return true
	}
	if j.polls > 0 {
		j.polls--
		return false
	}
	end, ok := j.world.NearestWalkable(j.destination, destinationSnap)
	if !ok {
		j.status = StatusInvalid
		return true
	}
	j.status = StatusValid
	j.corners = []geom.Vec3{j.origin, end}
	return true
}

func (j *deferredJob) Status() Status         { return j.status }
func (j *deferredJob) Corners() []geom.Vec3   { return j.corners }
func (j *deferredJob) Destination() geom.Vec3 { return j.destination }
