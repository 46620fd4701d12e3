package fattree

// net.go contains the data structures that populate a wired topology:
// switches, queues, and pipes, together with the interfaces through which
// external collaborators (statistics logging, queue discipline
// implementations, the event-driven clock) attach to them.
//
// All three entity kinds live in arenas owned by the topology and are
// addressed everywhere else by integer index.  A queue and the pipe that
// carries its traffic downstream are created in lockstep and share one
// index, so a single link id names both halves of a bundle member in one
// direction.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// LinkDirection marks whether a queue or pipe carries traffic toward the
// core (uplink) or toward the hosts (downlink)
type LinkDirection int

const (
	Uplink LinkDirection = iota
	Downlink
)

// linkDirToStr returns a string corresponding to an input LinkDirection
func linkDirToStr(dir LinkDirection) string {
	if dir == Uplink {
		return "up"
	}
	return "down"
}

// A Switch is one forwarding element in a tier.  Its port sets are the
// lists of link ids leaving it in each direction; the bundles those links
// belong to are recovered from the topology's index collections
type Switch struct {
	ID      int    // arena index
	Tier    int    // TorTier, AggTier, or CoreTier
	TierID  uint32 // index of the switch within its tier
	Name    string
	Latency float64 // transit latency in seconds, fixed per tier

	// egress link ids by direction
	UpLinks   []int
	DownLinks []int
}

// A Queue is the directional egress buffer at one endpoint of a bundle
// member.  The topology selects its discipline tag and sizing; the
// scheduling behavior behind the tag belongs to the external provider
type Queue struct {
	ID         int // arena index, shared with the paired Pipe
	Name       string
	Discipline QueueDiscipline
	Capacity   int64  // bytes
	Speed      uint64 // bps
	Dir        LinkDirection
	Tier       int  // tier of the link class this queue serves
	AtTor      bool // true when the queue sits at a ToR switch
	Owner      int  // arena index of the owning switch, -1 for host and supernode egress

	// run-time scheduling implementation matching the discipline tag,
	// nil when no provider was given at construction
	Method QueueMethod
}

// A Pipe is the directional propagation-delay channel paired 1:1 with a
// queue.  Its latency is fixed per tier per direction and is identical for
// every member of a bundle
type Pipe struct {
	ID      int // arena index, shared with the paired Queue
	Name    string
	Latency float64 // seconds
	Dir     LinkDirection
	Tier    int
}

// TransitTime returns the pipe's latency as a virtual time increment
func (pp *Pipe) TransitTime() vrtime.Time {
	return vrtime.SecondsToTime(pp.Latency)
}

// Traverse schedules the arrival of msg at the pipe's downstream entity,
// one propagation delay from now.  The event manager and the arrival
// handler belong to the surrounding simulation
func (pp *Pipe) Traverse(evtMgr *evtm.EventManager, context any, msg any,
	arrive evtm.EventHandlerFunction) {
	evtMgr.Schedule(context, msg, arrive, vrtime.SecondsToTime(pp.Latency))
}

// BuildLogger is the statistics collaborator handed every switch, queue,
// and pipe the wiring engine creates.  What it records is its own business;
// the topology never reads it back
type BuildLogger interface {
	SwitchCreated(swtch *Switch)
	QueueCreated(queue *Queue)
	PipeCreated(pipe *Pipe)
}

// QueueMethod is the externally defined run-time scheduling implementation
// attached to one queue.  The topology only carries it
type QueueMethod interface {
	Discipline() QueueDiscipline
}

// QueueMethodProvider creates the QueueMethod matching a discipline tag for
// a queue about to enter service.  The queue's sizing fields are complete
// when the provider is called
type QueueMethodProvider interface {
	CreateQueueMethod(disc QueueDiscipline, queue *Queue) QueueMethod
}
