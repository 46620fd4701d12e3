package fattree

// fattree.go defines the FatTreeTopology type, its construction entry
// points, the addressing layer, and the query surface the simulation
// runtime consults while it runs.
//
// A topology is built once, synchronously.  After construction the
// switch/queue/pipe graph never changes; the only mutable state is the
// failed-link set, guarded by its own mutex so that failure injection and
// path enumeration always observe a consistent snapshot.

import (
	"fmt"
	"sync"

	"github.com/iti/rngstream"
)

// FatTreeTopology owns every entity of one wired fat tree and answers all
// addressing, shape, and path queries against it
type FatTreeTopology struct {
	cfg TierConfig    // private copy, immutable after construction
	prm derivedParams

	// entity arenas.  Everything else holds indices into these
	switches []Switch
	queues   []Queue
	pipes    []Pipe

	// link id collections, uplink direction.  A link id addresses both
	// the queue and the pipe of one bundle member in one direction
	upHostTor [][]int   // [tor][host offset within tor]
	upTorAgg  [][][]int // [tor][agg offset within pod][member], 3-tier
	upTorCore [][][]int // [tor][spine][member], 2-tier
	upAggCore [][][]int // [agg][core][member], 3-tier
	upSnCore  [][]int   // [core][member], supernode to core, 3-tier

	// link id collections, downlink direction
	dnTorHost [][]int
	dnAggTor  [][][]int // [agg][tor offset within pod][member]
	dnCoreTor [][][]int // [spine][tor][member], 2-tier
	dnCoreAgg [][][]int // [core][agg][member], 3-tier
	dnCoreSn  [][]int   // [core][member], core to supernode

	// failed-link records, keyed structurally so they stay valid across
	// rebuilds with identical parameters
	fmu    sync.Mutex
	failed map[linkKey]bool

	logger   BuildLogger
	provider QueueMethodProvider
}

// CreateFatTreeTopology validates the configuration, derives the topology
// shape for noOfNodes hosts, and wires the complete switch/queue/pipe
// graph.  The logger receives every created entity; the provider supplies
// the discipline implementation behind each queue's tag.  Both may be nil.
// A configuration error aborts construction before anything is allocated
// and never yields a partially wired instance
func CreateFatTreeTopology(tcfg *TierConfig, noOfNodes uint32,
	logger BuildLogger, provider QueueMethodProvider) (*FatTreeTopology, error) {

	err := tcfg.validate()
	if err != nil {
		return nil, err
	}

	prm, err := deriveParams(noOfNodes, tcfg)
	if err != nil {
		return nil, err
	}

	top := new(FatTreeTopology)
	top.cfg = *tcfg
	top.prm = prm
	top.failed = make(map[linkKey]bool)
	top.logger = logger
	top.provider = provider

	top.allocate()
	top.wire()

	return top, nil
}

// CreateFatTreeTopologyWithFailures builds a topology and then marks
// failedLinks randomly chosen ToR uplink bundle members as down, drawing
// from the named random number stream so experiments are reproducible
func CreateFatTreeTopologyWithFailures(tcfg *TierConfig, noOfNodes uint32,
	logger BuildLogger, provider QueueMethodProvider,
	failedLinks uint32, rngName string) (*FatTreeTopology, error) {

	top, err := CreateFatTreeTopology(tcfg, noOfNodes, logger, provider)
	if err != nil {
		return nil, err
	}

	err = top.failRandomLinks(failedLinks, rngstream.New(rngName))
	if err != nil {
		return nil, err
	}

	return top, nil
}

// checkHost panics when a host id is out of range for this topology.  The
// supernode id (equal to the regular host count) is valid only with three
// tiers
func (top *FatTreeTopology) checkHost(host uint32) {
	if host < top.prm.nSrv {
		return
	}
	if host == top.prm.nSrv && top.cfg.tiers == 3 {
		return
	}
	panic(fmt.Errorf("host id %d out of range for %d-host topology", host, top.prm.nSrv))
}

// IsSupernode reports whether a node id names the supernode.  Only a
// 3-tier topology carries one
func (top *FatTreeTopology) IsSupernode(nodeID uint32) bool {
	return top.cfg.tiers == 3 && nodeID == top.prm.nSrv
}

// SupernodeID returns the node id of the supernode, which by construction
// is the regular host count
func (top *FatTreeTopology) SupernodeID() uint32 {
	return top.prm.nSrv
}

// HostPodSwitch returns the ToR switch id a host hangs off.  The supernode
// is assigned the last ToR index purely as a convention for generic code
// paths; its only real connectivity is the per-core bundle set
func (top *FatTreeTopology) HostPodSwitch(host uint32) uint32 {
	top.checkHost(host)
	if top.IsSupernode(host) {
		return top.prm.nTor - 1
	}
	return host / top.prm.hostsPerTor
}

// HostPod returns the pod a host belongs to.  The supernode maps to the
// last pod by the same convention.  A 2-tier topology has a single pod
func (top *FatTreeTopology) HostPod(host uint32) uint32 {
	top.checkHost(host)
	if top.IsSupernode(host) {
		return top.prm.nPod - 1
	}
	if top.cfg.tiers == 3 {
		return host / top.prm.hostsPerPod
	}
	return 0
}

// HostPodID returns the host's index within its pod
func (top *FatTreeTopology) HostPodID(host uint32) uint32 {
	top.checkHost(host)
	if top.cfg.tiers == 3 {
		return host % top.prm.hostsPerPod
	}
	return host
}

// checkPod panics when a pod id is out of range
func (top *FatTreeTopology) checkPod(pod uint32) {
	if pod >= top.prm.nPod {
		panic(fmt.Errorf("pod id %d out of range for %d pods", pod, top.prm.nPod))
	}
}

// MinPodTorSwitch returns the smallest ToR switch id belonging to a pod
func (top *FatTreeTopology) MinPodTorSwitch(pod uint32) uint32 {
	top.checkPod(pod)
	return pod * top.prm.torSwitchesPerPod
}

// MaxPodTorSwitch returns the largest ToR switch id belonging to a pod
func (top *FatTreeTopology) MaxPodTorSwitch(pod uint32) uint32 {
	top.checkPod(pod)
	return (pod+1)*top.prm.torSwitchesPerPod - 1
}

// MinPodAggSwitch returns the smallest Agg switch id belonging to a pod
func (top *FatTreeTopology) MinPodAggSwitch(pod uint32) uint32 {
	top.checkPod(pod)
	return pod * top.prm.aggSwitchesPerPod
}

// MaxPodAggSwitch returns the largest Agg switch id belonging to a pod
func (top *FatTreeTopology) MaxPodAggSwitch(pod uint32) uint32 {
	top.checkPod(pod)
	return (pod+1)*top.prm.aggSwitchesPerPod - 1
}

// AggSwitchPod is the inverse mapping from an Agg switch id to its pod
func (top *FatTreeTopology) AggSwitchPod(aggID uint32) uint32 {
	if aggID >= top.prm.nAgg {
		panic(fmt.Errorf("Agg switch id %d out of range for %d Agg switches", aggID, top.prm.nAgg))
	}
	return aggID / top.prm.aggSwitchesPerPod
}

// shape and configuration accessors consumed by the simulation runtime

// NoOfNodes returns the regular host count the topology was built for
func (top *FatTreeTopology) NoOfNodes() uint32 { return top.prm.nSrv }

// NoOfServers returns the regular host count, excluding the supernode
func (top *FatTreeTopology) NoOfServers() uint32 { return top.prm.nSrv }

// NoOfCores returns the core (or spine) switch count
func (top *FatTreeTopology) NoOfCores() uint32 { return top.prm.nCore }

// NoOfAggs returns the Agg switch count, zero for a 2-tier topology
func (top *FatTreeTopology) NoOfAggs() uint32 { return top.prm.nAgg }

// NoOfTors returns the ToR switch count
func (top *FatTreeTopology) NoOfTors() uint32 { return top.prm.nTor }

// NoOfPods returns the pod count
func (top *FatTreeTopology) NoOfPods() uint32 { return top.prm.nPod }

// Tiers returns the tier count the topology was built with
func (top *FatTreeTopology) Tiers() uint32 { return top.cfg.tiers }

// TorSwitchesPerPod returns the ToR switch count of one pod
func (top *FatTreeTopology) TorSwitchesPerPod() uint32 { return top.prm.torSwitchesPerPod }

// AggSwitchesPerPod returns the Agg switch count of one pod
func (top *FatTreeTopology) AggSwitchesPerPod() uint32 { return top.prm.aggSwitchesPerPod }

// HostsPerPod returns the host count of one pod
func (top *FatTreeTopology) HostsPerPod() uint32 { return top.prm.hostsPerPod }

// Bundlesize returns the configured bundle width at a tier
func (top *FatTreeTopology) Bundlesize(tier int) uint32 { return top.cfg.bundlesize[tier] }

// RadixUp returns the configured uplink radix at a tier
func (top *FatTreeTopology) RadixUp(tier int) uint32 { return top.cfg.radixUp[tier] }

// RadixDown returns the configured downlink radix at a tier
func (top *FatTreeTopology) RadixDown(tier int) uint32 { return top.cfg.radixDown[tier] }

// QueueUp returns the configured uplink queue capacity at a tier, in bytes
func (top *FatTreeTopology) QueueUp(tier int) int64 { return top.cfg.queueUp[tier] }

// QueueDown returns the configured downlink queue capacity at a tier, in bytes
func (top *FatTreeTopology) QueueDown(tier int) int64 { return top.cfg.queueDown[tier] }

// arena accessors

// QueueByID returns the queue with the given link id
func (top *FatTreeTopology) QueueByID(id int) *Queue {
	return &top.queues[id]
}

// PipeByID returns the pipe with the given link id
func (top *FatTreeTopology) PipeByID(id int) *Pipe {
	return &top.pipes[id]
}

// SwitchByID returns the switch with the given arena id
func (top *FatTreeTopology) SwitchByID(id int) *Switch {
	return &top.switches[id]
}

// switch arena layout: the ToR block is followed by the Agg block and the
// core block

func (top *FatTreeTopology) torSwitch(tor uint32) *Switch {
	return &top.switches[tor]
}

func (top *FatTreeTopology) aggSwitch(agg uint32) *Switch {
	return &top.switches[top.prm.nTor+agg]
}

func (top *FatTreeTopology) coreSwitch(core uint32) *Switch {
	return &top.switches[top.prm.nTor+top.prm.nAgg+core]
}
