package fattree

// routes.go enumerates the valid up-down paths between two hosts.  A path
// ascends from the source to a common ancestor tier and descends to the
// destination with at most one direction change; the full cartesian
// combination of non-failed intermediate choices is returned, which is what
// gives the fat tree its multipath property for the external path selector.
//
// Enumeration walks the index collections in increasing index order, so the
// returned route set is deterministic for a fixed wiring and failure state,
// and no combination is produced twice.
//
// The file also carries a structural connectivity audit built on the gonum
// graph package: the wired device graph is handed to Dijkstra and every
// host must be reachable from every other.

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// A Route is one concrete up-down path between two hosts, expressed as the
// ordered link ids of its bundle-member segments.  Link id i addresses both
// the queue and the pipe of the segment.  A route between a host and itself
// has no segments
type Route struct {
	Src   uint32
	Dst   uint32
	Links []int

	// the mirrored dst-to-src route, populated when the enumeration was
	// asked for bidirectional results
	Reverse *Route
}

// NumSegments returns the number of bundle-member segments on the route
func (rt *Route) NumSegments() int {
	return len(rt.Links)
}

// Latency returns the end-to-end propagation latency of the route: the sum
// of its pipe latencies plus the transit latency of every switch crossed
func (top *FatTreeTopology) Latency(rt *Route) float64 {
	total := 0.0
	for _, link := range rt.Links {
		total += top.pipes[link].Latency
		owner := top.queues[link].Owner
		if owner >= 0 {
			total += top.switches[owner].Latency
		}
	}
	return total
}

// addRoute appends one enumerated combination, mirroring it when the caller
// asked for bidirectional routes
func addRoute(routes []*Route, src, dst uint32, links, revLinks []int, includeReverse bool) []*Route {
	rt := &Route{Src: src, Dst: dst, Links: links}
	if includeReverse {
		rt.Reverse = &Route{Src: dst, Dst: src, Links: revLinks}
	}
	return append(routes, rt)
}

// Paths returns every valid up-down path from src to dst that avoids failed
// bundle members, in a deterministic order.  With includeReverse set, each
// route carries its dst-to-src mirror.  An empty (non-nil) result reports
// total disconnection, which is a valid network condition and not an error.
// A host id out of range panics
func (top *FatTreeTopology) Paths(src, dst uint32, includeReverse bool) []*Route {
	top.checkHost(src)
	top.checkHost(dst)

	// hold the failure set for the whole enumeration so one query never
	// observes a half-applied failure update
	top.fmu.Lock()
	defer top.fmu.Unlock()

	routes := make([]*Route, 0)

	if src == dst {
		routes = addRoute(routes, src, dst, []int{}, []int{}, includeReverse)
		return routes
	}

	if top.cfg.tiers == 2 {
		return top.paths2Tier(routes, src, dst, includeReverse)
	}

	if top.IsSupernode(src) {
		return top.pathsFromSupernode(routes, dst, includeReverse)
	}
	if top.IsSupernode(dst) {
		return top.pathsToSupernode(routes, src, includeReverse)
	}
	return top.paths3Tier(routes, src, dst, includeReverse)
}

// paths3Tier enumerates routes between two regular hosts of a 3-tier
// topology.  Hosts under one ToR meet there; hosts sharing a pod
// short-circuit through that pod's Agg tier and never touch the core
func (top *FatTreeTopology) paths3Tier(routes []*Route, src, dst uint32, includeReverse bool) []*Route {
	prm := &top.prm
	bwA := top.cfg.bundlesize[AggTier]
	bwC := top.cfg.bundlesize[CoreTier]

	srcTor := src / prm.hostsPerTor
	dstTor := dst / prm.hostsPerTor
	srcUp := top.upHostTor[srcTor][src%prm.hostsPerTor]
	srcDn := top.dnTorHost[srcTor][src%prm.hostsPerTor]
	dstUp := top.upHostTor[dstTor][dst%prm.hostsPerTor]
	dstDn := top.dnTorHost[dstTor][dst%prm.hostsPerTor]

	if srcTor == dstTor {
		return addRoute(routes, src, dst,
			[]int{srcUp, dstDn}, []int{dstUp, srcDn}, includeReverse)
	}

	srcPod := src / prm.hostsPerPod
	dstPod := dst / prm.hostsPerPod
	srcTorOff := srcTor % prm.torSwitchesPerPod
	dstTorOff := dstTor % prm.torSwitchesPerPod

	if srcPod == dstPod {
		for a := uint32(0); a < prm.aggSwitchesPerPod; a++ {
			agg := srcPod*prm.aggSwitchesPerPod + a
			for m1 := uint32(0); m1 < bwA; m1++ {
				if !top.linkUpLocked(TorTier, srcTor, a*bwA+m1) {
					continue
				}
				for m2 := uint32(0); m2 < bwA; m2++ {
					if !top.linkUpLocked(TorTier, dstTor, a*bwA+m2) {
						continue
					}
					links := []int{srcUp,
						top.upTorAgg[srcTor][a][m1],
						top.dnAggTor[agg][dstTorOff][m2],
						dstDn}
					rev := []int{dstUp,
						top.upTorAgg[dstTor][a][m2],
						top.dnAggTor[agg][srcTorOff][m1],
						srcDn}
					routes = addRoute(routes, src, dst, links, rev, includeReverse)
				}
			}
		}
		return routes
	}

	for a1 := uint32(0); a1 < prm.aggSwitchesPerPod; a1++ {
		agg1 := srcPod*prm.aggSwitchesPerPod + a1
		for m1 := uint32(0); m1 < bwA; m1++ {
			if !top.linkUpLocked(TorTier, srcTor, a1*bwA+m1) {
				continue
			}
			for core := uint32(0); core < prm.nCore; core++ {
				for m2 := uint32(0); m2 < bwC; m2++ {
					if !top.linkUpLocked(AggTier, agg1, core*bwC+m2) {
						continue
					}
					for a2 := uint32(0); a2 < prm.aggSwitchesPerPod; a2++ {
						agg2 := dstPod*prm.aggSwitchesPerPod + a2
						for m3 := uint32(0); m3 < bwC; m3++ {
							if !top.linkUpLocked(AggTier, agg2, core*bwC+m3) {
								continue
							}
							for m4 := uint32(0); m4 < bwA; m4++ {
								if !top.linkUpLocked(TorTier, dstTor, a2*bwA+m4) {
									continue
								}
								links := []int{srcUp,
									top.upTorAgg[srcTor][a1][m1],
									top.upAggCore[agg1][core][m2],
									top.dnCoreAgg[core][agg2][m3],
									top.dnAggTor[agg2][dstTorOff][m4],
									dstDn}
								rev := []int{dstUp,
									top.upTorAgg[dstTor][a2][m4],
									top.upAggCore[agg2][core][m3],
									top.dnCoreAgg[core][agg1][m2],
									top.dnAggTor[agg1][srcTorOff][m1],
									srcDn}
								routes = addRoute(routes, src, dst, links, rev, includeReverse)
							}
						}
					}
				}
			}
		}
	}
	return routes
}

// pathsFromSupernode enumerates routes whose source is the supernode.  The
// supernode's only real connectivity is its per-core bundles, so the first
// network hop is always a core switch
func (top *FatTreeTopology) pathsFromSupernode(routes []*Route, dst uint32, includeReverse bool) []*Route {
	prm := &top.prm
	bwA := top.cfg.bundlesize[AggTier]
	bwC := top.cfg.bundlesize[CoreTier]
	sn := top.SupernodeID()

	dstTor := dst / prm.hostsPerTor
	dstPod := dst / prm.hostsPerPod
	dstTorOff := dstTor % prm.torSwitchesPerPod
	dstUp := top.upHostTor[dstTor][dst%prm.hostsPerTor]
	dstDn := top.dnTorHost[dstTor][dst%prm.hostsPerTor]

	for core := uint32(0); core < prm.nCore; core++ {
		for ms := uint32(0); ms < top.cfg.snBundlesize; ms++ {
			if !top.linkUpLocked(CoreTier, core, ms) {
				continue
			}
			for a2 := uint32(0); a2 < prm.aggSwitchesPerPod; a2++ {
				agg2 := dstPod*prm.aggSwitchesPerPod + a2
				for m3 := uint32(0); m3 < bwC; m3++ {
					if !top.linkUpLocked(AggTier, agg2, core*bwC+m3) {
						continue
					}
					for m4 := uint32(0); m4 < bwA; m4++ {
						if !top.linkUpLocked(TorTier, dstTor, a2*bwA+m4) {
							continue
						}
						links := []int{top.upSnCore[core][ms],
							top.dnCoreAgg[core][agg2][m3],
							top.dnAggTor[agg2][dstTorOff][m4],
							dstDn}
						rev := []int{dstUp,
							top.upTorAgg[dstTor][a2][m4],
							top.upAggCore[agg2][core][m3],
							top.dnCoreSn[core][ms]}
						routes = addRoute(routes, sn, dst, links, rev, includeReverse)
					}
				}
			}
		}
	}
	return routes
}

// pathsToSupernode enumerates routes whose destination is the supernode,
// ascending normally from the source and descending one hop from the
// chosen core switch
func (top *FatTreeTopology) pathsToSupernode(routes []*Route, src uint32, includeReverse bool) []*Route {
	prm := &top.prm
	bwA := top.cfg.bundlesize[AggTier]
	bwC := top.cfg.bundlesize[CoreTier]
	sn := top.SupernodeID()

	srcTor := src / prm.hostsPerTor
	srcPod := src / prm.hostsPerPod
	srcTorOff := srcTor % prm.torSwitchesPerPod
	srcUp := top.upHostTor[srcTor][src%prm.hostsPerTor]
	srcDn := top.dnTorHost[srcTor][src%prm.hostsPerTor]

	for a1 := uint32(0); a1 < prm.aggSwitchesPerPod; a1++ {
		agg1 := srcPod*prm.aggSwitchesPerPod + a1
		for m1 := uint32(0); m1 < bwA; m1++ {
			if !top.linkUpLocked(TorTier, srcTor, a1*bwA+m1) {
				continue
			}
			for core := uint32(0); core < prm.nCore; core++ {
				for m2 := uint32(0); m2 < bwC; m2++ {
					if !top.linkUpLocked(AggTier, agg1, core*bwC+m2) {
						continue
					}
					for ms := uint32(0); ms < top.cfg.snBundlesize; ms++ {
						if !top.linkUpLocked(CoreTier, core, ms) {
							continue
						}
						links := []int{srcUp,
							top.upTorAgg[srcTor][a1][m1],
							top.upAggCore[agg1][core][m2],
							top.dnCoreSn[core][ms]}
						rev := []int{top.upSnCore[core][ms],
							top.dnCoreAgg[core][agg1][m2],
							top.dnAggTor[agg1][srcTorOff][m1],
							srcDn}
						routes = addRoute(routes, src, sn, links, rev, includeReverse)
					}
				}
			}
		}
	}
	return routes
}

// paths2Tier enumerates routes through a leaf-spine topology, where the
// single direction change happens at a spine switch
func (top *FatTreeTopology) paths2Tier(routes []*Route, src, dst uint32, includeReverse bool) []*Route {
	prm := &top.prm
	bw := top.cfg.bundlesize[CoreTier]

	srcTor := src / prm.hostsPerTor
	dstTor := dst / prm.hostsPerTor
	srcUp := top.upHostTor[srcTor][src%prm.hostsPerTor]
	srcDn := top.dnTorHost[srcTor][src%prm.hostsPerTor]
	dstUp := top.upHostTor[dstTor][dst%prm.hostsPerTor]
	dstDn := top.dnTorHost[dstTor][dst%prm.hostsPerTor]

	if srcTor == dstTor {
		return addRoute(routes, src, dst,
			[]int{srcUp, dstDn}, []int{dstUp, srcDn}, includeReverse)
	}

	for core := uint32(0); core < prm.nCore; core++ {
		for m1 := uint32(0); m1 < bw; m1++ {
			if !top.linkUpLocked(TorTier, srcTor, core*bw+m1) {
				continue
			}
			for m2 := uint32(0); m2 < bw; m2++ {
				if !top.linkUpLocked(TorTier, dstTor, core*bw+m2) {
					continue
				}
				links := []int{srcUp,
					top.upTorCore[srcTor][core][m1],
					top.dnCoreTor[core][dstTor][m2],
					dstDn}
				rev := []int{dstUp,
					top.upTorCore[dstTor][core][m2],
					top.dnCoreTor[core][srcTor][m1],
					srcDn}
				routes = addRoute(routes, src, dst, links, rev, includeReverse)
			}
		}
	}
	return routes
}

// graph node numbering for the connectivity audit: hosts keep their ids,
// the supernode follows them, and switches follow the supernode slot
func (top *FatTreeTopology) hostNode(host uint32) int64 {
	return int64(host)
}

func (top *FatTreeTopology) switchNode(arenaID int) int64 {
	return int64(top.prm.nSrv) + 1 + int64(arenaID)
}

// CheckConnections audits the wired structure by converting the device
// graph into the gonum representation, computing a shortest path tree
// rooted at host 0, and verifying every other host (and the supernode) is
// reached.  It ignores failure state; it validates wiring, not routing
func (top *FatTreeTopology) CheckConnections() error {
	prm := &top.prm

	connGraph := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	addEdge := func(a, b int64) {
		connGraph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: 1.0})
	}

	for tor := uint32(0); tor < prm.nTor; tor++ {
		torNode := top.switchNode(top.torSwitch(tor).ID)
		for offset := uint32(0); offset < prm.hostsPerTor; offset++ {
			addEdge(top.hostNode(tor*prm.hostsPerTor+offset), torNode)
		}
	}

	if top.cfg.tiers == 2 {
		for tor := uint32(0); tor < prm.nTor; tor++ {
			torNode := top.switchNode(top.torSwitch(tor).ID)
			for core := uint32(0); core < prm.nCore; core++ {
				addEdge(torNode, top.switchNode(top.coreSwitch(core).ID))
			}
		}
	} else {
		for tor := uint32(0); tor < prm.nTor; tor++ {
			torNode := top.switchNode(top.torSwitch(tor).ID)
			pod := tor / prm.torSwitchesPerPod
			for a := uint32(0); a < prm.aggSwitchesPerPod; a++ {
				agg := pod*prm.aggSwitchesPerPod + a
				addEdge(torNode, top.switchNode(top.aggSwitch(agg).ID))
			}
		}
		for agg := uint32(0); agg < prm.nAgg; agg++ {
			aggNode := top.switchNode(top.aggSwitch(agg).ID)
			for core := uint32(0); core < prm.nCore; core++ {
				addEdge(aggNode, top.switchNode(top.coreSwitch(core).ID))
			}
		}
		snNode := top.hostNode(top.SupernodeID())
		for core := uint32(0); core < prm.nCore; core++ {
			addEdge(snNode, top.switchNode(top.coreSwitch(core).ID))
		}
	}

	spTree := path.DijkstraFrom(simple.Node(top.hostNode(0)), connGraph)

	missing := []string{}
	lastHost := prm.nSrv - 1
	if top.cfg.tiers == 3 {
		lastHost = prm.nSrv // the supernode must be reachable too
	}
	for host := uint32(1); host <= lastHost; host++ {
		nodes, _ := spTree.To(top.hostNode(host))
		if len(nodes) == 0 {
			missing = append(missing, fmt.Sprintf("host_%d", host))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("hosts unreachable from host_0: %s", strings.Join(missing, ","))
	}
	return nil
}
