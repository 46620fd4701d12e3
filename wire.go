package fattree

// wire.go implements the wiring engine.  allocate() sizes every container
// to the derived switch counts before any connection is made, so that
// index-based addressing is valid throughout construction; wire() then
// instantiates every switch, bundle, queue, and pipe and records the link
// ids in the index collections the path enumerator walks.
//
// Any index outside the allocated range, and any slot wired twice, marks a
// disagreement between parameter derivation and the wiring engine.  That is
// a programming defect, not a runtime condition, and it panics.

import (
	"fmt"
)

// fill3 builds a [d1][d2][d3] index collection with every slot set to the
// unwired marker
func fill3(d1, d2, d3 uint32) [][][]int {
	coll := make([][][]int, d1)
	for i := uint32(0); i < d1; i++ {
		coll[i] = make([][]int, d2)
		for j := uint32(0); j < d2; j++ {
			coll[i][j] = make([]int, d3)
			for m := uint32(0); m < d3; m++ {
				coll[i][j][m] = -1
			}
		}
	}
	return coll
}

// fill2 builds a [d1][d2] index collection with every slot set to the
// unwired marker
func fill2(d1, d2 uint32) [][]int {
	coll := make([][]int, d1)
	for i := uint32(0); i < d1; i++ {
		coll[i] = make([]int, d2)
		for j := uint32(0); j < d2; j++ {
			coll[i][j] = -1
		}
	}
	return coll
}

// totalLinks computes the exact number of directional queue/pipe pairs the
// wired topology will hold.  The arenas are reserved to this size so that
// entity pointers handed to collaborators stay stable while wiring grows
// the arenas
func (top *FatTreeTopology) totalLinks() int {
	prm := &top.prm
	cfg := &top.cfg

	count := int(prm.nSrv) * 2
	if cfg.tiers == 2 {
		count += int(prm.nTor) * int(prm.nCore) * int(cfg.bundlesize[CoreTier]) * 2
		return count
	}
	count += int(prm.nTor) * int(prm.aggSwitchesPerPod) * int(cfg.bundlesize[AggTier]) * 2
	count += int(prm.nAgg) * int(prm.nCore) * int(cfg.bundlesize[CoreTier]) * 2
	count += int(prm.nCore) * int(cfg.snBundlesize) * 2
	return count
}

// allocate creates the empty arenas and index collections sized to the
// derived parameters.  No connection exists yet; every index slot holds the
// unwired marker
func (top *FatTreeTopology) allocate() {
	prm := &top.prm
	cfg := &top.cfg

	nSwitch := int(prm.nTor + prm.nAgg + prm.nCore)
	top.switches = make([]Switch, 0, nSwitch)

	nLinks := top.totalLinks()
	top.queues = make([]Queue, 0, nLinks)
	top.pipes = make([]Pipe, 0, nLinks)

	top.upHostTor = fill2(prm.nTor, prm.hostsPerTor)
	top.dnTorHost = fill2(prm.nTor, prm.hostsPerTor)

	if cfg.tiers == 2 {
		top.upTorCore = fill3(prm.nTor, prm.nCore, cfg.bundlesize[CoreTier])
		top.dnCoreTor = fill3(prm.nCore, prm.nTor, cfg.bundlesize[CoreTier])
		return
	}

	top.upTorAgg = fill3(prm.nTor, prm.aggSwitchesPerPod, cfg.bundlesize[AggTier])
	top.dnAggTor = fill3(prm.nAgg, prm.torSwitchesPerPod, cfg.bundlesize[AggTier])
	top.upAggCore = fill3(prm.nAgg, prm.nCore, cfg.bundlesize[CoreTier])
	top.dnCoreAgg = fill3(prm.nCore, prm.nAgg, cfg.bundlesize[CoreTier])
	top.upSnCore = fill2(prm.nCore, cfg.snBundlesize)
	top.dnCoreSn = fill2(prm.nCore, cfg.snBundlesize)
}

// allocSwitch appends one switch to the arena and reports it to the logger
func (top *FatTreeTopology) allocSwitch(tier int, tierID uint32) int {
	id := len(top.switches)
	if id == cap(top.switches) {
		panic(fmt.Errorf("switch allocation overran the %d derived switches", cap(top.switches)))
	}

	var name string
	switch tier {
	case TorTier:
		name = fmt.Sprintf("tor_%d", tierID)
	case AggTier:
		name = fmt.Sprintf("agg_%d", tierID)
	case CoreTier:
		name = fmt.Sprintf("core_%d", tierID)
	}

	top.switches = append(top.switches, Switch{
		ID:      id,
		Tier:    tier,
		TierID:  tierID,
		Name:    name,
		Latency: top.cfg.switchLatency[tier],
	})

	if top.logger != nil {
		top.logger.SwitchCreated(&top.switches[id])
	}
	return id
}

// allocLink appends one queue and its paired pipe to the arenas, attaches
// the discipline implementation and the logger, and hooks the queue into
// the owning switch's port set.  The shared arena index is the link id
func (top *FatTreeTopology) allocLink(name string, disc QueueDiscipline, capacity int64,
	speed uint64, dir LinkDirection, tier int, atTor bool, owner int, latency float64) int {

	id := len(top.queues)
	if id == cap(top.queues) {
		panic(fmt.Errorf("link allocation overran the %d derived links", cap(top.queues)))
	}

	top.queues = append(top.queues, Queue{
		ID:         id,
		Name:       name,
		Discipline: disc,
		Capacity:   capacity,
		Speed:      speed,
		Dir:        dir,
		Tier:       tier,
		AtTor:      atTor,
		Owner:      owner,
	})
	top.pipes = append(top.pipes, Pipe{
		ID:      id,
		Name:    name,
		Latency: latency,
		Dir:     dir,
		Tier:    tier,
	})

	queue := &top.queues[id]
	if top.provider != nil {
		queue.Method = top.provider.CreateQueueMethod(disc, queue)
	}
	if top.logger != nil {
		top.logger.QueueCreated(queue)
		top.logger.PipeCreated(&top.pipes[id])
	}

	if owner >= 0 {
		swtch := &top.switches[owner]
		if dir == Uplink {
			swtch.UpLinks = append(swtch.UpLinks, id)
		} else {
			swtch.DownLinks = append(swtch.DownLinks, id)
		}
	}

	return id
}

// setLink2 records a link id in a 2-dimensional index collection, panicking
// on an out-of-range index or a slot already wired
func setLink2(coll [][]int, i, j uint32, id int, kind string) {
	if int(i) >= len(coll) || int(j) >= len(coll[i]) {
		panic(fmt.Errorf("%s index (%d,%d) out of allocated range", kind, i, j))
	}
	if coll[i][j] != -1 {
		panic(fmt.Errorf("%s slot (%d,%d) wired twice", kind, i, j))
	}
	coll[i][j] = id
}

// setLink3 records a link id in a 3-dimensional index collection, panicking
// on an out-of-range index or a slot already wired
func setLink3(coll [][][]int, i, j, m uint32, id int, kind string) {
	if int(i) >= len(coll) || int(j) >= len(coll[i]) || int(m) >= len(coll[i][j]) {
		panic(fmt.Errorf("%s index (%d,%d,%d) out of allocated range", kind, i, j, m))
	}
	if coll[i][j][m] != -1 {
		panic(fmt.Errorf("%s slot (%d,%d,%d) wired twice", kind, i, j, m))
	}
	coll[i][j][m] = id
}

// wire connects the entire topology.  Callers never observe a partially
// wired instance; CreateFatTreeTopology only returns after wire completes
func (top *FatTreeTopology) wire() {
	prm := &top.prm
	cfg := &top.cfg

	// switches first, so that link wiring can attach to their port sets
	for tor := uint32(0); tor < prm.nTor; tor++ {
		top.allocSwitch(TorTier, tor)
	}
	for agg := uint32(0); agg < prm.nAgg; agg++ {
		top.allocSwitch(AggTier, agg)
	}
	for core := uint32(0); core < prm.nCore; core++ {
		top.allocSwitch(CoreTier, core)
	}

	top.wireHosts()
	if cfg.tiers == 2 {
		top.wireTorCore()
	} else {
		top.wireTorAgg()
		top.wireAggCore()
		top.wireSupernode()
	}

	if len(top.queues) != cap(top.queues) {
		panic(fmt.Errorf("wiring produced %d links, derivation promised %d",
			len(top.queues), cap(top.queues)))
	}
}

// wireHosts connects every host to its ToR switch in both directions.
// Host links are never bundled, and the host-side egress queue carries the
// sender discipline rather than the in-network one
func (top *FatTreeTopology) wireHosts() {
	prm := &top.prm
	cfg := &top.cfg

	for tor := uint32(0); tor < prm.nTor; tor++ {
		torSw := top.torSwitch(tor).ID
		for offset := uint32(0); offset < prm.hostsPerTor; offset++ {
			host := tor*prm.hostsPerTor + offset

			up := top.allocLink(fmt.Sprintf("host_%d->tor_%d", host, tor),
				cfg.senderQueueType, cfg.queueUp[TorTier], cfg.downlinkSpeed[TorTier],
				Uplink, TorTier, false, -1, cfg.linkLatency[TorTier])
			setLink2(top.upHostTor, tor, offset, up, "host->ToR")

			down := top.allocLink(fmt.Sprintf("tor_%d->host_%d", tor, host),
				cfg.queueType, cfg.queueDown[TorTier], cfg.downlinkSpeed[TorTier],
				Downlink, TorTier, true, torSw, cfg.linkLatency[TorTier])
			setLink2(top.dnTorHost, tor, offset, down, "ToR->host")
		}
	}
}

// wireTorAgg connects every ToR to every Agg switch in its pod with a
// bundle of the configured width in each direction
func (top *FatTreeTopology) wireTorAgg() {
	prm := &top.prm
	cfg := &top.cfg
	bw := cfg.bundlesize[AggTier]

	for tor := uint32(0); tor < prm.nTor; tor++ {
		pod := tor / prm.torSwitchesPerPod
		torOffset := tor % prm.torSwitchesPerPod
		torSw := top.torSwitch(tor).ID

		for a := uint32(0); a < prm.aggSwitchesPerPod; a++ {
			agg := pod*prm.aggSwitchesPerPod + a
			aggSw := top.aggSwitch(agg).ID

			for m := uint32(0); m < bw; m++ {
				up := top.allocLink(fmt.Sprintf("tor_%d->agg_%d.%d", tor, agg, m),
					cfg.queueType, cfg.queueUp[TorTier], cfg.downlinkSpeed[AggTier],
					Uplink, TorTier, true, torSw, cfg.linkLatency[AggTier])
				setLink3(top.upTorAgg, tor, a, m, up, "ToR->Agg")

				down := top.allocLink(fmt.Sprintf("agg_%d->tor_%d.%d", agg, tor, m),
					cfg.queueType, cfg.queueDown[AggTier], cfg.downlinkSpeed[AggTier],
					Downlink, AggTier, false, aggSw, cfg.linkLatency[AggTier])
				setLink3(top.dnAggTor, agg, torOffset, m, down, "Agg->ToR")
			}
		}
	}
}

// wireAggCore connects every Agg switch to every core switch with a bundle
// of the configured width in each direction
func (top *FatTreeTopology) wireAggCore() {
	prm := &top.prm
	cfg := &top.cfg
	bw := cfg.bundlesize[CoreTier]

	for agg := uint32(0); agg < prm.nAgg; agg++ {
		aggSw := top.aggSwitch(agg).ID

		for core := uint32(0); core < prm.nCore; core++ {
			coreSw := top.coreSwitch(core).ID

			for m := uint32(0); m < bw; m++ {
				up := top.allocLink(fmt.Sprintf("agg_%d->core_%d.%d", agg, core, m),
					cfg.queueType, cfg.queueUp[AggTier], cfg.downlinkSpeed[CoreTier],
					Uplink, AggTier, false, aggSw, cfg.linkLatency[CoreTier])
				setLink3(top.upAggCore, agg, core, m, up, "Agg->Core")

				down := top.allocLink(fmt.Sprintf("core_%d->agg_%d.%d", core, agg, m),
					cfg.queueType, cfg.queueDown[CoreTier], cfg.downlinkSpeed[CoreTier],
					Downlink, CoreTier, false, coreSw, cfg.linkLatency[CoreTier])
				setLink3(top.dnCoreAgg, core, agg, m, down, "Core->Agg")
			}
		}
	}
}

// wireSupernode attaches the supernode directly to every core switch.
// These links carry their own dedicated speed, sizing, and latency; unset
// supernode parameters fall back to the CoreTier settings
func (top *FatTreeTopology) wireSupernode() {
	prm := &top.prm
	cfg := &top.cfg

	speed := cfg.snLinkSpeed
	if speed == 0 {
		speed = cfg.downlinkSpeed[CoreTier]
	}
	capacity := cfg.snQueueSize
	if capacity == 0 {
		capacity = cfg.queueDown[CoreTier]
	}
	latency := cfg.snLatency
	if latency == 0.0 {
		latency = cfg.linkLatency[CoreTier]
	}

	for core := uint32(0); core < prm.nCore; core++ {
		coreSw := top.coreSwitch(core).ID

		for m := uint32(0); m < cfg.snBundlesize; m++ {
			up := top.allocLink(fmt.Sprintf("sn->core_%d.%d", core, m),
				cfg.queueType, capacity, speed, Uplink, CoreTier, false, -1, latency)
			setLink2(top.upSnCore, core, m, up, "supernode->Core")

			down := top.allocLink(fmt.Sprintf("core_%d->sn.%d", core, m),
				cfg.queueType, capacity, speed, Downlink, CoreTier, false, coreSw, latency)
			setLink2(top.dnCoreSn, core, m, down, "Core->supernode")
		}
	}
}

// wireTorCore connects every ToR to every spine switch for a 2-tier
// topology.  The spine takes its parameters from the CoreTier slots and
// the link latency from the ToR-to-Agg slot
func (top *FatTreeTopology) wireTorCore() {
	prm := &top.prm
	cfg := &top.cfg
	bw := cfg.bundlesize[CoreTier]

	for tor := uint32(0); tor < prm.nTor; tor++ {
		torSw := top.torSwitch(tor).ID

		for core := uint32(0); core < prm.nCore; core++ {
			coreSw := top.coreSwitch(core).ID

			for m := uint32(0); m < bw; m++ {
				up := top.allocLink(fmt.Sprintf("tor_%d->core_%d.%d", tor, core, m),
					cfg.queueType, cfg.queueUp[TorTier], cfg.downlinkSpeed[CoreTier],
					Uplink, TorTier, true, torSw, cfg.linkLatency[AggTier])
				setLink3(top.upTorCore, tor, core, m, up, "ToR->Core")

				down := top.allocLink(fmt.Sprintf("core_%d->tor_%d.%d", core, tor, m),
					cfg.queueType, cfg.queueDown[CoreTier], cfg.downlinkSpeed[CoreTier],
					Downlink, CoreTier, false, coreSw, cfg.linkLatency[AggTier])
				setLink3(top.dnCoreTor, core, tor, m, down, "Core->ToR")
			}
		}
	}
}
