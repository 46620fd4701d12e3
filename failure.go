package fattree

// failure.go holds the mutable record of which individual bundle members
// are down.  Records are keyed structurally by (tier, switch id, link id)
// rather than by queue identity, so a failure set remains meaningful across
// topology rebuilds with identical parameters.
//
// The link id indexes the uplink bundle members of the named switch: for a
// ToR switch it runs over the uplink bundles in pod order (bundle offset
// times bundle width plus member), for an Agg switch over the per-core
// bundles the same way, and at the core tier over the members of that core
// switch's supernode bundle.  A failed member is down in both directions.

import (
	"fmt"

	"github.com/iti/rngstream"
)

// linkKey identifies one bundle member by structure
type linkKey struct {
	tier     int
	switchID uint32
	linkID   uint32
}

// uplinkRange returns the number of uplink bundle members a switch of the
// given tier owns, which bounds the link id in a failed-link record
func (top *FatTreeTopology) uplinkRange(tier int) (switches, links uint32) {
	switch tier {
	case TorTier:
		return top.prm.nTor, top.prm.torUplinks
	case AggTier:
		return top.prm.nAgg, top.prm.aggUplinks
	case CoreTier:
		return top.prm.nCore, top.prm.snUplinks
	}
	return 0, 0
}

// checkLinkKey panics when a failed-link record names a switch or bundle
// member this topology does not have
func (top *FatTreeTopology) checkLinkKey(tier int, switchID, linkID uint32) {
	switches, links := top.uplinkRange(tier)
	if switches == 0 || links == 0 {
		panic(fmt.Errorf("%s tier carries no failable links in this topology", tierToStr(tier)))
	}
	if switchID >= switches {
		panic(fmt.Errorf("%s switch id %d out of range %d", tierToStr(tier), switchID, switches))
	}
	if linkID >= links {
		panic(fmt.Errorf("%s switch %d link id %d out of range %d",
			tierToStr(tier), switchID, linkID, links))
	}
}

// AddFailedLink marks one bundle member down.  Failing a member that is
// already down is a no-op
func (top *FatTreeTopology) AddFailedLink(tier int, switchID, linkID uint32) {
	top.checkLinkKey(tier, switchID, linkID)

	top.fmu.Lock()
	defer top.fmu.Unlock()
	top.failed[linkKey{tier: tier, switchID: switchID, linkID: linkID}] = true
}

// RemoveFailedLink clears a failed-link record.  Removing a record that
// does not exist is a no-op
func (top *FatTreeTopology) RemoveFailedLink(tier int, switchID, linkID uint32) {
	top.checkLinkKey(tier, switchID, linkID)

	top.fmu.Lock()
	defer top.fmu.Unlock()
	delete(top.failed, linkKey{tier: tier, switchID: switchID, linkID: linkID})
}

// LinkUp reports whether a bundle member is currently up
func (top *FatTreeTopology) LinkUp(tier int, switchID, linkID uint32) bool {
	top.checkLinkKey(tier, switchID, linkID)

	top.fmu.Lock()
	defer top.fmu.Unlock()
	return !top.failed[linkKey{tier: tier, switchID: switchID, linkID: linkID}]
}

// NoOfFailedLinks returns the current failed-link record count
func (top *FatTreeTopology) NoOfFailedLinks() int {
	top.fmu.Lock()
	defer top.fmu.Unlock()
	return len(top.failed)
}

// linkUpLocked answers an up/down query while the caller already holds the
// failure mutex, which the path enumerator does for the duration of one
// enumeration so it sees a consistent snapshot
func (top *FatTreeTopology) linkUpLocked(tier int, switchID, linkID uint32) bool {
	return !top.failed[linkKey{tier: tier, switchID: switchID, linkID: linkID}]
}

// failRandomLinks marks count distinct ToR uplink bundle members down,
// sampling from the supplied stream.  Used by the construction variant that
// takes an explicit failure count
func (top *FatTreeTopology) failRandomLinks(count uint32, rng *rngstream.RngStream) error {
	if count == 0 {
		return nil
	}

	domain := top.prm.nTor * top.prm.torUplinks
	if count > domain {
		return fmt.Errorf("cannot fail %d links, topology has %d ToR uplink members", count, domain)
	}

	top.fmu.Lock()
	defer top.fmu.Unlock()

	failed := uint32(0)
	for failed < count {
		pick := uint32(rng.RandU01() * float64(domain))
		if pick == domain {
			pick = domain - 1
		}
		key := linkKey{tier: TorTier, switchID: pick / top.prm.torUplinks, linkID: pick % top.prm.torUplinks}
		if top.failed[key] {
			continue
		}
		top.failed[key] = true
		failed++
	}

	return nil
}
