package fattree

// params.go derives the topology shape (switch counts per tier, pods, and
// pod membership widths) from a node count and a validated TierConfig.
// Derivation is pure arithmetic over the configuration, so deriving twice
// from the same inputs always yields the same counts.

import (
	"fmt"
)

// derivedParams holds every count the wiring engine and the addressing
// layer need.  The counts are fixed at construction time
type derivedParams struct {
	nSrv  uint32 // regular hosts; the supernode id equals nSrv in a 3-tier topology
	nTor  uint32
	nAgg  uint32 // zero in a 2-tier topology
	nCore uint32
	nPod  uint32

	hostsPerTor       uint32
	hostsPerPod       uint32
	torSwitchesPerPod uint32
	aggSwitchesPerPod uint32 // zero in a 2-tier topology

	// uplink bundle-member counts per switch, the valid range of the
	// link index in a failed-link record
	torUplinks uint32
	aggUplinks uint32
	snUplinks  uint32 // members of one supernode bundle, zero without a supernode
}

// uplinkRadix returns the uplink port count of a tier, deriving it from the
// downlink radix and the oversubscription ratio when the configuration left
// it implicit
func uplinkRadix(tc *TierConfig, tier int) (uint32, error) {
	if tc.radixUp[tier] != 0 {
		if tc.radixUp[tier]*tc.oversub[tier] != tc.radixDown[tier] {
			return 0, fmt.Errorf("%s tier uplink radix %d inconsistent with downlink radix %d at oversubscription %d",
				tierToStr(tier), tc.radixUp[tier], tc.radixDown[tier], tc.oversub[tier])
		}
		return tc.radixUp[tier], nil
	}
	down := tc.radixDown[tier]
	if down%tc.oversub[tier] != 0 {
		return 0, fmt.Errorf("%s tier downlink radix %d not divisible by oversubscription %d",
			tierToStr(tier), down, tc.oversub[tier])
	}
	return down / tc.oversub[tier], nil
}

// deriveParams computes the topology shape for noOfNodes hosts under the
// given configuration.  Any derived count of zero, and any node count that
// does not divide evenly into the derived pod and ToR widths, is a
// configuration error reported before anything is allocated
func deriveParams(noOfNodes uint32, tc *TierConfig) (derivedParams, error) {
	var prm derivedParams

	if noOfNodes == 0 {
		return prm, fmt.Errorf("topology must have a non-zero node count")
	}
	prm.nSrv = noOfNodes

	prm.hostsPerTor = tc.radixDown[TorTier]
	if noOfNodes%prm.hostsPerTor != 0 {
		return prm, fmt.Errorf("node count %d not divisible by ToR downlink radix %d",
			noOfNodes, prm.hostsPerTor)
	}
	prm.nTor = noOfNodes / prm.hostsPerTor

	torUp, err := uplinkRadix(tc, TorTier)
	if err != nil {
		return prm, err
	}
	if torUp == 0 {
		return prm, fmt.Errorf("ToR tier derived zero uplink radix")
	}

	if tc.tiers == 2 {
		return derive2Tier(prm, tc, torUp)
	}
	return derive3Tier(prm, tc, torUp)
}

// derive2Tier finishes derivation for a leaf-spine topology.  The pod
// concept collapses to a single pod holding every ToR, and the spine
// switches take the CoreTier parameters
func derive2Tier(prm derivedParams, tc *TierConfig, torUp uint32) (derivedParams, error) {
	bw := tc.bundlesize[CoreTier]
	if torUp%bw != 0 {
		return prm, fmt.Errorf("ToR uplink radix %d not divisible by spine bundle width %d", torUp, bw)
	}
	prm.nCore = torUp / bw
	if prm.nCore == 0 {
		return prm, fmt.Errorf("derived zero spine switches")
	}
	if tc.radixDown[CoreTier] < prm.nTor*bw {
		return prm, fmt.Errorf("spine downlink radix %d cannot reach %d ToR switches with bundle width %d",
			tc.radixDown[CoreTier], prm.nTor, bw)
	}

	prm.nAgg = 0
	prm.nPod = 1
	prm.hostsPerPod = prm.nSrv
	prm.torSwitchesPerPod = prm.nTor
	prm.aggSwitchesPerPod = 0
	prm.torUplinks = prm.nCore * bw
	prm.aggUplinks = 0
	prm.snUplinks = 0

	return prm, nil
}

// derive3Tier finishes derivation for a full three-tier fat tree in which
// every Agg switch reaches every Core switch
func derive3Tier(prm derivedParams, tc *TierConfig, torUp uint32) (derivedParams, error) {
	aggBw := tc.bundlesize[AggTier]
	coreBw := tc.bundlesize[CoreTier]

	if torUp%aggBw != 0 {
		return prm, fmt.Errorf("ToR uplink radix %d not divisible by Agg bundle width %d", torUp, aggBw)
	}
	prm.aggSwitchesPerPod = torUp / aggBw
	if prm.aggSwitchesPerPod == 0 {
		return prm, fmt.Errorf("derived zero Agg switches per pod")
	}

	if tc.hostsPerPod != 0 {
		// explicit pod size.  It must pack whole ToR switches
		if tc.hostsPerPod%prm.hostsPerTor != 0 {
			return prm, fmt.Errorf("pod size %d not divisible by ToR downlink radix %d",
				tc.hostsPerPod, prm.hostsPerTor)
		}
		prm.torSwitchesPerPod = tc.hostsPerPod / prm.hostsPerTor
		if tc.radixDown[AggTier] < prm.torSwitchesPerPod*aggBw {
			return prm, fmt.Errorf("Agg downlink radix %d cannot reach %d ToR switches with bundle width %d",
				tc.radixDown[AggTier], prm.torSwitchesPerPod, aggBw)
		}
	} else {
		if tc.radixDown[AggTier]%aggBw != 0 {
			return prm, fmt.Errorf("Agg downlink radix %d not divisible by Agg bundle width %d",
				tc.radixDown[AggTier], aggBw)
		}
		prm.torSwitchesPerPod = tc.radixDown[AggTier] / aggBw
	}
	if prm.torSwitchesPerPod == 0 {
		return prm, fmt.Errorf("derived zero ToR switches per pod")
	}

	prm.hostsPerPod = prm.torSwitchesPerPod * prm.hostsPerTor
	if prm.nSrv%prm.hostsPerPod != 0 {
		return prm, fmt.Errorf("node count %d not divisible by derived pod size %d",
			prm.nSrv, prm.hostsPerPod)
	}
	prm.nPod = prm.nSrv / prm.hostsPerPod
	prm.nAgg = prm.nPod * prm.aggSwitchesPerPod

	aggUp, err := uplinkRadix(tc, AggTier)
	if err != nil {
		return prm, err
	}
	if aggUp%coreBw != 0 {
		return prm, fmt.Errorf("Agg uplink radix %d not divisible by Core bundle width %d", aggUp, coreBw)
	}
	prm.nCore = aggUp / coreBw
	if prm.nCore == 0 {
		return prm, fmt.Errorf("derived zero Core switches")
	}
	if tc.radixDown[CoreTier] < prm.nAgg*coreBw {
		return prm, fmt.Errorf("Core downlink radix %d cannot reach %d Agg switches with bundle width %d",
			tc.radixDown[CoreTier], prm.nAgg, coreBw)
	}

	prm.torUplinks = prm.aggSwitchesPerPod * aggBw
	prm.aggUplinks = prm.nCore * coreBw
	prm.snUplinks = tc.snBundlesize

	return prm, nil
}
