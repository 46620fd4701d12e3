package fattree

// cfg.go holds the tier configuration registry.  All the parameters that
// shape a fat-tree topology (radices, queue sizes, bundle widths, link
// speeds, oversubscription ratios, latencies) are gathered into a TierConfig
// value that is handed to topology construction and copied there.  Once a
// topology has been wired from a TierConfig, later changes to that
// TierConfig have no effect on the wired instance.

import (
	"fmt"
)

// Tier indices for the three switch layers.  ToR switches face the hosts.
const (
	TorTier  = 0
	AggTier  = 1
	CoreTier = 2

	numTiers = 3
)

// tierToStr returns a printable name for a tier index, used in error
// and panic messages
func tierToStr(tier int) string {
	switch tier {
	case TorTier:
		return "ToR"
	case AggTier:
		return "Agg"
	case CoreTier:
		return "Core"
	}
	return fmt.Sprintf("tier-%d", tier)
}

// QueueDiscipline tags the scheduling behavior requested for a queue.
// The tag is opaque to this package.  The run-time behavior behind each tag
// is supplied by an external QueueMethodProvider
type QueueDiscipline int

const (
	UndefinedQueue QueueDiscipline = iota
	RandomQueue
	EcnQueue
	CompositeQueue
	PriorityQueue
	CtrlPrioQueue
	FairPrioQueue
	LosslessQueue
	LosslessInputQueue
	LosslessInputEcnQueue
	CompositeEcnQueue
	SwiftSchedulerQueue
	EcnPrioQueue
	AeolusQueue
	AeolusEcnQueue
)

// QueueDisciplineFromStr returns the QueueDiscipline corresponding to a string name for it
func QueueDisciplineFromStr(disc string) QueueDiscipline {
	switch disc {
	case "random":
		return RandomQueue
	case "ecn":
		return EcnQueue
	case "composite":
		return CompositeQueue
	case "priority":
		return PriorityQueue
	case "ctrl_prio":
		return CtrlPrioQueue
	case "fair_prio":
		return FairPrioQueue
	case "lossless":
		return LosslessQueue
	case "lossless_input":
		return LosslessInputQueue
	case "lossless_input_ecn":
		return LosslessInputEcnQueue
	case "composite_ecn":
		return CompositeEcnQueue
	case "swift":
		return SwiftSchedulerQueue
	case "ecn_prio":
		return EcnPrioQueue
	case "aeolus":
		return AeolusQueue
	case "aeolus_ecn":
		return AeolusEcnQueue
	default:
		return UndefinedQueue
	}
}

// QueueDisciplineToStr returns a string name that corresponds to an input QueueDiscipline
func QueueDisciplineToStr(disc QueueDiscipline) string {
	switch disc {
	case RandomQueue:
		return "random"
	case EcnQueue:
		return "ecn"
	case CompositeQueue:
		return "composite"
	case PriorityQueue:
		return "priority"
	case CtrlPrioQueue:
		return "ctrl_prio"
	case FairPrioQueue:
		return "fair_prio"
	case LosslessQueue:
		return "lossless"
	case LosslessInputQueue:
		return "lossless_input"
	case LosslessInputEcnQueue:
		return "lossless_input_ecn"
	case CompositeEcnQueue:
		return "composite_ecn"
	case SwiftSchedulerQueue:
		return "swift"
	case EcnPrioQueue:
		return "ecn_prio"
	case AeolusQueue:
		return "aeolus"
	case AeolusEcnQueue:
		return "aeolus_ecn"
	}
	return "undefined"
}

// A TierConfig gathers every per-tier parameter needed to derive and wire a
// fat-tree topology.  Two or three tiers are supported.  In a 2-tier
// (leaf-spine) configuration the AggTier slots are unused and the spine
// switches take their parameters from the CoreTier slots.
//
// Latency slots are indexed by the link class below a tier: linkLatency[0]
// is the host to ToR latency, linkLatency[1] ToR to Agg (or ToR to spine in
// a 2-tier configuration), linkLatency[2] Agg to Core.  Every member of a
// bundle carries the same latency in both directions.
type TierConfig struct {
	tiers uint32

	radixUp   [numTiers]uint32 // radixUp[CoreTier] is always zero
	radixDown [numTiers]uint32

	queueUp   [numTiers]int64 // queue capacities in bytes
	queueDown [numTiers]int64

	// width of the link bundle between a switch in this tier and one
	// switch in the tier below.  bundlesize[TorTier] covers the host links
	// and must be 1, the transport layer cannot spread one host over
	// parallel links
	bundlesize [numTiers]uint32

	// speed in bps of each link from a switch in this tier to the tier below
	downlinkSpeed [numTiers]uint64

	// downlink to uplink bandwidth ratio at the tier.  Used to derive the
	// uplink radix when radixUp is left zero
	oversub [numTiers]uint32

	linkLatency   [numTiers]float64 // seconds
	switchLatency [numTiers]float64 // transit latency of a switch, by tier

	// optional override of the derived hosts-per-pod count
	hostsPerPod uint32

	// discipline for in-network queues and for the host-facing sender queues
	queueType       QueueDiscipline
	senderQueueType QueueDiscipline

	// parameters dedicated to the supernode's direct core links.  Zero
	// values fall back to the CoreTier settings at wiring time
	snLinkSpeed  uint64
	snQueueSize  int64
	snLatency    float64
	snBundlesize uint32
}

// CreateTierConfig is a constructor.  It fixes the tier count and the two
// queue discipline selectors.  A zero-valued sender discipline selects
// FairPrioQueue, the discipline hosts are given when nothing else is asked for
func CreateTierConfig(tiers uint32, queueType, senderQueueType QueueDiscipline) *TierConfig {
	tc := new(TierConfig)
	tc.tiers = tiers
	tc.queueType = queueType
	tc.senderQueueType = senderQueueType
	if tc.senderQueueType == UndefinedQueue {
		tc.senderQueueType = FairPrioQueue
	}

	// bundle width and oversubscription default to one so that a
	// configuration only has to mention them when they differ
	for tier := 0; tier < numTiers; tier++ {
		tc.bundlesize[tier] = 1
		tc.oversub[tier] = 1
	}
	tc.snBundlesize = 1

	return tc
}

// SetTierParameters assigns the wiring parameters of one tier.  radixUp may
// be left zero to have it derived as radixDown/oversub.  An error is
// returned for a tier index out of range or a parameter that can never
// produce a well-formed topology
func (tc *TierConfig) SetTierParameters(tier int, radixUp, radixDown uint32,
	queueUp, queueDown int64, bundlesize uint32, downlinkSpeed uint64, oversub uint32) error {

	if tier < 0 || tier >= numTiers {
		return fmt.Errorf("tier index %d out of range", tier)
	}
	if tier == CoreTier && radixUp != 0 {
		return fmt.Errorf("%s tier cannot have uplinks", tierToStr(tier))
	}
	if radixDown == 0 {
		return fmt.Errorf("%s tier given zero downlink radix", tierToStr(tier))
	}
	if bundlesize == 0 {
		return fmt.Errorf("%s tier given zero bundle width", tierToStr(tier))
	}
	if tier == TorTier && bundlesize != 1 {
		return fmt.Errorf("host links cannot be bundled, ToR tier bundle width must be 1")
	}
	if oversub == 0 {
		return fmt.Errorf("%s tier given zero oversubscription ratio", tierToStr(tier))
	}

	tc.radixUp[tier] = radixUp
	tc.radixDown[tier] = radixDown
	tc.queueUp[tier] = queueUp
	tc.queueDown[tier] = queueDown
	tc.bundlesize[tier] = bundlesize
	tc.downlinkSpeed[tier] = downlinkSpeed
	tc.oversub[tier] = oversub

	return nil
}

// SetLatencies assigns the per-link-class propagation latencies and the
// per-tier switch transit latencies, all in seconds
func (tc *TierConfig) SetLatencies(hostTor, torAgg, aggCore,
	torSwitch, aggSwitch, coreSwitch float64) {

	tc.linkLatency[TorTier] = hostTor
	tc.linkLatency[AggTier] = torAgg
	tc.linkLatency[CoreTier] = aggCore
	tc.switchLatency[TorTier] = torSwitch
	tc.switchLatency[AggTier] = aggSwitch
	tc.switchLatency[CoreTier] = coreSwitch
}

// SetPodSize overrides the derived hosts-per-pod count.  Used when the pod
// boundary is narrower than what the Agg downlink radix would allow
func (tc *TierConfig) SetPodSize(hostsPerPod uint32) {
	tc.hostsPerPod = hostsPerPod
}

// SetSupernodeLink dedicates link parameters to the supernode's per-core
// bundles.  Zero speed, size, or latency values fall back to the CoreTier
// settings when wiring
func (tc *TierConfig) SetSupernodeLink(linkSpeed uint64, queueSize int64,
	latency float64, bundlesize uint32) error {

	if bundlesize == 0 {
		return fmt.Errorf("supernode link given zero bundle width")
	}
	tc.snLinkSpeed = linkSpeed
	tc.snQueueSize = queueSize
	tc.snLatency = latency
	tc.snBundlesize = bundlesize

	return nil
}

// Tiers returns the configured tier count
func (tc *TierConfig) Tiers() uint32 {
	return tc.tiers
}

// usedTiers lists the tier indices that carry switches under this
// configuration.  A 2-tier configuration has no Agg tier
func (tc *TierConfig) usedTiers() []int {
	if tc.tiers == 2 {
		return []int{TorTier, CoreTier}
	}
	return []int{TorTier, AggTier, CoreTier}
}

// validate performs the single configuration check run before parameter
// derivation.  Everything downstream of a successful validate may assume
// non-zero radices, bundle widths, and oversubscription ratios on every
// tier in use
func (tc *TierConfig) validate() error {
	if tc.tiers != 2 && tc.tiers != 3 {
		return fmt.Errorf("topology must have 2 or 3 tiers, given %d", tc.tiers)
	}

	for _, tier := range tc.usedTiers() {
		if tc.radixDown[tier] == 0 {
			return fmt.Errorf("%s tier downlink radix unset", tierToStr(tier))
		}
		if tc.bundlesize[tier] == 0 {
			return fmt.Errorf("%s tier bundle width unset", tierToStr(tier))
		}
		if tc.oversub[tier] == 0 {
			return fmt.Errorf("%s tier oversubscription ratio unset", tierToStr(tier))
		}
		if tc.downlinkSpeed[tier] == 0 {
			return fmt.Errorf("%s tier downlink speed unset", tierToStr(tier))
		}
		if tc.queueDown[tier] == 0 {
			return fmt.Errorf("%s tier downlink queue capacity unset", tierToStr(tier))
		}
		if tier != CoreTier && tc.queueUp[tier] == 0 {
			return fmt.Errorf("%s tier uplink queue capacity unset", tierToStr(tier))
		}
		if tc.linkLatency[tier] < 0.0 || tc.switchLatency[tier] < 0.0 {
			return fmt.Errorf("%s tier given negative latency", tierToStr(tier))
		}
	}

	if tc.queueType == UndefinedQueue {
		return fmt.Errorf("network queue discipline unset")
	}
	if tc.senderQueueType == UndefinedQueue {
		return fmt.Errorf("sender queue discipline unset")
	}
	if tc.tiers == 3 && tc.snBundlesize == 0 {
		return fmt.Errorf("supernode bundle width unset")
	}

	return nil
}
