package fattree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallTierConfig is the 3-tier configuration most tests build on: 8 hosts,
// 2 pods of 2 ToR and 2 Agg switches, 2 core switches, unit bundles
func smallTierConfig(t *testing.T) *TierConfig {
	tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
	require.NoError(t, tc.SetTierParameters(TorTier, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(AggTier, 2, 2, 200000, 200000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(CoreTier, 0, 4, 400000, 400000, 1, 40_000_000_000, 1))
	tc.SetLatencies(1e-6, 2e-6, 4e-6, 5e-7, 5e-7, 5e-7)
	return tc
}

// leafSpineTierConfig is the 2-tier counterpart: 8 hosts, 4 ToR, 2 spine
func leafSpineTierConfig(t *testing.T) *TierConfig {
	tc := CreateTierConfig(2, EcnQueue, UndefinedQueue)
	require.NoError(t, tc.SetTierParameters(TorTier, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(CoreTier, 0, 4, 400000, 400000, 1, 40_000_000_000, 1))
	tc.SetLatencies(1e-6, 2e-6, 0.0, 5e-7, 0.0, 5e-7)
	return tc
}

func TestDeriveSmall3Tier(t *testing.T) {
	tc := smallTierConfig(t)
	require.NoError(t, tc.validate())

	prm, err := deriveParams(8, tc)
	require.NoError(t, err)

	assert.Equal(t, uint32(8), prm.nSrv)
	assert.Equal(t, uint32(4), prm.nTor)
	assert.Equal(t, uint32(4), prm.nAgg)
	assert.Equal(t, uint32(2), prm.nCore)
	assert.Equal(t, uint32(2), prm.nPod)
	assert.Equal(t, uint32(2), prm.hostsPerTor)
	assert.Equal(t, uint32(4), prm.hostsPerPod)
	assert.Equal(t, uint32(2), prm.torSwitchesPerPod)
	assert.Equal(t, uint32(2), prm.aggSwitchesPerPod)
	assert.Equal(t, uint32(2), prm.torUplinks)
	assert.Equal(t, uint32(2), prm.aggUplinks)
	assert.Equal(t, uint32(1), prm.snUplinks)
}

func TestDeriveRadix16TwoPods(t *testing.T) {
	// symmetric radix-16 switches, unit bundles, 512 hosts in two pods
	tc := CreateTierConfig(3, CompositeQueue, FairPrioQueue)
	require.NoError(t, tc.SetTierParameters(TorTier, 16, 16, 100000, 100000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(AggTier, 16, 16, 100000, 100000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(CoreTier, 0, 32, 100000, 100000, 1, 10_000_000_000, 1))
	tc.SetLatencies(1e-6, 1e-6, 1e-6, 0, 0, 0)

	prm, err := deriveParams(512, tc)
	require.NoError(t, err)

	assert.Equal(t, uint32(32), prm.nTor)
	assert.Equal(t, uint32(32), prm.nAgg)
	assert.Equal(t, uint32(16), prm.nCore)
	assert.Equal(t, uint32(2), prm.nPod)
	assert.Equal(t, uint32(256), prm.hostsPerPod)
}

func TestDeriveLeafSpine(t *testing.T) {
	tc := leafSpineTierConfig(t)
	require.NoError(t, tc.validate())

	prm, err := deriveParams(8, tc)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), prm.nTor)
	assert.Equal(t, uint32(0), prm.nAgg)
	assert.Equal(t, uint32(2), prm.nCore)
	assert.Equal(t, uint32(1), prm.nPod)
	assert.Equal(t, uint32(8), prm.hostsPerPod)
	assert.Equal(t, uint32(2), prm.torUplinks)
	assert.Equal(t, uint32(0), prm.snUplinks)
}

func TestDeriveUplinkRadixFromOversub(t *testing.T) {
	// radixUp left zero, oversubscription 2: uplink radix derives to 2
	tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
	require.NoError(t, tc.SetTierParameters(TorTier, 0, 4, 100000, 100000, 1, 10_000_000_000, 2))
	require.NoError(t, tc.SetTierParameters(AggTier, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
	require.NoError(t, tc.SetTierParameters(CoreTier, 0, 4, 100000, 100000, 1, 10_000_000_000, 1))
	tc.SetLatencies(1e-6, 1e-6, 1e-6, 0, 0, 0)

	prm, err := deriveParams(16, tc)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), prm.nTor)
	assert.Equal(t, uint32(2), prm.aggSwitchesPerPod)
	assert.Equal(t, uint32(2), prm.torUplinks)
}

func TestDerivePodSizeOverride(t *testing.T) {
	// narrow the pod to one ToR even though the Agg radix could serve two
	tc := smallTierConfig(t)
	require.NoError(t, tc.SetTierParameters(CoreTier, 0, 8, 400000, 400000, 1, 40_000_000_000, 1))
	tc.SetPodSize(2)

	prm, err := deriveParams(8, tc)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), prm.torSwitchesPerPod)
	assert.Equal(t, uint32(2), prm.hostsPerPod)
	assert.Equal(t, uint32(4), prm.nPod)
	assert.Equal(t, uint32(8), prm.nAgg)
}

func TestDeriveDeterministic(t *testing.T) {
	tc := smallTierConfig(t)
	prm1, err := deriveParams(8, tc)
	require.NoError(t, err)
	prm2, err := deriveParams(8, tc)
	require.NoError(t, err)
	assert.Equal(t, prm1, prm2)
}

func TestDeriveErrors(t *testing.T) {
	t.Run("zero nodes", func(t *testing.T) {
		_, err := deriveParams(0, smallTierConfig(t))
		assert.Error(t, err)
	})

	t.Run("node count not divisible by ToR radix", func(t *testing.T) {
		_, err := deriveParams(7, smallTierConfig(t))
		assert.Error(t, err)
	})

	t.Run("node count not divisible by pod size", func(t *testing.T) {
		_, err := deriveParams(6, smallTierConfig(t))
		assert.Error(t, err)
	})

	t.Run("explicit radix inconsistent with oversubscription", func(t *testing.T) {
		tc := smallTierConfig(t)
		require.NoError(t, tc.SetTierParameters(TorTier, 2, 4, 100000, 100000, 1, 10_000_000_000, 1))
		_, err := deriveParams(8, tc)
		assert.Error(t, err)
	})

	t.Run("oversubscription does not divide radix", func(t *testing.T) {
		tc := smallTierConfig(t)
		require.NoError(t, tc.SetTierParameters(TorTier, 0, 3, 100000, 100000, 1, 10_000_000_000, 2))
		_, err := deriveParams(6, tc)
		assert.Error(t, err)
	})

	t.Run("core radix too small for Agg tier", func(t *testing.T) {
		tc := smallTierConfig(t)
		require.NoError(t, tc.SetTierParameters(CoreTier, 0, 3, 400000, 400000, 1, 40_000_000_000, 1))
		_, err := deriveParams(8, tc)
		assert.Error(t, err)
	})
}

func TestConfigValidation(t *testing.T) {
	t.Run("bad tier count", func(t *testing.T) {
		tc := CreateTierConfig(4, EcnQueue, UndefinedQueue)
		assert.Error(t, tc.validate())
	})

	t.Run("unset tier", func(t *testing.T) {
		tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
		require.NoError(t, tc.SetTierParameters(TorTier, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
		assert.Error(t, tc.validate())
	})

	t.Run("unset queue capacity", func(t *testing.T) {
		tc := smallTierConfig(t)
		require.NoError(t, tc.SetTierParameters(AggTier, 2, 2, 0, 200000, 1, 10_000_000_000, 1))
		assert.Error(t, tc.validate())
	})

	t.Run("unset queue discipline", func(t *testing.T) {
		tc := smallTierConfig(t)
		tc.queueType = UndefinedQueue
		assert.Error(t, tc.validate())
	})

	t.Run("core tier rejects uplinks", func(t *testing.T) {
		tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
		err := tc.SetTierParameters(CoreTier, 4, 4, 100000, 100000, 1, 10_000_000_000, 1)
		assert.Error(t, err)
	})

	t.Run("host links cannot bundle", func(t *testing.T) {
		tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
		err := tc.SetTierParameters(TorTier, 2, 2, 100000, 100000, 2, 10_000_000_000, 1)
		assert.Error(t, err)
	})

	t.Run("tier index range", func(t *testing.T) {
		tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
		assert.Error(t, tc.SetTierParameters(3, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
		assert.Error(t, tc.SetTierParameters(-1, 2, 2, 100000, 100000, 1, 10_000_000_000, 1))
	})
}

func TestSenderDisciplineDefault(t *testing.T) {
	tc := CreateTierConfig(3, EcnQueue, UndefinedQueue)
	assert.Equal(t, FairPrioQueue, tc.senderQueueType)

	tc = CreateTierConfig(3, EcnQueue, PriorityQueue)
	assert.Equal(t, PriorityQueue, tc.senderQueueType)
}

func TestQueueDisciplineNames(t *testing.T) {
	for _, disc := range []QueueDiscipline{RandomQueue, EcnQueue, CompositeQueue,
		PriorityQueue, CtrlPrioQueue, FairPrioQueue, LosslessQueue, LosslessInputQueue,
		LosslessInputEcnQueue, CompositeEcnQueue, SwiftSchedulerQueue, EcnPrioQueue,
		AeolusQueue, AeolusEcnQueue} {
		assert.Equal(t, disc, QueueDisciplineFromStr(QueueDisciplineToStr(disc)))
	}
	assert.Equal(t, UndefinedQueue, QueueDisciplineFromStr("no-such-discipline"))
}
