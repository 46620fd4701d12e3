package fattree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTopoDesc() *TopoDesc {
	return &TopoDesc{
		Name:            "small",
		Nodes:           8,
		Tiers:           3,
		QueueType:       "ecn",
		SenderQueueType: "fair_prio",
		TierParams: []TierParamDesc{
			{Tier: TorTier, RadixUp: 2, RadixDown: 2, QueueUp: 100000, QueueDown: 100000,
				Bundlesize: 1, DownlinkSpeed: 10_000_000_000, Oversub: 1},
			{Tier: AggTier, RadixUp: 2, RadixDown: 2, QueueUp: 200000, QueueDown: 200000,
				Bundlesize: 1, DownlinkSpeed: 10_000_000_000, Oversub: 1},
			{Tier: CoreTier, RadixDown: 4, QueueUp: 400000, QueueDown: 400000,
				Bundlesize: 1, DownlinkSpeed: 40_000_000_000, Oversub: 1},
		},
		Latencies: LatencyDesc{HostTor: 1e-6, TorAgg: 2e-6, AggCore: 4e-6,
			TorSwitch: 5e-7, AggSwitch: 5e-7, CoreSwitch: 5e-7},
	}
}

func TestTopoDescRoundTrip(t *testing.T) {
	dir := t.TempDir()
	td := smallTopoDesc()
	td.FailedLinks = []FailedLinkDesc{{Tier: TorTier, SwitchID: 1, LinkID: 0}}

	for _, fname := range []string{"topo.yaml", "topo.json"} {
		useYAML := fname == "topo.yaml"
		file := filepath.Join(dir, fname)
		require.NoError(t, td.WriteToFile(file))

		back, err := ReadTopoDesc(file, useYAML, []byte{})
		require.NoError(t, err)
		assert.Equal(t, td, back)
	}
}

func TestReadTopoDescMissingFile(t *testing.T) {
	_, err := ReadTopoDesc(filepath.Join(t.TempDir(), "absent.yaml"), true, []byte{})
	assert.Error(t, err)
}

func TestTopoDescTierConfig(t *testing.T) {
	tc, err := smallTopoDesc().TierConfig()
	require.NoError(t, err)
	require.NoError(t, tc.validate())

	assert.Equal(t, uint32(3), tc.Tiers())
	assert.Equal(t, EcnQueue, tc.queueType)
	assert.Equal(t, FairPrioQueue, tc.senderQueueType)
	assert.Equal(t, uint32(2), tc.radixUp[TorTier])
	assert.Equal(t, uint32(4), tc.radixDown[CoreTier])
	assert.Equal(t, 2e-6, tc.linkLatency[AggTier])
}

func TestTopoDescTierConfigErrors(t *testing.T) {
	t.Run("duplicated tier", func(t *testing.T) {
		td := smallTopoDesc()
		td.TierParams = append(td.TierParams, td.TierParams[0])
		_, err := td.TierConfig()
		assert.Error(t, err)
	})

	t.Run("bad tier parameter", func(t *testing.T) {
		td := smallTopoDesc()
		td.TierParams[0].RadixDown = 0
		_, err := td.TierConfig()
		assert.Error(t, err)
	})
}

func TestLoadTopologyMatchesProgrammatic(t *testing.T) {
	file := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, smallTopoDesc().WriteToFile(file))

	loaded, err := LoadTopology(file, nil, nil)
	require.NoError(t, err)

	built := smallTopology(t)
	assert.Equal(t, built.prm, loaded.prm)
	assert.Len(t, loaded.queues, len(built.queues))
	assert.Equal(t, routeLinks(built.Paths(0, 4, false)), routeLinks(loaded.Paths(0, 4, false)))
}

func TestLoadTopologyAppliesFailures(t *testing.T) {
	td := smallTopoDesc()
	td.FailedLinks = []FailedLinkDesc{
		{Tier: TorTier, SwitchID: 0, LinkID: 0},
		{Tier: AggTier, SwitchID: 2, LinkID: 1},
	}
	file := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, td.WriteToFile(file))

	top, err := LoadTopology(file, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, top.NoOfFailedLinks())
	assert.False(t, top.LinkUp(TorTier, 0, 0))
	assert.False(t, top.LinkUp(AggTier, 2, 1))
}

func TestLoadTopologyRejectsBadFailure(t *testing.T) {
	td := smallTopoDesc()
	td.FailedLinks = []FailedLinkDesc{{Tier: CoreTier, SwitchID: 0, LinkID: 7}}
	file := filepath.Join(t.TempDir(), "topo.json")
	require.NoError(t, td.WriteToFile(file))

	_, err := LoadTopology(file, nil, nil)
	assert.Error(t, err)
}

func TestLoadTopologySupernodeOverrides(t *testing.T) {
	td := smallTopoDesc()
	td.Supernode = SupernodeLinkDesc{LinkSpeed: 100_000_000_000, QueueSize: 800000,
		Latency: 1e-7, Bundlesize: 2}
	file := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, td.WriteToFile(file))

	top, err := LoadTopology(file, nil, nil)
	require.NoError(t, err)
	require.Len(t, top.upSnCore[0], 2)
	assert.Equal(t, uint64(100_000_000_000), top.QueueByID(top.upSnCore[0][0]).Speed)
}

func TestReportErrs(t *testing.T) {
	assert.NoError(t, ReportErrs([]error{nil, nil}))
	assert.NoError(t, ReportErrs([]error{}))

	err := ReportErrs([]error{nil, assert.AnError, assert.AnError})
	require.Error(t, err)
}
