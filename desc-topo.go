package fattree

// desc-topo.go carries the serializable description of a topology and the
// loader hook that turns a description file into a fully wired instance.
// Descriptions are pointer-free structs with json and yaml tags; the file
// extension selects the codec.  Loading a description produces the same
// derived parameters and wiring a programmatic construction with equivalent
// settings would produce.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// A TierParamDesc holds the serializable wiring parameters of one tier
type TierParamDesc struct {
	Tier          int    `json:"tier" yaml:"tier"`
	RadixUp       uint32 `json:"radixup" yaml:"radixup"`
	RadixDown     uint32 `json:"radixdown" yaml:"radixdown"`
	QueueUp       int64  `json:"queueup" yaml:"queueup"`
	QueueDown     int64  `json:"queuedown" yaml:"queuedown"`
	Bundlesize    uint32 `json:"bundlesize" yaml:"bundlesize"`
	DownlinkSpeed uint64 `json:"downlinkspeed" yaml:"downlinkspeed"`
	Oversub       uint32 `json:"oversub" yaml:"oversub"`
}

// A LatencyDesc holds the per-link-class and per-tier latencies, in seconds
type LatencyDesc struct {
	HostTor    float64 `json:"hosttor" yaml:"hosttor"`
	TorAgg     float64 `json:"toragg" yaml:"toragg"`
	AggCore    float64 `json:"aggcore" yaml:"aggcore"`
	TorSwitch  float64 `json:"torswitch" yaml:"torswitch"`
	AggSwitch  float64 `json:"aggswitch" yaml:"aggswitch"`
	CoreSwitch float64 `json:"coreswitch" yaml:"coreswitch"`
}

// A SupernodeLinkDesc holds the parameters dedicated to the supernode's
// per-core bundles.  Zero values defer to the Core tier settings
type SupernodeLinkDesc struct {
	LinkSpeed  uint64  `json:"linkspeed" yaml:"linkspeed"`
	QueueSize  int64   `json:"queuesize" yaml:"queuesize"`
	Latency    float64 `json:"latency" yaml:"latency"`
	Bundlesize uint32  `json:"bundlesize" yaml:"bundlesize"`
}

// A FailedLinkDesc names one bundle member to mark down after wiring
type FailedLinkDesc struct {
	Tier     int    `json:"tier" yaml:"tier"`
	SwitchID uint32 `json:"switchid" yaml:"switchid"`
	LinkID   uint32 `json:"linkid" yaml:"linkid"`
}

// A TopoDesc is the complete serializable description of a fat-tree
// topology
type TopoDesc struct {
	Name            string            `json:"name" yaml:"name"`
	Nodes           uint32            `json:"nodes" yaml:"nodes"`
	Tiers           uint32            `json:"tiers" yaml:"tiers"`
	HostsPerPod     uint32            `json:"hostsperpod" yaml:"hostsperpod"`
	QueueType       string            `json:"queuetype" yaml:"queuetype"`
	SenderQueueType string            `json:"senderqueuetype" yaml:"senderqueuetype"`
	TierParams      []TierParamDesc   `json:"tierparams" yaml:"tierparams"`
	Latencies       LatencyDesc       `json:"latencies" yaml:"latencies"`
	Supernode       SupernodeLinkDesc `json:"supernode" yaml:"supernode"`
	FailedLinks     []FailedLinkDesc  `json:"failedlinks" yaml:"failedlinks"`
}

// WriteToFile serializes the TopoDesc and writes to the file whose name is
// given as an input argument.  Extension of the file name selects whether
// serialization is to json or to yaml format
func (td *TopoDesc) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*td)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*td, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadTopoDesc deserializes a byte slice holding a representation of a
// TopoDesc struct.  If the input argument of dict (those bytes) is empty,
// the file whose name is given is read to acquire them
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	var err error

	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if os.IsNotExist(err) || fileInfo.IsDir() {
			return nil, fmt.Errorf("topology description %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := TopoDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// TierConfig turns the description into the configuration value topology
// construction consumes, reporting every problem it finds at once
func (td *TopoDesc) TierConfig() (*TierConfig, error) {
	var errs []error

	tc := CreateTierConfig(td.Tiers,
		QueueDisciplineFromStr(td.QueueType),
		QueueDisciplineFromStr(td.SenderQueueType))

	seen := []int{}
	for _, tp := range td.TierParams {
		if slices.Contains(seen, tp.Tier) {
			errs = append(errs, fmt.Errorf("tier %d described twice", tp.Tier))
			continue
		}
		seen = append(seen, tp.Tier)

		err := tc.SetTierParameters(tp.Tier, tp.RadixUp, tp.RadixDown,
			tp.QueueUp, tp.QueueDown, tp.Bundlesize, tp.DownlinkSpeed, tp.Oversub)
		errs = append(errs, err)
	}

	tc.SetLatencies(td.Latencies.HostTor, td.Latencies.TorAgg, td.Latencies.AggCore,
		td.Latencies.TorSwitch, td.Latencies.AggSwitch, td.Latencies.CoreSwitch)

	if td.HostsPerPod != 0 {
		tc.SetPodSize(td.HostsPerPod)
	}

	if td.Tiers == 3 && td.Supernode != (SupernodeLinkDesc{}) {
		sn := td.Supernode
		errs = append(errs, tc.SetSupernodeLink(sn.LinkSpeed, sn.QueueSize, sn.Latency, sn.Bundlesize))
	}

	err := ReportErrs(errs)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// LoadTopology reads a topology description from the named file, builds the
// equivalent wired instance, applies the described failures, and audits the
// result for full connectivity.  The logger and provider are passed through
// to construction and may be nil
func LoadTopology(filename string, logger BuildLogger, provider QueueMethodProvider) (*FatTreeTopology, error) {
	ext := path.Ext(filename)
	useYAML := (ext == ".yaml") || (ext == ".yml") || (ext == ".YAML")

	td, err := ReadTopoDesc(filename, useYAML, []byte{})
	if err != nil {
		return nil, err
	}

	tc, err := td.TierConfig()
	if err != nil {
		return nil, err
	}

	top, err := CreateFatTreeTopology(tc, td.Nodes, logger, provider)
	if err != nil {
		return nil, err
	}

	// described failures are data, so range errors come back as errors
	// rather than the panic the programmatic surface uses
	for _, fl := range td.FailedLinks {
		switches, links := top.uplinkRange(fl.Tier)
		if fl.SwitchID >= switches || fl.LinkID >= links {
			return nil, fmt.Errorf("described failed link (%s,%d,%d) not present in topology",
				tierToStr(fl.Tier), fl.SwitchID, fl.LinkID)
		}
		top.AddFailedLink(fl.Tier, fl.SwitchID, fl.LinkID)
	}

	err = top.CheckConnections()
	if err != nil {
		return nil, err
	}

	return top, nil
}

// ReportErrs transforms a list of errors and transforms the non-nil ones
// into a single error with comma-separated report of all the constituent
// errors, and returns it
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	for _, err := range errs {
		if err != nil {
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}

	return errors.New(strings.Join(errMsg, ","))
}
