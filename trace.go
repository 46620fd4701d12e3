package fattree

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// NameType is an entry in a dictionary created for a build trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// A BuildEvent records the creation of one topology entity
type BuildEvent struct {
	ObjID   int    `json:"objid" yaml:"objid"`
	ObjType string `json:"objtype" yaml:"objtype"`
	Name    string `json:"name" yaml:"name"`
	Tier    string `json:"tier" yaml:"tier"`
	Detail  string `json:"detail" yaml:"detail"`
}

// BuildTrace implements the BuildLogger interface.  It is used to gather
// a record of every switch, queue, and pipe a construction creates, for
// inspection or post-run analysis
type BuildTrace struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// creation events in the order construction produced them
	Events []BuildEvent `json:"events" yaml:"events"`

	nxtID int
}

// CreateBuildTrace is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace is active.  By testing this flag
// we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateBuildTrace(expName string, active bool) *BuildTrace {
	bt := new(BuildTrace)
	bt.InUse = active
	bt.ExpName = expName
	bt.NameByID = make(map[int]NameType)
	bt.Events = make([]BuildEvent, 0)
	return bt
}

// Active tells the caller whether the build trace is actively being used
func (bt *BuildTrace) Active() bool {
	return bt.InUse
}

// addName adds an element to the id -> (name,type) dictionary for the
// trace file
func (bt *BuildTrace) addName(id int, name string, objDesc string) {
	_, present := bt.NameByID[id]
	if present {
		panic("duplicated id in addName")
	}
	bt.NameByID[id] = NameType{Name: name, Type: objDesc}
}

// SwitchCreated records the creation of a switch
func (bt *BuildTrace) SwitchCreated(swtch *Switch) {
	if !bt.InUse {
		return
	}
	objID := bt.nxtID
	bt.nxtID++
	bt.addName(objID, swtch.Name, "switch")
	bt.Events = append(bt.Events, BuildEvent{ObjID: objID, ObjType: "switch",
		Name: swtch.Name, Tier: tierToStr(swtch.Tier),
		Detail: fmt.Sprintf("tierid %d", swtch.TierID)})
}

// QueueCreated records the creation of a queue
func (bt *BuildTrace) QueueCreated(queue *Queue) {
	if !bt.InUse {
		return
	}
	objID := bt.nxtID
	bt.nxtID++
	bt.addName(objID, queue.Name, "queue")
	bt.Events = append(bt.Events, BuildEvent{ObjID: objID, ObjType: "queue",
		Name: queue.Name, Tier: tierToStr(queue.Tier),
		Detail: fmt.Sprintf("%s %s capacity %d speed %d",
			linkDirToStr(queue.Dir), QueueDisciplineToStr(queue.Discipline),
			queue.Capacity, queue.Speed)})
}

// PipeCreated records the creation of a pipe
func (bt *BuildTrace) PipeCreated(pipe *Pipe) {
	if !bt.InUse {
		return
	}
	objID := bt.nxtID
	bt.nxtID++
	bt.addName(objID, pipe.Name, "pipe")
	bt.Events = append(bt.Events, BuildEvent{ObjID: objID, ObjType: "pipe",
		Name: pipe.Name, Tier: tierToStr(pipe.Tier),
		Detail: fmt.Sprintf("%s latency %e", linkDirToStr(pipe.Dir), pipe.Latency)})
}

// WriteToFile stores the BuildTrace struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of
// this name
func (bt *BuildTrace) WriteToFile(filename string) bool {
	if !bt.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*bt)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*bt, "", "\t")
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
	return true
}
