package ponavail

import (
	"os"
	"sync"
)

// TraceInst is one step of an availability computation
type TraceInst struct {
	Op    string  `json:"op" yaml:"op"`       // "reach", "memo" or "trace"
	Node  string  `json:"node" yaml:"node"`   // node evaluated
	From  string  `json:"from" yaml:"from"`   // neighbour excluded, empty for a top-level query
	Value float64 `json:"value" yaml:"value"` // availability found
}

// NameType is a an entry in a dictionary created for a trace
// that maps node id numbers to a (name,role) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers the steps the engine takes while it evaluates the
// terminals of a topology.  The steps are grouped by the id of the terminal
// whose evaluation caused them.
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each node id
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by terminal id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`

	// parallel evaluation adds traces from several goroutines
	mu sync.Mutex
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores a step of the evaluation of terminal termID
func (tm *TraceManager) AddTrace(termID int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.Traces[termID] = append(tm.Traces[termID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if !tm.Active() {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, present := tm.NameByID[id]; present {
		panic("duplicated id in AddName")
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
}

// AddTopology enters the nodes of the topology into the name dictionary.
// Ids already present are left as they are, so a topology evaluated more
// than once is named only once.
func (tm *TraceManager) AddTopology(topo *Topology) {
	if !tm.Active() {
		return
	}
	for _, n := range topo.nodes {
		if tm.named(int(n.ID)) {
			continue
		}
		tm.AddName(int(n.ID), topo.nodeName(n.ID), n.Role.String())
	}
}

func (tm *TraceManager) named(id int) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, present := tm.NameByID[id]
	return present
}

// Steps returns the number of steps recorded for terminal termID
func (tm *TraceManager) Steps(termID int) int {
	if !tm.Active() {
		return 0
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.Traces[termID])
}

// WriteToFile stores the trace to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// Nothing is written, and false returned, when the manager is not in use.
func (tm *TraceManager) WriteToFile(filename string) (bool, error) {
	if !tm.Active() {
		return false, nil
	}
	tm.mu.Lock()
	bytes, err := marshalByExt(filename, tm)
	tm.mu.Unlock()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(filename, bytes, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
