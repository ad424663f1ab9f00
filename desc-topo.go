package ponavail

// desc-topo.go converts between the run-time Topology and a description of
// it that holds no pointers and no ids, and so serializes directly to yaml
// or json.  A Topology is the build-time form, linked through ids; a
// TopoDesc is what gets written to and read from files.  Nodes are
// referenced by name in a description.

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeDesc is the serializable description of a node
type NodeDesc struct {
	// unique among the nodes of the topology
	Name string `json:"name" yaml:"name"`

	// one of olt, onu, ico, prn, arn
	Role string `json:"role" yaml:"role"`

	// self-availability
	Availa float64 `json:"availa" yaml:"availa"`
}

// LinkDesc is the serializable description of a fiber, from the parent
// (From) to the child (To)
type LinkDesc struct {
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to" yaml:"to"`
	Availa float64 `json:"availa" yaml:"availa"`
}

// TopoDesc is the serializable description of a whole topology
type TopoDesc struct {
	Name  string     `json:"name" yaml:"name"`
	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
	Links []LinkDesc `json:"links" yaml:"links"`
}

// CreateTopoDesc is a constructor
func CreateTopoDesc(name string) *TopoDesc {
	return &TopoDesc{Name: name, Nodes: []NodeDesc{}, Links: []LinkDesc{}}
}

// AddNode appends a node description
func (td *TopoDesc) AddNode(name string, role Role, availa float64) {
	td.Nodes = append(td.Nodes, NodeDesc{Name: name, Role: role.String(), Availa: availa})
}

// AddLink appends a link description
func (td *TopoDesc) AddLink(from, to string, availa float64) {
	td.Links = append(td.Links, LinkDesc{From: from, To: to, Availa: availa})
}

// Desc returns the description of the topology.  Nodes without a label
// get one from NameNodes first, so every node can be referenced.
func (topo *Topology) Desc() *TopoDesc {
	for _, n := range topo.nodes {
		if len(n.Name) == 0 {
			topo.NameNodes()
			break
		}
	}

	td := CreateTopoDesc(topo.Name)
	for _, n := range topo.nodes {
		td.AddNode(n.Name, n.Role, n.Availa)
	}
	for _, e := range topo.edges {
		td.AddLink(topo.nodes[e.From].Name, topo.nodes[e.To].Name, e.Availa)
	}
	return td
}

// BuildTopology creates the Topology a description describes, and
// validates it.  Node ids follow the order of td.Nodes.
func BuildTopology(td *TopoDesc) (*Topology, error) {
	topo := CreateTopology(td.Name)
	errs := []error{}

	byName := make(map[string]NodeID)
	for _, nd := range td.Nodes {
		role, err := ParseRole(nd.Role)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", nd.Name, err))
			continue
		}
		if len(nd.Name) == 0 {
			errs = append(errs, fmt.Errorf("node of role %s has no name", nd.Role))
			continue
		}
		if _, present := byName[nd.Name]; present {
			errs = append(errs, fmt.Errorf("node name %s is duplicated", nd.Name))
			continue
		}

		var id NodeID
		if role == Root {
			id, err = topo.AddRoot(nd.Availa)
			if err != nil {
				errs = append(errs, err)
				continue
			}
		} else {
			id = topo.AddNode(role, nd.Availa)
		}
		topo.nodes[id].Name = nd.Name
		byName[nd.Name] = id
	}

	for _, ld := range td.Links {
		from, fok := byName[ld.From]
		to, tok := byName[ld.To]
		if !fok || !tok {
			errs = append(errs, fmt.Errorf("link %s -> %s names an unknown node", ld.From, ld.To))
			continue
		}
		if _, err := topo.Connect(from, to, ld.Availa); err != nil {
			errs = append(errs, fmt.Errorf("link %s -> %s: %w", ld.From, ld.To, err))
		}
	}

	if err := ReportErrs(errs); err != nil {
		return nil, fmt.Errorf("%w: topology %s: %w", ErrInvariant, td.Name, err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return topo, nil
}

// WriteToFile stores the TopoDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (td *TopoDesc) WriteToFile(filename string) error {
	bytes, err := marshalByExt(filename, td)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// ReadTopoDesc deserializes a byte slice holding a representation of a TopoDesc struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  A deserialized representation is returned, or an error if one is generated
// from a file read or the deserialization.
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if os.IsNotExist(err) || (err == nil && fileInfo.IsDir()) {
			return nil, fmt.Errorf("topology %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := TopoDesc{}

	// input path extension identifies whether we deserialized encoded json or encoded yaml
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
