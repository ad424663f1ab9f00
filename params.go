package ponavail

// params.go holds the parameters of an experiment: the shape of the PON
// to generate, the availabilities of its components, and the probabilities
// that drive the random choices.  Parameters are read from a yaml or json
// file (chosen by extension) and checked with struct-tag validation.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// leaf modes understood by the engine
const (
	// LeafEndpoint treats a leaf met as a neighbour like any other
	// component, contributing its self-availability
	LeafEndpoint = "endpoint"

	// LeafInterOperator gives primary leaves no onward path (they
	// contribute 0) and gives alternate leaves a path into another
	// operator's network
	LeafInterOperator = "interoperator"
)

// Params are the inputs of one experiment.  The yaml and json keys are the
// names the command line uses for the same values.
type Params struct {
	// number of children created at every hub
	SplitRatio int `json:"branching-factor" yaml:"branching-factor" validate:"gte=1"`

	// number of hub layers beyond the root before terminals are forced
	Stages int `json:"stage-count" yaml:"stage-count" validate:"gte=0"`

	// number of subtrees attached to the root. 0 selects SplitRatio
	Feeders int `json:"feeders" yaml:"feeders" validate:"gte=0"`

	// self-availabilities, per role
	OltAvaila float64 `json:"olt-availa" yaml:"olt-availa" validate:"gt=0,lte=1"`
	OnuAvaila float64 `json:"onu-availa" yaml:"onu-availa" validate:"gt=0,lte=1"`
	PrnAvaila float64 `json:"prn-availa" yaml:"prn-availa" validate:"gt=0,lte=1"`
	ArnAvaila float64 `json:"arn-availa" yaml:"arn-availa" validate:"gt=0,lte=1"`

	// link availabilities, per segment
	FeederAvaila float64 `json:"feeder-availa" yaml:"feeder-availa" validate:"gt=0,lte=1"`
	DistAvaila   float64 `json:"distribution-availa" yaml:"distribution-availa" validate:"gt=0,lte=1"`
	LastAvaila   float64 `json:"last-mile-availa" yaml:"last-mile-availa" validate:"gt=0,lte=1"`

	// probability that a hub is active
	ActiveProb float64 `json:"active-prob" yaml:"active-prob" validate:"gte=0,lte=1"`

	// probability that a terminal is an alternate (inter-operator) leaf
	AlternateProb float64 `json:"alternate-prob" yaml:"alternate-prob" validate:"gte=0,lte=1"`

	// probability that a child of a hub skips straight to the terminal stage
	SkipProb float64 `json:"skip-prob" yaml:"skip-prob" validate:"gte=0,lte=1"`

	Seed int64 `json:"seed" yaml:"seed"`

	LeafMode string `json:"leaf-mode" yaml:"leaf-mode" validate:"omitempty,oneof=endpoint interoperator"`

	// number of seeds (Seed, Seed+1, ...) to run. 0 means 1
	Replications int `json:"replications" yaml:"replications" validate:"gte=0"`
}

var validate *validator.Validate = validator.New()

// DefaultParams returns a valid parameter set: a 1:4 split, two stages,
// carrier-grade component availabilities
func DefaultParams() *Params {
	return &Params{
		SplitRatio:    4,
		Stages:        2,
		OltAvaila:     0.99999,
		OnuAvaila:     0.9999,
		PrnAvaila:     0.99999,
		ArnAvaila:     0.9999,
		FeederAvaila:  0.9999,
		DistAvaila:    0.9999,
		LastAvaila:    0.99999,
		ActiveProb:    0.5,
		AlternateProb: 0.1,
		SkipProb:      0.1,
		Seed:          1,
		LeafMode:      LeafEndpoint,
		Replications:  1,
	}
}

// Validate checks every parameter against its allowed range.  The
// returned error wraps ErrConfig.
func (p *Params) Validate() error {
	if p == nil {
		return configErrorf("no parameters")
	}
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(fe))
	}
	return ReportErrs(errs)
}

// fieldError reports a failed field using its yaml key, which is also the
// command line flag name
func fieldError(fe validator.FieldError) error {
	key := paramKey(fe.StructField())
	switch fe.Tag() {
	case "gte":
		return configErrorf("%s must be at least %s, got %v", key, fe.Param(), fe.Value())
	case "gt":
		return configErrorf("%s must be greater than %s, got %v", key, fe.Param(), fe.Value())
	case "lte":
		return configErrorf("%s must not exceed %s, got %v", key, fe.Param(), fe.Value())
	case "oneof":
		return configErrorf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	}
	return configErrorf("%s failed %s check", key, fe.Tag())
}

var paramKeys map[string]string = map[string]string{
	"SplitRatio":    "branching-factor",
	"Stages":        "stage-count",
	"Feeders":       "feeders",
	"OltAvaila":     "olt-availa",
	"OnuAvaila":     "onu-availa",
	"PrnAvaila":     "prn-availa",
	"ArnAvaila":     "arn-availa",
	"FeederAvaila":  "feeder-availa",
	"DistAvaila":    "distribution-availa",
	"LastAvaila":    "last-mile-availa",
	"ActiveProb":    "active-prob",
	"AlternateProb": "alternate-prob",
	"SkipProb":      "skip-prob",
	"Seed":          "seed",
	"LeafMode":      "leaf-mode",
	"Replications":  "replications",
}

func paramKey(field string) string {
	if key, present := paramKeys[field]; present {
		return key
	}
	return field
}

// feeders returns the number of subtrees to hang from the root
func (p *Params) feeders() int {
	if p.Feeders > 0 {
		return p.Feeders
	}
	return p.SplitRatio
}

// replications returns the number of seeds to run
func (p *Params) replications() int {
	if p.Replications > 0 {
		return p.Replications
	}
	return 1
}

// leafMode returns the leaf mode, defaulting to LeafEndpoint
func (p *Params) leafMode() string {
	if len(p.LeafMode) > 0 {
		return p.LeafMode
	}
	return LeafEndpoint
}

// ReadParams deserializes a byte slice holding a representation of a Params struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  Fields absent from the input keep their DefaultParams values.
// The result is not validated; call Validate.
func ReadParams(filename string, useYAML bool, dict []byte) (*Params, error) {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := DefaultParams()
	if useYAML {
		err = yaml.Unmarshal(dict, example)
	} else {
		err = json.Unmarshal(dict, example)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, filename, err)
	}
	return example, nil
}

// WriteToFile stores the Params struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (p *Params) WriteToFile(filename string) error {
	bytes, err := marshalByExt(filename, p)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// UseYAML reports whether a file name's extension selects yaml
func UseYAML(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

// marshalByExt serializes v as yaml or json depending on the extension of filename
func marshalByExt(filename string, v any) ([]byte, error) {
	pathExt := path.Ext(filename)
	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		return yaml.Marshal(v)
	case ".json", ".JSON":
		return json.MarshalIndent(v, "", "\t")
	}
	return nil, fmt.Errorf("file %s: extension %q is neither yaml nor json", filename, pathExt)
}
