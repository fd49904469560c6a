package predicate

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Filters []Filter `yaml:"filters"`
}

// LoadYAML reads filter definitions from one or more YAML documents of the
// form
//
//	filters:
//	  - id: adults
//	    entity_type: test.Person
//	    conditions:
//	      - path: age
//	        expr: value >= 18
//
// Unknown keys are rejected.
func LoadYAML(r io.Reader) ([]Filter, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var filters []Filter
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("protomatch: filter yaml: %w", err)
		}
		for i, f := range doc.Filters {
			if f.EntityType == "" {
				return nil, fmt.Errorf("%w: filter yaml entry %d", ErrEntityTypeRequired, len(filters)+i)
			}
		}
		filters = append(filters, doc.Filters...)
	}
	return filters, nil
}

// LoadYAMLFile is LoadYAML over the file at path.
func LoadYAMLFile(path string) ([]Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadYAML(f)
}
