package runtime

import (
	"github.com/drblury/protomatch/internal/filter/predicate"
	"github.com/drblury/protomatch/internal/filter/schema"
	configpkg "github.com/drblury/protomatch/internal/runtime/config"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
)

// NewFilterSet builds a filter set honouring conf.RecursionLimit and seeded
// with the definitions in conf.FiltersFile, if any.
func NewFilterSet(registry schema.Registry, conf *configpkg.Config, opts ...predicate.SetOption) (*predicate.Set, error) {
	if registry == nil {
		return nil, errspkg.ErrRegistryRequired
	}
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}

	setOpts := make([]predicate.SetOption, 0, len(opts)+1)
	if conf.RecursionLimit > 0 {
		setOpts = append(setOpts, predicate.WithRecursionLimit(conf.RecursionLimit))
	}
	setOpts = append(setOpts, opts...)

	set, err := predicate.NewSet(registry, setOpts...)
	if err != nil {
		return nil, err
	}
	if conf.FiltersFile == "" {
		return set, nil
	}
	filters, err := predicate.LoadYAMLFile(conf.FiltersFile)
	if err != nil {
		return nil, err
	}
	if _, err := set.AddAll(filters); err != nil {
		return nil, err
	}
	return set, nil
}
