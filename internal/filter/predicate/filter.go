// Package predicate compiles filters into the attribute index tree and
// matches encoded events against them.
//
// A filter is a conjunction of conditions on one entity type. Each condition
// names an attribute by its dotted field path and carries a CEL expression
// over the value delivered for that attribute. A condition holds when at
// least one delivery during the pass satisfied it; a filter matches when all
// of its conditions hold. A filter without conditions matches every event of
// its entity type.
package predicate

import (
	"errors"
	"fmt"
)

var (
	ErrEntityTypeRequired = errors.New("protomatch: filter entity type is required")
	ErrFilterNotFound     = errors.New("protomatch: filter not found")
	ErrDuplicateFilter    = errors.New("protomatch: filter id already registered")
)

// Condition is a CEL expression bound to one attribute path.
type Condition struct {
	Path string `json:"path" yaml:"path"`
	Expr string `json:"expr" yaml:"expr"`
}

// Filter is a set of conditions that must all hold for an event of
// EntityType to match.
type Filter struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	EntityType string      `json:"entity_type" yaml:"entity_type"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// ConditionError reports a condition that could not be compiled or bound.
type ConditionError struct {
	FilterID string
	Index    int
	Path     string
	Err      error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("protomatch: filter %s condition %d (%s): %v", e.FilterID, e.Index, e.Path, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// Match is the outcome of evaluating one event.
type Match struct {
	// EntityType is the type name read from the event envelope.
	EntityType string
	// FilterIDs lists the matching filters in ascending id order.
	FilterIDs []string
	// Deliveries counts the values delivered to attributes during the pass.
	Deliveries int
}

// Matched reports whether any filter matched.
func (m Match) Matched() bool { return len(m.FilterIDs) > 0 }
