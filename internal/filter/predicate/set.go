package predicate

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/drblury/protomatch/internal/filter/attr"
	"github.com/drblury/protomatch/internal/filter/eval"
	"github.com/drblury/protomatch/internal/filter/schema"
	"github.com/drblury/protomatch/internal/filter/wire"
	"github.com/drblury/protomatch/internal/ids"
)

// SetOption customises a Set.
type SetOption func(*Set)

// WithRecursionLimit bounds the message nesting depth accepted when decoding
// events. Values below one keep the decoder default.
func WithRecursionLimit(limit int) SetOption {
	return func(s *Set) {
		s.decoder.RecursionLimit = limit
	}
}

// WithCompiler shares a compiler, and so its program cache, between sets.
func WithCompiler(c *Compiler) SetOption {
	return func(s *Set) {
		if c != nil {
			s.compiler = c
		}
	}
}

type compiled struct {
	filter    Filter
	paths     [][]protowire.Number
	listeners []attr.Listener
}

type matcher struct {
	id         string
	entityType string
	slots      []int
}

// snapshot is an immutable tree together with the slots each filter owns in
// it. Match always works on one snapshot from start to end.
type snapshot struct {
	tree     *attr.Tree
	matchers []matcher
}

// Set holds the registered filters. Match may run concurrently with itself
// and with Add or Remove; writers serialise on a mutex and publish a freshly
// built tree atomically.
type Set struct {
	registry schema.Registry
	compiler *Compiler
	decoder  wire.Decoder

	mu      sync.Mutex
	filters map[string]*compiled
	current atomic.Pointer[snapshot]
}

// NewSet returns an empty set resolving entity types through registry.
func NewSet(registry schema.Registry, opts ...SetOption) (*Set, error) {
	if registry == nil {
		return nil, schema.ErrRegistryRequired
	}
	s := &Set{
		registry: registry,
		filters:  make(map[string]*compiled),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.compiler == nil {
		compiler, err := NewCompiler()
		if err != nil {
			return nil, err
		}
		s.compiler = compiler
	}
	s.current.Store(&snapshot{tree: attr.NewBuilder().Build()})
	return s, nil
}

// Add registers f and returns its id, minting a ULID when f has none.
func (s *Set) Add(f Filter) (string, error) {
	added, err := s.AddAll([]Filter{f})
	if err != nil {
		return "", err
	}
	return added[0], nil
}

// AddAll registers every filter or none of them.
func (s *Set) AddAll(filters []Filter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*compiled, len(s.filters)+len(filters))
	for id, cf := range s.filters {
		next[id] = cf
	}
	added := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.ID == "" {
			f.ID = ids.New()
		}
		if _, exists := next[f.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFilter, f.ID)
		}
		cf, err := s.compile(f)
		if err != nil {
			return nil, err
		}
		next[f.ID] = cf
		added = append(added, f.ID)
	}
	if err := s.publish(next); err != nil {
		return nil, err
	}
	return added, nil
}

// Remove unregisters the filter with the given id.
func (s *Set) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filters[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFilterNotFound, id)
	}
	next := make(map[string]*compiled, len(s.filters))
	for fid, cf := range s.filters {
		if fid != id {
			next[fid] = cf
		}
	}
	return s.publish(next)
}

// Len is the number of registered filters.
func (s *Set) Len() int {
	return len(s.current.Load().matchers)
}

// Filters returns copies of the registered filters ordered by id.
func (s *Set) Filters() []Filter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Filter, 0, len(s.filters))
	for _, cf := range s.filters {
		f := cf.filter
		f.Conditions = append([]Condition(nil), f.Conditions...)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Match evaluates one encoded envelope against the filters registered when
// the call starts. Evaluation failures are returned as errors, never as an
// empty match.
func (s *Set) Match(instance []byte) (Match, error) {
	snap := s.current.Load()
	c := eval.New(instance, s.registry, snap.tree, eval.WithDecoder(s.decoder))
	if err := c.Evaluate(); err != nil {
		return Match{EntityType: c.TypeName(), Deliveries: c.Deliveries()}, err
	}

	m := Match{EntityType: c.TypeName(), Deliveries: c.Deliveries()}
	if m.EntityType == "" {
		return m, nil
	}
	for _, mt := range snap.matchers {
		if mt.entityType == m.EntityType && satisfiedAll(c, mt.slots) {
			m.FilterIDs = append(m.FilterIDs, mt.id)
		}
	}
	return m, nil
}

func satisfiedAll(c *eval.Context, slots []int) bool {
	for _, slot := range slots {
		if !c.Satisfied(slot) {
			return false
		}
	}
	return true
}

func (s *Set) compile(f Filter) (*compiled, error) {
	if f.EntityType == "" {
		return nil, fmt.Errorf("%w: filter %s", ErrEntityTypeRequired, f.ID)
	}
	md, err := s.registry.Resolve(f.EntityType)
	if err != nil {
		return nil, fmt.Errorf("protomatch: filter %s: %w", f.ID, err)
	}

	cf := &compiled{
		filter:    f,
		paths:     make([][]protowire.Number, 0, len(f.Conditions)),
		listeners: make([]attr.Listener, 0, len(f.Conditions)),
	}
	cf.filter.Conditions = append([]Condition(nil), f.Conditions...)
	for i, cond := range f.Conditions {
		fds, err := schema.ResolvePath(md, cond.Path)
		if err != nil {
			return nil, &ConditionError{FilterID: f.ID, Index: i, Path: cond.Path, Err: err}
		}
		listener, err := s.compiler.Compile(cond.Expr)
		if err != nil {
			return nil, &ConditionError{FilterID: f.ID, Index: i, Path: cond.Path, Err: err}
		}
		path := make([]protowire.Number, len(fds))
		for j, fd := range fds {
			path[j] = fd.Number()
		}
		cf.paths = append(cf.paths, path)
		cf.listeners = append(cf.listeners, listener)
	}
	return cf, nil
}

// publish builds the tree for filters and swaps it in. Filters are bound in
// id order so slot numbering is reproducible.
func (s *Set) publish(filters map[string]*compiled) error {
	order := make([]string, 0, len(filters))
	for id := range filters {
		order = append(order, id)
	}
	sort.Strings(order)

	b := attr.NewBuilder()
	snap := &snapshot{matchers: make([]matcher, 0, len(order))}
	for _, id := range order {
		cf := filters[id]
		if err := b.Root(cf.filter.EntityType); err != nil {
			return err
		}
		mt := matcher{id: id, entityType: cf.filter.EntityType, slots: make([]int, 0, len(cf.paths))}
		for i, path := range cf.paths {
			slot, err := b.Bind(cf.filter.EntityType, path, cf.listeners[i])
			if err != nil {
				return fmt.Errorf("protomatch: filter %s: %w", id, err)
			}
			mt.slots = append(mt.slots, slot)
		}
		snap.matchers = append(snap.matchers, mt)
	}
	snap.tree = b.Build()

	s.filters = filters
	s.current.Store(snap)
	return nil
}
