package predicate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/drblury/protomatch/internal/filter/attr"
)

// Variables visible to condition expressions.
const (
	VarValue  = "value"
	VarIsNull = "is_null"
	VarIsSet  = "is_set"
	VarKind   = "kind"
)

var (
	ErrEmptyExpression = errors.New("protomatch: condition expression is empty")
	ErrNotBoolean      = errors.New("protomatch: condition expression must evaluate to bool")
)

// Compiler turns condition expressions into attribute listeners. Programs are
// cached by source text, so identical conditions across filters share one.
type Compiler struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCompiler prepares the CEL environment conditions are checked against.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarValue, cel.DynType),
		cel.Variable(VarIsNull, cel.BoolType),
		cel.Variable(VarIsSet, cel.BoolType),
		cel.Variable(VarKind, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("protomatch: cel environment: %w", err)
	}
	return &Compiler{env: env, cache: make(map[string]cel.Program)}, nil
}

// Compile checks expr and returns a listener evaluating it.
func (c *Compiler) Compile(expr string) (attr.Listener, error) {
	if expr == "" {
		return nil, ErrEmptyExpression
	}

	c.mu.RLock()
	prg, ok := c.cache[expr]
	c.mu.RUnlock()
	if ok {
		return &celListener{prg: prg}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, ok = c.cache[expr]; ok {
		return &celListener{prg: prg}, nil
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("protomatch: compile %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBoolean, expr, out)
	}
	prg, err := c.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("protomatch: program %q: %w", expr, err)
	}
	c.cache[expr] = prg
	return &celListener{prg: prg}, nil
}

// celListener is stateless; a cel.Program is safe for concurrent use.
type celListener struct {
	prg cel.Program
}

func (l *celListener) Test(v attr.Value) bool {
	out, _, err := l.prg.Eval(map[string]any{
		VarValue:  celValue(v.Interface()),
		VarIsNull: v.IsNull(),
		VarIsSet:  v.IsSet(),
		VarKind:   v.Kind().String(),
	})
	if err != nil {
		return false
	}
	ok, isBool := out.Value().(bool)
	return isBool && ok
}

// celValue widens decoded scalars to the types CEL works with.
func celValue(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	case protoreflect.EnumNumber:
		return int64(x)
	default:
		return v
	}
}
