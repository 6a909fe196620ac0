// Package policy provides a CEL-based rule evaluator for override rules
// beyond the static classification and export tables: an operator can
// attach an expression to a document or recipient and have it evaluated
// fail-closed against a structured input.
package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and caches CEL programs, evaluating each against a
// structured input map. Compilation or evaluation failure is always
// treated as denial: a broken rule blocks rather than silently passes.
type Evaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator builds an Evaluator whose expressions see a "context" map
// (recipient, document, classification, riskTier, time fields) and a
// "now" unix-seconds timestamp.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("context", cel.DynType),
		cel.Variable("now", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: build cel environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Evaluate compiles expr (caching the compiled program) and evaluates it
// against the given context and timestamp. Any error — compile failure,
// evaluation failure, or a non-boolean result — is reported as a denial,
// never a silent allow.
func (e *Evaluator) Evaluate(expr string, context map[string]interface{}, nowUnix int64) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]interface{}{"context": context, "now": nowUnix})
	if err != nil {
		return false, fmt.Errorf("policy: evaluate %q: %w", expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy: expression %q did not evaluate to a boolean", expr)
	}
	return result, nil
}

// EvaluateAll requires every rule in rules to pass (fail-closed AND): a
// missing, broken, or false rule denies the whole set.
func (e *Evaluator) EvaluateAll(rules []string, context map[string]interface{}, nowUnix int64) (bool, error) {
	for _, rule := range rules {
		allowed, err := e.Evaluate(rule, context, nowUnix)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compile %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("policy: build program %q: %w", expr, err)
	}
	e.programs[expr] = prg
	return prg, nil
}
