// Package policy implements an optional pre-flight recipe linter: a set of
// Rego policies evaluated against every scanned recipe before the plan is
// built, so authoring mistakes that are not structural (a forbidden
// dependency range, a disallowed component name) surface before a
// template's transformer ever runs. This sits alongside, not inside, the
// core: a deployment that carries no policies skips it entirely.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// Policy is a single named Rego module. Its package MUST define a `deny`
// rule that evaluates to a set of violation-message strings.
type Policy struct {
	Name string
	Rego string
}

// Violation reports one policy's objection to one recipe.
type Violation struct {
	Policy   string
	Resource string
	Message  string
}

// Linter evaluates a fixed set of policies against recipes.
type Linter struct {
	policies []compiledPolicy
}

type compiledPolicy struct {
	name        string
	packageName string
	query       rego.PreparedEvalQuery
}

// New compiles every policy and returns a Linter ready to check recipes.
// A policy whose Rego fails to compile is a configuration error, reported
// immediately rather than deferred to the first Check call.
func New(ctx context.Context, policies []Policy) (*Linter, error) {
	l := &Linter{}
	for _, p := range policies {
		pkg := packageName(p.Rego)
		r := rego.New(
			rego.Module(p.Name, p.Rego),
			rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
		)
		query, err := r.PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("policy %q failed to compile: %w", p.Name, err)
		}
		l.policies = append(l.policies, compiledPolicy{name: p.Name, packageName: pkg, query: query})
	}
	return l, nil
}

// recipeInput is the shape exposed to a policy's Rego `input`. Only the
// fields a policy plausibly needs to reason about are exposed, mirroring
// the recipe model rather than dumping the raw document.
type recipeInput struct {
	ComponentName    string                 `json:"component_name"`
	ComponentVersion string                 `json:"component_version"`
	ComponentType    string                 `json:"component_type"`
	Dependencies     map[string]string      `json:"dependencies"`
	DefaultConfig    map[string]interface{} `json:"default_config"`
}

// Check evaluates every compiled policy against r and returns every
// violation found across all of them. Check never fails the batch itself
// — callers decide whether any violation should abort process(); by
// default the CLI's lint command treats any violation as fatal.
func (l *Linter) Check(ctx context.Context, r *recipe.Recipe) ([]Violation, error) {
	input := recipeInput{
		ComponentName:    r.ComponentName,
		ComponentVersion: r.ComponentVersion,
		ComponentType:    string(r.ComponentType),
		Dependencies:     map[string]string{},
		DefaultConfig:    r.DefaultConfig,
	}
	for name, dep := range r.Dependencies {
		input.Dependencies[name] = dep.VersionRequirement
	}

	var violations []Violation
	for _, p := range l.policies {
		results, err := p.query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return nil, tmplerr.Wrap(tmplerr.TemplateAuthoring, "policy evaluation failed", err).
				WithResource(r.Identifier().String()).WithOperation(p.name)
		}
		for _, result := range results {
			if len(result.Expressions) == 0 {
				continue
			}
			deny, ok := result.Expressions[0].Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range deny {
				msg, ok := d.(string)
				if !ok {
					msg = fmt.Sprintf("%v", d)
				}
				violations = append(violations, Violation{
					Policy:   p.name,
					Resource: r.Identifier().String(),
					Message:  msg,
				})
			}
		}
	}
	return violations, nil
}

// packageName extracts the Rego package declaration so the evaluation
// query can target its deny rule without the caller naming it separately.
func packageName(regoSrc string) string {
	for _, line := range strings.Split(regoSrc, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				return fields[1]
			}
		}
	}
	return "tmplengine.policies"
}
