// Package planner implements the Loader/Planner (C6): scanning a recipe
// directory into an identifier-indexed map, classifying templates and
// parameter files, validating the template-dependency rules of §3, and
// emitting the deterministic per-template work plan C7 consumes.
package planner

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/store"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// Plan is C6's output: for each template name, the ordered list of
// parameter-file identifiers that depend on it. Templates are iterated in
// lexicographic order by Templates(); within a template, ParameterFiles
// returns identifiers in the order Pass 2 recorded them, itself
// lexicographic by (name, version) because Scan visits recipes in that
// order.
type Plan struct {
	byTemplate map[string][]recipe.Identifier
	templates  map[string]recipe.Identifier // template name -> resolved identifier
	recipes    map[recipe.Identifier]*recipe.Recipe
}

// Templates returns the plan's template names in lexicographic order.
func (p *Plan) Templates() []string {
	names := make([]string, 0, len(p.byTemplate))
	for name := range p.byTemplate {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParameterFiles returns the parameter-file identifiers queued against the
// named template, in C6's deterministic order.
func (p *Plan) ParameterFiles(templateName string) []recipe.Identifier {
	return p.byTemplate[templateName]
}

// TemplateIdentifier returns the resolved (name, version) for a template
// name appearing in the plan.
func (p *Plan) TemplateIdentifier(templateName string) recipe.Identifier {
	return p.templates[templateName]
}

// Recipe returns the parsed recipe for an identifier indexed during Scan.
func (p *Plan) Recipe(id recipe.Identifier) *recipe.Recipe {
	return p.recipes[id]
}

// Build runs all three passes over the recipes gateway and returns the
// resulting Plan, or the first error any pass produces.
func Build(gw store.Gateway) (*Plan, error) {
	p := &Plan{
		byTemplate: map[string][]recipe.Identifier{},
		templates:  map[string]recipe.Identifier{},
		recipes:    map[recipe.Identifier]*recipe.Recipe{},
	}

	ordered, err := scan(gw, p)
	if err != nil {
		return nil, err
	}

	if err := classify(p, ordered); err != nil {
		return nil, err
	}

	if err := checkLifecycles(p); err != nil {
		return nil, err
	}

	return p, nil
}

// scan is Pass 1: index every parseable recipe by identifier, and index
// templates by name too, keeping only the highest version seen per
// template name. Returns the identifiers in the lexicographic order Build
// will classify them in, so Pass 2's plan-queue order is deterministic.
func scan(gw store.Gateway, p *Plan) ([]recipe.Identifier, error) {
	entries, err := gw.ListRecipes()
	if err != nil {
		return nil, err
	}

	ordered := make([]recipe.Identifier, 0, len(entries))
	for _, entry := range entries {
		id := entry.Recipe.Identifier()
		p.recipes[id] = entry.Recipe
		ordered = append(ordered, id)

		if entry.Recipe.IsTemplate() {
			existing, ok := p.templates[entry.Recipe.ComponentName]
			if !ok || versionLess(existing.Version, id.Version) {
				p.templates[entry.Recipe.ComponentName] = id
			}
		}
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })
	return ordered, nil
}

// classify is Pass 2: for every recipe, walk its dependency map looking
// for a dependency on a locally-known template, enforcing the
// template-dependency rules and recording parameter files against their
// template.
func classify(p *Plan, ordered []recipe.Identifier) error {
	for _, id := range ordered {
		r := p.recipes[id]

		var templateDepName string
		paramFileHasDependency := false

		for depName, dep := range r.Dependencies {
			templateID, isTemplate := p.templates[depName]
			if !isTemplate {
				if looksLikeTemplateName(depName) {
					return tmplerr.New(tmplerr.Dependency, "component depends on a version of "+depName+
						" that can't be found locally: requirement is "+dep.VersionRequirement).
						WithResource(id.String())
				}
				continue
			}

			if !satisfies(dep.VersionRequirement, templateID.Version) {
				return tmplerr.New(tmplerr.Dependency,
					"component "+id.Name+" depends on a version of "+depName+
						" that can't be found locally: requirement is "+dep.VersionRequirement+
						" but have "+templateID.Version).
					WithResource(id.String())
			}

			if r.IsTemplate() {
				return tmplerr.New(tmplerr.Dependency,
					"templates cannot depend on other templates: "+id.Name+" depends on "+depName).
					WithResource(id.String())
			}
			if paramFileHasDependency {
				return tmplerr.New(tmplerr.Dependency,
					"parameter file has multiple template dependencies: "+id.Name).
					WithResource(id.String())
			}
			paramFileHasDependency = true
			templateDepName = depName
		}

		if paramFileHasDependency {
			p.byTemplate[templateDepName] = append(p.byTemplate[templateDepName], id)
		}
	}
	return nil
}

// checkLifecycles is Pass 3: every recipe classified as a template must
// carry no lifecycle, neither top-level nor in any manifest.
func checkLifecycles(p *Plan) error {
	for name, id := range p.templates {
		r := p.recipes[id]
		if !r.LifecycleEmpty() {
			return tmplerr.New(tmplerr.RecipeTransform, "templates cannot have non-empty lifecycle").
				WithResource(name)
		}
	}
	return nil
}

// satisfies reports whether version satisfies the semver range expressed
// by requirement. An unparseable requirement or version is treated as
// unsatisfied rather than panicking, so a malformed recipe surfaces as a
// DependencyError instead of crashing the batch.
func satisfies(requirement, version string) bool {
	constraint, err := semver.NewConstraint(requirement)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// versionLess reports whether a is an older semver than b, falling back to
// a plain string comparison if either fails to parse so a malformed
// version never panics the scan.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// looksLikeTemplateName is the fallback heuristic the spec keeps only for
// dependencies naming a template that isn't present locally at all: a
// name ending in "Template" is assumed to be a template dependency so a
// missing template is reported as a DependencyError rather than silently
// ignored as an ordinary, unresolved dependency. Component type remains
// the sole authoritative signal once a recipe is actually present and
// parsed (recipe.Recipe.IsTemplate).
func looksLikeTemplateName(name string) bool {
	return strings.HasSuffix(name, "Template")
}
