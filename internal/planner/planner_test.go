package planner

import (
	"errors"
	"testing"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/store"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// fakeGateway is an in-memory store.Gateway, letting the planner be tested
// without touching a filesystem.
type fakeGateway struct {
	entries []store.Entry
}

func (g *fakeGateway) ListRecipes() ([]store.Entry, error) { return g.entries, nil }
func (g *fakeGateway) SaveRecipe(r *recipe.Recipe) error    { return nil }
func (g *fakeGateway) DeleteComponent(id recipe.Identifier) error { return nil }
func (g *fakeGateway) ResolveArtifactDirectory(id recipe.Identifier) string { return "" }

func withEntry(g *fakeGateway, r *recipe.Recipe) {
	g.entries = append(g.entries, store.Entry{Path: r.ComponentName + "-" + r.ComponentVersion + ".yaml", Recipe: r})
}

func template(name, version string) *recipe.Recipe {
	return &recipe.Recipe{
		ComponentName:    name,
		ComponentVersion: version,
		ComponentType:    recipe.ComponentTemplate,
		ParameterSchema:  recipe.ParameterSchema{},
	}
}

func paramFile(name, version, dependsOn, versionReq string) *recipe.Recipe {
	return &recipe.Recipe{
		ComponentName:    name,
		ComponentVersion: version,
		ComponentType:    recipe.ComponentGeneric,
		Dependencies: map[string]recipe.DependencyRequirement{
			dependsOn: {VersionRequirement: versionReq},
		},
	}
}

func TestBuildHappyPath(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, template("com.example.WebServerTemplate", "1.0.0"))
	withEntry(g, paramFile("com.example.MyWebServer", "1.0.0", "com.example.WebServerTemplate", "^1.0"))

	plan, err := Build(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	templates := plan.Templates()
	if len(templates) != 1 || templates[0] != "com.example.WebServerTemplate" {
		t.Fatalf("Templates() = %v, want [com.example.WebServerTemplate]", templates)
	}

	paramFiles := plan.ParameterFiles("com.example.WebServerTemplate")
	if len(paramFiles) != 1 || paramFiles[0].Name != "com.example.MyWebServer" {
		t.Fatalf("ParameterFiles() = %v, want one entry for com.example.MyWebServer", paramFiles)
	}
}

func TestBuildKeepsHighestTemplateVersion(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, template("com.example.WebServerTemplate", "1.0.0"))
	withEntry(g, template("com.example.WebServerTemplate", "2.0.0"))
	withEntry(g, paramFile("com.example.MyWebServer", "1.0.0", "com.example.WebServerTemplate", "^2.0"))

	plan, err := Build(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id := plan.TemplateIdentifier("com.example.WebServerTemplate")
	if id.Version != "2.0.0" {
		t.Fatalf("TemplateIdentifier().Version = %q, want 2.0.0", id.Version)
	}
}

func TestBuildRejectsTemplateDependingOnTemplate(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, template("com.example.BaseTemplate", "1.0.0"))
	dependent := template("com.example.DerivedTemplate", "1.0.0")
	dependent.Dependencies = map[string]recipe.DependencyRequirement{
		"com.example.BaseTemplate": {VersionRequirement: "^1.0"},
	}
	withEntry(g, dependent)

	_, err := Build(g)
	if !tmplerr.Of(err, tmplerr.Dependency) {
		t.Fatalf("expected Dependency error, got %v", err)
	}
}

func TestBuildRejectsMultipleTemplateDependencies(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, template("com.example.ATemplate", "1.0.0"))
	withEntry(g, template("com.example.BTemplate", "1.0.0"))

	dependent := paramFile("com.example.MyComponent", "1.0.0", "com.example.ATemplate", "^1.0")
	dependent.Dependencies["com.example.BTemplate"] = recipe.DependencyRequirement{VersionRequirement: "^1.0"}
	withEntry(g, dependent)

	_, err := Build(g)
	if !tmplerr.Of(err, tmplerr.Dependency) {
		t.Fatalf("expected Dependency error, got %v", err)
	}
}

func TestBuildRejectsMissingTemplateByNameHeuristic(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, paramFile("com.example.MyComponent", "1.0.0", "com.example.MissingTemplate", "^1.0"))

	_, err := Build(g)
	if !tmplerr.Of(err, tmplerr.Dependency) {
		t.Fatalf("expected Dependency error for a missing template-shaped dependency, got %v", err)
	}
}

func TestBuildIgnoresMissingNonTemplateDependency(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, paramFile("com.example.MyComponent", "1.0.0", "com.example.SomeLibrary", "^1.0"))

	if _, err := Build(g); err != nil {
		t.Fatalf("unexpected error for an ordinary, unresolved non-template dependency: %v", err)
	}
}

func TestBuildRejectsUnsatisfiedVersionRange(t *testing.T) {
	g := &fakeGateway{}
	withEntry(g, template("com.example.WebServerTemplate", "1.0.0"))
	withEntry(g, paramFile("com.example.MyWebServer", "1.0.0", "com.example.WebServerTemplate", "^2.0"))

	_, err := Build(g)
	if !tmplerr.Of(err, tmplerr.Dependency) {
		t.Fatalf("expected Dependency error for an unsatisfied version range, got %v", err)
	}
}

func TestBuildRejectsNonEmptyTemplateLifecycle(t *testing.T) {
	g := &fakeGateway{}
	tmpl := template("com.example.WebServerTemplate", "1.0.0")
	tmpl.Lifecycle = map[string]recipe.LifecycleStep{"run": {Script: "echo hi"}}
	withEntry(g, tmpl)

	_, err := Build(g)
	if !tmplerr.Of(err, tmplerr.RecipeTransform) {
		t.Fatalf("expected RecipeTransform error for a template with a non-empty lifecycle, got %v", err)
	}
}

func TestBuildPropagatesGatewayError(t *testing.T) {
	boom := errors.New("disk unavailable")
	g := &erroringGateway{err: boom}

	if _, err := Build(g); !errors.Is(err, boom) {
		t.Fatalf("expected the gateway's error to propagate, got %v", err)
	}
}

type erroringGateway struct{ err error }

func (g *erroringGateway) ListRecipes() ([]store.Entry, error)           { return nil, g.err }
func (g *erroringGateway) SaveRecipe(r *recipe.Recipe) error             { return nil }
func (g *erroringGateway) DeleteComponent(id recipe.Identifier) error    { return nil }
func (g *erroringGateway) ResolveArtifactDirectory(id recipe.Identifier) string { return "" }
