package policy

import (
	"context"
	"testing"

	"github.com/edgecompose/tmplengine/internal/recipe"
)

func TestBuiltinPoliciesAllowWellFormedRecipe(t *testing.T) {
	ctx := context.Background()
	linter, err := New(ctx, BuiltinPolicies())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := &recipe.Recipe{
		ComponentName:    "com.example.MyWebServer",
		ComponentVersion: "1.0.0",
		ComponentType:    recipe.ComponentGeneric,
	}

	violations, err := linter.Check(ctx, r)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations for a well-formed recipe, got %+v", violations)
	}
}

func TestComponentNamingPolicyRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	linter, err := New(ctx, []Policy{componentNamingPolicy()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	violations, err := linter.Check(ctx, &recipe.Recipe{ComponentName: ""})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("expected a violation for an empty component name")
	}
}

func TestComponentNamingPolicyRejectsWhitespace(t *testing.T) {
	ctx := context.Background()
	linter, err := New(ctx, []Policy{componentNamingPolicy()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	violations, err := linter.Check(ctx, &recipe.Recipe{ComponentName: "com.example My Thing"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("expected a violation for a component name containing whitespace")
	}
}

func TestTemplateVersioningPolicyRejectsNonSemverTemplate(t *testing.T) {
	ctx := context.Background()
	linter, err := New(ctx, []Policy{templateVersioningPolicy()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := &recipe.Recipe{
		ComponentName:    "com.example.WebServerTemplate",
		ComponentVersion: "latest",
		ComponentType:    recipe.ComponentTemplate,
	}
	violations, err := linter.Check(ctx, r)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("expected a violation for a template with a non-semver version")
	}
}

func TestTemplateVersioningPolicyIgnoresNonTemplates(t *testing.T) {
	ctx := context.Background()
	linter, err := New(ctx, []Policy{templateVersioningPolicy()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := &recipe.Recipe{
		ComponentName:    "com.example.MyWebServer",
		ComponentVersion: "latest",
		ComponentType:    recipe.ComponentGeneric,
	}
	violations, err := linter.Check(ctx, r)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violation for a non-template's version string, got %+v", violations)
	}
}

func TestNewRejectsUncompilableModule(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, []Policy{{Name: "broken", Rego: "this is not valid rego"}})
	if err == nil {
		t.Fatal("expected New to fail compiling a malformed policy")
	}
}
