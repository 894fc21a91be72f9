// Package transform defines the shape a transformer plugin must satisfy
// (C4) and the per-template initialization protocol that binds an
// instantiated transformer to its declaring template recipe.
package transform

import (
	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/schema"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// Transformer is the pluggable object a template's artifact must provide.
// Implementations live behind the plugin host (C5); the loadedTransformer in
// package plugin is the only production implementation, but the interface
// is what lets tests substitute an in-process fake.
type Transformer interface {
	// DeclaredSchema returns the authoritative parameter schema baked into
	// the transformer artifact.
	DeclaredSchema() (recipe.ParameterSchema, error)

	// ParameterShape returns a descriptor of the concrete record type
	// Transform expects its effectiveParams argument to satisfy. A nil or
	// empty descriptor is valid for pure-substitution templates that
	// consume no parameters beyond what the schema already validates.
	ParameterShape() (map[string]recipe.ParameterType, error)

	// Transform produces a fully-specified recipe from a parameter file's
	// recipe and its already-merged, already-validated parameter bag.
	Transform(paramRecipe *recipe.Recipe, effectiveParams map[string]any) (*recipe.Recipe, error)
}

// Initialize runs the C4 initialization protocol for a transformer freshly
// loaded for templateRecipe: validate the schema the transformer declares,
// then compare it against the schema mirrored in the template recipe.
// Either failure aborts initialization for that template.
func Initialize(t Transformer, templateRecipe *recipe.Recipe) (recipe.ParameterSchema, error) {
	declared, err := t.DeclaredSchema()
	if err != nil {
		return nil, tmplerr.Wrap(tmplerr.Plugin, "transformer failed to report declared schema", err)
	}

	if err := schema.ValidateTransformerSchema(declared); err != nil {
		return nil, err
	}

	recipeSchema := templateRecipe.ParameterSchema
	if recipeSchema == nil {
		recipeSchema = recipe.ParameterSchema{}
	}
	if err := schema.CompareSchemas(declared, recipeSchema); err != nil {
		return nil, err
	}

	return declared, nil
}
