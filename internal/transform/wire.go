package transform

import "github.com/edgecompose/tmplengine/internal/recipe"

// The WASM calling convention (implemented by package plugin) marshals
// these types to JSON across the module boundary. They describe exactly
// the three contract operations a transformer artifact's WASM exports
// (<id>__declared_schema, <id>__parameter_shape, <id>__transform) must
// accept and return.

// TransformRequest is the JSON payload passed to the <id>__transform
// export.
type TransformRequest struct {
	ParamRecipe      *recipe.Recipe `json:"param_recipe"`
	EffectiveParams  map[string]any `json:"effective_params"`
}

// TransformResponse is the JSON payload the <id>__transform export
// must return on success.
type TransformResponse struct {
	Recipe *recipe.Recipe `json:"recipe"`
	Error  string         `json:"error,omitempty"`
}

// SchemaResponse is the JSON payload the <id>__declared_schema export
// must return.
type SchemaResponse struct {
	Schema recipe.ParameterSchema `json:"schema"`
	Error  string                 `json:"error,omitempty"`
}

// ParameterShapeResponse is the JSON payload the <id>__parameter_shape
// export must return.
type ParameterShapeResponse struct {
	Shape map[string]recipe.ParameterType `json:"shape"`
	Error string                          `json:"error,omitempty"`
}
