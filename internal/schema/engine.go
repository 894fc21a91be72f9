// Package schema implements the parameter schema engine (C3): validating a
// transformer-declared schema against the §3 field invariants, comparing a
// transformer's schema against the one mirrored in a template recipe, and
// merging template defaults with caller-supplied values into a validated
// parameter bag. Every check aggregates all violations it finds into a
// single error instead of stopping at the first one, so a template author
// or deployment operator sees the whole picture in one pass.
package schema

import (
	"fmt"
	"sort"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// ValidateTransformerSchema enforces the per-field invariants a
// transformer-declared schema must satisfy:
//   - required fields carry no default value
//   - optional fields carry a default value whose runtime type matches the
//     declared type
//
// All violations are collected before returning a TemplateAuthoringError.
func ValidateTransformerSchema(s recipe.ParameterSchema) error {
	var causes []string
	for _, key := range sortedKeys(s) {
		p := s[key]
		if p.Required && p.DefaultValue != nil {
			causes = append(causes, fmt.Sprintf("provided default value for required field: %s", key))
			continue
		}
		if !p.Required {
			if p.DefaultValue == nil {
				causes = append(causes, fmt.Sprintf("did not provide default value for optional field: %s", key))
				continue
			}
			actual := TypeOf(p.DefaultValue)
			if actual != p.Type {
				causes = append(causes, fmt.Sprintf(
					"template value for %q does not match schema: expected %s but got %s", key, p.Type, actual))
			}
		}
	}
	if len(causes) > 0 {
		return tmplerr.Aggregate(tmplerr.TemplateAuthoring,
			"template transformer binary provided invalid schema", causes)
	}
	return nil
}

// CompareSchemas checks that fromArtifact (the schema the transformer
// reports) and fromRecipe (the schema mirrored in the template recipe)
// agree key-for-key on (type, required, defaultValue). Returns nil if they
// agree, else a SchemaMismatchError aggregating every difference.
func CompareSchemas(fromArtifact, fromRecipe recipe.ParameterSchema) error {
	var causes []string
	for _, key := range sortedKeys(fromArtifact) {
		artifactParam := fromArtifact[key]
		recipeParam, ok := fromRecipe[key]
		if !ok {
			causes = append(causes, fmt.Sprintf("missing parameter: %s", key))
			continue
		}
		if !artifactParam.Equal(recipeParam) {
			causes = append(causes, fmt.Sprintf(
				"template value for %q does not match schema: expected %+v but got %+v", key, artifactParam, recipeParam))
		}
	}
	for _, key := range sortedKeys(fromRecipe) {
		if _, ok := fromArtifact[key]; !ok {
			causes = append(causes, fmt.Sprintf("template declared parameter not found in schema: %s", key))
		}
	}
	if len(causes) > 0 {
		return tmplerr.Aggregate(tmplerr.SchemaMismatch,
			"template recipe provided schema different from template transformer binary", causes)
	}
	return nil
}

// Merge combines a declared schema's defaults with caller-supplied values
// from a parameter file's default configuration block. Caller values take
// precedence over declared defaults. Parameter keys are matched
// case-sensitively — a caller key "NumberParam" never satisfies a schema
// key "numberParam" (see SPEC_FULL.md open question decisions). A required
// field the caller omits stays absent, so Validate reports it as missing.
//
// Merge does not itself validate the result; call Validate on the returned
// map, or use MergeAndValidate to do both in one step.
func Merge(s recipe.ParameterSchema, callerValues map[string]any) map[string]any {
	merged := make(map[string]any, len(callerValues)+len(s))
	for k, v := range callerValues {
		merged[k] = v
	}
	for key, p := range s {
		if _, ok := merged[key]; !ok && !p.Required {
			merged[key] = p.DefaultValue
		}
	}
	return merged
}

// Validate checks that a merged parameter bag satisfies the schema: every
// declared field is present with the declared type, and no extra keys
// appear. All violations aggregate into a single RecipeTransformerError.
func Validate(s recipe.ParameterSchema, params map[string]any) error {
	var causes []string
	for _, key := range sortedKeys(s) {
		p := s[key]
		v, ok := params[key]
		if !ok {
			causes = append(causes, fmt.Sprintf("configuration does not specify required parameter: %s", key))
			continue
		}
		actual := TypeOf(v)
		if actual != p.Type {
			causes = append(causes, fmt.Sprintf(
				"provided parameter %q does not satisfy required schema: expected %s but got %s", key, p.Type, actual))
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := s[key]; !ok {
			causes = append(causes, fmt.Sprintf("configuration declared parameter not found in schema: %s", key))
		}
	}
	if len(causes) > 0 {
		return tmplerr.Aggregate(tmplerr.RecipeTransform, "provided parameters do not satisfy template schema", causes)
	}
	return nil
}

// MergeAndValidate merges callerValues over s's defaults and validates the
// result, returning the effective parameter bag C4's transform expects.
func MergeAndValidate(s recipe.ParameterSchema, callerValues map[string]any) (map[string]any, error) {
	merged := Merge(s, callerValues)
	if err := Validate(s, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// TypeOf maps a dynamic value decoded from YAML/JSON to one of the six
// parameter types. Both integral and floating-point numbers map to
// TypeNumber. Unknown shapes (e.g. a function value, which never occurs in
// practice for decoded data) return an empty ParameterType.
func TypeOf(v any) recipe.ParameterType {
	switch t := v.(type) {
	case nil:
		return recipe.TypeNull
	case string:
		return recipe.TypeString
	case bool:
		return recipe.TypeBoolean
	case int, int32, int64, float32, float64:
		return recipe.TypeNumber
	case map[string]any:
		return recipe.TypeObject
	case []any:
		return recipe.TypeArray
	default:
		_ = t
		return ""
	}
}

func sortedKeys(s recipe.ParameterSchema) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
