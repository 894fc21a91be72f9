package schema

import (
	"testing"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

func TestValidateTransformerSchemaAccepts(t *testing.T) {
	s := recipe.ParameterSchema{
		"Port": {Type: recipe.TypeNumber, Required: true},
		"Host": {Type: recipe.TypeString, Required: false, DefaultValue: "0.0.0.0"},
	}
	if err := ValidateTransformerSchema(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTransformerSchemaRejectsRequiredWithDefault(t *testing.T) {
	s := recipe.ParameterSchema{
		"Port": {Type: recipe.TypeNumber, Required: true, DefaultValue: 8080},
	}
	err := ValidateTransformerSchema(s)
	if err == nil {
		t.Fatal("expected error for required field with a default")
	}
	if !tmplerr.Of(err, tmplerr.TemplateAuthoring) {
		t.Fatalf("expected TemplateAuthoring kind, got %v", err)
	}
}

func TestValidateTransformerSchemaRejectsOptionalWithoutDefault(t *testing.T) {
	s := recipe.ParameterSchema{
		"Host": {Type: recipe.TypeString, Required: false},
	}
	if err := ValidateTransformerSchema(s); err == nil {
		t.Fatal("expected error for optional field with no default")
	}
}

func TestValidateTransformerSchemaRejectsTypeMismatch(t *testing.T) {
	s := recipe.ParameterSchema{
		"Host": {Type: recipe.TypeString, Required: false, DefaultValue: 1234},
	}
	if err := ValidateTransformerSchema(s); err == nil {
		t.Fatal("expected error for default value whose type disagrees with the declared type")
	}
}

func TestCompareSchemasAgree(t *testing.T) {
	a := recipe.ParameterSchema{"Port": {Type: recipe.TypeNumber, Required: true}}
	b := recipe.ParameterSchema{"Port": {Type: recipe.TypeNumber, Required: true}}
	if err := CompareSchemas(a, b); err != nil {
		t.Fatalf("unexpected mismatch: %v", err)
	}
}

func TestCompareSchemasDetectsMissingAndExtra(t *testing.T) {
	fromArtifact := recipe.ParameterSchema{
		"Port": {Type: recipe.TypeNumber, Required: true},
	}
	fromRecipe := recipe.ParameterSchema{
		"Host": {Type: recipe.TypeString, Required: false, DefaultValue: "x"},
	}
	err := CompareSchemas(fromArtifact, fromRecipe)
	if err == nil {
		t.Fatal("expected a mismatch error")
	}
	if !tmplerr.Of(err, tmplerr.SchemaMismatch) {
		t.Fatalf("expected SchemaMismatch kind, got %v", err)
	}
}

func TestMergeAndValidate(t *testing.T) {
	s := recipe.ParameterSchema{
		"Port": {Type: recipe.TypeNumber, Required: true},
		"Host": {Type: recipe.TypeString, Required: false, DefaultValue: "0.0.0.0"},
	}
	params, err := MergeAndValidate(s, map[string]any{"Port": 8080})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["Port"] != 8080 {
		t.Errorf("Port = %v, want 8080", params["Port"])
	}
	if params["Host"] != "0.0.0.0" {
		t.Errorf("Host = %v, want default 0.0.0.0", params["Host"])
	}
}

func TestMergeAndValidateRejectsExtraKey(t *testing.T) {
	s := recipe.ParameterSchema{"Port": {Type: recipe.TypeNumber, Required: true}}
	_, err := MergeAndValidate(s, map[string]any{"Port": 8080, "Unexpected": true})
	if err == nil {
		t.Fatal("expected error for an undeclared parameter key")
	}
}

func TestMergeAndValidateRejectsMissingRequired(t *testing.T) {
	s := recipe.ParameterSchema{"Port": {Type: recipe.TypeNumber, Required: true}}
	_, err := MergeAndValidate(s, map[string]any{})
	if err == nil {
		t.Fatal("expected error for a missing required parameter")
	}
}

func TestMergeCallerValueOverridesDefault(t *testing.T) {
	s := recipe.ParameterSchema{"Host": {Type: recipe.TypeString, Required: false, DefaultValue: "0.0.0.0"}}
	merged := Merge(s, map[string]any{"Host": "127.0.0.1"})
	if merged["Host"] != "127.0.0.1" {
		t.Errorf("Host = %v, want caller-supplied override", merged["Host"])
	}
}

func TestTypeOf(t *testing.T) {
	cases := []struct {
		v    any
		want recipe.ParameterType
	}{
		{nil, recipe.TypeNull},
		{"x", recipe.TypeString},
		{true, recipe.TypeBoolean},
		{42, recipe.TypeNumber},
		{3.14, recipe.TypeNumber},
		{map[string]any{}, recipe.TypeObject},
		{[]any{}, recipe.TypeArray},
	}
	for _, c := range cases {
		if got := TypeOf(c.v); got != c.want {
			t.Errorf("TypeOf(%#v) = %q, want %q", c.v, got, c.want)
		}
	}
}
