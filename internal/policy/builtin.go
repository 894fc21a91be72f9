package policy

// BuiltinPolicies returns the engine's default lint ruleset: conventions
// observed across the corpus that are not structural invariants (those
// live in the loader/planner) but are still worth flagging before a
// transformer runs against a malformed-looking recipe.
func BuiltinPolicies() []Policy {
	return []Policy{
		componentNamingPolicy(),
		templateVersioningPolicy(),
	}
}

// componentNamingPolicy requires component names to be non-empty and
// free of whitespace, the same shape every corpus example assumes
// without ever checking for.
func componentNamingPolicy() Policy {
	return Policy{
		Name: "component-naming",
		Rego: `package tmplengine.policies.naming

import rego.v1

deny contains msg if {
	input.component_name == ""
	msg := "component_name must not be empty"
}

deny contains msg if {
	contains(input.component_name, " ")
	msg := sprintf("component_name %q must not contain whitespace", [input.component_name])
}
`,
	}
}

// templateVersioningPolicy requires every template to carry a dotted
// semver-shaped version string, since the planner's version-range
// satisfaction check silently treats an unparseable version as
// unsatisfied rather than reporting why.
func templateVersioningPolicy() Policy {
	return Policy{
		Name: "template-versioning",
		Rego: `package tmplengine.policies.versioning

import rego.v1

deny contains msg if {
	input.component_type == "template"
	not regex.match("^[0-9]+\\.[0-9]+\\.[0-9]+", input.component_version)
	msg := sprintf("template %q has non-semver version %q", [input.component_name, input.component_version])
}
`,
	}
}
