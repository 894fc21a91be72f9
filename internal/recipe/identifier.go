package recipe

import "fmt"

// Identifier is the (name, version) pair that uniquely names a recipe
// within a single plan. Two identifiers are equal iff both fields match
// exactly; version comparison for range satisfaction lives in the planner,
// not here, since identity and ordering are different concerns.
type Identifier struct {
	Name    string
	Version string
}

// String renders the identifier as "name@version", the form used for log
// output and for the resource named in an error. Artifact and recipe file
// paths are built from Name and Version separately, not from String.
func (id Identifier) String() string {
	return fmt.Sprintf("%s@%s", id.Name, id.Version)
}

// Less orders identifiers lexicographically by (name, version), matching
// the C6 Loader/Planner's deterministic output ordering requirement.
func (id Identifier) Less(other Identifier) bool {
	if id.Name != other.Name {
		return id.Name < other.Name
	}
	return id.Version < other.Version
}
