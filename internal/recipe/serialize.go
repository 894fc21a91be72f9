package recipe

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a recipe document. The engine's only hard requirement
// (§4.1) is that Parse and Serialize round-trip: Parse(Serialize(r)) == r
// for every r produced by a transformer.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	return &r, nil
}

// Serialize encodes a recipe back to its on-disk YAML representation.
func Serialize(r *Recipe) ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("serialize recipe: %w", err)
	}
	return out, nil
}
