// Package store implements the Recipe Store Gateway (C2): the filesystem
// boundary between a directory of recipe documents and the typed recipes
// the rest of the engine operates on.
package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// boundaryValidator enforces the Recipe struct's validate tags on every
// document this gateway reads, catching a recipe missing a required
// top-level field before it ever reaches the planner.
var boundaryValidator = validator.New()

// metadataSuffix marks a sidecar file that sits next to a recipe document
// but is not itself one — skipped during a directory walk the same way the
// source skips its METADATA_JSON_EXT siblings.
const metadataSuffix = ".metadata.json"

// Entry pairs a parsed recipe with the path it was read from, so callers
// can report errors against the file that produced a given identifier.
type Entry struct {
	Path   string
	Recipe *recipe.Recipe
}

// Gateway is the C2 contract C6 and C7 depend on: list every recipe in a
// directory, persist an expanded recipe back into it, remove a component's
// recipe, and resolve where a template's transformer artifacts live.
type Gateway interface {
	ListRecipes() ([]Entry, error)
	SaveRecipe(r *recipe.Recipe) error
	DeleteComponent(id recipe.Identifier) error
	ResolveArtifactDirectory(id recipe.Identifier) string
}

// FilesystemGateway is the only Gateway implementation: a recipe directory
// plus a sibling artifacts directory, both rooted on disk.
type FilesystemGateway struct {
	recipeDir    string
	artifactsDir string
}

// New constructs a FilesystemGateway rooted at recipeDir for recipe
// documents and artifactsDir for transformer artifacts.
func New(recipeDir, artifactsDir string) *FilesystemGateway {
	return &FilesystemGateway{recipeDir: recipeDir, artifactsDir: artifactsDir}
}

// ListRecipes walks the recipe directory, parsing every file that is not a
// directory and does not carry the metadata sidecar suffix. The first
// unparseable recipe aborts the walk, naming the offending file, matching
// the source's fail-fast scan.
func (g *FilesystemGateway) ListRecipes() ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(g.recipeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, metadataSuffix) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return tmplerr.Wrap(tmplerr.StoreIO, "failed to read recipe file", readErr).
				WithResource(path)
		}

		r, parseErr := recipe.Parse(data)
		if parseErr != nil {
			return tmplerr.Wrap(tmplerr.TemplateAuthoring, "failed to parse recipe", parseErr).
				WithResource(path)
		}

		if validateErr := boundaryValidator.Struct(r); validateErr != nil {
			return tmplerr.Wrap(tmplerr.TemplateAuthoring, "recipe missing required fields", validateErr).
				WithResource(path)
		}

		entries = append(entries, Entry{Path: path, Recipe: r})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SaveRecipe serializes r and writes it to its canonical path within the
// recipe directory, overwriting any existing document for the same
// identifier. Writing is idempotent: expanding the same parameter file
// twice against an unchanged template produces byte-identical output.
func (g *FilesystemGateway) SaveRecipe(r *recipe.Recipe) error {
	data, err := recipe.Serialize(r)
	if err != nil {
		return tmplerr.Wrap(tmplerr.StoreIO, "failed to serialize recipe", err).
			WithResource(r.Identifier().String())
	}

	path := g.recipePath(r.Identifier())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tmplerr.Wrap(tmplerr.StoreIO, "failed to create recipe directory", err).
			WithResource(r.Identifier().String())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return tmplerr.Wrap(tmplerr.StoreIO, "failed to write recipe file", err).
			WithResource(r.Identifier().String())
	}
	return nil
}

// DeleteComponent removes the recipe document for id, if present. Removing
// a component that was never materialized on disk is not an error: the
// expansion driver never calls this automatically (post-expansion template
// cleanup is left to the caller), so a caller invoking it speculatively
// should not have to check existence first.
func (g *FilesystemGateway) DeleteComponent(id recipe.Identifier) error {
	path := g.recipePath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return tmplerr.Wrap(tmplerr.StoreIO, "failed to delete recipe file", err).
			WithResource(id.String())
	}
	return nil
}

// ResolveArtifactDirectory returns the directory a template's transformer
// artifact lives in: <artifactsDir>/<name>/<version>/.
func (g *FilesystemGateway) ResolveArtifactDirectory(id recipe.Identifier) string {
	return filepath.Join(g.artifactsDir, id.Name, id.Version)
}

// recipePath returns the canonical on-disk path this gateway uses for a
// given identifier's recipe document.
func (g *FilesystemGateway) recipePath(id recipe.Identifier) string {
	return filepath.Join(g.recipeDir, id.Name+"-"+id.Version+".yaml")
}
