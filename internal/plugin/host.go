// Package plugin implements the Plugin Host (C5): loading a transformer
// artifact into an isolated module scope, discovering the sole candidate
// transformer it exports, and binding it to the template recipe that
// shipped it. Each Load call creates a fresh wazero.Runtime rooted at one
// artifact, so two transformer artifacts that export identically-prefixed
// auxiliary symbols never collide — wazero gives every runtime its own
// module namespace, the direct analogue of the source's per-jar classloader
// isolation.
package plugin

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
	"github.com/edgecompose/tmplengine/internal/transform"
)

// Host loads transformer artifacts, one isolated scope per call to Load.
// A Host does not itself hold state between loads beyond the default
// runtime configuration; closing a Host's loaded transformers is the
// caller's responsibility via the returned Loaded value's Close method.
type Host struct {
	timeout time.Duration
}

// Config configures the default timeout applied to every guest call a
// loaded transformer makes.
type Config struct {
	// CallTimeout bounds each individual DeclaredSchema/ParameterShape/
	// Transform call into the guest. Zero selects a 30s default.
	CallTimeout time.Duration
}

// NewHost constructs a Host with the given configuration.
func NewHost(cfg Config) *Host {
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Host{timeout: timeout}
}

// loadedTransformer adapts one discovered candidate, plus the runtime and
// module instance that own its memory, to the transform.Transformer
// interface. Close must be called once the transformer is no longer
// needed, releasing the entire isolated scope.
type loadedTransformer struct {
	runtime wazero.Runtime
	module  wazeroModule
	bridge  *wasmBridge
	timeout time.Duration
}

// wazeroModule is the subset of api.Module the host needs to close; kept
// as its own interface so this file does not need to import api directly
// beyond what bridge.go already requires.
type wazeroModule interface {
	Close(ctx context.Context) error
}

// Load reads the WASM transformer artifact at artifactPath, instantiates it
// in a fresh runtime scope, discovers its sole candidate transformer, runs
// the C4 initialization protocol against templateRecipe, and returns it
// bound and ready for Transform calls. The caller is responsible for
// calling Close on the returned Loaded value once expansion of
// templateRecipe's dependents is finished.
func (h *Host) Load(ctx context.Context, artifactPath string, templateRecipe *recipe.Recipe) (*Loaded, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tmplerr.New(tmplerr.Plugin,
				fmt.Sprintf("transformer artifact not found: %s", artifactPath)).
				WithResource(templateRecipe.Identifier().String())
		}
		return nil, tmplerr.Wrap(tmplerr.Plugin, "failed to read transformer artifact", err).
			WithResource(templateRecipe.Identifier().String())
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, tmplerr.Wrap(tmplerr.Plugin, "failed to instantiate WASI in plugin scope", err)
	}

	compiled, err := runtime.CompileModule(ctx, data)
	if err != nil {
		runtime.Close(ctx)
		return nil, tmplerr.Wrap(tmplerr.Plugin, "failed to compile transformer artifact", err).
			WithResource(artifactPath)
	}

	candidates := discoverCandidates(compiled)
	if len(candidates) == 0 {
		runtime.Close(ctx)
		return nil, tmplerr.New(tmplerr.Plugin, "no candidate transformer").
			WithResource(artifactPath)
	}
	if len(candidates) > 1 {
		runtime.Close(ctx)
		return nil, tmplerr.New(tmplerr.Plugin, "multiple candidate transformers").
			WithResource(artifactPath)
	}

	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		runtime.Close(ctx)
		return nil, tmplerr.Wrap(tmplerr.Plugin, "could not instantiate transformer", err).
			WithResource(artifactPath)
	}

	bridge, err := newWASMBridge(module, candidates[0])
	if err != nil {
		module.Close(ctx)
		runtime.Close(ctx)
		return nil, tmplerr.Wrap(tmplerr.Plugin, "could not instantiate transformer", err).
			WithResource(artifactPath)
	}

	lt := &loadedTransformer{runtime: runtime, module: module, bridge: bridge, timeout: h.timeout}

	declared, err := transform.Initialize(lt, templateRecipe)
	if err != nil {
		lt.Close(ctx)
		return nil, err
	}

	return &Loaded{Transformer: lt, DeclaredSchema: declared, lt: lt}, nil
}

// Loaded bundles a ready-to-use Transformer with the schema its
// initialization already validated and compared, sparing C7 a redundant
// DeclaredSchema call before the first Transform.
type Loaded struct {
	Transformer transform.Transformer
	DeclaredSchema recipe.ParameterSchema

	lt *loadedTransformer
}

// Close releases the transformer's isolated scope: the module instance and
// its owning runtime. A Host may load many disjoint scopes over its
// lifetime without leaking earlier ones, provided each Loaded value's Close
// is called once expansion for that template finishes. A Loaded value built
// outside this package (a test double standing in for a real load) carries
// no scope to release and Close is a no-op.
func (l *Loaded) Close(ctx context.Context) error {
	if l.lt == nil {
		return nil
	}
	return l.lt.Close(ctx)
}

// Close releases the module instance and then the runtime that owns it.
func (l *loadedTransformer) Close(ctx context.Context) error {
	var firstErr error
	if err := l.module.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.runtime.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (l *loadedTransformer) DeclaredSchema() (recipe.ParameterSchema, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var resp transform.SchemaResponse
	if err := l.bridge.callJSON(ctx, l.bridge.declaredSchema, nil, &resp); err != nil {
		return nil, fmt.Errorf("transformer_declared_schema: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("transformer_declared_schema: %s", resp.Error)
	}
	return resp.Schema, nil
}

func (l *loadedTransformer) ParameterShape() (map[string]recipe.ParameterType, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var resp transform.ParameterShapeResponse
	if err := l.bridge.callJSON(ctx, l.bridge.parameterShape, nil, &resp); err != nil {
		return nil, fmt.Errorf("transformer_parameter_shape: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("transformer_parameter_shape: %s", resp.Error)
	}
	return resp.Shape, nil
}

func (l *loadedTransformer) Transform(paramRecipe *recipe.Recipe, effectiveParams map[string]any) (*recipe.Recipe, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	req := transform.TransformRequest{ParamRecipe: paramRecipe, EffectiveParams: effectiveParams}
	var resp transform.TransformResponse
	if err := l.bridge.callJSON(ctx, l.bridge.transform, req, &resp); err != nil {
		return nil, tmplerr.Wrap(tmplerr.RecipeTransform, "transformer_transform call failed", err).
			WithResource(paramRecipe.Identifier().String())
	}
	if resp.Error != "" {
		return nil, tmplerr.New(tmplerr.RecipeTransform, resp.Error).
			WithResource(paramRecipe.Identifier().String())
	}
	return resp.Recipe, nil
}
