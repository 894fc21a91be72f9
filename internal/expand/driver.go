// Package expand implements the Expansion Driver (C7): the orchestration
// that ties the planner's work plan to the plugin host and schema engine,
// producing fully-specified recipes and persisting them through the store
// gateway.
package expand

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/edgecompose/tmplengine/internal/planner"
	"github.com/edgecompose/tmplengine/internal/plugin"
	"github.com/edgecompose/tmplengine/internal/recipe"
	"github.com/edgecompose/tmplengine/internal/schema"
	"github.com/edgecompose/tmplengine/internal/store"
	"github.com/edgecompose/tmplengine/internal/telemetry"
	"github.com/edgecompose/tmplengine/internal/tmplerr"
)

// artifactFilename is the fixed transformer filename every template
// artifact directory must contain. The engine targets one plugin runtime
// (WASM via wazero), so there is exactly one platform extension to pick,
// unlike a multi-target build that would need a per-OS/arch lookup table.
const artifactFilename = "transformer.wasm"

// Loader loads a template's transformer artifact into a ready-to-use
// scope. *plugin.Host is the only production implementation; the
// interface exists so Process's happy path can be tested against a fake
// loader and transformer, without a real WASM artifact.
type Loader interface {
	Load(ctx context.Context, artifactPath string, templateRecipe *recipe.Recipe) (*plugin.Loaded, error)
}

// Driver runs process(): plan, load each template's transformer once,
// expand every dependent parameter file against it, and persist the
// result. A Driver holds no state between calls to Process — each call
// starts from an empty plan, matching the single-call in-memory lifecycle
// described for the engine as a whole.
type Driver struct {
	gateway store.Gateway
	host    Loader
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// New constructs a Driver over the given store gateway and plugin loader.
// logger and metrics may be nil; a nil logger falls back to
// telemetry.FromContext's default logger, which writes to stdout, and a nil
// metrics collector is simply never recorded to.
func New(gateway store.Gateway, host Loader, logger *telemetry.Logger, metrics *telemetry.Metrics) *Driver {
	return &Driver{gateway: gateway, host: host, logger: logger, metrics: metrics}
}

func (d *Driver) log() *telemetry.Logger {
	if d.logger != nil {
		return d.logger
	}
	return telemetry.FromContext(context.Background())
}

// Result reports what Process expanded, for callers that want to log or
// assert on the batch's outcome without re-reading the store.
type Result struct {
	Expanded []recipe.Identifier
}

// Process builds the plan and expands it: for each template in
// lexicographic order, load its transformer once, then expand every
// dependent parameter file in the order the planner recorded, persisting
// each result before moving to the next. The first failure aborts the
// batch; recipes already persisted remain persisted.
func (d *Driver) Process(ctx context.Context) (*Result, error) {
	if d.metrics != nil {
		d.metrics.BatchStarted()
		defer d.metrics.BatchFinished()
	}

	// Every line this call emits carries the same batch_id, so a caller
	// grepping logs can isolate one process() invocation from the next
	// without the engine itself tracking any state between calls.
	log := d.log().WithField("batch_id", uuid.NewString())

	plan, err := planner.Build(d.gateway)
	if err != nil {
		log.WithError(err).Error("failed to build expansion plan")
		if d.metrics != nil {
			d.metrics.RecordError(errorKind(err))
		}
		return nil, err
	}

	result := &Result{}

	for _, templateName := range plan.Templates() {
		templateID := plan.TemplateIdentifier(templateName)
		templateRecipe := plan.Recipe(templateID)

		artifactPath := filepath.Join(d.gateway.ResolveArtifactDirectory(templateID), artifactFilename)

		loadTimer := telemetry.NewTimer()
		loaded, err := d.host.Load(ctx, artifactPath, templateRecipe)
		if err != nil {
			log.WithTemplate(templateID.Name, templateID.Version).WithError(err).Error("failed to load transformer")
			if d.metrics != nil {
				d.metrics.RecordError(errorKind(err))
			}
			return result, err
		}
		if d.metrics != nil {
			d.metrics.RecordTemplateLoaded(templateName, loadTimer.Elapsed())
		}

		for _, paramID := range plan.ParameterFiles(templateName) {
			if err := d.expandOne(log, templateName, loaded, plan.Recipe(paramID), result); err != nil {
				loaded.Close(ctx)
				return result, err
			}
		}

		if err := loaded.Close(ctx); err != nil {
			err = tmplerr.Wrap(tmplerr.Plugin, "failed to release plugin scope", err).
				WithResource(templateID.String())
			log.WithTemplate(templateID.Name, templateID.Version).WithError(err).Error("failed to release plugin scope")
			if d.metrics != nil {
				d.metrics.RecordError(string(tmplerr.Plugin))
			}
			return result, err
		}
	}

	log.Infof("expanded %d recipe(s) across %d template(s)", len(result.Expanded), len(plan.Templates()))
	return result, nil
}

// expandOne merges and validates one parameter file's configuration
// against the loaded transformer's declared schema, invokes transform,
// and persists the resulting recipe.
func (d *Driver) expandOne(batchLog *telemetry.Logger, templateName string, loaded *plugin.Loaded, paramRecipe *recipe.Recipe, result *Result) error {
	timer := telemetry.NewTimer()
	logger := batchLog.WithParameterFile(paramRecipe.ComponentName, paramRecipe.ComponentVersion)

	effectiveParams, err := schema.MergeAndValidate(loaded.DeclaredSchema, paramRecipe.DefaultConfig)
	if err != nil {
		err = annotate(err, paramRecipe.Identifier())
		logger.WithError(err).Error("parameter merge/validate failed")
		if d.metrics != nil {
			d.metrics.RecordError(errorKind(err))
		}
		return err
	}

	expanded, err := loaded.Transformer.Transform(paramRecipe, effectiveParams)
	if err != nil {
		err = annotate(err, paramRecipe.Identifier())
		logger.WithError(err).Error("transform failed")
		if d.metrics != nil {
			d.metrics.RecordError(errorKind(err))
		}
		return err
	}

	if err := d.gateway.SaveRecipe(expanded); err != nil {
		logger.WithError(err).Error("failed to persist expanded recipe")
		if d.metrics != nil {
			d.metrics.RecordError(errorKind(err))
		}
		return err
	}

	if d.metrics != nil {
		d.metrics.RecordRecipeExpanded(templateName, timer.Elapsed())
	}
	logger.Debug("expanded parameter file")

	result.Expanded = append(result.Expanded, expanded.Identifier())
	return nil
}

// errorKind extracts the tmplerr.Kind label for metrics, falling back to
// "unknown" for an error that never passed through tmplerr (e.g. a bare
// I/O error from a Gateway implementation that does not wrap its own).
func errorKind(err error) string {
	if e, ok := err.(*tmplerr.Error); ok {
		return string(e.Kind)
	}
	return "unknown"
}

// annotate attaches id as the failing resource to err if err is a
// tmplerr.Error that does not already carry one, so a merge/validate
// failure names the parameter file that triggered it without every schema
// package call site having to know about identifiers.
func annotate(err error, id recipe.Identifier) error {
	if e, ok := err.(*tmplerr.Error); ok && e.Resource == "" {
		return e.WithResource(id.String())
	}
	return fmt.Errorf("%w", err)
}
