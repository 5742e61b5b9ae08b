package pipegen

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/simon020286/pipegen/config"
	"github.com/simon020286/pipegen/iam"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/project"
	"github.com/simon020286/pipegen/runtime"
	"github.com/simon020286/pipegen/store"
)

// ErrRuntimeResolution is returned when a requested build tool is unknown
var ErrRuntimeResolution = errors.New("runtime resolution failed")

// Result is everything produced by one generation run
type Result struct {
	RunID       string
	Name        string
	Description string
	Pipeline    *Definition
	Runtime     runtime.Matrix
	// Bucket is nil unless the configuration asks for an artifact bucket
	Bucket *store.Bucket
	// Project is nil unless the configuration asks for a build project
	Project *project.Project
}

// Generator turns pipeline configurations into Results. It holds no per-run
// state and may be shared between goroutines. Listeners should be added
// before the first call to Generate.
type Generator struct {
	runtimes *runtime.Registry
	logger   *slog.Logger
	eventBus *eventBus
}

// NewGenerator creates a generator resolving runtimes against runtimes
func NewGenerator(runtimes *runtime.Registry, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{runtimes: runtimes, logger: logger, eventBus: newEventBus()}
}

// AddListener registers a listener for the events of every later run
func (g *Generator) AddListener(listener models.EventListener) {
	g.eventBus.addListener(listener)
}

// Wait blocks until all emitted events have been delivered to listeners
func (g *Generator) Wait() {
	g.eventBus.wait()
}

// Generate performs a single generation run
func (g *Generator) Generate(cfg *config.PipelineConfig) (*Result, error) {
	runID := ulid.Make().String()
	start := time.Now()
	g.eventBus.emitStarted(runID, cfg.Name)

	res, err := g.generate(runID, cfg)
	if err != nil {
		g.eventBus.emitFailed(runID, err)
		return nil, err
	}

	for i, s := range res.Pipeline.Stages {
		g.eventBus.emitStageBuilt(runID, i, s)
	}
	g.eventBus.emitCompleted(runID, time.Since(start))
	return res, nil
}

func (g *Generator) generate(runID string, cfg *config.PipelineConfig) (*Result, error) {
	logger := g.logger.With("run_id", runID, "pipeline", cfg.Name)
	logger.Debug("Starting generation run.")

	stages, err := cfg.ToStages()
	if err != nil {
		return nil, err
	}

	artifactStore, err := cfg.ArtifactStore.ToStore(cfg.Resolver())
	if err != nil {
		return nil, err
	}
	artifactStore = artifactStore.WithDefaults()

	role, err := composeRole(cfg.Role, stages, artifactStore)
	if err != nil {
		return nil, err
	}
	logger.Debug("Composed role.", "statements", len(role.Statements))

	var bucket *store.Bucket
	if artifactStore.Bucket != nil {
		b, err := store.BuildBucket(*artifactStore.Bucket)
		if err != nil {
			return nil, fmt.Errorf("artifact bucket: %w", err)
		}
		bucket = &b
	}

	matrix, ok := g.runtimes.Resolve(cfg.Runtimes)
	if !ok {
		logger.Error("Runtime resolution failed.", "tools", cfg.Runtimes)
		return nil, fmt.Errorf("%w: %v", ErrRuntimeResolution, cfg.Runtimes)
	}

	var buildProject *project.Project
	if cfg.BuildProject != nil {
		opts, err := cfg.BuildProject.ToOptions(cfg.Resolver())
		if err != nil {
			return nil, err
		}
		p, err := project.Build(opts, artifactBucketARN(cfg.Role, artifactStore))
		if err != nil {
			return nil, fmt.Errorf("build project: %w", err)
		}
		buildProject = &p
		logger.Debug("Resolved build project.", "compute_type", p.ComputeType, "own_role", p.Role != nil)
	}

	def, err := Build(stages, role, artifactStore)
	if err != nil {
		logger.Debug("Build failed.", "error", err)
		return nil, err
	}

	logger.Info("Generated pipeline.", "stages", len(def.Stages), "actions", def.ActionCount(), "tools", len(matrix.ValidTools))
	return &Result{
		RunID:       runID,
		Name:        cfg.Name,
		Description: cfg.Description,
		Pipeline:    def,
		Runtime:     matrix,
		Bucket:      bucket,
		Project:     buildProject,
	}, nil
}

// composeRole composes the execution role. Without explicit capabilities the
// set is derived from the stages.
func composeRole(rc config.RoleConfig, stages []models.Stage, artifactStore store.ArtifactStore) (iam.RoleDefinition, error) {
	caps, err := iam.ParseCapabilities(rc.Capabilities)
	if err != nil {
		return iam.RoleDefinition{}, err
	}
	if len(caps) == 0 {
		caps = CapabilitiesFor(stages)
	}

	params := rc.Parameters()
	params.ArtifactBucketARN = artifactBucketARN(rc, artifactStore)
	return iam.Compose(caps, params), nil
}

// artifactBucketARN is the configured bucket ARN, or the literal store
// location when none is configured
func artifactBucketARN(rc config.RoleConfig, artifactStore store.ArtifactStore) string {
	if rc.ArtifactBucketARN != "" {
		return rc.ArtifactBucketARN
	}
	loc, _ := models.LiteralString(artifactStore.Location)
	return loc
}
