// Package provision runs the full pipeline that patches one game
// installation: package update, artifact discovery, backup and replace,
// settings generation and deployment, and save directory setup.
//
// Steps run in order and the first failure ends the run. Nothing that
// already succeeded is undone; replaced artifacts stay replaced and the
// .bk backups are the way back.
package provision

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamancini/shimsync/internal/credential"
	"github.com/adamancini/shimsync/internal/deploy"
	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/guard"
	"github.com/adamancini/shimsync/internal/journal"
	"github.com/adamancini/shimsync/internal/locate"
	"github.com/adamancini/shimsync/internal/logging"
	"github.com/adamancini/shimsync/internal/types"
	"github.com/adamancini/shimsync/internal/update"
)

// Reconciler keeps the local package tree current.
type Reconciler interface {
	Reconcile(ctx context.Context) (update.Outcome, error)
	PackageDir() string
}

// Resolver turns a free-text query into a single app ID. The boolean is
// false when nothing was selected.
type Resolver interface {
	Resolve(ctx context.Context, query string) (uint32, bool, error)
}

// CredentialSource supplies the account passed to the generator.
type CredentialSource interface {
	Credentials(ctx context.Context) (credential.Credentials, error)
}

// Generator produces the settings bundle for an app ID.
type Generator interface {
	OutputDir(appID uint32) string
	Generate(ctx context.Context, appID uint32, creds credential.Credentials) error
}

// Journal records finished runs.
type Journal interface {
	Record(run *journal.Run) error
}

// Request describes one provisioning run.
type Request struct {
	Query      string // Free-text game name, ignored when AppID is set
	AppID      uint32 // Skips catalog lookup when non-zero
	TargetRoot string // Game installation directory
}

// Result describes what a successful run did.
type Result struct {
	Package     update.Outcome `json:"package" yaml:"package"`
	AppID       uint32         `json:"app_id" yaml:"app_id"`
	TargetDir   string         `json:"target_dir" yaml:"target_dir"`
	Artifacts   []guard.Record `json:"artifacts" yaml:"artifacts"`
	Generated   bool           `json:"settings_generated" yaml:"settings_generated"`
	SettingsDir string         `json:"settings_dir" yaml:"settings_dir"`
	SaveDir     string         `json:"save_dir" yaml:"save_dir"`
}

// Deps are the collaborators an Orchestrator works with.
type Deps struct {
	Reconciler  Reconciler
	Resolver    Resolver
	Credentials CredentialSource
	Generator   Generator
	Journal     Journal // Optional
	SaveRoot    string
}

// Orchestrator sequences the pipeline.
type Orchestrator struct {
	deps   Deps
	kinds  []types.Kind
	logger zerolog.Logger
	now    func() time.Time
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		kinds:  types.AllKinds(),
		logger: logging.GetLogger("provision"),
		now:    time.Now,
	}
}

// Provision runs every step for req and stops at the first failure.
func (o *Orchestrator) Provision(ctx context.Context, req Request) (*Result, error) {
	done := logging.LogOperationStart(o.logger, "provision")
	defer done()

	started := o.now()
	result := &Result{}

	// 1. Package
	outcome, err := o.deps.Reconciler.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	result.Package = outcome
	o.logger.Info().Str("status", string(outcome.Status)).Msg(outcome.String())

	// 2. Target
	info, err := os.Stat(req.TargetRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInvalidPath, "target %s does not exist", req.TargetRoot)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.KindInvalidPath, "target %s is not a directory", req.TargetRoot)
	}

	// 3. App ID
	appID, err := o.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	result.AppID = appID
	o.logger.Info().Uint32("app_id", appID).Msg("Resolved app")

	// 4. Locate
	dir, ok, err := locate.Find(req.TargetRoot, o.kinds)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.KindArtifactNotFound, "no Steam API library found under %s", req.TargetRoot).
			WithDetail("root", req.TargetRoot)
	}
	result.TargetDir = dir
	o.logger.Info().Str("dir", dir).Msg("Found Steam API directory")

	// 5. Backup and replace
	records, err := o.patch(dir)
	if err != nil {
		return nil, err
	}
	result.Artifacts = records

	// 6. Generate
	outputDir := o.deps.Generator.OutputDir(appID)
	_, err = os.Stat(outputDir)
	switch {
	case err == nil:
		o.logger.Info().Str("path", outputDir).Msg("Settings already generated, skipping generator")
	case os.IsNotExist(err):
		if err := o.generate(ctx, appID); err != nil {
			return nil, err
		}
		result.Generated = true
	default:
		return nil, errors.Wrapf(err, errors.KindIO, "cannot inspect %s", outputDir)
	}

	// 7. Deploy settings
	settings, err := deploy.Settings(filepath.Join(outputDir, types.SettingsDirName), dir)
	if err != nil {
		return nil, err
	}
	result.SettingsDir = settings
	o.logger.Info().Str("path", settings).Msg("Deployed settings")

	// 8. Saves
	saveDir, err := deploy.EnsureSaveDir(o.deps.SaveRoot, appID)
	if err != nil {
		return nil, err
	}
	result.SaveDir = saveDir

	o.record(started, req, result)
	return result, nil
}

func (o *Orchestrator) resolve(ctx context.Context, req Request) (uint32, error) {
	if req.AppID != 0 {
		return req.AppID, nil
	}
	if o.deps.Resolver == nil {
		return 0, errors.New(errors.KindNoAppIDFound, "no app ID given and no catalog configured")
	}
	appID, ok, err := o.deps.Resolver.Resolve(ctx, req.Query)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Newf(errors.KindNoAppIDFound, "no app matches %q", req.Query)
	}
	return appID, nil
}

func (o *Orchestrator) patch(dir string) ([]guard.Record, error) {
	present, err := locate.Present(dir, o.kinds)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to inspect artifacts")
	}

	g := guard.New(dir)
	var records []guard.Record
	for _, kind := range present {
		w, err := g.Backup(kind)
		if err != nil {
			return nil, err
		}
		if w == nil {
			continue
		}
		source := filepath.Join(o.deps.Reconciler.PackageDir(), kind.FileName())
		if err := g.Replace(w, source); err != nil {
			return nil, err
		}
		records = append(records, w.Record())
	}
	return records, nil
}

func (o *Orchestrator) generate(ctx context.Context, appID uint32) error {
	creds, err := o.deps.Credentials.Credentials(ctx)
	if err != nil {
		return errors.Wrap(err, errors.KindConfigGenerationFailed, "failed to obtain credentials")
	}
	if err := o.deps.Generator.Generate(ctx, appID, creds); err != nil {
		if errors.KindOf(err) == errors.KindConfigGenerationFailed {
			return err
		}
		return errors.Wrap(err, errors.KindConfigGenerationFailed, "settings generation failed")
	}
	return nil
}

func (o *Orchestrator) record(started time.Time, req Request, result *Result) {
	if o.deps.Journal == nil {
		return
	}

	run := &journal.Run{
		StartedAt:      started,
		Query:          req.Query,
		AppID:          result.AppID,
		TargetRoot:     req.TargetRoot,
		TargetDir:      result.TargetDir,
		PackageVersion: result.Package.Version,
		PackageStatus:  string(result.Package.Status),
		Generated:      result.Generated,
		SaveDir:        result.SaveDir,
	}
	for _, r := range result.Artifacts {
		run.Artifacts = append(run.Artifacts, journal.ArtifactEntry{
			Kind:     r.Kind.String(),
			Original: r.OriginalPath,
			Backup:   r.BackupPath,
		})
	}

	if err := o.deps.Journal.Record(run); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to record run")
	}
}
