package cmd

import (
	"fmt"
	"io"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/config"
	"github.com/adamancini/shimsync/internal/credential"
	"github.com/adamancini/shimsync/internal/generator"
	"github.com/adamancini/shimsync/internal/interactive"
	"github.com/adamancini/shimsync/internal/journal"
	"github.com/adamancini/shimsync/internal/ledger"
	"github.com/adamancini/shimsync/internal/lock"
	"github.com/adamancini/shimsync/internal/logging"
	"github.com/adamancini/shimsync/internal/output"
	"github.com/adamancini/shimsync/internal/provision"
	"github.com/adamancini/shimsync/internal/update"
)

// shimsyncVersion is set during command initialization
var shimsyncVersion = "dev"

// newUI is swapped out in tests.
var newUI = interactive.New

// components holds everything one invocation works with, built from config.
type components struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	fetcher *update.Fetcher
	catalog *catalog.Catalog
	journal *journal.Manager
}

func loadComponents() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cmd")
	logger.Debug().Str("config", cfg.Path).Msg(cfg.String())

	l := ledger.New(cfg.DataDir)
	index := update.NewIndexClient(cfg.ReleaseIndexURL, cfg.HTTPTimeout)
	return &components{
		cfg:     cfg,
		ledger:  l,
		fetcher: update.NewFetcher(index, update.NewHTTPDownloader(cfg.HTTPTimeout), l, cfg.PackageDir()),
		catalog: catalog.New(cfg.AppListURL, cfg.CacheDir, cfg.HTTPTimeout),
		journal: journal.NewManager(cfg.Journal.Dir, shimsyncVersion),
	}, nil
}

func (c *components) orchestrator(ui interactive.UI) *provision.Orchestrator {
	return provision.New(provision.Deps{
		Reconciler:  c.fetcher,
		Resolver:    catalog.NewResolver(c.catalog, ui),
		Credentials: credential.NewStore(c.cfg.CredentialsFile, ui),
		Generator:   generator.New(c.cfg.Generator.Command, c.cfg.Generator.Args, c.cfg.WorkDir),
		Journal:     c.journal,
		SaveRoot:    c.cfg.SaveDir,
	})
}

// locked runs fn while holding the pipeline lock in the data directory.
func (c *components) locked(fn func() error) error {
	l, err := lock.Acquire(c.cfg.LockPath(), c.cfg.LockWait)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger := logging.GetLogger("cmd")
			logger.Warn().Err(err).Msg("Failed to release lock")
		}
	}()
	return fn()
}

// pruneJournal trims the journal to the configured size. Zero keeps every run.
func (c *components) pruneJournal() {
	if c.cfg.Journal.Keep == 0 {
		return
	}
	result, err := c.journal.Prune(c.cfg.Journal.Keep)
	if err != nil {
		logger := logging.GetLogger("cmd")
		logger.Warn().Err(err).Msg("Failed to prune run journal")
		return
	}
	if len(result.Deleted) > 0 {
		logger := logging.GetLogger("cmd")
		logger.Debug().Int("deleted", len(result.Deleted)).Msg("Pruned run journal")
	}
}

// write renders data as JSON/YAML, or text as plain text.
func write(out io.Writer, data interface{}, text fmt.Stringer) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return output.NewWriter(out, format).Report(data, text)
}

func versionLine(version, commit, date string) string {
	return fmt.Sprintf("shimsync version %s (commit %s, built %s)", version, commit, date)
}
