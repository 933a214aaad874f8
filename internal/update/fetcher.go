// Package update keeps the local emulator package in sync with the latest
// upstream release.
package update

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/ledger"
	"github.com/adamancini/shimsync/internal/logging"
)

const archiveName = "package.zip"

// Fetcher reconciles the installed package tree against the release index.
type Fetcher struct {
	source     ReleaseSource
	downloader Downloader
	ledger     *ledger.Ledger
	packageDir string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFetcher creates a fetcher that installs packages into packageDir and
// records the installed version in l.
func NewFetcher(source ReleaseSource, downloader Downloader, l *ledger.Ledger, packageDir string) *Fetcher {
	return &Fetcher{
		source:     source,
		downloader: downloader,
		ledger:     l,
		packageDir: packageDir,
		logger:     logging.GetLogger("update"),
		now:        time.Now,
	}
}

// PackageDir returns the installed package tree location.
func (f *Fetcher) PackageDir() string {
	return f.packageDir
}

// Reconcile brings the package tree up to the latest release. When the
// installed version already matches, nothing on disk is touched. A failed
// download or extraction leaves the previous tree and version in place.
func (f *Fetcher) Reconcile(ctx context.Context) (Outcome, error) {
	done := logging.LogOperationStart(f.logger, "reconcile")
	defer done()

	restored, err := recoverTree(f.packageDir)
	if err != nil {
		return Outcome{}, errors.Wrap(err, errors.KindIO, "failed to recover interrupted update")
	}
	if restored {
		f.logger.Warn().Str("path", f.packageDir).Msg("Restored package left by an interrupted update")
	}

	releases, err := f.source.Releases(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(releases) == 0 {
		return Outcome{Status: StatusNoReleaseAvailable}, nil
	}

	latest := releases[0]
	f.logger.Info().Str("tag", latest.Tag).Msg("Latest release")
	if newer, ok := newerThanFirst(releases); ok {
		f.logger.Warn().
			Str("first", latest.Tag).
			Str("newer", newer).
			Msg("Release index does not look newest-first; using its first entry anyway")
	}

	if installed, ok := f.ledger.Read(); ok && installed == latest.Tag {
		if _, err := os.Stat(f.packageDir); err != nil {
			f.logger.Warn().Str("path", f.packageDir).Msg("Version marker is current but the package tree is missing")
		}
		return Outcome{Status: StatusAlreadyCurrent, Version: latest.Tag}, nil
	}

	if latest.DownloadURL == "" {
		return Outcome{}, errors.Newf(errors.KindNoAssets, "release %s has no assets", latest.Tag)
	}

	if err := f.install(ctx, latest); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusUpdated, Version: latest.Tag}, nil
}

// install downloads, extracts and swaps in rel. Everything is staged in a
// private directory beside the package tree so the final renames stay on
// one filesystem.
func (f *Fetcher) install(ctx context.Context, rel Release) error {
	parent := filepath.Dir(f.packageDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create package directory")
	}

	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create staging directory")
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			f.logger.Warn().Err(err).Str("path", staging).Msg("Failed to remove staging directory")
		}
	}()

	archive := filepath.Join(staging, archiveName)
	f.logger.Info().Str("url", rel.DownloadURL).Msg("Downloading release")
	if err := f.downloader.Download(ctx, rel.DownloadURL, archive); err != nil {
		if errors.KindOf(err) == errors.KindUnknown {
			return errors.Wrapf(err, errors.KindDownloadFailed, "failed to download %s", rel.Tag)
		}
		return err
	}

	digest, err := calculateDigest(archive)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to hash downloaded archive")
	}

	tree := filepath.Join(staging, "tree")
	if err := extractZip(archive, tree); err != nil {
		return errors.Wrapf(err, errors.KindCorruptPackage, "release %s is not a usable archive", rel.Tag)
	}
	root, err := packageRoot(tree)
	if err != nil {
		return errors.Wrap(err, errors.KindCorruptPackage, "failed to read extracted package")
	}

	if err := os.Remove(archive); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to remove downloaded archive")
	}

	if err := swapTree(root, f.packageDir, f.logger); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to swap in new package")
	}

	if err := f.ledger.Write(rel.Tag); err != nil {
		return err
	}
	receipt := ledger.Receipt{
		Tag:         rel.Tag,
		SourceURL:   rel.DownloadURL,
		Digest:      digest,
		InstalledAt: f.now().UTC(),
	}
	if err := f.ledger.WriteReceipt(receipt); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to write install receipt")
	}

	f.logger.Info().Str("tag", rel.Tag).Str("digest", digest).Msg("Installed release")
	return nil
}
