package update

import "context"

// Release describes one entry of the upstream release index.
type Release struct {
	Tag         string // Release tag, compared verbatim with the ledger
	DownloadURL string // First asset link; empty when the release has no assets
}

// Status is the result class of a reconcile.
type Status string

const (
	StatusAlreadyCurrent     Status = "already-current"
	StatusUpdated            Status = "updated"
	StatusNoReleaseAvailable Status = "no-release-available"
)

// Outcome describes what Reconcile did.
type Outcome struct {
	Status  Status `json:"status" yaml:"status"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"` // Tag now installed, when known
}

// String returns a human readable summary of the outcome.
func (o Outcome) String() string {
	switch o.Status {
	case StatusAlreadyCurrent:
		return "Package already at latest release " + o.Version
	case StatusUpdated:
		return "Downloaded latest release " + o.Version
	case StatusNoReleaseAvailable:
		return "No releases found"
	default:
		return string(o.Status)
	}
}

// ReleaseSource lists upstream releases, newest first.
type ReleaseSource interface {
	Releases(ctx context.Context) ([]Release, error)
}

// Downloader fetches a remote file to a local path.
type Downloader interface {
	Download(ctx context.Context, url string, dst string) error
}
