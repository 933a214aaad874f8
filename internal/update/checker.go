package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adamancini/shimsync/internal/errors"
)

// DefaultIndexURL is the GitLab releases endpoint for the Goldberg emulator.
const DefaultIndexURL = "https://gitlab.com/api/v4/projects/Mr_Goldberg%2Fgoldberg_emulator/releases"

// IndexClient queries a GitLab-style release index.
type IndexClient struct {
	url    string
	client *http.Client
}

// gitlabRelease represents one element of the GitLab releases response
type gitlabRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Assets  struct {
		Links []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"links"`
	} `json:"assets"`
}

// NewIndexClient creates a client for the release index at url. Requests
// fail once timeout elapses; there are no retries.
func NewIndexClient(url string, timeout time.Duration) *IndexClient {
	return &IndexClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Releases fetches the index and returns its releases in upstream order.
// The first element is taken to be the newest; the order is not re-checked.
func (c *IndexClient) Releases(ctx context.Context) ([]Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to build release index request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shimsync")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to query release index")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf(errors.KindRemoteUnavailable, "release index returned status %d", resp.StatusCode)
	}

	var raw []gitlabRelease
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to decode release index")
	}

	releases := make([]Release, 0, len(raw))
	for _, r := range raw {
		rel := Release{Tag: r.TagName}
		if len(r.Assets.Links) > 0 {
			rel.DownloadURL = r.Assets.Links[0].URL
		}
		releases = append(releases, rel)
	}
	return releases, nil
}

// String identifies the client in logs.
func (c *IndexClient) String() string {
	return fmt.Sprintf("release index %s", c.url)
}
