// Package catalog maps game names to Steam app IDs using the public Steam
// app list, cached on disk.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/logging"
)

const (
	// DefaultAppListURL is the Steam Web API app list endpoint.
	DefaultAppListURL = "http://api.steampowered.com/ISteamApps/GetAppList/v2"
	// CacheFileName is the cached app list under the cache directory.
	CacheFileName = "app_list.json"
)

// App is one entry of the app list.
type App struct {
	AppID uint32 `json:"appid" yaml:"appid"`
	Name  string `json:"name" yaml:"name"`
}

type appList struct {
	AppList struct {
		Apps []App `json:"apps"`
	} `json:"applist"`
}

// Catalog downloads and searches the app list.
type Catalog struct {
	url      string
	cacheDir string
	client   *http.Client
	logger   zerolog.Logger
}

// New creates a catalog that downloads from url and caches in cacheDir.
func New(url, cacheDir string, timeout time.Duration) *Catalog {
	if url == "" {
		url = DefaultAppListURL
	}
	return &Catalog{
		url:      url,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.GetLogger("catalog"),
	}
}

// CachePath returns the location of the cached app list.
func (c *Catalog) CachePath() string {
	return filepath.Join(c.cacheDir, CacheFileName)
}

// Refresh downloads the app list and replaces the cache. It returns the
// number of apps in the new list.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to build app list request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shimsync")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to fetch app list")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.Newf(errors.KindRemoteUnavailable, "app list returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to read app list")
	}
	var list appList
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, errors.Wrap(err, errors.KindRemoteUnavailable, "failed to parse app list")
	}

	if err := writeCache(c.CachePath(), data); err != nil {
		return 0, errors.Wrap(err, errors.KindIO, "failed to cache app list")
	}
	c.logger.Info().Int("apps", len(list.AppList.Apps)).Str("path", c.CachePath()).Msg("Downloaded latest app list")
	return len(list.AppList.Apps), nil
}

// Apps returns the cached app list, downloading it first if there is no cache.
func (c *Catalog) Apps(ctx context.Context) ([]App, error) {
	data, err := os.ReadFile(c.CachePath())
	if os.IsNotExist(err) {
		if _, err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(c.CachePath())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to read cached app list")
	}

	var list appList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "cached app list %s is corrupt, run 'shimsync catalog refresh'", c.CachePath())
	}
	return list.AppList.Apps, nil
}

// Search returns apps whose name contains query, ignoring case, in list order.
func (c *Catalog) Search(ctx context.Context, query string) ([]App, error) {
	apps, err := c.Apps(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(apps, query), nil
}

// Filter returns the apps whose name contains query, ignoring case.
func Filter(apps []App, query string) []App {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var matches []App
	for _, app := range apps {
		if strings.Contains(strings.ToLower(app.Name), needle) {
			matches = append(matches, app)
		}
	}
	return matches
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+CacheFileName+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move app list into place: %w", err)
	}
	return nil
}
