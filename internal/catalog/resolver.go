package catalog

import (
	"context"
)

// Selector picks one app out of several matches. The boolean is false when
// the user declined to choose.
type Selector interface {
	Select(ctx context.Context, query string, apps []App) (App, bool, error)
}

// Resolver resolves a free-text query to a single app ID.
type Resolver struct {
	catalog  *Catalog
	selector Selector
}

// NewResolver combines a catalog with a selector.
func NewResolver(c *Catalog, s Selector) *Resolver {
	return &Resolver{catalog: c, selector: s}
}

// Resolve searches the catalog and asks the selector to choose among the
// matches. It reports false when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, query string) (uint32, bool, error) {
	matches, err := r.catalog.Search(ctx, query)
	if err != nil {
		return 0, false, err
	}
	if len(matches) == 0 {
		r.catalog.logger.Error().Str("query", query).Msg("No games found")
		return 0, false, nil
	}

	app, ok, err := r.selector.Select(ctx, query, matches)
	if err != nil || !ok {
		return 0, false, err
	}
	r.catalog.logger.Debug().Uint32("app_id", app.AppID).Str("name", app.Name).Msg("Selected app")
	return app.AppID, true, nil
}
