// Package site holds the table of supported news portals.
package site

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
	"github.com/JakeFAU/newsrank-crawler/internal/site/tuoitre"
	"github.com/JakeFAU/newsrank-crawler/internal/site/vnexpress"
)

// Adapter is a SiteAdapter that also knows which portal it serves.
type Adapter interface {
	crawler.SiteAdapter
	Site() crawler.Site
}

// Catalog maps site identifiers to their adapters.
type Catalog struct {
	entries map[string]Adapter
}

// NewCatalog registers the given adapters.
func NewCatalog(adapters ...Adapter) *Catalog {
	c := &Catalog{entries: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		c.entries[canonical(a.Site().ID)] = a
	}
	return c
}

// Default returns the catalog of every supported portal.
func Default(logger *zap.Logger) *Catalog {
	return NewCatalog(vnexpress.New(logger), tuoitre.New(logger))
}

// Lookup implements crawler.SiteCatalog. A trailing slash and letter case are ignored.
func (c *Catalog) Lookup(siteID string) (crawler.Site, crawler.SiteAdapter, bool) {
	a, ok := c.entries[canonical(siteID)]
	if !ok {
		return crawler.Site{}, nil, false
	}
	return a.Site(), a, true
}

// Sites lists the supported portals ordered by identifier.
func (c *Catalog) Sites() []crawler.Site {
	out := make([]crawler.Site, 0, len(c.entries))
	for _, a := range c.entries {
		out = append(out, a.Site())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func canonical(siteID string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(siteID)), "/")
}
