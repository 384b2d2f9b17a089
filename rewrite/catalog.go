// Package rewrite transforms Incubator wikitext into text valid on a
// destination wiki: prefix stripping, pipe-link simplification, category
// cleanup and namespace translation, driven by the destination's resolved
// namespace catalog.
package rewrite

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/olgasafonova/incubator-import-mcp-server/internal/base"
	"github.com/olgasafonova/incubator-import-mcp-server/internal/infra"
	"github.com/olgasafonova/incubator-import-mcp-server/metrics"
)

// CatalogTTL bounds how long a resolved namespace mapping is reused. A
// wiki's namespaces change only on reconfiguration, so the TTL is generous.
const CatalogTTL = 12 * time.Hour

// NamespaceMap is one destination wiki's resolved namespace data: canonical
// namespace name to localized name, plus whether main-namespace titles are
// case-sensitive (which switches the pipe-link matching convention).
type NamespaceMap struct {
	Names         map[string]string
	CaseSensitive bool
}

// Catalog lazily resolves and caches namespace mappings per destination
// wiki. There is no fallback mapping: rewriting without namespace data would
// silently corrupt links, so resolution failures propagate.
type Catalog struct {
	client *base.Client
	cache  *infra.Cache
	dedup  *infra.RequestDeduplicator
}

// NewCatalog creates a catalog backed by the given API client.
func NewCatalog(client *base.Client) *Catalog {
	return &Catalog{
		client: client,
		cache:  infra.NewCache(),
		dedup:  infra.NewRequestDeduplicator(),
	}
}

// Close releases the catalog's cache resources.
func (c *Catalog) Close() {
	c.cache.Close()
}

// siteInfoResult is the typed shape of a meta=siteinfo siprop=namespaces
// response.
type siteInfoResult struct {
	Query struct {
		Namespaces map[string]struct {
			ID        int    `json:"id"`
			Name      string `json:"name"`
			Canonical string `json:"canonical"`
			Case      string `json:"case"`
		} `json:"namespaces"`
	} `json:"query"`
}

// Resolve returns the namespace mapping for the wiki identified by dbname,
// issuing one unauthenticated siteinfo query on first use and serving the
// cached mapping afterwards. Concurrent resolutions for the same wiki are
// coalesced into a single query.
func (c *Catalog) Resolve(ctx context.Context, dbname, apiURL string) (*NamespaceMap, error) {
	if cached, ok := c.cache.Get(dbname); ok {
		metrics.RecordCacheAccess(true)
		return cached.(*NamespaceMap), nil
	}
	metrics.RecordCacheAccess(false)

	result, _, err := c.dedup.Do(ctx, dbname, func() (interface{}, error) {
		ns, err := c.fetch(ctx, apiURL)
		if err != nil {
			return nil, err
		}
		c.cache.Set(dbname, ns, CatalogTTL)
		metrics.SetCacheSize(c.cache.Size())
		return ns, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*NamespaceMap), nil
}

func (c *Catalog) fetch(ctx context.Context, apiURL string) (*NamespaceMap, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")
	params.Set("siprop", "namespaces")

	body, err := c.client.PostForm(ctx, apiURL, params, "")
	if err != nil {
		return nil, fmt.Errorf("siteinfo query failed: %w", err)
	}
	if err := base.CheckError(body, "query"); err != nil {
		return nil, err
	}

	var result siteInfoResult
	if err := base.Decode(body, "query", &result); err != nil {
		return nil, err
	}
	if len(result.Query.Namespaces) == 0 {
		return nil, fmt.Errorf("siteinfo response carried no namespaces")
	}

	ns := &NamespaceMap{Names: make(map[string]string)}
	for _, entry := range result.Query.Namespaces {
		if entry.ID == 0 {
			// The main namespace contributes only the title-case flag.
			ns.CaseSensitive = entry.Case == "case-sensitive"
			continue
		}
		if entry.Canonical == "" {
			continue
		}
		ns.Names[entry.Canonical] = entry.Name
		if entry.ID == 6 {
			// Legacy links still use the Image alias for the File namespace.
			ns.Names["Image"] = entry.Name
		}
	}
	return ns, nil
}
