// Package incubator provides read-only access to the source Incubator wiki:
// prefix-scoped page enumeration, single-page history export and contributor
// listing. Failures always propagate to the caller; an empty result is never
// synthesized from a failed listing.
package incubator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/olgasafonova/incubator-import-mcp-server/internal/base"
)

// Client provides access to the Incubator wiki API
type Client struct {
	*base.Client
	config *Config
}

// ClientOption configures the Client (re-export base.ClientOption)
type ClientOption = base.ClientOption

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return base.WithHTTPClient(c)
}

// NewClient creates a new Incubator client
func NewClient(config *Config, opts ...ClientOption) *Client {
	baseOpts := []base.ClientOption{
		base.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.UserAgent != "" {
		baseOpts = append(baseOpts, base.WithUserAgent(config.UserAgent))
	}
	baseOpts = append(baseOpts, opts...)
	return &Client{
		Client: base.NewClient(baseOpts...),
		config: config,
	}
}

// ListPages enumerates every title under prefix in the given namespace,
// following continuation tokens until the API reports none remain. The list
// is never truncated.
func (c *Client) ListPages(ctx context.Context, prefix string, namespace int) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "allpages")
	params.Set("aplimit", "max")
	params.Set("apprefix", prefix+"/")
	params.Set("apnamespace", strconv.Itoa(namespace))

	var titles []string
	for {
		body, err := c.PostForm(ctx, c.config.APIURL, params, "")
		if err != nil {
			return nil, fmt.Errorf("allpages query failed: %w", err)
		}
		if err := base.CheckError(body, "query"); err != nil {
			return nil, err
		}

		var result allPagesResult
		if err := base.Decode(body, "query", &result); err != nil {
			return nil, err
		}
		for _, page := range result.Query.AllPages {
			titles = append(titles, page.Title)
		}

		if len(result.Continue) == 0 {
			break
		}
		applyContinuation(params, result.Continue)
	}

	c.Logger.Debug("Listed source pages",
		"prefix", prefix,
		"namespace", namespace,
		"count", len(titles))
	return titles, nil
}

// ExportPage fetches the full revision history of one title as a raw XML
// export. The latest revision alone is never enough: the destination import
// replays the whole history.
func (c *Client) ExportPage(ctx context.Context, title string) ([]byte, error) {
	params := url.Values{}
	params.Set("title", "Special:Export")
	params.Set("pages", title)
	params.Set("history", "1")

	xml, err := c.PostRaw(ctx, c.config.IndexURL, params)
	if err != nil {
		return nil, fmt.Errorf("export of %q failed: %w", title, err)
	}
	return xml, nil
}

// ListContributors collects the distinct usernames across every revision of
// a title, paginating with rvcontinue until the revision list is exhausted.
// Hidden and anonymous revision authors are skipped: they cannot be
// pre-created as destination accounts.
func (c *Client) ListContributors(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", title)
	params.Set("prop", "revisions")
	params.Set("rvprop", "user")
	params.Set("rvlimit", "max")

	seen := make(map[string]struct{})
	for {
		body, err := c.PostForm(ctx, c.config.APIURL, params, "")
		if err != nil {
			return nil, fmt.Errorf("revisions query for %q failed: %w", title, err)
		}
		if err := base.CheckError(body, "query"); err != nil {
			return nil, err
		}

		var result revisionsResult
		if err := base.Decode(body, "query", &result); err != nil {
			return nil, err
		}
		for _, page := range result.Query.Pages {
			if page.Missing {
				continue
			}
			for _, rev := range page.Revisions {
				if rev.UserHidden || rev.Anon || rev.User == "" {
					continue
				}
				seen[rev.User] = struct{}{}
			}
		}

		if len(result.Continue) == 0 {
			break
		}
		applyContinuation(params, result.Continue)
	}

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

// applyContinuation folds a continuation token map back into the request
// parameters for the next page of results.
func applyContinuation(params url.Values, cont Continuation) {
	for key, raw := range cont {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			params.Set(key, s)
			continue
		}
		// Non-string token (rare): carry the raw JSON text.
		params.Set(key, string(raw))
	}
}
