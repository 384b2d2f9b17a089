// Package destination provides authenticated read/write access to a
// destination wiki: existence checks, token issuance, local-account
// pre-creation and XML import upload.
//
// Every call runs under a two-tier bounded retry policy: a well-formed
// error with code "mwoauth-invalid-authorization" is retried exactly once
// with authentication bypassed (credential-refresh races self-heal quickly),
// and a structurally undecodable response or transport failure is retried
// once unconditionally. Any other well-formed error code surfaces to the
// caller unretried, as does a second failure of any kind.
package destination

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dghubble/oauth1"

	"github.com/olgasafonova/incubator-import-mcp-server/internal/base"
	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
	"github.com/olgasafonova/incubator-import-mcp-server/metrics"
)

// CodeInvalidAuthorization is the single transient error code the retry
// policy recognizes.
const CodeInvalidAuthorization = "mwoauth-invalid-authorization"

// Client provides access to one destination wiki's API on behalf of one
// credential holder.
type Client struct {
	signed *base.Client // OAuth-signed transport
	bare   *base.Client // unauthenticated transport for the bypass retry
	apiURL string
	config *Config
}

// NewClient creates a client for the destination wiki at apiURL, acting with
// the given delegated credentials.
func NewClient(config *Config, apiURL string, creds Credentials, opts ...base.ClientOption) *Client {
	oauthCfg := oauth1.NewConfig(config.ConsumerKey, config.ConsumerSecret)
	token := oauth1.NewToken(creds.Key, creds.Secret)

	signedHTTP := oauthCfg.Client(context.Background(), token)
	signedHTTP.Timeout = config.Timeout

	signedOpts := []base.ClientOption{base.WithHTTPClient(signedHTTP)}
	bareOpts := []base.ClientOption{
		base.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.UserAgent != "" {
		signedOpts = append(signedOpts, base.WithUserAgent(config.UserAgent))
		bareOpts = append(bareOpts, base.WithUserAgent(config.UserAgent))
	}
	signedOpts = append(signedOpts, opts...)
	bareOpts = append(bareOpts, opts...)

	return &Client{
		signed: base.NewClient(signedOpts...),
		bare:   base.NewClient(bareOpts...),
		apiURL: apiURL,
		config: config,
	}
}

// transport picks the signed or bare client.
func (c *Client) transport(bypassAuth bool) *base.Client {
	if bypassAuth {
		return c.bare
	}
	return c.signed
}

// do runs one API request under the retry policy. request is invoked with
// the bypass-auth flag for the current attempt; the explicit loop keeps the
// "exactly one retry" contract visible.
func (c *Client) do(action string, request func(bypassAuth bool) ([]byte, error)) ([]byte, error) {
	bypass := false
	retried := false
	for {
		body, err := request(bypass)
		if err != nil {
			// Transport failure: one unconditional retry.
			if retried {
				return nil, err
			}
			retried = true
			metrics.WikiAPIRetries.WithLabelValues(action).Inc()
			c.signed.Logger.Warn("Destination request failed, retrying once",
				"action", action, "error", err)
			continue
		}

		cerr := base.CheckError(body, action)
		switch e := cerr.(type) {
		case nil:
			return body, nil
		case *apperrors.APIError:
			if e.Code == CodeInvalidAuthorization && !retried {
				retried = true
				bypass = true
				metrics.WikiAPIRetries.WithLabelValues(action).Inc()
				c.signed.Logger.Warn("Invalid authorization, retrying once without auth",
					"action", action)
				continue
			}
			metrics.WikiAPIErrors.WithLabelValues(action, e.Code).Inc()
			return nil, cerr
		default:
			// Undecodable response: one unconditional retry.
			if retried {
				return nil, cerr
			}
			retried = true
			metrics.WikiAPIRetries.WithLabelValues(action).Inc()
			c.signed.Logger.Warn("Undecodable destination response, retrying once",
				"action", action)
			continue
		}
	}
}

// PageExists reports whether a title exists on the destination wiki. It is
// false exactly when the page-info response marks the title missing.
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	body, err := c.do("query", func(bypass bool) ([]byte, error) {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("titles", title)
		return c.transport(bypass).PostForm(ctx, c.apiURL, params, "")
	})
	if err != nil {
		return false, fmt.Errorf("existence check for %q failed: %w", title, err)
	}

	var result pageInfoResult
	if err := base.Decode(body, "query", &result); err != nil {
		return false, err
	}
	for _, page := range result.Query.Pages {
		if page.Missing || page.Invalid {
			return false, nil
		}
	}
	return true, nil
}

// Token fetches a token of the given kind ("csrf" for mutating calls).
// Tokens can expire mid-session, so callers request a fresh one per
// mutating call instead of caching.
func (c *Client) Token(ctx context.Context, kind string) (string, error) {
	body, err := c.do("query", func(bypass bool) ([]byte, error) {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("meta", "tokens")
		params.Set("type", kind)
		return c.transport(bypass).PostForm(ctx, c.apiURL, params, "")
	})
	if err != nil {
		return "", fmt.Errorf("failed to get %s token: %w", kind, err)
	}

	var result tokenResult
	if err := base.Decode(body, "query", &result); err != nil {
		return "", err
	}
	token, ok := result.Query.Tokens[kind+"token"]
	if !ok || token == "" {
		return "", &apperrors.UndecodableResponseError{Action: "query"}
	}
	return token, nil
}

// CreateLocalAccount attaches a local account for username on the
// destination wiki. Callers treat failures (the account already existing
// among them) as best-effort: import proceeds regardless.
func (c *Client) CreateLocalAccount(ctx context.Context, username string) error {
	token, err := c.Token(ctx, "csrf")
	if err != nil {
		return err
	}

	body, err := c.do("createlocalaccount", func(bypass bool) ([]byte, error) {
		params := url.Values{}
		params.Set("action", "createlocalaccount")
		params.Set("username", username)
		params.Set("reason", "Pre-creating contributor account before history import")
		params.Set("token", token)
		return c.transport(bypass).PostForm(ctx, c.apiURL, params, "")
	})
	if err != nil {
		return fmt.Errorf("local account creation for %q failed: %w", username, err)
	}

	var result createAccountResult
	if err := base.Decode(body, "createlocalaccount", &result); err != nil {
		return err
	}
	c.signed.Logger.Debug("Local account creation",
		"username", username,
		"status", result.CreateLocalAccount.Status)
	return nil
}

// ImportXML uploads an XML history export to the import action. Imported
// revisions are tagged with the configured interwiki prefix and revision
// authors already known locally are auto-assigned.
func (c *Client) ImportXML(ctx context.Context, xml []byte, summary string) (*ImportOutcome, error) {
	token, err := c.Token(ctx, "csrf")
	if err != nil {
		return nil, err
	}
	metrics.ImportXMLSize.Observe(float64(len(xml)))

	body, err := c.do("import", func(bypass bool) ([]byte, error) {
		fields := map[string]string{
			"action":           "import",
			"token":            token,
			"summary":          summary,
			"interwikiprefix":  c.config.InterwikiPrefix,
			"assignknownusers": "1",
		}
		return c.transport(bypass).PostMultipart(ctx, c.apiURL, fields, "xml", "import.xml", xml, "")
	})
	if err != nil {
		return nil, err
	}

	var result importResult
	if err := base.Decode(body, "import", &result); err != nil {
		return nil, err
	}
	return &ImportOutcome{Pages: result.Import}, nil
}
