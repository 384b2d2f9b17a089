// Package server implements the tool handlers behind the MCP surface. Each
// handler validates its input, touches the durable store and returns a typed
// result; the long-running import work itself goes through the queue.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olgasafonova/incubator-import-mcp-server/importer"
	"github.com/olgasafonova/incubator-import-mcp-server/incubator"
	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
	"github.com/olgasafonova/incubator-import-mcp-server/rewrite"
	"github.com/olgasafonova/incubator-import-mcp-server/store"
)

// recentFailureLimit caps the failure list in a status response.
const recentFailureLimit = 20

// App aggregates the collaborators the tool handlers need.
type App struct {
	Store   *store.Store
	Source  *incubator.Client
	Catalog *rewrite.Catalog
	Enqueue func(importer.Task) error
	Logger  *slog.Logger
}

func summarize(w *store.Wiki) WikiSummary {
	return WikiSummary{
		ID:            w.ID,
		DBName:        w.DBName,
		Domain:        w.Domain,
		Prefix:        w.Prefix,
		ImportStarted: w.ImportStarted,
		IsImported:    w.IsImported,
		CreatedAt:     w.CreatedAt,
	}
}

// CreateWiki records a new destination wiki.
func (a *App) CreateWiki(ctx context.Context, args CreateWikiArgs) (WikiSummary, error) {
	if strings.TrimSpace(args.DBName) == "" {
		return WikiSummary{}, apperrors.NewValidationError("dbname", args.DBName, "must not be empty")
	}
	if strings.TrimSpace(args.Domain) == "" {
		return WikiSummary{}, apperrors.NewValidationError("domain", args.Domain, "must not be empty")
	}
	if strings.TrimSpace(args.Prefix) == "" {
		return WikiSummary{}, apperrors.NewValidationError("prefix", args.Prefix, "must not be empty")
	}

	wiki, err := a.Store.CreateWiki(args.DBName, args.Domain, args.Prefix)
	if err != nil {
		return WikiSummary{}, err
	}
	a.Logger.Info("Wiki registered",
		"dbname", wiki.DBName, "domain", wiki.Domain, "prefix", wiki.Prefix)
	return summarize(wiki), nil
}

// ListWikis lists registered wikis, by default only those still pending.
func (a *App) ListWikis(ctx context.Context, args ListWikisArgs) (ListWikisResult, error) {
	wikis, err := a.Store.ListWikis(args.IncludeImported)
	if err != nil {
		return ListWikisResult{}, err
	}
	result := ListWikisResult{Wikis: make([]WikiSummary, 0, len(wikis))}
	for i := range wikis {
		result.Wikis = append(result.Wikis, summarize(&wikis[i]))
	}
	result.Count = len(result.Wikis)
	return result, nil
}

// RegisterUser stores or refreshes a user's delegated credential pair.
func (a *App) RegisterUser(ctx context.Context, args RegisterUserArgs) (UserSummary, error) {
	if strings.TrimSpace(args.Username) == "" {
		return UserSummary{}, apperrors.NewValidationError("username", args.Username, "must not be empty")
	}
	if args.Key == "" || args.Secret == "" {
		return UserSummary{}, apperrors.NewValidationError("key", "", "credential pair must be complete")
	}

	user, err := a.Store.UpsertUser(args.Username, args.Key, args.Secret)
	if err != nil {
		return UserSummary{}, err
	}
	a.Logger.Info("User credentials stored", "username", user.Username)
	return UserSummary{ID: user.ID, Username: user.Username, Active: user.Active}, nil
}

// DeactivateUser blocks further imports under an identity, typically after
// its delegated credentials were revoked upstream.
func (a *App) DeactivateUser(ctx context.Context, args DeactivateUserArgs) (UserSummary, error) {
	if err := a.Store.DeactivateUser(args.Username); err != nil {
		return UserSummary{}, err
	}
	user, err := a.Store.GetUser(args.Username)
	if err != nil {
		return UserSummary{}, err
	}
	a.Logger.Info("User deactivated", "username", args.Username)
	return UserSummary{ID: user.ID, Username: user.Username, Active: user.Active}, nil
}

// StartImport queues an import run for a wiki under a user's credentials.
// The task carries identifiers only; the worker reloads both records when it
// picks the task up.
func (a *App) StartImport(ctx context.Context, args StartImportArgs) (StartImportResult, error) {
	wiki, err := a.Store.GetWiki(args.DBName)
	if err != nil {
		return StartImportResult{}, err
	}
	if wiki.IsImported {
		return StartImportResult{}, apperrors.NewValidationError("dbname", args.DBName, "wiki is already imported")
	}
	user, err := a.Store.GetUser(args.Username)
	if err != nil {
		return StartImportResult{}, err
	}
	if !user.Active {
		return StartImportResult{}, apperrors.NewValidationError("username", args.Username, "user is deactivated")
	}

	if err := a.Enqueue(importer.Task{WikiID: wiki.ID, UserID: user.ID}); err != nil {
		return StartImportResult{}, fmt.Errorf("failed to queue import: %w", err)
	}
	a.Logger.Info("Import queued", "dbname", wiki.DBName, "username", user.Username)
	return StartImportResult{WikiID: wiki.ID, UserID: user.ID, Queued: true}, nil
}

// ImportStatus reports a wiki's flags and its per-page outcome tally.
func (a *App) ImportStatus(ctx context.Context, args ImportStatusArgs) (ImportStatusResult, error) {
	wiki, err := a.Store.GetWiki(args.DBName)
	if err != nil {
		return ImportStatusResult{}, err
	}
	pages, err := a.Store.ListPages(wiki.ID)
	if err != nil {
		return ImportStatusResult{}, err
	}

	result := ImportStatusResult{Wiki: summarize(wiki)}
	for _, page := range pages {
		if page.Success {
			result.PagesImported++
			continue
		}
		result.PagesFailed++
		if len(result.RecentFailures) < recentFailureLimit {
			result.RecentFailures = append(result.RecentFailures, PageOutcome{
				Title:     page.Title,
				Success:   false,
				Error:     page.Error,
				CreatedAt: page.CreatedAt,
			})
		}
	}
	return result, nil
}

// PreviewRewrite runs the rewrite pipeline on caller-supplied wikitext
// without touching either wiki.
func (a *App) PreviewRewrite(ctx context.Context, args PreviewRewriteArgs) (PreviewRewriteResult, error) {
	wiki, err := a.Store.GetWiki(args.DBName)
	if err != nil {
		return PreviewRewriteResult{}, err
	}
	ns, err := a.Catalog.Resolve(ctx, wiki.DBName, wiki.APIURL())
	if err != nil {
		return PreviewRewriteResult{}, err
	}
	rewritten := rewrite.NewRewriter(wiki.Prefix, ns).Rewrite(args.Wikitext)
	return PreviewRewriteResult{
		Rewritten: rewritten,
		Changed:   rewritten != args.Wikitext,
	}, nil
}

// ListPages enumerates the Incubator titles under a wiki's prefix in one
// namespace. The full continuation chain is always walked.
func (a *App) ListPages(ctx context.Context, args ListPagesArgs) (ListPagesResult, error) {
	wiki, err := a.Store.GetWiki(args.DBName)
	if err != nil {
		return ListPagesResult{}, err
	}
	titles, err := a.Source.ListPages(ctx, wiki.Prefix, args.Namespace)
	if err != nil {
		return ListPagesResult{}, err
	}
	return ListPagesResult{Titles: titles, Count: len(titles)}, nil
}
