// Package importer drives the per-wiki migration workflow: enumerate source
// pages namespace by namespace, skip destination duplicates, pre-create
// contributor accounts, export, rewrite and import each page, and record an
// immutable outcome row per attempt.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olgasafonova/incubator-import-mcp-server/destination"
	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
	"github.com/olgasafonova/incubator-import-mcp-server/metrics"
	"github.com/olgasafonova/incubator-import-mcp-server/rewrite"
	"github.com/olgasafonova/incubator-import-mcp-server/store"
	"github.com/olgasafonova/incubator-import-mcp-server/tracing"
)

// Namespace run order. Modules and templates go first so content pages find
// their dependencies already present, then the two translation-help
// namespaces; the main namespace follows and a trailing pass covers talk.
var moduleNamespaces = []int{828, 829, 10, 11, 1198, 1199}

const (
	mainNamespace = 0
	talkNamespace = 1
)

// Source enumerates and exports pages from the Incubator wiki.
type Source interface {
	ListPages(ctx context.Context, prefix string, namespace int) ([]string, error)
	ExportPage(ctx context.Context, title string) ([]byte, error)
	ListContributors(ctx context.Context, title string) ([]string, error)
}

// Destination performs authenticated calls against the destination wiki.
type Destination interface {
	PageExists(ctx context.Context, title string) (bool, error)
	CreateLocalAccount(ctx context.Context, username string) error
	ImportXML(ctx context.Context, xml []byte, summary string) (*destination.ImportOutcome, error)
}

// Resolver supplies the destination wiki's namespace catalog.
type Resolver interface {
	Resolve(ctx context.Context, dbname, apiURL string) (*rewrite.NamespaceMap, error)
}

// Records is the durable-store surface the orchestrator needs.
type Records interface {
	SetImportStarted(id string) error
	SetImported(id string) error
	AppendPage(wikiID, title string, success bool, errDetail string) (*store.Page, error)
}

// Orchestrator runs one wiki's import end to end. Page processing is
// strictly sequential: imports may depend on accounts created while handling
// earlier pages, and the destination API documents no concurrent-import
// guarantee.
type Orchestrator struct {
	source  Source
	dest    Destination
	catalog Resolver
	records Records
	summary string
	logger  *slog.Logger
}

// NewOrchestrator wires an orchestrator for one wiki run.
func NewOrchestrator(source Source, dest Destination, catalog Resolver, records Records, summary string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source:  source,
		dest:    dest,
		catalog: catalog,
		records: records,
		summary: summary,
		logger:  logger,
	}
}

// Run migrates every targeted namespace of one wiki. Source-side and
// catalog failures abort the run. Destination-side failures
// are recorded per page and the run moves on. Reruns are safe: pages already
// on the destination are skipped by the existence check.
func (o *Orchestrator) Run(ctx context.Context, wiki *store.Wiki) error {
	ctx, span := tracing.StartSpan(ctx, "import.run")
	defer span.End()
	tracing.AddImportAttributes(span, wiki.DBName, "")

	if err := o.records.SetImportStarted(wiki.ID); err != nil {
		return fmt.Errorf("failed to mark import started: %w", err)
	}

	ns, err := o.catalog.Resolve(ctx, wiki.DBName, wiki.APIURL())
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("namespace catalog resolution failed: %w", err)
	}
	rewriter := rewrite.NewRewriter(wiki.Prefix, ns)

	for _, namespace := range moduleNamespaces {
		if err := o.runNamespace(ctx, wiki, rewriter, namespace, nil); err != nil {
			tracing.RecordError(span, err)
			return err
		}
	}

	// Colon-containing main-namespace titles are sub-page or cross-namespace
	// artifacts handled through the namespace passes above.
	noColon := func(title string) bool {
		return !strings.Contains(strings.TrimPrefix(title, wiki.Prefix+"/"), ":")
	}
	if err := o.runNamespace(ctx, wiki, rewriter, mainNamespace, noColon); err != nil {
		tracing.RecordError(span, err)
		return err
	}

	if err := o.runNamespace(ctx, wiki, rewriter, talkNamespace, nil); err != nil {
		tracing.RecordError(span, err)
		return err
	}

	if err := o.records.SetImported(wiki.ID); err != nil {
		return fmt.Errorf("failed to mark import complete: %w", err)
	}

	o.logger.Info("Wiki import complete", "dbname", wiki.DBName)
	metrics.ImportRunsTotal.WithLabelValues("success").Inc()
	return nil
}

// runNamespace processes every source page of one namespace, optionally
// filtered by keep.
func (o *Orchestrator) runNamespace(ctx context.Context, wiki *store.Wiki, rewriter *rewrite.Rewriter, namespace int, keep func(string) bool) error {
	titles, err := o.source.ListPages(ctx, wiki.Prefix, namespace)
	if err != nil {
		metrics.ImportRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("page listing for namespace %d failed: %w", namespace, err)
	}

	o.logger.Info("Importing namespace",
		"dbname", wiki.DBName,
		"namespace", namespace,
		"pages", len(titles))

	for _, title := range titles {
		if keep != nil && !keep(title) {
			continue
		}
		if err := o.importPage(ctx, wiki, rewriter, title); err != nil {
			metrics.ImportRunsTotal.WithLabelValues("error").Inc()
			return err
		}
	}
	return nil
}

// importPage runs the per-page workflow. A non-nil return means the whole
// run must stop (source-side failure); destination failures are recorded on
// the page and swallowed.
func (o *Orchestrator) importPage(ctx context.Context, wiki *store.Wiki, rewriter *rewrite.Rewriter, title string) error {
	ctx, span := tracing.StartSpan(ctx, "import.page")
	defer span.End()
	tracing.AddImportAttributes(span, wiki.DBName, title)

	destTitle := rewriter.RewriteTitle(title)
	exists, err := o.dest.PageExists(ctx, destTitle)
	if err != nil {
		// Destination-side failure before anything was attempted: record
		// it and let the run continue with the next page.
		o.recordFailure(wiki, title, err)
		tracing.RecordError(span, err)
		return nil
	}
	if exists {
		o.logger.Debug("Page already present, skipping",
			"dbname", wiki.DBName, "title", destTitle)
		metrics.PagesSkippedTotal.WithLabelValues(wiki.DBName).Inc()
		return nil
	}

	contributors, err := o.source.ListContributors(ctx, title)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("contributor listing for %q failed: %w", title, err)
	}
	for _, username := range contributors {
		// Best-effort: the import auto-assigns known users even when
		// pre-creation partially failed.
		if err := o.dest.CreateLocalAccount(ctx, username); err != nil {
			o.logger.Warn("Account pre-creation failed",
				"dbname", wiki.DBName,
				"username", username,
				"error", err)
			metrics.AccountPrecreationsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.AccountPrecreationsTotal.WithLabelValues("success").Inc()
	}

	xml, err := o.source.ExportPage(ctx, title)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("export of %q failed: %w", title, err)
	}

	rewritten := rewriter.Rewrite(string(xml))

	if _, err := o.dest.ImportXML(ctx, []byte(rewritten), o.summary); err != nil {
		o.recordFailure(wiki, title, err)
		tracing.RecordError(span, err)
		return nil
	}

	if _, err := o.records.AppendPage(wiki.ID, title, true, ""); err != nil {
		return fmt.Errorf("failed to record page outcome: %w", err)
	}
	o.logger.Info("Page imported", "dbname", wiki.DBName, "title", title)
	metrics.PagesImportedTotal.WithLabelValues(wiki.DBName, "success").Inc()
	return nil
}

// recordFailure appends a failed outcome row with whatever error detail is
// available: the serialized API error body, or the fixed marker when the
// response could not be decoded at all.
func (o *Orchestrator) recordFailure(wiki *store.Wiki, title string, cause error) {
	detail := cause.Error()
	if apiErr, ok := apperrors.IsAPIError(cause); ok {
		if serialized, err := json.Marshal(map[string]string{
			"code": apiErr.Code,
			"info": apiErr.Info,
		}); err == nil {
			detail = string(serialized)
		}
	} else if apperrors.IsUndecodable(cause) {
		detail = apperrors.UndecodableMarker
	}

	if _, err := o.records.AppendPage(wiki.ID, title, false, detail); err != nil {
		o.logger.Error("Failed to record page failure",
			"dbname", wiki.DBName,
			"title", title,
			"error", err)
	}
	o.logger.Warn("Page import failed",
		"dbname", wiki.DBName,
		"title", title,
		"error", cause)
	metrics.PagesImportedTotal.WithLabelValues(wiki.DBName, "error").Inc()
}
