// Incubator Import MCP Server - a Model Context Protocol server that
// migrates wiki content from the shared Incubator into newly created
// destination wikis.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olgasafonova/incubator-import-mcp-server/destination"
	"github.com/olgasafonova/incubator-import-mcp-server/importer"
	"github.com/olgasafonova/incubator-import-mcp-server/incubator"
	"github.com/olgasafonova/incubator-import-mcp-server/internal/base"
	"github.com/olgasafonova/incubator-import-mcp-server/metrics"
	"github.com/olgasafonova/incubator-import-mcp-server/rewrite"
	"github.com/olgasafonova/incubator-import-mcp-server/server"
	"github.com/olgasafonova/incubator-import-mcp-server/store"
	"github.com/olgasafonova/incubator-import-mcp-server/tracing"
)

const (
	ServerName    = "incubator-import-mcp-server"
	ServerVersion = "1.0.0"
)

// recoverPanic wraps a tool handler with panic recovery so a single bad page
// cannot take the server down
func recoverPanic(logger *slog.Logger, tool string) {
	if r := recover(); r != nil {
		metrics.PanicsRecovered.WithLabelValues(tool).Inc()
		logger.Error("Panic recovered",
			"tool", tool,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

// instrument records in-flight, latency and outcome metrics for one tool
// call. Call the returned func with whether the call succeeded.
func instrument(tool string) func(success bool) {
	start := time.Now()
	metrics.RequestInFlight.WithLabelValues(tool).Inc()
	return func(success bool) {
		metrics.RequestInFlight.WithLabelValues(tool).Dec()
		metrics.RecordRequest(tool, time.Since(start).Seconds(), success)
	}
}

func main() {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	incubatorCfg := incubator.LoadConfig()
	destCfg := destination.LoadConfig()
	importerCfg := importer.LoadConfig()

	if !destCfg.HasConsumer() {
		logger.Warn("Destination consumer credentials not configured, imports will fail until DESTINATION_CONSUMER_KEY and DESTINATION_CONSUMER_SECRET are set")
	}

	st, err := store.NewStore(importerCfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}

	source := incubator.NewClient(incubatorCfg, base.WithLogger(logger))
	catalog := rewrite.NewCatalog(base.NewClient(base.WithLogger(logger)))
	defer catalog.Close()

	// The worker reloads both records when the task is picked up, so edits
	// made while a task waited in the queue are honored.
	runner := func(ctx context.Context, task importer.Task) error {
		wiki, err := st.GetWikiByID(task.WikiID)
		if err != nil {
			return fmt.Errorf("failed to load wiki for task: %w", err)
		}
		user, err := st.GetUserByID(task.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user for task: %w", err)
		}
		if !user.Active {
			return fmt.Errorf("user %q was deactivated while the task was queued", user.Username)
		}

		dest := destination.NewClient(destCfg, wiki.APIURL(),
			destination.Credentials{Key: user.Key, Secret: user.Secret},
			base.WithLogger(logger))
		orch := importer.NewOrchestrator(source, dest, catalog, st, importerCfg.Summary, logger)
		return orch.Run(ctx, wiki)
	}

	queue := importer.NewQueue(runner, logger)
	queue.Start(ctx)
	defer queue.Close()

	app := &server.App{
		Store:   st,
		Source:  source,
		Catalog: catalog,
		Enqueue: queue.Enqueue,
		Logger:  logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger: logger,
		Instructions: `Incubator Import MCP Server migrates wiki content from the shared Incubator into destination wikis.

Available tools:
- incubator_create_wiki: Register a destination wiki (dbname, domain, Incubator prefix)
- incubator_list_wikis: List registered wikis, optionally including completed ones
- incubator_register_user: Store a user's delegated credential pair
- incubator_deactivate_user: Block further imports under a user identity
- incubator_start_import: Queue a full import run for a wiki
- incubator_import_status: Report a wiki's import flags and per-page outcomes
- incubator_preview_rewrite: Run the wikitext rewrite pipeline without importing
- incubator_list_pages: Enumerate a wiki's Incubator pages in one namespace

Configure via environment variables:
- INCUBATOR_API_URL: Source wiki API URL (default https://incubator.wikimedia.org/w/api.php)
- DESTINATION_CONSUMER_KEY / DESTINATION_CONSUMER_SECRET: OAuth consumer pair
- IMPORTER_DATA_DIR: Directory for durable Wiki/Page/User records`,
	})

	registerTools(mcpServer, app, logger)

	logger.Info("Starting Incubator Import MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"source_url", incubatorCfg.APIURL,
		"data_dir", importerCfg.DataDir,
	)

	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func registerTools(s *mcp.Server, app *server.App, logger *slog.Logger) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_create_wiki",
		Description: "Register a destination wiki for import. Records its database name, domain and the Incubator prefix holding its pages.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Create Wiki",
			ReadOnlyHint:   false,
			IdempotentHint: false,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.CreateWikiArgs) (*mcp.CallToolResult, server.WikiSummary, error) {
		defer recoverPanic(logger, "create_wiki")
		done := instrument("create_wiki")
		ctx, span := tracing.StartSpan(ctx, "tool.create_wiki")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_create_wiki", "admin")

		result, err := app.CreateWiki(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.WikiSummary{}, fmt.Errorf("failed to create wiki: %w", err)
		}
		logger.Info("Tool executed", "tool", "incubator_create_wiki", "dbname", args.DBName)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_list_wikis",
		Description: "List registered wikis. By default only wikis whose import has not completed are returned; set include_imported for all.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "List Wikis",
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.ListWikisArgs) (*mcp.CallToolResult, server.ListWikisResult, error) {
		defer recoverPanic(logger, "list_wikis")
		done := instrument("list_wikis")
		ctx, span := tracing.StartSpan(ctx, "tool.list_wikis")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_list_wikis", "admin")

		result, err := app.ListWikis(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.ListWikisResult{}, fmt.Errorf("failed to list wikis: %w", err)
		}
		logger.Info("Tool executed", "tool", "incubator_list_wikis", "count", result.Count)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_register_user",
		Description: "Store or refresh a user's delegated credential pair. Refreshing reactivates a deactivated user.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Register User",
			ReadOnlyHint:   false,
			IdempotentHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.RegisterUserArgs) (*mcp.CallToolResult, server.UserSummary, error) {
		defer recoverPanic(logger, "register_user")
		done := instrument("register_user")
		ctx, span := tracing.StartSpan(ctx, "tool.register_user")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_register_user", "admin")

		result, err := app.RegisterUser(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.UserSummary{}, fmt.Errorf("failed to register user: %w", err)
		}
		logger.Info("Tool executed", "tool", "incubator_register_user", "username", args.Username)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_deactivate_user",
		Description: "Deactivate a user so no further imports run under their identity, e.g. after their delegated credentials were revoked.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Deactivate User",
			ReadOnlyHint:   false,
			IdempotentHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.DeactivateUserArgs) (*mcp.CallToolResult, server.UserSummary, error) {
		defer recoverPanic(logger, "deactivate_user")
		done := instrument("deactivate_user")
		ctx, span := tracing.StartSpan(ctx, "tool.deactivate_user")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_deactivate_user", "admin")

		result, err := app.DeactivateUser(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.UserSummary{}, fmt.Errorf("failed to deactivate user: %w", err)
		}
		logger.Info("Tool executed", "tool", "incubator_deactivate_user", "username", args.Username)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_start_import",
		Description: "Queue a full import run for a registered wiki under a user's credentials. Returns immediately; observe progress via incubator_import_status.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Start Import",
			ReadOnlyHint:   false,
			IdempotentHint: false,
			OpenWorldHint:  ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.StartImportArgs) (*mcp.CallToolResult, server.StartImportResult, error) {
		defer recoverPanic(logger, "start_import")
		done := instrument("start_import")
		ctx, span := tracing.StartSpan(ctx, "tool.start_import")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_start_import", "import")

		result, err := app.StartImport(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.StartImportResult{}, fmt.Errorf("failed to start import: %w", err)
		}
		logger.Info("Tool executed", "tool", "incubator_start_import", "dbname", args.DBName)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_import_status",
		Description: "Report a wiki's import flags and its per-page outcome tally, including recent failures with error details.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Import Status",
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.ImportStatusArgs) (*mcp.CallToolResult, server.ImportStatusResult, error) {
		defer recoverPanic(logger, "import_status")
		done := instrument("import_status")
		ctx, span := tracing.StartSpan(ctx, "tool.import_status")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_import_status", "import")

		result, err := app.ImportStatus(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.ImportStatusResult{}, fmt.Errorf("failed to get import status: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "incubator_import_status",
			"dbname", args.DBName,
			"pages_imported", result.PagesImported,
			"pages_failed", result.PagesFailed,
		)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_preview_rewrite",
		Description: "Run the wikitext rewrite pipeline (prefix strip, pipe-link simplification, category cleanup, namespace translation) on supplied text without importing anything.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Preview Rewrite",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.PreviewRewriteArgs) (*mcp.CallToolResult, server.PreviewRewriteResult, error) {
		defer recoverPanic(logger, "preview_rewrite")
		done := instrument("preview_rewrite")
		ctx, span := tracing.StartSpan(ctx, "tool.preview_rewrite")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_preview_rewrite", "rewrite")

		result, err := app.PreviewRewrite(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.PreviewRewriteResult{}, fmt.Errorf("failed to preview rewrite: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "incubator_preview_rewrite",
			"dbname", args.DBName,
			"input_chars", len(args.Wikitext),
			"changed", result.Changed,
		)
		return nil, result, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "incubator_list_pages",
		Description: "Enumerate every Incubator page under a wiki's prefix in one namespace. Follows all continuation tokens; the full list is returned.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Pages",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args server.ListPagesArgs) (*mcp.CallToolResult, server.ListPagesResult, error) {
		defer recoverPanic(logger, "list_pages")
		done := instrument("list_pages")
		ctx, span := tracing.StartSpan(ctx, "tool.list_pages")
		defer span.End()
		tracing.AddToolAttributes(span, "incubator_list_pages", "import")

		result, err := app.ListPages(ctx, args)
		done(err == nil)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, server.ListPagesResult{}, fmt.Errorf("failed to list pages: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "incubator_list_pages",
			"dbname", args.DBName,
			"namespace", args.Namespace,
			"pages_returned", result.Count,
		)
		return nil, result, nil
	})
}

func ptr[T any](v T) *T {
	return &v
}
