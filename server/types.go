package server

import "time"

type CreateWikiArgs struct {
	DBName string `json:"dbname" jsonschema:"required,description=Database name of the destination wiki (e.g. xyzwiki)"`
	Domain string `json:"domain" jsonschema:"required,description=Domain of the destination wiki (e.g. xyz.wikipedia.org)"`
	Prefix string `json:"prefix" jsonschema:"required,description=Incubator project prefix holding the wiki's pages (e.g. Wp/xyz)"`
}

type WikiSummary struct {
	ID            string    `json:"id"`
	DBName        string    `json:"dbname"`
	Domain        string    `json:"domain"`
	Prefix        string    `json:"prefix"`
	ImportStarted bool      `json:"import_started"`
	IsImported    bool      `json:"is_imported"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListWikisArgs struct {
	IncludeImported bool `json:"include_imported,omitempty" jsonschema:"description=Include wikis whose import already completed"`
}

type ListWikisResult struct {
	Wikis []WikiSummary `json:"wikis"`
	Count int           `json:"count"`
}

type RegisterUserArgs struct {
	Username string `json:"username" jsonschema:"required,description=Username the delegated credentials belong to"`
	Key      string `json:"key" jsonschema:"required,description=Delegated credential key"`
	Secret   string `json:"secret" jsonschema:"required,description=Delegated credential secret"`
}

// UserSummary never carries the credential pair back out.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

type DeactivateUserArgs struct {
	Username string `json:"username" jsonschema:"required,description=User to deactivate"`
}

type StartImportArgs struct {
	DBName   string `json:"dbname" jsonschema:"required,description=Database name of the wiki to import"`
	Username string `json:"username" jsonschema:"required,description=User whose credentials authorize the import"`
}

type StartImportResult struct {
	WikiID string `json:"wiki_id"`
	UserID string `json:"user_id"`
	Queued bool   `json:"queued"`
}

type ImportStatusArgs struct {
	DBName string `json:"dbname" jsonschema:"required,description=Database name of the wiki"`
}

type PageOutcome struct {
	Title     string    `json:"title"`
	Success   bool      `json:"imported_successfully"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ImportStatusResult struct {
	Wiki           WikiSummary   `json:"wiki"`
	PagesImported  int           `json:"pages_imported"`
	PagesFailed    int           `json:"pages_failed"`
	RecentFailures []PageOutcome `json:"recent_failures,omitempty"`
}

type PreviewRewriteArgs struct {
	DBName   string `json:"dbname" jsonschema:"required,description=Destination wiki whose namespace catalog drives the rewrite"`
	Wikitext string `json:"wikitext" jsonschema:"required,description=Wikitext to run through the rewrite pipeline"`
}

type PreviewRewriteResult struct {
	Rewritten string `json:"rewritten"`
	Changed   bool   `json:"changed"`
}

type ListPagesArgs struct {
	DBName    string `json:"dbname" jsonschema:"required,description=Wiki whose Incubator pages to enumerate"`
	Namespace int    `json:"namespace,omitempty" jsonschema:"description=Namespace ID to enumerate (0=main, 1=talk, 10=template, 828=module)"`
}

type ListPagesResult struct {
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}
