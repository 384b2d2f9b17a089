package store

import "time"

// SchemaVersion of the on-disk record files.
const SchemaVersion = "1.0.0"

// Wiki is a destination wiki being populated from the Incubator.
type Wiki struct {
	ID            string    `json:"id"`
	DBName        string    `json:"dbname"`
	Domain        string    `json:"domain"`
	Prefix        string    `json:"prefix"`
	ImportStarted bool      `json:"import_started"`
	IsImported    bool      `json:"is_imported"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// APIURL derives the canonical API endpoint from the wiki's domain.
func (w *Wiki) APIURL() string {
	return "https://" + w.Domain + "/w/api.php"
}

// Page records one attempted page import. Rows are append-only: created
// exactly once per attempt and never updated.
type Page struct {
	ID        string    `json:"id"`
	WikiID    string    `json:"wiki_id"`
	Title     string    `json:"title"`
	Success   bool      `json:"imported_successfully"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a destination-side credential holder. Credentials are refreshed
// by the session-refresh collaborator; a deactivated user blocks all
// orchestrator actions under that identity.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Key       string    `json:"key"`
	Secret    string    `json:"secret"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// wikiDatabase is the on-disk shape of wikis.json.
type wikiDatabase struct {
	Version   string          `json:"version"`
	Wikis     map[string]Wiki `json:"wikis"` // keyed by dbname
	UpdatedAt time.Time       `json:"updated_at"`
}

// pageDatabase is the on-disk shape of pages.json.
type pageDatabase struct {
	Version   string    `json:"version"`
	Pages     []Page    `json:"pages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// userDatabase is the on-disk shape of users.json.
type userDatabase struct {
	Version   string          `json:"version"`
	Users     map[string]User `json:"users"` // keyed by username
	UpdatedAt time.Time       `json:"updated_at"`
}
