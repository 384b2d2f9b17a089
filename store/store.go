// Package store persists Wiki, Page and User records as flock-guarded JSON
// files under a data directory. Writes are atomic (temp file + rename) and
// keep a one-deep backup of the previous file. The core logic never deletes
// records: wikis and users are mutated in place, pages are append-only.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
)

// Store manages record persistence to the filesystem.
type Store struct {
	dataDir  string
	lockFile *flock.Flock
	mu       sync.Mutex
}

// NewStore creates a store rooted at dataDir, creating it if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		dataDir:  dataDir,
		lockFile: flock.New(filepath.Join(dataDir, ".records.lock")),
	}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// loadJSON reads a record file into v; a missing file leaves v untouched.
func (s *Store) loadJSON(name string, v interface{}) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// saveJSON writes a record file atomically under the file lock, keeping a
// backup of the previous contents.
func (s *Store) saveJSON(name string, v interface{}) error {
	locked, err := s.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return errors.New("unable to acquire lock - another process is writing")
	}
	defer func() { _ = s.lockFile.Unlock() }()

	filePath := s.path(name)
	if prev, err := os.ReadFile(filePath); err == nil {
		_ = os.WriteFile(filePath+".backup", prev, 0600)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tempFile := filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filePath); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) loadWikis() (*wikiDatabase, error) {
	db := &wikiDatabase{Version: SchemaVersion, Wikis: make(map[string]Wiki)}
	if err := s.loadJSON("wikis.json", db); err != nil {
		return nil, err
	}
	return db, nil
}

func (s *Store) saveWikis(db *wikiDatabase) error {
	db.UpdatedAt = time.Now()
	return s.saveJSON("wikis.json", db)
}

// CreateWiki persists a new destination wiki. DBName and prefix must be
// unique across stored wikis.
func (s *Store) CreateWiki(dbname, domain, prefix string) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadWikis()
	if err != nil {
		return nil, err
	}
	if _, exists := db.Wikis[dbname]; exists {
		return nil, apperrors.NewValidationError("dbname", dbname, "wiki already exists")
	}
	for _, w := range db.Wikis {
		if w.Prefix == prefix {
			return nil, apperrors.NewValidationError("prefix", prefix, "prefix already in use by "+w.DBName)
		}
	}

	now := time.Now()
	wiki := Wiki{
		ID:        uuid.New().String(),
		DBName:    dbname,
		Domain:    domain,
		Prefix:    prefix,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.Wikis[dbname] = wiki
	if err := s.saveWikis(db); err != nil {
		return nil, err
	}
	return &wiki, nil
}

// GetWiki retrieves a wiki by dbname.
func (s *Store) GetWiki(dbname string) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadWikis()
	if err != nil {
		return nil, err
	}
	wiki, exists := db.Wikis[dbname]
	if !exists {
		return nil, apperrors.NewNotFoundError("wiki", dbname)
	}
	return &wiki, nil
}

// GetWikiByID retrieves a wiki by record ID.
func (s *Store) GetWikiByID(id string) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadWikis()
	if err != nil {
		return nil, err
	}
	for _, wiki := range db.Wikis {
		if wiki.ID == id {
			return &wiki, nil
		}
	}
	return nil, apperrors.NewNotFoundError("wiki", id)
}

// ListWikis returns all wikis, or only those not yet imported.
func (s *Store) ListWikis(includeImported bool) ([]Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadWikis()
	if err != nil {
		return nil, err
	}
	wikis := make([]Wiki, 0, len(db.Wikis))
	for _, wiki := range db.Wikis {
		if !includeImported && wiki.IsImported {
			continue
		}
		wikis = append(wikis, wiki)
	}
	return wikis, nil
}

// SetImportStarted marks a wiki's import as begun.
func (s *Store) SetImportStarted(id string) error {
	return s.updateWiki(id, func(w *Wiki) { w.ImportStarted = true })
}

// SetImported marks a wiki's import as complete.
func (s *Store) SetImported(id string) error {
	return s.updateWiki(id, func(w *Wiki) { w.IsImported = true })
}

func (s *Store) updateWiki(id string, mutate func(*Wiki)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadWikis()
	if err != nil {
		return err
	}
	for dbname, wiki := range db.Wikis {
		if wiki.ID == id {
			mutate(&wiki)
			wiki.UpdatedAt = time.Now()
			db.Wikis[dbname] = wiki
			return s.saveWikis(db)
		}
	}
	return apperrors.NewNotFoundError("wiki", id)
}

func (s *Store) loadPages() (*pageDatabase, error) {
	db := &pageDatabase{Version: SchemaVersion}
	if err := s.loadJSON("pages.json", db); err != nil {
		return nil, err
	}
	return db, nil
}

// AppendPage records one immutable page-import outcome.
func (s *Store) AppendPage(wikiID, title string, success bool, errDetail string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadPages()
	if err != nil {
		return nil, err
	}
	page := Page{
		ID:        uuid.New().String(),
		WikiID:    wikiID,
		Title:     title,
		Success:   success,
		Error:     errDetail,
		CreatedAt: time.Now(),
	}
	db.Pages = append(db.Pages, page)
	db.UpdatedAt = time.Now()
	if err := s.saveJSON("pages.json", db); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListPages returns the outcome records for one wiki, in insertion order.
func (s *Store) ListPages(wikiID string) ([]Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadPages()
	if err != nil {
		return nil, err
	}
	var pages []Page
	for _, page := range db.Pages {
		if page.WikiID == wikiID {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (s *Store) loadUsers() (*userDatabase, error) {
	db := &userDatabase{Version: SchemaVersion, Users: make(map[string]User)}
	if err := s.loadJSON("users.json", db); err != nil {
		return nil, err
	}
	return db, nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	user, exists := db.Users[username]
	if !exists {
		return nil, apperrors.NewNotFoundError("user", username)
	}
	return &user, nil
}

// GetUserByID retrieves a user by record ID.
func (s *Store) GetUserByID(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, user := range db.Users {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user", id)
}

// UpsertUser stores or refreshes a user's delegated credential pair. A
// refreshed user is reactivated: stale credentials were the only reason to
// block it.
func (s *Store) UpsertUser(username, key, secret string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	user, exists := db.Users[username]
	if !exists {
		user = User{ID: uuid.New().String(), Username: username}
	}
	user.Key = key
	user.Secret = secret
	user.Active = true
	user.UpdatedAt = time.Now()
	db.Users[username] = user
	db.UpdatedAt = time.Now()
	if err := s.saveJSON("users.json", db); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeactivateUser blocks all further orchestrator actions for an identity.
func (s *Store) DeactivateUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.loadUsers()
	if err != nil {
		return err
	}
	user, exists := db.Users[username]
	if !exists {
		return apperrors.NewNotFoundError("user", username)
	}
	user.Active = false
	user.UpdatedAt = time.Now()
	db.Users[username] = user
	db.UpdatedAt = time.Now()
	return s.saveJSON("users.json", db)
}
