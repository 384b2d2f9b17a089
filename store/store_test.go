package store

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func TestCreateWiki(t *testing.T) {
	s := testStore(t)

	wiki, err := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz")
	if err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	if wiki.ID == "" {
		t.Error("wiki ID must be assigned")
	}
	if wiki.ImportStarted || wiki.IsImported {
		t.Error("new wiki must not carry import flags")
	}
	if got := wiki.APIURL(); got != "https://xyz.wikipedia.org/w/api.php" {
		t.Errorf("APIURL = %q", got)
	}
}

func TestCreateWikiDuplicateDBName(t *testing.T) {
	s := testStore(t)

	if _, err := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz"); err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	_, err := s.CreateWiki("xyzwiki", "other.wikipedia.org", "Wp/other")
	if err == nil {
		t.Fatal("duplicate dbname must be rejected")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("want validation error, got %v", err)
	}
}

func TestCreateWikiDuplicatePrefix(t *testing.T) {
	s := testStore(t)

	if _, err := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz"); err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	if _, err := s.CreateWiki("abcwiki", "abc.wikipedia.org", "Wp/xyz"); err == nil {
		t.Fatal("duplicate prefix must be rejected")
	}
}

func TestGetWiki(t *testing.T) {
	s := testStore(t)

	created, err := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz")
	if err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}

	byName, err := s.GetWiki("xyzwiki")
	if err != nil {
		t.Fatalf("GetWiki failed: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetWiki ID = %q, want %q", byName.ID, created.ID)
	}

	byID, err := s.GetWikiByID(created.ID)
	if err != nil {
		t.Fatalf("GetWikiByID failed: %v", err)
	}
	if byID.DBName != "xyzwiki" {
		t.Errorf("GetWikiByID dbname = %q", byID.DBName)
	}

	if _, err := s.GetWiki("nope"); !apperrors.IsNotFound(err) {
		t.Errorf("want not-found error, got %v", err)
	}
}

func TestImportFlags(t *testing.T) {
	s := testStore(t)

	wiki, err := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz")
	if err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}

	if err := s.SetImportStarted(wiki.ID); err != nil {
		t.Fatalf("SetImportStarted failed: %v", err)
	}
	got, _ := s.GetWiki("xyzwiki")
	if !got.ImportStarted || got.IsImported {
		t.Errorf("flags after start: started=%v imported=%v", got.ImportStarted, got.IsImported)
	}

	if err := s.SetImported(wiki.ID); err != nil {
		t.Fatalf("SetImported failed: %v", err)
	}
	got, _ = s.GetWiki("xyzwiki")
	if !got.IsImported {
		t.Error("IsImported not set")
	}

	if err := s.SetImported("no-such-id"); !apperrors.IsNotFound(err) {
		t.Errorf("want not-found error, got %v", err)
	}
}

func TestListWikisFiltersImported(t *testing.T) {
	s := testStore(t)

	a, _ := s.CreateWiki("awiki", "a.wikipedia.org", "Wp/a")
	if _, err := s.CreateWiki("bwiki", "b.wikipedia.org", "Wp/b"); err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	if err := s.SetImported(a.ID); err != nil {
		t.Fatalf("SetImported failed: %v", err)
	}

	pending, err := s.ListWikis(false)
	if err != nil {
		t.Fatalf("ListWikis failed: %v", err)
	}
	if len(pending) != 1 || pending[0].DBName != "bwiki" {
		t.Errorf("pending = %v, want only bwiki", pending)
	}

	all, err := s.ListWikis(true)
	if err != nil {
		t.Fatalf("ListWikis failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d wikis, want 2", len(all))
	}
}

func TestAppendAndListPages(t *testing.T) {
	s := testStore(t)

	wiki, _ := s.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz")

	if _, err := s.AppendPage(wiki.ID, "Wp/xyz/A", true, ""); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if _, err := s.AppendPage(wiki.ID, "Wp/xyz/B", false, `{"code":"badtoken","info":"x"}`); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if _, err := s.AppendPage("other-wiki", "Unrelated", true, ""); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}

	pages, err := s.ListPages(wiki.ID)
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Title != "Wp/xyz/A" || !pages[0].Success {
		t.Errorf("first outcome = %+v", pages[0])
	}
	if pages[1].Success || pages[1].Error == "" {
		t.Errorf("second outcome = %+v", pages[1])
	}
}

func TestUserLifecycle(t *testing.T) {
	s := testStore(t)

	user, err := s.UpsertUser("Alice", "key1", "secret1")
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if !user.Active {
		t.Error("new user must be active")
	}

	if err := s.DeactivateUser("Alice"); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}
	got, _ := s.GetUser("Alice")
	if got.Active {
		t.Error("user still active after deactivation")
	}

	// Refreshing credentials reactivates and keeps the record ID.
	refreshed, err := s.UpsertUser("Alice", "key2", "secret2")
	if err != nil {
		t.Fatalf("UpsertUser refresh failed: %v", err)
	}
	if refreshed.ID != user.ID {
		t.Errorf("refresh changed ID: %q -> %q", user.ID, refreshed.ID)
	}
	if !refreshed.Active || refreshed.Key != "key2" {
		t.Errorf("refreshed = %+v", refreshed)
	}

	byID, err := s.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Username != "Alice" {
		t.Errorf("GetUserByID username = %q", byID.Username)
	}

	if err := s.DeactivateUser("Nobody"); !apperrors.IsNotFound(err) {
		t.Errorf("want not-found error, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	wiki, err := s1.CreateWiki("xyzwiki", "xyz.wikipedia.org", "Wp/xyz")
	if err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	if _, err := s1.AppendPage(wiki.ID, "Wp/xyz/A", true, ""); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := s2.GetWiki("xyzwiki")
	if err != nil {
		t.Fatalf("GetWiki after reopen failed: %v", err)
	}
	if got.ID != wiki.ID {
		t.Errorf("ID after reopen = %q, want %q", got.ID, wiki.ID)
	}
	pages, err := s2.ListPages(wiki.ID)
	if err != nil || len(pages) != 1 {
		t.Errorf("pages after reopen = %v (err %v), want 1", pages, err)
	}
}

func TestSaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := s.CreateWiki("awiki", "a.wikipedia.org", "Wp/a"); err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}
	if _, err := s.CreateWiki("bwiki", "b.wikipedia.org", "Wp/b"); err != nil {
		t.Fatalf("CreateWiki failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "wikis.json.backup")); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}
