package database

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestRepository(t *testing.T) *HashRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewHashRepository(db)
}

func TestTableName(t *testing.T) {
	// md5("news")
	expected := "rss_508c75c8507a2ae5223dfd2faeb98122"
	if got := TableName("news"); got != expected {
		t.Errorf("Expected %s, got: %s", expected, got)
	}
	if TableName("news feed; DROP TABLE x") == TableName("news") {
		t.Error("Expected distinct table names")
	}
}

func TestCreateExistsDrop(t *testing.T) {
	repo := newTestRepository(t)
	name := `weird "name"; --`

	exists, err := repo.Exists(name)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if exists {
		t.Error("Expected table not to exist yet")
	}

	if err := repo.Create(name); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.Create(name); err != nil {
		t.Fatalf("Expected repeated create to succeed, got: %v", err)
	}

	exists, _ = repo.Exists(name)
	if !exists {
		t.Error("Expected table to exist after create")
	}

	tables, err := repo.Tables()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(tables) != 1 || tables[0].FeedName != name || tables[0].TableName != TableName(name) {
		t.Errorf("Expected catalog entry for %q, got: %+v", name, tables)
	}

	if err := repo.Drop(name); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	exists, _ = repo.Exists(name)
	if exists {
		t.Error("Expected table to be dropped")
	}
	tables, _ = repo.Tables()
	if len(tables) != 0 {
		t.Errorf("Expected empty catalog, got: %+v", tables)
	}
}

func TestInsertIfAbsent(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Create("news"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	inserted, err := repo.InsertIfAbsent("news", "abc")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !inserted {
		t.Error("Expected first insert to add a row")
	}

	inserted, err = repo.InsertIfAbsent("news", "abc")
	if err != nil {
		t.Fatalf("Expected duplicate insert to succeed, got: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate insert to be a no-op")
	}

	count, _ := repo.Count("news")
	if count != 1 {
		t.Errorf("Expected 1 row, got: %d", count)
	}
}

func TestInsertIntoMissingTable(t *testing.T) {
	repo := newTestRepository(t)

	if _, err := repo.InsertIfAbsent("missing", "abc"); err == nil {
		t.Error("Expected error for a feed without table")
	}
}

func TestEvictOldest(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Create("news"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	const maxRows, extra = 300, 7
	for i := 0; i < maxRows+extra; i++ {
		if _, err := repo.InsertIfAbsent("news", fmt.Sprintf("hash-%03d", i)); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	removed, err := repo.EvictOldest("news", maxRows)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if removed != extra {
		t.Errorf("Expected %d removed rows, got: %d", extra, removed)
	}

	hashes, err := repo.ReadAll("news")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(hashes) != maxRows {
		t.Fatalf("Expected %d rows, got: %d", maxRows, len(hashes))
	}
	if hashes[0] != fmt.Sprintf("hash-%03d", extra) {
		t.Errorf("Expected oldest surviving hash-%03d, got: %s", extra, hashes[0])
	}
	if hashes[maxRows-1] != fmt.Sprintf("hash-%03d", maxRows+extra-1) {
		t.Errorf("Expected newest hash to survive, got: %s", hashes[maxRows-1])
	}

	removed, _ = repo.EvictOldest("news", maxRows)
	if removed != 0 {
		t.Errorf("Expected nothing to evict under the cap, got: %d", removed)
	}
}
