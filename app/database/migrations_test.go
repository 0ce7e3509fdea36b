package database

import (
	"path/filepath"
	"testing"
)

func TestRunMigrationsTwice(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		version, dirty, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("Expected no error on run %d, got: %v", i+1, err)
		}
		if version != 1 || dirty {
			t.Errorf("Expected clean version 1, got: %d (dirty %v)", version, dirty)
		}
	}

	tables, err := NewHashRepository(db).Tables()
	if err != nil {
		t.Fatalf("Expected catalog to be readable, got: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Expected empty catalog, got: %v", tables)
	}
}
