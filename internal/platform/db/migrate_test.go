package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrationFile(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write migration file: %v", err)
	}
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "003_records.sql", "CREATE TABLE medical_record ();")
	writeMigrationFile(t, dir, "001_core.sql", "CREATE TABLE app_user ();")
	writeMigrationFile(t, dir, "002_ordering.sql", "CREATE TABLE patient_order ();")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("migration %d: expected version %d, got %d", i, want, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("expected first migration 001_core.sql, got %s", migrations[0].Name)
	}
}

func TestLoadMigrationsSkipsNonSQLAndUnversioned(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "001_core.sql", "SELECT 1;")
	writeMigrationFile(t, dir, "notes.txt", "not a migration")
	writeMigrationFile(t, dir, "readme.sql", "no version prefix")
	writeMigrationFile(t, dir, "abc_bad.sql", "non-numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/path")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing migrations directory")
	}
}

func TestLoadMigrationsReadsContent(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE medicine (id UUID PRIMARY KEY);"
	writeMigrationFile(t, dir, "001_pharmacy.sql", sql)

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if migrations[0].SQL != sql {
		t.Errorf("unexpected SQL content: %q", migrations[0].SQL)
	}
}
