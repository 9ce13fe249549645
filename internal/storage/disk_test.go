package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMeasureDiskUsage(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "yomu.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-wal", []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}

	uploads := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(filepath.Join(uploads, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(uploads, "a"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(uploads, "nested", "b"), []byte("d"), 0644); err != nil {
		t.Fatal(err)
	}

	u, err := MeasureDiskUsage(db, filepath.Join(dir, "missing"), "", uploads)
	if err != nil {
		t.Fatal(err)
	}
	if u.Database != 7 {
		t.Errorf("database: got %d bytes, want 7", u.Database)
	}
	if u.VectorIndex != 0 || u.KeywordIndex != 0 {
		t.Errorf("missing and empty paths should be 0: %+v", u)
	}
	if u.Uploads != 4 {
		t.Errorf("uploads: got %d bytes, want 4", u.Uploads)
	}
	if u.Total != 11 {
		t.Errorf("total: got %d bytes, want 11", u.Total)
	}
}
