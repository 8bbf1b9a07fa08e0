package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lumina/internal/models"
)

func TestFileFootprint(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalogue.db")

	write := func(name string, n int) {
		t.Helper()
		if err := os.WriteFile(name, make([]byte, n), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		setup func()
		want  int64
	}{
		{name: "missing database", setup: func() {}, want: 0},
		{name: "database only", setup: func() { write(db, 10) }, want: 10},
		{name: "with wal and shm", setup: func() { write(db+"-wal", 5); write(db+"-shm", 3) }, want: 18},
		{name: "unrelated files ignored", setup: func() { write(filepath.Join(dir, "other.db"), 100) }, want: 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			got, err := FileFootprint(db)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestFileFootprint_inMemory(t *testing.T) {
	for _, p := range []string{"", ":memory:"} {
		got, err := FileFootprint(p)
		if err != nil || got != 0 {
			t.Errorf("FileFootprint(%q) = %d, %v", p, got, err)
		}
	}
}

func TestSQLiteStorage_DiskUsage(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "lumina.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	before, err := s.DiskUsage()
	if err != nil {
		t.Fatal(err)
	}
	chunks := []models.Chunk{{Text: "hello", Metadata: map[string]interface{}{models.MetaSource: "a.txt"}, Vector: make([]float32, 64)}}
	if err := s.AppendChunks(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	after, err := s.DiskUsage()
	if err != nil {
		t.Fatal(err)
	}
	if after == 0 || after < before {
		t.Errorf("disk usage before=%d after=%d", before, after)
	}
}
