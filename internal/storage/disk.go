package storage

import (
	"errors"
	"io/fs"
	"os"
)

// sqliteSidecars are the files SQLite keeps next to the database in WAL and rollback modes.
var sqliteSidecars = []string{"", "-wal", "-shm", "-journal"}

// DiskUsage returns the bytes the catalogue database occupies, sidecar files included.
func (s *SQLiteStorage) DiskUsage() (int64, error) {
	return FileFootprint(s.path)
}

// FileFootprint sums the sizes of an SQLite database file and whichever of its
// sidecar files exist. A missing database counts as zero.
func FileFootprint(dbPath string) (int64, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return 0, nil
	}
	var total int64
	for _, suffix := range sqliteSidecars {
		info, err := os.Stat(dbPath + suffix)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}
