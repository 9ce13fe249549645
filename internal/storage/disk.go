package storage

import (
	"os"
	"path/filepath"
)

// DiskUsage is the on-disk footprint of each storage area, in bytes.
type DiskUsage struct {
	Database     int64 `json:"database_bytes"`
	VectorIndex  int64 `json:"vector_index_bytes"`
	KeywordIndex int64 `json:"keyword_index_bytes"`
	Uploads      int64 `json:"uploads_bytes"`
	Total        int64 `json:"total_bytes"`
}

// MeasureDiskUsage sums each storage area. The SQLite WAL and shared-memory
// files next to dbPath count toward Database. Missing paths contribute 0.
func MeasureDiskUsage(dbPath, indexDir, keywordPath, uploadDir string) (*DiskUsage, error) {
	var u DiskUsage
	var err error
	if u.Database, err = pathsSize(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
		return nil, err
	}
	if u.VectorIndex, err = pathsSize(indexDir); err != nil {
		return nil, err
	}
	if u.KeywordIndex, err = pathsSize(keywordPath); err != nil {
		return nil, err
	}
	if u.Uploads, err = pathsSize(uploadDir); err != nil {
		return nil, err
	}
	u.Total = u.Database + u.VectorIndex + u.KeywordIndex + u.Uploads
	return &u, nil
}

func pathsSize(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
