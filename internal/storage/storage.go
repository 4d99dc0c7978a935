package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the analyzer
// needs to fetch exports and publish reports.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// IsExport reports whether key looks like an inventory export.
func IsExport(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// FetchExports downloads every export under prefix into destDir and returns
// the local paths sorted by key.
func FetchExports(ctx context.Context, store ObjectStorage, prefix, destDir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	var paths []string
	for _, obj := range objects {
		if !IsExport(obj.Key) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		if rel == "" {
			rel = path.Base(obj.Key)
		}
		dest := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return nil, fmt.Errorf("download %s: %w", obj.Key, err)
		}
		log.Debug().Str("key", obj.Key).Int64("size", obj.Size).Msg("Fetched export")
		paths = append(paths, dest)
	}
	return paths, nil
}
