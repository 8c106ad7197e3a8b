package ops

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sopstack/inventory-backend/internal/storage"
)

// Syncer pulls a period's snapshot files from object storage into the
// local snapshot tree, where the pipeline reads them.
type Syncer struct {
	store       storage.ObjectStorage
	snapshotDir string
}

func NewSyncer(store storage.ObjectStorage, snapshotDir string) *Syncer {
	return &Syncer{store: store, snapshotDir: snapshotDir}
}

// remotePrefix is the object-storage layout: snapshots/<year>/<month>/.
func remotePrefix(year, month int) string {
	return fmt.Sprintf("snapshots/%d/%02d/", year, month)
}

// SyncPeriod downloads every CSV and XLSX object for a period and
// returns the local paths written.
func (s *Syncer) SyncPeriod(ctx context.Context, year, month int) ([]string, error) {
	if s.store == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	prefix := remotePrefix(year, month)
	objects, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot objects under %s: %w", prefix, err)
	}

	localDir := filepath.Join(s.snapshotDir, strconv.Itoa(year), fmt.Sprintf("%02d", month))

	var downloaded []string
	for _, obj := range objects {
		name := path.Base(obj.Key)
		ext := strings.ToLower(path.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			log.Debug().Str("key", obj.Key).Msg("skipping non-table object")
			continue
		}

		dest := filepath.Join(localDir, name)
		if err := s.store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return nil, fmt.Errorf("downloading %s: %w", obj.Key, err)
		}
		downloaded = append(downloaded, dest)
	}

	log.Info().Int("year", year).Int("month", month).Int("files", len(downloaded)).
		Msg("snapshot sync complete")

	return downloaded, nil
}
