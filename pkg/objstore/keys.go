package objstore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ObjectKey addresses one output file of one linking run
type ObjectKey struct {
	Prefix string
	RunID  string // UUIDv7 of the linking run
	Name   string
}

func (k ObjectKey) Key() string {
	return path.Join(k.Prefix, k.RunID, k.Name)
}

// ObjectStorage writes data streams to object storage.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data io.Reader) error
}

// UploadFiles stores every file in paths under prefix/runID/<base name> and
// returns the keys written.
func UploadFiles(ctx context.Context, store ObjectStorage, prefix, runID string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		key := ObjectKey{Prefix: prefix, RunID: runID, Name: filepath.Base(p)}.Key()
		if err := uploadFile(ctx, store, key, p); err != nil {
			return keys, err
		}
		zap.L().Info("uploaded output", zap.String("key", key), zap.String("run_id", runID))
		keys = append(keys, key)
	}
	return keys, nil
}

func uploadFile(ctx context.Context, store ObjectStorage, key, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return eris.Wrapf(err, "objstore: open %s", p)
	}
	defer f.Close()

	return store.Put(ctx, key, f)
}
