package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/tilezen/ogctiles/pkg/tile"
)

type FileStorage struct {
	pattern     *tile.Template
	healthcheck string
}

// NewFileStorage reads tiles from paths rendered from pattern, e.g.
// /srv/tiles/{layer}/{z}/{x}/{y}.{fmt}
func NewFileStorage(pattern *tile.Template, healthcheck string) *FileStorage {
	return &FileStorage{
		pattern:     pattern,
		healthcheck: healthcheck,
	}
}

func (f *FileStorage) Location(c tile.Coord, layer string) (string, error) {
	path, err := f.pattern.Render(keyValues(c, layer))
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(path), nil
}

func (f *FileStorage) Fetch(_ context.Context, c tile.Coord, layer string) (*StorageResponse, error) {
	tilepath, err := f.Location(c, layer)
	if err != nil {
		return nil, err
	}
	return respondWithPath(tilepath)
}

func respondWithPath(path string) (*StorageResponse, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &StorageResponse{NotFound: true}, nil
		}
		return nil, err
	}

	body, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lastModified := info.ModTime().UTC().Truncate(time.Second)
	return &StorageResponse{
		Response: &SuccessfulResponse{
			Body:         body,
			LastModified: &lastModified,
			Size:         uint64(len(body)),
		},
	}, nil
}

func (f *FileStorage) HealthCheck(ctx context.Context) error {
	if f.healthcheck == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.Open(filepath.FromSlash(f.healthcheck))
	if err == nil {
		err = file.Close()
	}
	return err
}

func (f *FileStorage) String() string {
	return "file:" + f.pattern.String()
}
