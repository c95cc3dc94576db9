package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
)

// DirSource reads {dir}/{tier}.json and {mapDir}/{tier}_map.png.
type DirSource struct {
	dir    string
	mapDir string
}

// NewDirSource creates a directory source. mapDir defaults to dir.
func NewDirSource(dir, mapDir string) (*DirSource, error) {
	if dir == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "dataset directory not configured")
	}
	if mapDir == "" {
		mapDir = dir
	}
	return &DirSource{dir: dir, mapDir: mapDir}, nil
}

func (s *DirSource) Location() string { return describe(KindDir, s.dir) }

func (s *DirSource) Dataset(ctx context.Context, tier region.Tier) (region.Dataset, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, string(tier)+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tierNotFound(tier, s.dir)
	}
	if err != nil {
		return nil, unavailable(err, tier, "read dataset")
	}
	return region.ParseDataset(data)
}

func (s *DirSource) BaseMap(ctx context.Context, tier region.Tier) (*raster.Map, error) {
	return loadMap(s.mapDir, tier)
}

func (s *DirSource) Close() error { return nil }

// loadMap reads {dir}/{tier}_map.png, falling back to .webp.
func loadMap(dir string, tier region.Tier) (*raster.Map, error) {
	var lastErr error
	for _, ext := range []string{".png", ".webp"} {
		m, err := raster.Load(filepath.Join(dir, string(tier)+"_map"+ext))
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, unavailable(err, tier, "load base map")
		}
		lastErr = err
	}
	return nil, unavailable(lastErr, tier, "load base map")
}

var _ Source = (*DirSource)(nil)
