package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// LocalSource reads <root>/<collection>/*.json, with "/" in the collection id
// replaced by "_".
type LocalSource struct {
	root string
}

func NewLocalSource(root string) *LocalSource {
	return &LocalSource{root: root}
}

func (s *LocalSource) Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error) {
	dir := filepath.Join(s.root, collectionKey(collectionID))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("listing scenes in %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var images []*raster.Image
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scenes, err := s.readFile(filepath.Join(dir, name), collectionID)
		if err != nil {
			return nil, err
		}
		images = append(images, scenes...)
	}
	return images, nil
}

func (s *LocalSource) readFile(path, collectionID string) ([]*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("opening scene file %s", path), err)
	}
	defer f.Close()

	images, err := decodeScenes(f, collectionID)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok {
			return nil, appErr.WithDetails(path)
		}
		return nil, err
	}
	return images, nil
}
